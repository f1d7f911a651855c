// Package engine implements the frame loop/mixer core: the Component
// tree, Channel state machine, Mixer, and double-buffer output handoff
// from spec.md §4.5-§4.7.
package engine

import (
	"sort"
	"sync"

	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// Component is the universal node of the engine tree: a stable id, a
// parent back-reference, ordered children (both path-addressed and
// index-addressed), and ordered parameters. A Component belongs to
// exactly one parent (or is the engine root) and to exactly one engine
// registry.
//
// Back-references are ids into the registry, not owning pointers (the
// registry is the single owner of all components), per spec.md §9 — the
// parent pointer here is a convenience cache that is only ever valid
// while the component is live; handles always resolve through the
// registry, never through this pointer.
type Component struct {
	mu sync.Mutex

	id     registry.ID
	class  string
	parent *Component

	children     map[string]*Component
	childOrder   []string
	childArrays  map[string][]*Component
	arrayOrder   []string
	parameters   map[string]param.Parameter
	paramOrder   []string

	// ModulationColor is a persisted UI hint (packed ARGB), carried
	// through save/load untouched by the core.
	ModulationColor uint32

	disposed bool
}

// NewComponent creates a detached component (id = Unassigned) of the given
// class name. class is persisted and drives InstantiationError lookups
// during load.
func NewComponent(class string) *Component {
	return &Component{
		class:       class,
		children:    make(map[string]*Component),
		childArrays: make(map[string][]*Component),
		parameters:  make(map[string]param.Parameter),
	}
}

func (c *Component) ID() registry.ID { return c.id }

// SetID implements registry.Identifiable; only the registry calls this.
func (c *Component) SetID(id registry.ID) { c.id = id }
func (c *Component) Class() string { return c.class }
func (c *Component) Parent() *Component { return c.parent }

// Attach registers c (assigning an id if unassigned) and links it under
// parent at the given path segment.
func (c *Component) Attach(reg *registry.Registry, parent *Component, segment string) error {
	if c.id == registry.Unassigned {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	c.parent = parent
	if parent != nil {
		parent.mu.Lock()
		if _, exists := parent.children[segment]; !exists {
			parent.childOrder = append(parent.childOrder, segment)
		}
		parent.children[segment] = c
		parent.mu.Unlock()
	}
	return nil
}

// AttachArrayChild appends c to the index-addressed child array at
// segment.
func (c *Component) AttachArrayChild(reg *registry.Registry, parent *Component, segment string) error {
	if c.id == registry.Unassigned {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	c.parent = parent
	if parent != nil {
		parent.mu.Lock()
		if _, exists := parent.childArrays[segment]; !exists {
			parent.arrayOrder = append(parent.arrayOrder, segment)
		}
		parent.childArrays[segment] = append(parent.childArrays[segment], c)
		parent.mu.Unlock()
	}
	return nil
}

// AddParameter attaches p under segment. A parameter belongs to at most
// one component — callers must not reuse the same *Parameter across
// components.
func (c *Component) AddParameter(segment string, p param.Parameter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.parameters[segment]; !exists {
		c.paramOrder = append(c.paramOrder, segment)
	}
	c.parameters[segment] = p
}

// Parameter looks up a parameter by path segment.
func (c *Component) Parameter(segment string) (param.Parameter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.parameters[segment]
	return p, ok
}

// Parameters returns all parameters in registration order.
func (c *Component) Parameters() []param.Parameter {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]param.Parameter, 0, len(c.paramOrder))
	for _, seg := range c.paramOrder {
		out = append(out, c.parameters[seg])
	}
	return out
}

// ParameterSegments returns the path segments of all parameters, in
// registration order.
func (c *Component) ParameterSegments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.paramOrder))
	copy(out, c.paramOrder)
	return out
}

// ChildSegments returns the path segments of all path-addressed children,
// in attach order.
func (c *Component) ChildSegments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.childOrder))
	copy(out, c.childOrder)
	return out
}

// ArraySegments returns the segments under which index-addressed child
// arrays were attached, in first-attach order.
func (c *Component) ArraySegments() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.arrayOrder))
	copy(out, c.arrayOrder)
	return out
}

// Child looks up a path-addressed child.
func (c *Component) Child(segment string) (*Component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.children[segment]
	return ch, ok
}

// Children returns all path-addressed children in attach order.
func (c *Component) Children() []*Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Component, 0, len(c.childOrder))
	for _, seg := range c.childOrder {
		out = append(out, c.children[seg])
	}
	return out
}

// ArrayChildren returns the index-addressed children at segment.
func (c *Component) ArrayChildren(segment string) []*Component {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Component, len(c.childArrays[segment]))
	copy(out, c.childArrays[segment])
	return out
}

// AllParameters walks the subtree rooted at c and returns every parameter
// owned by c or any descendant, used by dispose to find modulations that
// need removing.
func (c *Component) AllParameters() []param.Parameter {
	var out []param.Parameter
	var walk func(n *Component)
	walk = func(n *Component) {
		out = append(out, n.Parameters()...)
		for _, ch := range n.Children() {
			walk(ch)
		}
		for _, seg := range n.arrayOrder {
			for _, ch := range n.childArrays[seg] {
				walk(ch)
			}
		}
	}
	walk(c)
	return out
}

// BindingRemover strips control-surface mappings addressed at a disposed
// component, the same narrow-boundary shape as InboundDispatcher (mixer.go)
// — engine defines the interface so it never has to import a concrete
// transport package just to let Dispose clean up after itself.
type BindingRemover interface {
	RemoveBindingsForComponent(id registry.ID)
}

// Dispose recursively disposes c and its descendants exactly once: it
// removes every modulation and trigger-modulation that targets (or
// sources from, when the source is itself a parameter) any parameter in
// the subtree, strips any MIDI/OSC mapping addressed at one of those
// components (bindings may be nil if the caller has no control surface
// wired up), then unregisters every id from reg. Safe to call more than
// once; subsequent calls are no-ops.
func (c *Component) Dispose(reg *registry.Registry, graph *modulation.Graph, bindings BindingRemover) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.mu.Unlock()

	for _, ch := range c.Children() {
		ch.Dispose(reg, graph, bindings)
	}
	for _, seg := range c.arrayOrder {
		for _, ch := range c.childArrays[seg] {
			ch.Dispose(reg, graph, bindings)
		}
	}

	if graph != nil {
		owned := make(map[param.Parameter]bool)
		for _, p := range c.Parameters() {
			owned[p] = true
		}
		for id, mod := range graph.Modulations() {
			if owned[mod.Target] {
				graph.RemoveModulation(id)
				continue
			}
			if srcParam, ok := mod.Source.(param.Parameter); ok && owned[srcParam] {
				graph.RemoveModulation(id)
			}
		}
		for id, tm := range graph.TriggerModulations() {
			targetAsParam := param.Parameter(tm.Target)
			if owned[targetAsParam] {
				graph.RemoveTriggerModulation(id)
				continue
			}
			if srcParam, ok := tm.Source.(param.Parameter); ok && owned[srcParam] {
				graph.RemoveTriggerModulation(id)
			}
		}
	}

	if bindings != nil && c.id != registry.Unassigned {
		bindings.RemoveBindingsForComponent(c.id)
	}

	if c.id != registry.Unassigned {
		reg.Dispose(c.id)
	}
}

// sortedKeys is a small helper used by persistence to walk maps in a
// deterministic order when the caller only has a map, not the component's
// own ordered slices (e.g. reconstructing from a decoded document).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
