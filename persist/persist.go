package persist

import (
	"fmt"
	"time"

	"github.com/lumenforge/lumencore/capability"
	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// PatternFactory and EffectFactory construct a concrete pattern/effect by
// persisted class name. The host registers one entry per class it knows
// how to build; everything else falls back to a placeholder on load
// (spec.md §7 InstantiationError).
type PatternFactory func() capability.Pattern
type EffectFactory func() capability.Effect

// Classes is the host-supplied registry of constructible pattern/effect
// classes, bound once at startup.
type Classes struct {
	Patterns map[string]PatternFactory
	Effects  map[string]EffectFactory
}

// Codec binds a registry, a class registry, and an error channel; it is
// the single object that walks a Document in both directions.
type Codec struct {
	Reg      *registry.Registry
	Classes  Classes
	Graph    *modulation.Graph
	Reporter enginerr.Reporter

	// paramOwner tracks which component id and path a given live parameter
	// was saved under, rebuilt on every SaveDocument call. A parameter has
	// no owner back-reference of its own (Component only tracks children
	// forward, by segment), so SaveModulation needs this index to turn a
	// *param.CompoundParam target back into a (componentId, path) pair.
	paramOwner map[param.Parameter]ownerRef

	// ownerByID is the load-time mirror of paramOwner: every component
	// node LoadDocument reconstructs (channel, group, master, and their
	// pattern/effect sub-nodes) registers itself here under its persisted
	// id, so LoadModulation can resolve a ModulationDoc's owner+path back
	// to a live parameter regardless of which kind of node it lives on.
	ownerByID map[int64]*engine.Component
}

type ownerRef struct {
	id   registry.ID
	path string
}

func NewCodec(reg *registry.Registry, classes Classes, graph *modulation.Graph) *Codec {
	return &Codec{
		Reg: reg, Classes: classes, Graph: graph, Reporter: enginerr.NopReporter,
		paramOwner: make(map[param.Parameter]ownerRef),
		ownerByID:  make(map[int64]*engine.Component),
	}
}

// ---- parameter <-> primitive ----

func paramToPrimitive(p param.Parameter) (any, bool) {
	switch v := p.(type) {
	case *param.BoundedParam:
		return v.Value(), true
	case *param.CompoundParam:
		return v.Base(), true
	case *param.BoolParam:
		return v.Value(), true
	case *param.DiscreteParam:
		return v.Value(), true
	case *param.StringParam:
		return v.Value(), true
	case *param.EnumParam:
		return v.Index(), true
	case *param.ColorParam:
		h, s, b := v.HSB()
		return map[string]any{"h": h, "s": s, "b": b}, true
	case *param.MutableParam:
		return v.Value(), true
	default:
		// FunctionalParam (computed, read-only) and TriggerParam (momentary)
		// carry no state worth persisting.
		return nil, false
	}
}

func applyPrimitive(p param.Parameter, v any) {
	switch target := p.(type) {
	case *param.BoundedParam:
		if f, ok := floatLike(v); ok {
			target.SetValue(f)
		}
	case *param.CompoundParam:
		if f, ok := floatLike(v); ok {
			target.SetBase(f)
		}
	case *param.BoolParam:
		if b, ok := v.(bool); ok {
			target.SetValue(b)
		}
	case *param.DiscreteParam:
		if i, ok := intLike(v); ok {
			target.SetValue(i)
		}
	case *param.StringParam:
		if s, ok := v.(string); ok {
			target.SetValue(s)
		}
	case *param.EnumParam:
		if i, ok := intLike(v); ok {
			target.SetIndex(i)
		}
	case *param.ColorParam:
		if m, ok := v.(map[string]any); ok {
			h, _ := floatLike(m["h"])
			s, _ := floatLike(m["s"])
			b, _ := floatLike(m["b"])
			target.SetHSB(h, s, b)
		}
	case *param.MutableParam:
		target.SetValue(v)
	}
}

func floatLike(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func intLike(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// ---- generic Component <-> ComponentDoc ----

// saveNode walks c's own parameters and path-addressed children/array
// children into a ComponentDoc. It does not know about any concrete bus
// type's bespoke fields (Patterns, Effects, Clips, ...) — callers that
// have those build the doc's Children/ChildArrays for them separately
// (see SaveChannel) and then merge saveNode's output in.
func (cd *Codec) saveNode(c *engine.Component) *ComponentDoc {
	doc := &ComponentDoc{
		ID:              int64(c.ID()),
		Class:           c.Class(),
		ModulationColor: c.ModulationColor,
		Parameters:      make(map[string]any),
		Children:        make(map[string]*ComponentDoc),
		ChildArrays:     make(map[string][]*ComponentDoc),
	}
	for _, seg := range c.ParameterSegments() {
		p, ok := c.Parameter(seg)
		if !ok {
			continue
		}
		cd.paramOwner[p] = ownerRef{id: c.ID(), path: seg}
		if v, ok := paramToPrimitive(p); ok {
			doc.Parameters[seg] = v
		}
	}
	for _, seg := range c.ChildSegments() {
		if child, ok := c.Child(seg); ok {
			doc.Children[seg] = cd.saveNode(child)
		}
	}
	for _, seg := range c.ArraySegments() {
		for _, child := range c.ArrayChildren(seg) {
			doc.ChildArrays[seg] = append(doc.ChildArrays[seg], cd.saveNode(child))
		}
	}
	return doc
}

// loadNode applies a ComponentDoc's ModulationColor and Parameters onto an
// already-constructed component (its children are expected to already be
// attached by whatever built it — the shell-reconstruction analogue of
// saveNode).
func (cd *Codec) loadNode(c *engine.Component, doc *ComponentDoc) {
	c.ModulationColor = doc.ModulationColor
	for seg, v := range doc.Parameters {
		if p, ok := c.Parameter(seg); ok {
			applyPrimitive(p, v)
		}
	}
}

// ---- Channel ----

const (
	classPatternChannel = "PatternChannel"
	classGroupChannel   = "GroupChannel"
	classMaster         = "Master"
	classPlaceholder    = "__placeholder__"
)

// SaveChannel serializes a pattern channel: its own parameters/internal
// state, plus its pattern and effect slots as array children.
func (cd *Codec) SaveChannel(ch *engine.Channel) *ComponentDoc {
	doc := cd.saveNode(ch.Node())
	doc.Class = classPatternChannel
	doc.Internal = ch.InternalState()
	for _, slot := range ch.Patterns {
		doc.ChildArrays["patterns"] = append(doc.ChildArrays["patterns"], cd.savePatternSlot(slot))
	}
	for _, slot := range ch.Effects {
		doc.ChildArrays["effects"] = append(doc.ChildArrays["effects"], cd.saveEffectSlot(slot))
	}
	return doc
}

func (cd *Codec) savePatternSlot(slot *engine.PatternSlot) *ComponentDoc {
	if raw, ok := slot.Pattern.(*placeholderPattern); ok {
		return raw.blob
	}
	doc := cd.saveNode(slot.Node)
	doc.Class = slot.Class
	return doc
}

func (cd *Codec) saveEffectSlot(slot *engine.EffectSlot) *ComponentDoc {
	if raw, ok := slot.Effect.(*placeholderEffect); ok {
		return raw.blob
	}
	doc := cd.saveNode(slot.Node)
	doc.Class = slot.Node.Class()
	cd.paramOwner[slot.Enabled] = ownerRef{id: slot.Node.ID(), path: "enabled"}
	cd.paramOwner[slot.Fade] = ownerRef{id: slot.Node.ID(), path: "fade"}
	if v, ok := paramToPrimitive(slot.Enabled); ok {
		doc.Parameters["enabled"] = v
	}
	if v, ok := paramToPrimitive(slot.Fade); ok {
		doc.Parameters["fade"] = v
	}
	return doc
}

// LoadChannel reconstructs a pattern channel from doc: building every
// pattern/effect slot by class first (since NewChannel requires a
// non-empty pattern list up front), then registering the channel itself
// with its document id.
func (cd *Codec) LoadChannel(doc *ComponentDoc, pointCount int) (*engine.Channel, error) {
	patterns := cd.loadPatternSlots(doc.ChildArrays["patterns"])
	ch, err := engine.NewChannel(pointCount, patterns)
	if err != nil {
		return nil, err
	}
	if err := cd.Reg.RegisterWithID(ch.Node(), registry.ID(doc.ID)); err != nil {
		return nil, enginerr.Wrap(enginerr.SerializationError, "registering channel id", err)
	}
	cd.ownerByID[doc.ID] = ch.Node()
	cd.loadNode(ch.Node(), doc)
	if doc.Internal != nil {
		ch.ApplyInternalState(doc.Internal)
	}
	for _, effDoc := range doc.ChildArrays["effects"] {
		slot := cd.loadEffectSlot(effDoc)
		ch.Effects = append(ch.Effects, slot)
	}
	return ch, nil
}

// LoadChannelFresh rebuilds a pattern channel from doc exactly like
// LoadChannel, except it registers the channel under a brand new registry
// id instead of preserving doc's old one. This is the building block a
// destroying command needs for its undo: recreating a channel that must
// never collide with whatever, if anything, now occupies the id it gave up
// on Do.
func (cd *Codec) LoadChannelFresh(doc *ComponentDoc, pointCount int) (*engine.Channel, error) {
	patterns := cd.loadPatternSlots(doc.ChildArrays["patterns"])
	ch, err := engine.NewChannel(pointCount, patterns)
	if err != nil {
		return nil, err
	}
	cd.Reg.BumpNextIDAbove(registry.ID(doc.ID))
	if err := cd.Reg.Register(ch.Node()); err != nil {
		return nil, enginerr.Wrap(enginerr.SerializationError, "registering recreated channel", err)
	}
	cd.ownerByID[int64(ch.Node().ID())] = ch.Node()
	cd.loadNode(ch.Node(), doc)
	if doc.Internal != nil {
		ch.ApplyInternalState(doc.Internal)
	}
	for _, effDoc := range doc.ChildArrays["effects"] {
		slot := cd.loadEffectSlot(effDoc)
		ch.Effects = append(ch.Effects, slot)
	}
	return ch, nil
}

func (cd *Codec) loadPatternSlots(docs []*ComponentDoc) []*engine.PatternSlot {
	slots := make([]*engine.PatternSlot, 0, len(docs))
	for _, d := range docs {
		slots = append(slots, cd.loadPatternSlot(d))
	}
	if len(slots) == 0 {
		// A channel must have at least one pattern; an empty/corrupt
		// document still produces a loadable channel showing black.
		slots = append(slots, &engine.PatternSlot{
			Node:    engine.NewComponent(classPlaceholder),
			Pattern: capability.SolidColor(0xFF000000),
			Class:   classPlaceholder,
		})
	}
	return slots
}

func (cd *Codec) loadPatternSlot(d *ComponentDoc) *engine.PatternSlot {
	node := engine.NewComponent(d.Class)
	node.SetID(registry.ID(d.ID))
	cd.loadNode(node, d)
	cd.ownerByID[d.ID] = node

	factory, ok := cd.Classes.Patterns[d.Class]
	if !ok {
		cd.Reporter.Report(enginerr.InstantiationError, fmt.Sprintf("unknown pattern class %q", d.Class), "")
		return &engine.PatternSlot{Node: node, Pattern: &placeholderPattern{blob: d}, Class: d.Class}
	}
	return &engine.PatternSlot{Node: node, Pattern: factory(), Class: d.Class}
}

func (cd *Codec) loadEffectSlot(d *ComponentDoc) *engine.EffectSlot {
	node := engine.NewComponent(d.Class)
	node.SetID(registry.ID(d.ID))
	cd.loadNode(node, d)
	cd.ownerByID[d.ID] = node

	enabled := param.NewBool("enabled", true)
	fade := param.NewBounded("fade", 0, 1, 1)
	node.AddParameter("enabled", enabled)
	node.AddParameter("fade", fade)
	if v, ok := d.Parameters["enabled"]; ok {
		applyPrimitive(enabled, v)
	}
	if v, ok := d.Parameters["fade"]; ok {
		applyPrimitive(fade, v)
	}

	factory, ok := cd.Classes.Effects[d.Class]
	if !ok {
		cd.Reporter.Report(enginerr.InstantiationError, fmt.Sprintf("unknown effect class %q", d.Class), "")
		return &engine.EffectSlot{Node: node, Effect: &placeholderEffect{blob: d}, Enabled: enabled, Fade: fade}
	}
	return &engine.EffectSlot{Node: node, Effect: factory(), Enabled: enabled, Fade: fade}
}

// placeholderPattern/placeholderEffect are inert stand-ins for a class the
// host's Classes registry doesn't know how to build. They render nothing
// (pattern: solid black; effect: no-op) and carry the original document
// fragment so an unrelated edit-and-resave still reproduces that fragment
// byte-for-byte instead of silently dropping it.
type placeholderPattern struct {
	capability.NoopLifecycle
	blob *ComponentDoc
}

func (p *placeholderPattern) Run(_ time.Duration, out capability.Buffer) {
	for i := range out {
		out[i] = capability.Color(0xFF000000)
	}
}

type placeholderEffect struct {
	capability.NoopLifecycle
	blob *ComponentDoc
}

func (p *placeholderEffect) Run(time.Duration, float64, capability.Buffer) {}

var _ capability.Pattern = (*placeholderPattern)(nil)
var _ capability.Effect = (*placeholderEffect)(nil)

// ---- GroupChannel ----

// SaveGroupChannel serializes a group channel: its own parameters/effects
// and, for each child pattern channel, just that child's id — the full
// child document lives alongside it in EngineDoc.Channels, keeping the
// document flat instead of deeply nested.
func (cd *Codec) SaveGroupChannel(g *engine.GroupChannel) *ComponentDoc {
	doc := cd.saveNode(g.Node())
	doc.Class = classGroupChannel
	for _, slot := range g.Effects {
		doc.ChildArrays["effects"] = append(doc.ChildArrays["effects"], cd.saveEffectSlot(slot))
	}
	doc.Internal = map[string]any{"children": groupChildIDs(g)}
	return doc
}

func groupChildIDs(g *engine.GroupChannel) []int64 {
	ids := make([]int64, len(g.Children))
	for i, ch := range g.Children {
		ids[i] = int64(ch.ID())
	}
	return ids
}

// LoadGroupChannel reconstructs a group channel's own state. Its children
// list is wired up by LoadDocument once every channel in the document has
// been loaded and registered, since a group's children are ordinary
// top-level channels referenced by id, not owned substructure.
func (cd *Codec) LoadGroupChannel(doc *ComponentDoc, pointCount int) (*engine.GroupChannel, []int64, error) {
	g := engine.NewGroupChannel(pointCount)
	if err := cd.Reg.RegisterWithID(g.Node(), registry.ID(doc.ID)); err != nil {
		return nil, nil, enginerr.Wrap(enginerr.SerializationError, "registering group channel id", err)
	}
	cd.ownerByID[doc.ID] = g.Node()
	cd.loadNode(g.Node(), doc)
	for _, effDoc := range doc.ChildArrays["effects"] {
		g.Effects = append(g.Effects, cd.loadEffectSlot(effDoc))
	}
	var childIDs []int64
	if doc.Internal != nil {
		for _, v := range toAnySlice(doc.Internal["children"]) {
			if id, ok := intLike(v); ok {
				childIDs = append(childIDs, int64(id))
			}
		}
	}
	return g, childIDs, nil
}

func toAnySlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []int64:
		out := make([]any, len(s))
		for i, n := range s {
			out[i] = n
		}
		return out
	default:
		return nil
	}
}

// ---- MasterChannel ----

func (cd *Codec) SaveMaster(m *engine.MasterChannel) *ComponentDoc {
	doc := cd.saveNode(m.Node())
	doc.Class = classMaster
	for _, slot := range m.Effects {
		doc.ChildArrays["effects"] = append(doc.ChildArrays["effects"], cd.saveEffectSlot(slot))
	}
	return doc
}

func (cd *Codec) LoadMaster(doc *ComponentDoc) (*engine.MasterChannel, error) {
	m := engine.NewMasterChannel()
	if err := cd.Reg.RegisterWithID(m.Node(), registry.ID(doc.ID)); err != nil {
		return nil, enginerr.Wrap(enginerr.SerializationError, "registering master id", err)
	}
	cd.ownerByID[doc.ID] = m.Node()
	cd.loadNode(m.Node(), doc)
	for _, effDoc := range doc.ChildArrays["effects"] {
		m.Effects = append(m.Effects, cd.loadEffectSlot(effDoc))
	}
	return m, nil
}

// ---- modulation edges ----

// SaveModulation serializes every compound and trigger modulation edge
// currently in the graph. A numeric-parameter source (rather than a
// modulator) is addressed by the owning component's id plus its parameter
// path; a modulator source is addressed by its Label instead, since
// modulators carry no registry identity (command.AddModulationCommand
// documents the same asymmetry).
func (cd *Codec) SaveModulation() []ModulationDoc {
	var out []ModulationDoc
	for _, mod := range cd.Graph.Modulations() {
		owner := cd.paramOwner[mod.Target]
		d := ModulationDoc{
			TargetOwner: int64(owner.id),
			TargetPath:  owner.path,
			Amount:      mod.Amount,
			Polarity:    int(mod.Polarity),
		}
		cd.describeSource(mod.Source, &d)
		out = append(out, d)
	}
	for _, tm := range cd.Graph.TriggerModulations() {
		owner := cd.paramOwner[param.Parameter(tm.Target)]
		d := ModulationDoc{
			TargetOwner: int64(owner.id),
			TargetPath:  owner.path,
			Trigger:     true,
			TriggerMode: int(tm.Mode),
		}
		cd.describeBoolSource(tm.Source, &d)
		out = append(out, d)
	}
	return out
}

func (cd *Codec) describeSource(src modulation.NumericSource, d *ModulationDoc) {
	if m, ok := src.(modulation.Modulator); ok {
		d.ModulatorLabel = m.Label()
		return
	}
	if p, ok := src.(param.Parameter); ok {
		owner := cd.paramOwner[p]
		d.SourceOwner = int64(owner.id)
		d.SourcePath = owner.path
	}
}

func (cd *Codec) describeBoolSource(src modulation.BoolSource, d *ModulationDoc) {
	if m, ok := src.(modulation.Modulator); ok {
		d.ModulatorLabel = m.Label()
		return
	}
	if p, ok := src.(param.Parameter); ok {
		owner := cd.paramOwner[p]
		d.SourceOwner = int64(owner.id)
		d.SourcePath = owner.path
	}
}

// LoadModulation re-creates every modulation edge against the component
// tree LoadDocument has already reconstructed (indexed in cd.ownerByID as
// each channel/group/master/pattern/effect was loaded).
func (cd *Codec) LoadModulation(docs []ModulationDoc) {
	for _, d := range docs {
		target, ok := resolveParam(cd.ownerByID, d.TargetOwner, d.TargetPath)
		if !ok {
			cd.Reporter.Report(enginerr.SerializationError, fmt.Sprintf("modulation target %d/%s not found", d.TargetOwner, d.TargetPath), "")
			continue
		}
		source, ok := cd.resolveSource(d)
		if !ok {
			cd.Reporter.Report(enginerr.SerializationError, fmt.Sprintf("modulation source for target %s not found", d.TargetPath), "")
			continue
		}
		if d.Trigger {
			boolTarget, ok := target.(*param.BoolParam)
			boolSource, sok := source.(modulation.BoolSource)
			if !ok || !sok {
				continue
			}
			_, _ = cd.Graph.AddTriggerModulation(boolSource, boolTarget, modulation.TriggerMode(d.TriggerMode))
			continue
		}
		compoundTarget, ok := target.(*param.CompoundParam)
		numericSource, sok := source.(modulation.NumericSource)
		if !ok || !sok {
			continue
		}
		_, _ = cd.Graph.AddModulation(numericSource, compoundTarget, d.Amount, param.Polarity(d.Polarity))
	}
}

func (cd *Codec) resolveSource(d ModulationDoc) (any, bool) {
	if d.ModulatorLabel != "" {
		return cd.Graph.ModulatorByLabel(d.ModulatorLabel)
	}
	return resolveParam(cd.ownerByID, d.SourceOwner, d.SourcePath)
}

func resolveParam(owners map[int64]*engine.Component, ownerID int64, path string) (param.Parameter, bool) {
	c, ok := owners[ownerID]
	if !ok {
		return nil, false
	}
	return c.Parameter(path)
}

// ---- top-level document ----

const documentVersion = 1

// SaveDocument walks the mixer's current bus list plus master and the
// modulation graph into one Document, ready to marshal with yaml.v3.
// Per spec.md §6 the registry's project-remap table is reset immediately
// before every save so the ids written out are the live ones, not
// whatever a previous load happened to remap them from.
func (cd *Codec) SaveDocument(buses []engine.IdentifiedBus, master *engine.MasterChannel, tempoDoc map[string]any) *Document {
	cd.Reg.ResetProjectRemap()
	cd.paramOwner = make(map[param.Parameter]ownerRef)

	doc := &Document{
		Version: documentVersion,
		Engine: EngineDoc{
			Master: cd.SaveMaster(master),
			Tempo:  tempoDoc,
		},
	}
	for _, b := range buses {
		switch bus := b.(type) {
		case *engine.Channel:
			doc.Engine.Channels = append(doc.Engine.Channels, cd.SaveChannel(bus))
		case *engine.GroupChannel:
			doc.Engine.Channels = append(doc.Engine.Channels, cd.SaveGroupChannel(bus))
		}
	}
	doc.Engine.Modulation = cd.SaveModulation()
	return doc
}

// LoadDocument reconstructs every bus and the modulation graph from doc,
// following spec.md §6's load protocol: reset the remap table, scan the
// document for the highest serialized id, bump the registry past it, then
// load the component tree so any id collision with a still-live id from a
// previous session gets remapped instead of silently overwritten.
func (cd *Codec) LoadDocument(doc *Document, pointCount int) ([]engine.IdentifiedBus, *engine.MasterChannel, error) {
	cd.Reg.ResetProjectRemap()
	cd.Reg.BumpNextIDAbove(registry.ID(maxDocID(doc)))
	cd.ownerByID = make(map[int64]*engine.Component)

	master, err := cd.LoadMaster(doc.Engine.Master)
	if err != nil {
		return nil, nil, err
	}

	var buses []engine.IdentifiedBus
	groups := make(map[*engine.GroupChannel][]int64)

	for _, cdoc := range doc.Engine.Channels {
		switch cdoc.Class {
		case classGroupChannel:
			g, childIDs, err := cd.LoadGroupChannel(cdoc, pointCount)
			if err != nil {
				return nil, nil, err
			}
			groups[g] = childIDs
			buses = append(buses, g)
		default:
			ch, err := cd.LoadChannel(cdoc, pointCount)
			if err != nil {
				return nil, nil, err
			}
			buses = append(buses, ch)
		}
	}

	for g, childIDs := range groups {
		for _, id := range childIDs {
			for _, b := range buses {
				if ch, ok := b.(*engine.Channel); ok && int64(ch.ID()) == id {
					g.AddChild(ch)
				}
			}
		}
	}

	cd.LoadModulation(doc.Engine.Modulation)
	return buses, master, nil
}

func maxDocID(doc *Document) int64 {
	var max int64
	if doc.Engine.Master != nil {
		max = maxOf(max, scanMaxID(doc.Engine.Master))
	}
	for _, c := range doc.Engine.Channels {
		max = maxOf(max, scanMaxID(c))
	}
	return max
}

func scanMaxID(d *ComponentDoc) int64 {
	max := d.ID
	for _, child := range d.Children {
		max = maxOf(max, scanMaxID(child))
	}
	for _, arr := range d.ChildArrays {
		for _, child := range arr {
			max = maxOf(max, scanMaxID(child))
		}
	}
	return max
}

func maxOf(a, b int64) int64 {
	if b > a {
		return b
	}
	return a
}
