package engine

import (
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// Handle is a stable reference that resolves through the registry every
// time it is dereferenced, per spec.md §3/§9: a component handle is
// (registry, componentId); a parameter handle adds a path segment under
// that component. Resolving a handle yields whatever is currently
// registered under that id — including, after a project load remapped an
// old id, the new component that absorbed it.
type Handle struct {
	ComponentID registry.ID
	ParamPath   string // empty selects the component itself
}

// ComponentHandle builds a handle that addresses a component, not one of
// its parameters.
func ComponentHandle(id registry.ID) Handle { return Handle{ComponentID: id} }

// ParameterHandle builds a handle that addresses a parameter by path
// under a component.
func ParameterHandle(id registry.ID, path string) Handle {
	return Handle{ComponentID: id, ParamPath: path}
}

func (h Handle) IsParameter() bool { return h.ParamPath != "" }

// RegistryResolver resolves Handles and bare component ids through a
// registry, the single resolution path shared by clips and commands
// (spec.md §3/§9: "a handle resolves through the registry every time it
// is dereferenced").
type RegistryResolver struct {
	Reg *registry.Registry
}

func NewRegistryResolver(reg *registry.Registry) *RegistryResolver {
	return &RegistryResolver{Reg: reg}
}

// Registry exposes the raw registry a destroying command needs to free a
// component's id, beyond the narrow Resolve*-only contract most commands
// use.
func (r *RegistryResolver) Registry() *registry.Registry { return r.Reg }

func (r *RegistryResolver) ResolveComponent(id registry.ID) (*Component, bool) {
	ident, ok := r.Reg.Resolve(id)
	if !ok {
		return nil, false
	}
	c, ok := ident.(*Component)
	return c, ok
}

// ResolveParameter resolves a component handle to itself-as-a-parameter
// only when the component happens to also be registered as one (it never
// is, in this engine); in practice ResolveParameter is only meaningful
// for handles with a non-empty ParamPath.
func (r *RegistryResolver) ResolveParameter(h Handle) (param.Parameter, bool) {
	c, ok := r.ResolveComponent(h.ComponentID)
	if !ok || !h.IsParameter() {
		return nil, false
	}
	return c.Parameter(h.ParamPath)
}
