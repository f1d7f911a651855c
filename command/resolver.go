package command

import (
	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/registry"
)

// EngineResolver is the concrete Resolver/MixerResolver a host wires the
// command Engine to: parameter and component lookups go through the
// registry, and bus-membership operations go through the mixer that owns
// the live bus list.
type EngineResolver struct {
	*engine.RegistryResolver
	mixer *engine.Mixer
}

func NewEngineResolver(reg *registry.Registry, mixer *engine.Mixer) *EngineResolver {
	return &EngineResolver{RegistryResolver: engine.NewRegistryResolver(reg), mixer: mixer}
}

func (r *EngineResolver) Mixer() *engine.Mixer { return r.mixer }

var _ Resolver = (*EngineResolver)(nil)
var _ MixerResolver = (*EngineResolver)(nil)
var _ RegistryExposer = (*EngineResolver)(nil)
