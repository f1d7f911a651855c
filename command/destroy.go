package command

import (
	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/midi"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/persist"
	"github.com/lumenforge/lumencore/registry"
)

// RegistryExposer lets a command reach the raw registry Component.Dispose
// needs to free an id — a wider contract than the narrow Resolver, so only
// commands that actually destroy a component ask for it.
type RegistryExposer interface {
	Registry() *registry.Registry
}

// capturedModulation and capturedTrigger record a modulation/trigger edge
// by the path segment it targets rather than by the live *param.Parameter
// pointer, since the pointer dies with the disposed channel — the same
// capture-by-path idiom persist.Codec uses to save an edge in the first
// place (persist.go SaveModulation).
type capturedModulation struct {
	TargetSegment string
	Source        modulation.NumericSource
	Amount        float64
	Polarity      param.Polarity
	Enabled       bool
}

type capturedTrigger struct {
	TargetSegment string
	Source        modulation.BoolSource
	Mode          modulation.TriggerMode
	Enabled       bool
}

// DestroyChannelCommand permanently removes a channel: unlike
// RemoveChannelCommand's cheap detach, this strips every modulation,
// trigger modulation, and MIDI param binding that targets the channel's
// own parameters, then disposes it, freeing its registry id. Undo does not
// resurrect the same component — it rebuilds an equivalent one from a
// captured snapshot and re-applies the captured edges against the new id,
// per spec.md's destroy-and-recreate contract: a destroyed component never
// comes back with its old identity.
type DestroyChannelCommand struct {
	ChannelID registry.ID
	Graph     *modulation.Graph
	Codec     *persist.Codec
	Surface   *midi.Surface

	doc              *persist.ComponentDoc
	index            int
	capturedMods     []capturedModulation
	capturedTriggers []capturedTrigger
	capturedBindings []*midi.ParamBinding
}

func (c *DestroyChannelCommand) Description() string { return "destroy channel" }

func (c *DestroyChannelCommand) Do(r Resolver) error {
	mr, ok := r.(MixerResolver)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "resolver does not expose a mixer")
	}
	rx, ok := r.(RegistryExposer)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "resolver does not expose a registry")
	}
	ch, err := resolveChannel(r, c.ChannelID)
	if err != nil {
		return err
	}
	id := ch.ID()

	c.capturedMods = captureModulations(ch, c.Graph)
	c.capturedTriggers = captureTriggers(ch, c.Graph)
	if c.Surface != nil {
		c.capturedBindings = c.Surface.ParamBindingsForComponent(id)
	}
	if c.Codec != nil {
		c.doc = c.Codec.SaveChannel(ch)
	}

	if _, index, ok := mr.Mixer().RemoveBusByID(id); ok {
		c.index = index
	} else {
		return enginerr.New(enginerr.InvalidCommand, "channel id not found on mixer")
	}

	var bindings engine.BindingRemover
	if c.Surface != nil {
		bindings = c.Surface
	}
	ch.Node().Dispose(rx.Registry(), c.Graph, bindings)
	return nil
}

func (c *DestroyChannelCommand) Undo(r Resolver) error {
	mr, ok := r.(MixerResolver)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "resolver does not expose a mixer")
	}
	if c.doc == nil || c.Codec == nil {
		return enginerr.New(enginerr.InvalidCommand, "nothing captured to restore")
	}

	ch, err := c.Codec.LoadChannelFresh(c.doc, mr.Mixer().PointCount)
	if err != nil {
		return err
	}
	newID := ch.ID()

	restoreModulations(ch, c.Graph, c.capturedMods)
	restoreTriggers(ch, c.Graph, c.capturedTriggers)
	for _, b := range c.capturedBindings {
		b.Retarget(newID)
		if c.Surface != nil {
			c.Surface.AddParamBinding(b)
		}
	}

	mr.Mixer().InsertBus(ch, c.index)
	c.ChannelID = newID
	return nil
}

func captureModulations(ch *engine.Channel, graph *modulation.Graph) []capturedModulation {
	if graph == nil {
		return nil
	}
	var out []capturedModulation
	for _, seg := range ch.Node().ParameterSegments() {
		p, ok := ch.Node().Parameter(seg)
		if !ok {
			continue
		}
		cp, ok := p.(*param.CompoundParam)
		if !ok {
			continue
		}
		for _, mod := range graph.Modulations() {
			if mod.Target == cp {
				out = append(out, capturedModulation{
					TargetSegment: seg,
					Source:        mod.Source,
					Amount:        mod.Amount,
					Polarity:      mod.Polarity,
					Enabled:       mod.Enabled,
				})
			}
		}
	}
	return out
}

func captureTriggers(ch *engine.Channel, graph *modulation.Graph) []capturedTrigger {
	if graph == nil {
		return nil
	}
	var out []capturedTrigger
	for _, seg := range ch.Node().ParameterSegments() {
		p, ok := ch.Node().Parameter(seg)
		if !ok {
			continue
		}
		bp, ok := p.(*param.BoolParam)
		if !ok {
			continue
		}
		for _, tm := range graph.TriggerModulations() {
			if tm.Target == bp {
				out = append(out, capturedTrigger{
					TargetSegment: seg,
					Source:        tm.Source,
					Mode:          tm.Mode,
					Enabled:       tm.Enabled,
				})
			}
		}
	}
	return out
}

func restoreModulations(ch *engine.Channel, graph *modulation.Graph, captured []capturedModulation) {
	if graph == nil {
		return
	}
	for _, cm := range captured {
		p, ok := ch.Node().Parameter(cm.TargetSegment)
		if !ok {
			continue
		}
		cp, ok := p.(*param.CompoundParam)
		if !ok {
			continue
		}
		mod, err := graph.AddModulation(cm.Source, cp, cm.Amount, cm.Polarity)
		if err == nil {
			mod.Enabled = cm.Enabled
		}
	}
}

func restoreTriggers(ch *engine.Channel, graph *modulation.Graph, captured []capturedTrigger) {
	if graph == nil {
		return
	}
	for _, ct := range captured {
		p, ok := ch.Node().Parameter(ct.TargetSegment)
		if !ok {
			continue
		}
		bp, ok := p.(*param.BoolParam)
		if !ok {
			continue
		}
		tm, err := graph.AddTriggerModulation(ct.Source, bp, ct.Mode)
		if err == nil {
			tm.Enabled = ct.Enabled
		}
	}
}
