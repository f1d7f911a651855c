package command

import (
	"fmt"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/registry"
)

// GoPatternCommand drives a channel's IDLE/TRANSITIONING state machine
// (spec.md §4.5) through the command layer so pattern switches participate
// in undo history. Undo does not replay the transition backwards — it
// restores the channel to whichever pattern was active the instant before
// Do ran, snapping directly rather than re-transitioning, since "undo" of
// a transition is a correction, not a second animated cut.
type GoPatternCommand struct {
	ChannelID registry.ID
	ToIndex   int

	priorActive int
}

func (c *GoPatternCommand) Description() string {
	return fmt.Sprintf("go to pattern %d", c.ToIndex)
}

func (c *GoPatternCommand) Do(r Resolver) error {
	ch, err := resolveChannel(r, c.ChannelID)
	if err != nil {
		return err
	}
	c.priorActive = ch.ActiveIndex()
	return ch.GoPattern(c.ToIndex)
}

func (c *GoPatternCommand) Undo(r Resolver) error {
	ch, err := resolveChannel(r, c.ChannelID)
	if err != nil {
		return err
	}
	wasTransitioning := ch.TransitionsEnabled
	ch.TransitionsEnabled = false
	err = ch.GoPattern(c.priorActive)
	ch.TransitionsEnabled = wasTransitioning
	return err
}

// MixerResolver extends Resolver with the bus-membership operations
// channel add/remove commands need; only a *engine.Mixer-backed resolver
// implements it.
type MixerResolver interface {
	Resolver
	Mixer() *engine.Mixer
}

func resolveChannel(r Resolver, id registry.ID) (*engine.Channel, error) {
	mr, ok := r.(MixerResolver)
	if !ok {
		return nil, enginerr.New(enginerr.InvalidCommand, "resolver does not expose a mixer")
	}
	bus, ok := mr.Mixer().BusByID(id)
	if !ok {
		return nil, enginerr.New(enginerr.InvalidCommand, "channel id no longer resolves")
	}
	ch, ok := bus.(*engine.Channel)
	if !ok {
		return nil, enginerr.New(enginerr.InvalidCommand, "component is not a pattern channel")
	}
	return ch, nil
}

// RemoveChannelCommand detaches a channel from the mixer's bus list
// without disposing it (engine.Mixer.RemoveBusByID): the channel keeps its
// registry identity and every parameter/modulation stays live, so Undo is
// an exact, cheap re-insertion rather than a full component resurrection
// from a serialized snapshot. A host that wants a truly permanent delete
// (freeing the id and severing modulation/MIDI edges) uses
// DestroyChannelCommand instead, whose Undo accepts a new identity for the
// rebuilt channel rather than trying to resurrect the old one.
type RemoveChannelCommand struct {
	ChannelID registry.ID

	bus   engine.IdentifiedBus
	index int
}

func (c *RemoveChannelCommand) Description() string { return "remove channel" }

func (c *RemoveChannelCommand) Do(r Resolver) error {
	mr, ok := r.(MixerResolver)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "resolver does not expose a mixer")
	}
	bus, index, ok := mr.Mixer().RemoveBusByID(c.ChannelID)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "channel id not found on mixer")
	}
	c.bus, c.index = bus, index
	return nil
}

func (c *RemoveChannelCommand) Undo(r Resolver) error {
	mr, ok := r.(MixerResolver)
	if !ok || c.bus == nil {
		return enginerr.New(enginerr.InvalidCommand, "nothing captured to restore")
	}
	mr.Mixer().InsertBus(c.bus, c.index)
	return nil
}

// AddChannelCommand appends an already-constructed, already-attached
// channel to the mixer's bus list (the channel must already be registered
// — building one is a construction concern the caller owns, not this
// command).
type AddChannelCommand struct {
	Channel engine.IdentifiedBus
}

func (c *AddChannelCommand) Description() string { return "add channel" }

func (c *AddChannelCommand) Do(r Resolver) error {
	mr, ok := r.(MixerResolver)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "resolver does not expose a mixer")
	}
	mr.Mixer().AddBus(c.Channel)
	return nil
}

func (c *AddChannelCommand) Undo(r Resolver) error {
	mr, ok := r.(MixerResolver)
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "resolver does not expose a mixer")
	}
	_, _, ok = mr.Mixer().RemoveBusByID(c.Channel.ID())
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "channel was not on the mixer")
	}
	return nil
}
