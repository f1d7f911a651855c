package command

import (
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/param"
)

// AddModulationCommand adds a compound-modulation edge. Source and Target
// are live graph objects rather than Handles: unlike components and their
// parameters, a Modulator has no registry identity of its own (spec.md
// §3 — modulators live inside a component's modulator list, addressed
// only through the parameter they feed), so there is nothing more stable
// than the pointer itself to capture.
type AddModulationCommand struct {
	Graph    *modulation.Graph
	Source   modulation.NumericSource
	Target   *param.CompoundParam
	Amount   float64
	Polarity param.Polarity

	id modulation.ModulationID
}

func (c *AddModulationCommand) Description() string { return "add modulation" }

func (c *AddModulationCommand) Do(_ Resolver) error {
	mod, err := c.Graph.AddModulation(c.Source, c.Target, c.Amount, c.Polarity)
	if err != nil {
		return err
	}
	c.id = mod.ID
	return nil
}

func (c *AddModulationCommand) Undo(_ Resolver) error {
	c.Graph.RemoveModulation(c.id)
	return nil
}

// RemoveModulationCommand deletes a compound-modulation edge, capturing
// enough of it to recreate an equivalent edge on Undo. The recreated edge
// gets a new ModulationID — any other in-flight command holding the old
// id (there should be none; ids are not otherwise exposed to hosts) would
// not see it, which is the accepted, documented cost of modeling deletion
// as "gone" rather than keeping tombstoned ids alive forever.
type RemoveModulationCommand struct {
	Graph *modulation.Graph
	ID    modulation.ModulationID

	captured *modulation.Modulation
}

func (c *RemoveModulationCommand) Description() string { return "remove modulation" }

func (c *RemoveModulationCommand) Do(_ Resolver) error {
	mods := c.Graph.Modulations()
	mod, ok := mods[c.ID]
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "modulation id not found")
	}
	captured := *mod
	c.captured = &captured
	c.Graph.RemoveModulation(c.ID)
	return nil
}

func (c *RemoveModulationCommand) Undo(_ Resolver) error {
	if c.captured == nil {
		return enginerr.New(enginerr.InvalidCommand, "nothing captured to restore")
	}
	mod, err := c.Graph.AddModulation(c.captured.Source, c.captured.Target, c.captured.Amount, c.captured.Polarity)
	if err != nil {
		return err
	}
	mod.Enabled = c.captured.Enabled
	c.ID = mod.ID
	return nil
}

// AddTriggerModulationCommand and RemoveTriggerModulationCommand mirror
// the compound-modulation pair above for boolean trigger edges.
type AddTriggerModulationCommand struct {
	Graph  *modulation.Graph
	Source modulation.BoolSource
	Target *param.BoolParam
	Mode   modulation.TriggerMode

	id modulation.ModulationID
}

func (c *AddTriggerModulationCommand) Description() string { return "add trigger modulation" }

func (c *AddTriggerModulationCommand) Do(_ Resolver) error {
	tm, err := c.Graph.AddTriggerModulation(c.Source, c.Target, c.Mode)
	if err != nil {
		return err
	}
	c.id = tm.ID
	return nil
}

func (c *AddTriggerModulationCommand) Undo(_ Resolver) error {
	c.Graph.RemoveTriggerModulation(c.id)
	return nil
}

type RemoveTriggerModulationCommand struct {
	Graph *modulation.Graph
	ID    modulation.ModulationID

	captured *modulation.TriggerModulation
}

func (c *RemoveTriggerModulationCommand) Description() string { return "remove trigger modulation" }

func (c *RemoveTriggerModulationCommand) Do(_ Resolver) error {
	tms := c.Graph.TriggerModulations()
	tm, ok := tms[c.ID]
	if !ok {
		return enginerr.New(enginerr.InvalidCommand, "trigger modulation id not found")
	}
	captured := *tm
	c.captured = &captured
	c.Graph.RemoveTriggerModulation(c.ID)
	return nil
}

func (c *RemoveTriggerModulationCommand) Undo(_ Resolver) error {
	if c.captured == nil {
		return enginerr.New(enginerr.InvalidCommand, "nothing captured to restore")
	}
	tm, err := c.Graph.AddTriggerModulation(c.captured.Source, c.captured.Target, c.captured.Mode)
	if err != nil {
		return err
	}
	tm.Enabled = c.captured.Enabled
	c.ID = tm.ID
	return nil
}
