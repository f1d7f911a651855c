// Package command implements the undoable command layer on top of the
// engine/registry/param packages: a symmetric do/undo stack, coalescing
// of rapid repeated edits (e.g. a knob being dragged) that merges
// consecutive commands whose CoalesceKey values are equal (a
// SetValueCommand's key is its Handle; command objects themselves are
// not compared), and handles that
// re-resolve through the registry so a command captured before a project
// load still finds its target after one (spec.md §6).
//
// Grounded on the teacher's mixer.State mutators (AdjustVolume,
// ToggleMute, ...), each of which reads the current value, computes a new
// one, and pushes it out to the audio engine and MIDI — generalized here
// into symmetric Do/Undo pairs that capture the prior value instead of
// discarding it, and routed through engine.Handle instead of a raw
// channel index so a command still resolves after the target has been
// reparented or reloaded from a project document.
package command

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// Resolver is the narrow registry view a Command needs: turning a Handle
// back into a live parameter or component.
type Resolver interface {
	ResolveParameter(h engine.Handle) (param.Parameter, bool)
	ResolveComponent(id registry.ID) (*engine.Component, bool)
}

// Command is one undoable unit of work. Do and Undo must be symmetric:
// calling Undo immediately after Do must restore exactly the state Do
// found, including for a command that is later coalesced into.
type Command interface {
	Description() string
	Do(r Resolver) error
	Undo(r Resolver) error
}

// Coalescable is implemented by commands that can absorb a following
// command of the same kind targeting the same thing instead of pushing a
// new undo-stack entry — e.g. successive ticks of a knob drag. Coalesce
// keys on the command's own identity (its target + kind), not on a
// generic handle comparison, so unrelated commands that happen to share a
// handle (e.g. a value edit and an enable toggle on the same parameter)
// never coalesce into each other.
type Coalescable interface {
	Command
	CoalesceKey() any
	CoalesceWith(next Command) (Command, bool)
}

// entry pairs a performed Command with a stable run identifier — a token
// with no registry identity of its own, used purely for host-facing
// history/logging (e.g. correlating a batch of clip-trigger writes back
// to the single user gesture that caused them).
type entry struct {
	cmd   Command
	runID uuid.UUID
}

// Engine owns the undo and redo stacks for one document. Performing a new
// command always clears the redo stack (the usual editor convention: you
// cannot redo past a fork in history).
type Engine struct {
	resolver Resolver

	undo []entry
	redo []entry

	maxDepth int
}

// NewEngine builds a command engine bound to the given resolver. maxDepth
// <= 0 means unbounded.
func NewEngine(resolver Resolver, maxDepth int) *Engine {
	return &Engine{resolver: resolver, maxDepth: maxDepth}
}

// Perform executes cmd and pushes it to the undo stack, coalescing with
// the top of the stack when both are Coalescable and agree on a
// CoalesceKey. Returns the run id stamped on cmd (or, if it coalesced
// into the prior entry, the prior entry's run id) for a host correlating
// this call with a later log line or telemetry event.
func (e *Engine) Perform(cmd Command) (uuid.UUID, error) {
	if err := cmd.Do(e.resolver); err != nil {
		return uuid.Nil, err
	}
	e.redo = nil

	if len(e.undo) > 0 {
		top := e.undo[len(e.undo)-1]
		if topC, ok := top.cmd.(Coalescable); ok {
			if next, ok := cmd.(Coalescable); ok && topC.CoalesceKey() == next.CoalesceKey() {
				if merged, ok := topC.CoalesceWith(next); ok {
					e.undo[len(e.undo)-1] = entry{cmd: merged, runID: top.runID}
					return top.runID, nil
				}
			}
		}
	}

	id := uuid.New()
	e.undo = append(e.undo, entry{cmd: cmd, runID: id})
	if e.maxDepth > 0 && len(e.undo) > e.maxDepth {
		e.undo = e.undo[len(e.undo)-e.maxDepth:]
	}
	return id, nil
}

// PerformBatch runs several commands as a single undoable unit (e.g. a
// cue firing writes across many channels in one user gesture), sharing
// one run id. If any command fails partway, the ones already applied are
// rolled back in reverse order before the error is returned.
func (e *Engine) PerformBatch(description string, cmds []Command) (uuid.UUID, error) {
	return e.Perform(&CompositeCommand{Description_: description, Commands: cmds})
}

// Undo pops and reverses the most recent command, pushing it to the redo
// stack. Returns enginerr.InvalidCommand if there is nothing to undo, or
// if the command's target no longer resolves (e.g. its component was
// permanently deleted, not merely detached).
func (e *Engine) Undo() error {
	if len(e.undo) == 0 {
		return enginerr.New(enginerr.InvalidCommand, "nothing to undo")
	}
	top := e.undo[len(e.undo)-1]
	if err := top.cmd.Undo(e.resolver); err != nil {
		return err
	}
	e.undo = e.undo[:len(e.undo)-1]
	e.redo = append(e.redo, top)
	return nil
}

// Redo re-applies the most recently undone command.
func (e *Engine) Redo() error {
	if len(e.redo) == 0 {
		return enginerr.New(enginerr.InvalidCommand, "nothing to redo")
	}
	top := e.redo[len(e.redo)-1]
	if err := top.cmd.Do(e.resolver); err != nil {
		return err
	}
	e.redo = e.redo[:len(e.redo)-1]
	e.undo = append(e.undo, top)
	return nil
}

func (e *Engine) CanUndo() bool { return len(e.undo) > 0 }
func (e *Engine) CanRedo() bool { return len(e.redo) > 0 }

// UndoDescription and RedoDescription surface what the next Undo/Redo
// would do, for a host's menu item label.
func (e *Engine) UndoDescription() (string, bool) {
	if len(e.undo) == 0 {
		return "", false
	}
	return e.undo[len(e.undo)-1].cmd.Description(), true
}

func (e *Engine) RedoDescription() (string, bool) {
	if len(e.redo) == 0 {
		return "", false
	}
	return e.redo[len(e.redo)-1].cmd.Description(), true
}

// LastRunID returns the run id of the most recently performed (or redone)
// command.
func (e *Engine) LastRunID() (uuid.UUID, bool) {
	if len(e.undo) == 0 {
		return uuid.Nil, false
	}
	return e.undo[len(e.undo)-1].runID, true
}

// missingTarget builds the standard error for a handle that no longer
// resolves.
func missingTarget(h engine.Handle) error {
	return enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("handle %+v no longer resolves", h))
}
