package command

import (
	"fmt"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/param"
)

// SetValueCommand sets one parameter to a new value, capturing the prior
// value for Undo. value/prior are typed per the concrete parameter kind
// resolved at Do-time (float64 for Bounded/Compound-base, bool for
// Bool, int for Discrete/Enum-index, string for String).
type SetValueCommand struct {
	Handle engine.Handle
	Value  any

	prior any
	label string // captured at Do-time for a stable Description after Undo
}

func SetValue(h engine.Handle, value any) *SetValueCommand {
	return &SetValueCommand{Handle: h, Value: value}
}

func (c *SetValueCommand) Description() string {
	if c.label != "" {
		return fmt.Sprintf("set %s", c.label)
	}
	return "set parameter"
}

func (c *SetValueCommand) Do(r Resolver) error {
	p, ok := r.ResolveParameter(c.Handle)
	if !ok {
		return missingTarget(c.Handle)
	}
	c.label = p.Label()
	prior, err := applyValue(p, c.Value)
	if err != nil {
		return err
	}
	c.prior = prior
	return nil
}

func (c *SetValueCommand) Undo(r Resolver) error {
	p, ok := r.ResolveParameter(c.Handle)
	if !ok {
		return missingTarget(c.Handle)
	}
	_, err := applyValue(p, c.prior)
	return err
}

// CoalesceKey groups by handle: a drag produces many SetValueCommands
// against the same handle in quick succession, and only the first's
// `prior` needs to survive to give Undo a single-step round trip.
func (c *SetValueCommand) CoalesceKey() any { return c.Handle }

func (c *SetValueCommand) CoalesceWith(next Command) (Command, bool) {
	n, ok := next.(*SetValueCommand)
	if !ok {
		return nil, false
	}
	return &SetValueCommand{Handle: c.Handle, Value: n.Value, prior: c.prior, label: n.label}, true
}

// applyValue type-switches on the parameter's concrete kind, sets it to
// value, and returns the value it held immediately beforehand (so the
// caller can stash it for Undo).
func applyValue(p param.Parameter, value any) (prior any, err error) {
	switch target := p.(type) {
	case *param.BoundedParam:
		v, ok := value.(float64)
		if !ok {
			return nil, enginerr.New(enginerr.InvalidCommand, "value is not a float64 for BoundedParam")
		}
		prior = target.Value()
		target.SetValue(v)
	case *param.CompoundParam:
		v, ok := value.(float64)
		if !ok {
			return nil, enginerr.New(enginerr.InvalidCommand, "value is not a float64 for CompoundParam")
		}
		prior = target.Base()
		target.SetBase(v)
	case *param.BoolParam:
		v, ok := value.(bool)
		if !ok {
			return nil, enginerr.New(enginerr.InvalidCommand, "value is not a bool for BoolParam")
		}
		prior = target.Value()
		target.SetValue(v)
	case *param.DiscreteParam:
		v, ok := value.(int)
		if !ok {
			return nil, enginerr.New(enginerr.InvalidCommand, "value is not an int for DiscreteParam")
		}
		prior = target.Value()
		if !target.SetValue(v) {
			return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("%d out of range for DiscreteParam", v))
		}
	case *param.StringParam:
		v, ok := value.(string)
		if !ok {
			return nil, enginerr.New(enginerr.InvalidCommand, "value is not a string for StringParam")
		}
		prior = target.Value()
		target.SetValue(v)
	case *param.EnumParam:
		v, ok := value.(int)
		if !ok {
			return nil, enginerr.New(enginerr.InvalidCommand, "value is not an int for EnumParam")
		}
		prior = target.Index()
		if !target.SetIndex(v) {
			return nil, enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("%d out of range for EnumParam", v))
		}
	default:
		return nil, enginerr.New(enginerr.InvalidCommand, "parameter kind does not support SetValue")
	}
	return prior, nil
}
