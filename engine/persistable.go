package engine

import "github.com/lumenforge/lumencore/engine/color"

// Persistable is implemented by bus types that carry internal,
// non-parameter state the persistence format still needs to round-trip
// (spec.md §6: each serialized component carries an `internal` map of
// path -> primitive alongside its `parameters` map — state machine
// position, UI hints, and similar bookkeeping that isn't itself a
// listenable param.Parameter).
type Persistable interface {
	InternalState() map[string]any
	ApplyInternalState(map[string]any)
}

// Node returns the embedded *Component, the handle persist and command
// use to walk the generic parameter/child tree underneath a concrete bus
// type.
func (c *Channel) Node() *Component      { return c.Component }
func (g *GroupChannel) Node() *Component { return g.Component }
func (m *MasterChannel) Node() *Component { return m.Component }

func (c *Channel) InternalState() map[string]any {
	return map[string]any{
		"activeIndex":         c.activeIndex,
		"nextIndex":           c.nextIndex,
		"transitionsEnabled":  c.TransitionsEnabled,
		"transitionMode":      int(c.TransitionMode),
		"autoCycleEnabled":    c.AutoCycleEnabled,
		"autoCycleSecs":       c.AutoCycleSecs,
		"autoCycleRandom":     c.AutoCycleRandom,
		"focusedPatternIndex": c.FocusedPatternIndex,
	}
}

func (c *Channel) ApplyInternalState(m map[string]any) {
	if v, ok := intFrom(m["activeIndex"]); ok {
		c.activeIndex = v
	}
	if v, ok := intFrom(m["nextIndex"]); ok {
		c.nextIndex = v
	}
	if v, ok := m["transitionsEnabled"].(bool); ok {
		c.TransitionsEnabled = v
	}
	if v, ok := intFrom(m["transitionMode"]); ok {
		c.TransitionMode = color.Mode(v)
	}
	if v, ok := m["autoCycleEnabled"].(bool); ok {
		c.AutoCycleEnabled = v
	}
	if v, ok := floatFrom(m["autoCycleSecs"]); ok {
		c.AutoCycleSecs = v
	}
	if v, ok := m["autoCycleRandom"].(bool); ok {
		c.AutoCycleRandom = v
	}
	if v, ok := intFrom(m["focusedPatternIndex"]); ok {
		c.FocusedPatternIndex = v
	}
}

func intFrom(v any) (int, bool) {
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

func floatFrom(v any) (float64, bool) {
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
