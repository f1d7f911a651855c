package engine

import (
	"fmt"
	"time"

	"github.com/lumenforge/lumencore/capability"
	"github.com/lumenforge/lumencore/engine/color"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/param"
)

// CrossfadeGroup is a channel's assignment to the mixer's A-side, B-side,
// or the crossfader bypass.
type CrossfadeGroup int

const (
	GroupA CrossfadeGroup = iota
	GroupB
	GroupBypass
)

// PatternSlot pairs a pattern implementation with its own component (so it
// can own child parameters and modulators, per spec.md §3) and its
// persisted class name.
type PatternSlot struct {
	Node    *Component
	Pattern capability.Pattern
	Class   string

	crashed bool
	buf     capability.Buffer
}

// EffectSlot pairs an effect implementation with its own component, an
// enabled flag, and a fade weight in [0,1].
type EffectSlot struct {
	Node    *Component
	Effect  capability.Effect
	Enabled *param.BoolParam
	Fade    *param.BoundedParam

	crashed bool
}

// Transition drives a cross-fade from the active pattern to the next one
// over Duration. Progress is a plain elapsed/duration ratio — any
// modulator shape could drive this number; it is kept direct here so the
// literal timed scenarios in spec.md §8 are exactly reproducible.
type Transition struct {
	FromIndex, ToIndex int
	Elapsed            time.Duration
	Duration           time.Duration
	BlendMode          color.Mode
}

func (t *Transition) Progress() float64 {
	if t.Duration <= 0 {
		return 1
	}
	p := float64(t.Elapsed) / float64(t.Duration)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// Channel is a pattern channel: it owns a non-empty list of patterns, an
// active/next index pair, an optional transition, an ordered effects
// chain, and its own mix parameters. State machine per spec.md §4.5.
type Channel struct {
	*Component

	Patterns []*PatternSlot
	Effects  []*EffectSlot
	Clips    *ClipPlayer

	activeIndex int
	nextIndex   int
	transition  *Transition

	Fader               *param.BoundedParam // 0..1
	CueActive           *param.BoolParam
	Enabled             *param.BoolParam
	CrossfadeGroupParam *param.EnumParam // "A","B","BYPASS"
	FocusedPatternIndex int              // UI-hint, persisted

	TransitionsEnabled bool
	TransitionSecs     *param.BoundedParam
	TransitionMode     color.Mode

	AutoCycleEnabled     bool
	AutoCycleSecs        float64
	AutoCycleRandom      bool
	idleSecs             float64

	parentGroup *GroupChannel

	pointCount int
	buf        capability.Buffer

	reporter enginerr.Reporter
}

// NewChannel builds a pattern channel with the given patterns (must be
// non-empty; removing the last pattern is rejected, matching the
// channel-always-has-at-least-one-pattern invariant).
func NewChannel(pointCount int, patterns []*PatternSlot) (*Channel, error) {
	if len(patterns) == 0 {
		return nil, enginerr.New(enginerr.InvalidCommand, "channel must have at least one pattern")
	}
	for _, p := range patterns {
		p.buf = make(capability.Buffer, pointCount)
	}
	ch := &Channel{
		Component:           NewComponent("PatternChannel"),
		Patterns:            patterns,
		pointCount:          pointCount,
		buf:                 make(capability.Buffer, pointCount),
		Fader:               param.NewBounded("fader", 0, 1, 1),
		CueActive:           param.NewBool("cueActive", false),
		Enabled:             param.NewBool("enabled", true),
		CrossfadeGroupParam: param.NewEnum("crossfadeGroup", []string{"A", "B", "BYPASS"}, int(GroupBypass)),
		TransitionSecs:      param.NewBounded("transitionTimeSecs", 0, 3600, 1),
		TransitionMode:      color.Normal,
		reporter:            enginerr.NopReporter,
	}
	ch.AddParameter("fader", ch.Fader)
	ch.AddParameter("cueActive", ch.CueActive)
	ch.AddParameter("enabled", ch.Enabled)
	ch.AddParameter("crossfadeGroup", ch.CrossfadeGroupParam)
	ch.AddParameter("transitionTimeSecs", ch.TransitionSecs)
	return ch, nil
}

func (c *Channel) SetReporter(r enginerr.Reporter) { c.reporter = r }

// ActiveIndex, NextIndex expose the current state-machine position.
func (c *Channel) ActiveIndex() int { return c.activeIndex }
func (c *Channel) NextIndex() int   { return c.nextIndex }
func (c *Channel) Transitioning() bool { return c.transition != nil }
func (c *Channel) CurrentTransition() *Transition { return c.transition }

func (c *Channel) Group() CrossfadeGroup { return CrossfadeGroup(c.CrossfadeGroupParam.Index()) }
func (c *Channel) FaderValue() float64   { return c.Fader.Value() }
func (c *Channel) IsCueActive() bool     { return c.CueActive.Value() }
func (c *Channel) IsEnabled() bool       { return c.Enabled.Value() }

// Buffer returns the channel's published color buffer, valid after Tick.
func (c *Channel) Buffer() capability.Buffer { return c.buf }

// GoPattern drives the IDLE/TRANSITIONING state machine per spec.md §4.5.
// From IDLE it either starts a transition (if enabled) or snaps directly.
// From TRANSITIONING it finishes the current transition (active := next)
// first, then either starts a new transition to j or snaps to it.
func (c *Channel) GoPattern(j int) error {
	if j < 0 || j >= len(c.Patterns) {
		return enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("pattern index %d out of range", j))
	}
	if c.transition != nil {
		c.finishTransition()
	}
	if j == c.activeIndex {
		return nil
	}
	if c.TransitionsEnabled {
		c.startTransition(c.activeIndex, j)
	} else {
		c.setActiveImmediate(j)
	}
	return nil
}

func (c *Channel) startTransition(from, to int) {
	c.nextIndex = to
	c.transition = &Transition{
		FromIndex: from,
		ToIndex:   to,
		Duration:  time.Duration(c.TransitionSecs.Value() * float64(time.Second)),
		BlendMode: c.TransitionMode,
	}
	c.callLifecycle(c.Patterns[from], func(p capability.Pattern) { p.OnTransitionStart() })
	c.callLifecycle(c.Patterns[to], func(p capability.Pattern) { p.OnTransitionStart() })
}

func (c *Channel) finishTransition() {
	if c.transition == nil {
		return
	}
	from, to := c.transition.FromIndex, c.transition.ToIndex
	c.activeIndex = to
	c.nextIndex = to
	c.transition = nil
	c.callLifecycle(c.Patterns[from], func(p capability.Pattern) { p.OnTransitionEnd(); p.OnInactive() })
	c.callLifecycle(c.Patterns[to], func(p capability.Pattern) { p.OnTransitionEnd() })
}

func (c *Channel) setActiveImmediate(j int) {
	old := c.activeIndex
	c.activeIndex = j
	c.nextIndex = j
	if old != j {
		c.callLifecycle(c.Patterns[old], func(p capability.Pattern) { p.OnInactive() })
		c.callLifecycle(c.Patterns[j], func(p capability.Pattern) { p.OnActive() })
	}
}

// RemovePattern removes the pattern at index i. Removing the currently
// active or next pattern forces a transition-finish and reselection, per
// spec.md §3/§4.5. Fails if it would leave the channel with zero patterns.
func (c *Channel) RemovePattern(i int) error {
	if i < 0 || i >= len(c.Patterns) {
		return enginerr.New(enginerr.InvalidCommand, fmt.Sprintf("pattern index %d out of range", i))
	}
	if len(c.Patterns) == 1 {
		return enginerr.New(enginerr.InvalidCommand, "cannot remove the last pattern in a channel")
	}

	forcedReselect := i == c.activeIndex || (c.transition != nil && i == c.nextIndex)
	if forcedReselect {
		c.transition = nil
	}

	c.Patterns = append(c.Patterns[:i:i], c.Patterns[i+1:]...)

	switch {
	case forcedReselect:
		c.activeIndex = 0
		c.nextIndex = 0
	default:
		if c.activeIndex > i {
			c.activeIndex--
		}
		if c.nextIndex > i {
			c.nextIndex--
		}
	}
	if c.FocusedPatternIndex >= len(c.Patterns) {
		c.FocusedPatternIndex = len(c.Patterns) - 1
	}
	return nil
}

func (c *Channel) callLifecycle(slot *PatternSlot, fn func(capability.Pattern)) {
	defer func() {
		if r := recover(); r != nil {
			c.crashPattern(slot, r)
		}
	}()
	if slot.crashed {
		return
	}
	fn(slot.Pattern)
}

func (c *Channel) crashPattern(slot *PatternSlot, r any) {
	slot.crashed = true
	if c.reporter != nil {
		c.reporter.Report(enginerr.CrashedModulator, fmt.Sprintf("pattern crashed: %v", r), "")
	}
}

func (c *Channel) crashEffect(slot *EffectSlot, r any) {
	slot.crashed = true
	if c.reporter != nil {
		c.reporter.Report(enginerr.CrashedModulator, fmt.Sprintf("effect crashed: %v", r), "")
	}
}

// Tick advances the channel one frame: pattern(s), transition blend,
// effects chain, per spec.md §4.5.
func (c *Channel) Tick(dt time.Duration) {
	if c.Clips != nil {
		c.Clips.Advance(dt)
	}
	if !c.Enabled.Value() && !c.CueActive.Value() {
		return
	}

	if c.autoCycleIdle(dt) {
		return
	}

	active := c.Patterns[c.activeIndex]
	c.runPattern(active, dt)

	if c.transition != nil {
		next := c.Patterns[c.nextIndex]
		c.runPattern(next, dt)

		c.transition.Elapsed += dt
		progress := c.transition.Progress()
		color.BlendBuffer(c.transition.BlendMode, active.buf, next.buf, progress, c.buf)

		if c.transition.Elapsed >= c.transition.Duration {
			c.finishTransition()
		}
	} else {
		copy(c.buf, active.buf)
	}

	c.runEffects(dt)
}

// autoCycleIdle advances the idle timer while the channel is IDLE and
// auto-cycle is enabled, and once AutoCycleSecs have elapsed starts a
// transition to the next pattern (activeIndex+1, wrapping). It always
// returns false, so the caller goes on to render this same tick with the
// new transition already in place.
func (c *Channel) autoCycleIdle(dt time.Duration) bool {
	if !c.AutoCycleEnabled || c.transition != nil || len(c.Patterns) < 2 {
		c.idleSecs = 0
		return false
	}
	c.idleSecs += dt.Seconds()
	if c.idleSecs < c.AutoCycleSecs {
		return false
	}
	c.idleSecs = 0
	next := (c.activeIndex + 1) % len(c.Patterns)
	_ = c.GoPattern(next)
	return false
}

func (c *Channel) runPattern(slot *PatternSlot, dt time.Duration) {
	if slot.crashed {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.crashPattern(slot, r)
		}
	}()
	slot.Pattern.Run(dt, slot.buf)
}

func (c *Channel) runEffects(dt time.Duration) {
	if !c.Enabled.Value() && !c.CueActive.Value() {
		return
	}
	for _, e := range c.Effects {
		if e.crashed || !e.Enabled.Value() {
			continue
		}
		c.runEffect(e, dt)
	}
}

func (c *Channel) runEffect(e *EffectSlot, dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			c.crashEffect(e, r)
		}
	}()
	e.Effect.Run(dt, e.Fade.Value(), c.buf)
}
