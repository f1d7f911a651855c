package engine

import (
	"time"

	"github.com/lumenforge/lumencore/capability"
	"github.com/lumenforge/lumencore/param"
)

// GroupChannel collects child pattern channels but has no patterns of its
// own. It is still a Bus: it carries effects, clips, a fader, a cue tap,
// and a crossfade-group assignment, all applied to the sum of its
// children's buffers.
type GroupChannel struct {
	*Component

	Children []*Channel
	Effects  []*EffectSlot
	Clips    *ClipPlayer

	Fader               *param.BoundedParam
	CueActive           *param.BoolParam
	Enabled             *param.BoolParam
	CrossfadeGroupParam *param.EnumParam

	pointCount int
	buf        capability.Buffer
}

func NewGroupChannel(pointCount int) *GroupChannel {
	g := &GroupChannel{
		Component:           NewComponent("GroupChannel"),
		pointCount:          pointCount,
		buf:                 make(capability.Buffer, pointCount),
		Fader:               param.NewBounded("fader", 0, 1, 1),
		CueActive:           param.NewBool("cueActive", false),
		Enabled:             param.NewBool("enabled", true),
		CrossfadeGroupParam: param.NewEnum("crossfadeGroup", []string{"A", "B", "BYPASS"}, int(GroupBypass)),
	}
	g.AddParameter("fader", g.Fader)
	g.AddParameter("cueActive", g.CueActive)
	g.AddParameter("enabled", g.Enabled)
	g.AddParameter("crossfadeGroup", g.CrossfadeGroupParam)
	return g
}

func (g *GroupChannel) Group() CrossfadeGroup { return CrossfadeGroup(g.CrossfadeGroupParam.Index()) }
func (g *GroupChannel) Buffer() capability.Buffer { return g.buf }
func (g *GroupChannel) FaderValue() float64       { return g.Fader.Value() }
func (g *GroupChannel) IsCueActive() bool         { return g.CueActive.Value() }
func (g *GroupChannel) IsEnabled() bool           { return g.Enabled.Value() }

// AddChild attaches a pattern channel under this group.
func (g *GroupChannel) AddChild(ch *Channel) {
	ch.parentGroup = g
	g.Children = append(g.Children, ch)
}

// Tick sums its children's published buffers (each already ticked by the
// mixer) into its own buffer and applies its own effects chain.
func (g *GroupChannel) Tick(dt time.Duration) {
	if g.Clips != nil {
		g.Clips.Advance(dt)
	}
	if !g.Enabled.Value() && !g.CueActive.Value() {
		return
	}

	first := true
	for _, ch := range g.Children {
		if !ch.Enabled.Value() && !ch.CueActive.Value() {
			continue
		}
		contributeToBus(ch.Buffer(), ch.Fader.Value(), g.buf, &first)
	}
	if first {
		for i := range g.buf {
			g.buf[i] = 0
		}
	}

	runEffectChain(g.Effects, dt, g.buf)
}

// MasterChannel is the single Bus at the end of the mixer chain: it has
// effects and clips but no patterns and no crossfade-group assignment of
// its own (it sits downstream of the crossfader).
type MasterChannel struct {
	*Component

	Effects []*EffectSlot
	Clips   *ClipPlayer

	CueActive *param.BoolParam
}

func NewMasterChannel() *MasterChannel {
	m := &MasterChannel{
		Component: NewComponent("Master"),
		CueActive: param.NewBool("cueActive", false),
	}
	m.AddParameter("cueActive", m.CueActive)
	return m
}

// Tick runs the master's clip progression and effects chain directly on
// main, in place.
func (m *MasterChannel) Tick(dt time.Duration, main capability.Buffer) {
	if m.Clips != nil {
		m.Clips.Advance(dt)
	}
	runEffectChain(m.Effects, dt, main)
}

// runEffectChain applies every enabled, non-crashed effect in order,
// isolating panics per-effect (spec.md §7: pattern/effect/modulator
// crashes are caught at the component boundary and the component is
// marked crashed, skipped thereafter).
func runEffectChain(effects []*EffectSlot, dt time.Duration, buf capability.Buffer) {
	for _, e := range effects {
		if e.crashed || !e.Enabled.Value() {
			continue
		}
		runEffectSafely(e, dt, buf)
	}
}

func runEffectSafely(e *EffectSlot, dt time.Duration, buf capability.Buffer) {
	defer func() {
		if recover() != nil {
			e.crashed = true
		}
	}()
	e.Effect.Run(dt, e.Fade.Value(), buf)
}
