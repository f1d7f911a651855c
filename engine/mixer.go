package engine

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumenforge/lumencore/capability"
	"github.com/lumenforge/lumencore/engine/color"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// IdentifiedBus is a MixBus that also carries a registry identity, so the
// mixer can resolve a bus by its stable Handle-compatible id. Both
// *Channel and *GroupChannel satisfy this via their embedded *Component.
type IdentifiedBus interface {
	MixBus
	ID() registry.ID
}

// MixBus is the capability the mixer needs from a top-level channel
// (pattern channel or group channel) to blend it: per-tick rendering, its
// published buffer, and its crossfade-group/fader/cue/enabled state.
type MixBus interface {
	Tick(dt time.Duration)
	Buffer() capability.Buffer
	Group() CrossfadeGroup
	FaderValue() float64
	IsCueActive() bool
	IsEnabled() bool
}

// LoopTask is a top-level task the mixer runs once per tick, after
// modulation evaluation and before channels (spec.md §4.6 step 5) —
// e.g. a host-registered periodic job.
type LoopTask func(dt time.Duration)

// TempoAdvancer and AudioAdvancer are the narrow boundaries the mixer
// calls into for the tempo and audio-analysis subsystems, both external
// collaborators per spec.md §1.
type TempoAdvancer interface{ Advance(wallDt time.Duration) }
type AudioAdvancer interface{ Advance(wallDt time.Duration) }

// InboundDispatcher drains one inbox of inbound MIDI/OSC messages into
// engine-side effects (parameter writes, commands). Both the midi and osc
// packages implement this.
type InboundDispatcher interface{ DispatchInbound() }

// Mixer drives every registered bus through one frame per Tick call,
// blends them through the two-bus crossfader with cue taps, runs the
// master effects chain, and publishes the finished frame to a
// DoubleBuffer. Ten-step sequence from spec.md §4.6.
type Mixer struct {
	PointCount int

	Buses  []IdentifiedBus
	Master *MasterChannel

	Crossfader     *param.BoundedParam // 0..1
	CrossfadeBlend color.Mode
	SpeedMultiplier *param.BoundedParam

	Graph     *modulation.Graph
	Double    *DoubleBuffer
	Reporter  enginerr.Reporter

	Inbound []InboundDispatcher
	Tempo   TempoAdvancer
	Audio   AudioAdvancer

	LoopTasks  []LoopTask
	oneShots   chan func()

	// ParallelChannels runs each bus's Tick on its own goroutine, with the
	// mixer waiting on an errgroup completion barrier before blending
	// (spec.md §5 item 2). Buses must not share mutable state with each
	// other within a frame when this is enabled.
	ParallelChannels bool

	frameCount int64

	left, right, mainBuf, cueBuf, crossfaded capability.Buffer
}

func NewMixer(pointCount int, graph *modulation.Graph) *Mixer {
	return &Mixer{
		PointCount:      pointCount,
		Master:          NewMasterChannel(),
		Crossfader:      param.NewBounded("crossfader", 0, 1, 0.5),
		SpeedMultiplier: param.NewBounded("speed", 0, 4, 1),
		CrossfadeBlend:  color.Dissolve,
		Graph:           graph,
		Double:          NewDoubleBuffer(pointCount),
		Reporter:        enginerr.NopReporter,
		oneShots:        make(chan func(), 256),

		left:       make(capability.Buffer, pointCount),
		right:      make(capability.Buffer, pointCount),
		mainBuf:    make(capability.Buffer, pointCount),
		cueBuf:     make(capability.Buffer, pointCount),
		crossfaded: make(capability.Buffer, pointCount),
	}
}

// BusByID finds a currently-attached bus by its component id, the lookup
// GoPatternCommand and similar handle-addressed commands use instead of
// holding a raw *Channel/*GroupChannel pointer across an undo round trip.
func (m *Mixer) BusByID(id registry.ID) (IdentifiedBus, bool) {
	for _, b := range m.Buses {
		if b.ID() == id {
			return b, true
		}
	}
	return nil, false
}

// AddBus appends a bus to the end of the bus list.
func (m *Mixer) AddBus(b IdentifiedBus) {
	m.Buses = append(m.Buses, b)
}

// InsertBus inserts b at index, clamping index into [0, len(Buses)].
func (m *Mixer) InsertBus(b IdentifiedBus, index int) {
	if index < 0 {
		index = 0
	}
	if index > len(m.Buses) {
		index = len(m.Buses)
	}
	m.Buses = append(m.Buses, nil)
	copy(m.Buses[index+1:], m.Buses[index:])
	m.Buses[index] = b
}

// RemoveBusByID detaches the bus with the given id from the mix without
// disposing it, returning the bus and the index it held so a command can
// restore it with InsertBus on Undo. The bus keeps its registry identity
// and all of its parameters/modulation stay live — only its membership in
// Buses changes, which is what makes "undo a channel removal" cheap and
// exact instead of requiring a full component resurrection.
func (m *Mixer) RemoveBusByID(id registry.ID) (bus IdentifiedBus, index int, ok bool) {
	for i, b := range m.Buses {
		if b.ID() == id {
			m.Buses = append(m.Buses[:i:i], m.Buses[i+1:]...)
			return b, i, true
		}
	}
	return nil, 0, false
}

// PostOneShot enqueues fn to run once, on the engine thread, at the
// defined drain point of the next tick (spec.md §5: parameter writes from
// off-engine threads are delivered this way). Safe to call from any
// goroutine; never blocks the engine (drops the task if the queue is
// full, matching the "never blocks inside a tick" contract).
func (m *Mixer) PostOneShot(fn func()) {
	select {
	case m.oneShots <- fn:
	default:
	}
}

// Tick runs one full frame: dispatch -> tempo/audio -> modulation ->
// loop tasks/one-shots -> channels -> blend -> crossfade -> master ->
// cue -> publish. now is unused internally (dt is derived by the caller
// tracking wall-clock deltas) but kept in the signature so hosts have a
// single call matching spec.md §2's "engine.tick(now)".
func (m *Mixer) Tick(now time.Time, wallDt time.Duration) {
	for _, d := range m.Inbound {
		d.DispatchInbound()
	}

	if m.Tempo != nil {
		m.Tempo.Advance(wallDt)
	}
	if m.Audio != nil {
		m.Audio.Advance(wallDt)
	}

	speed := 1.0
	if m.SpeedMultiplier != nil {
		speed = m.SpeedMultiplier.Value()
	}
	dt := time.Duration(float64(wallDt) * speed)

	if m.Graph != nil {
		m.Graph.Tick(dt, m.Reporter)
	}

	for _, task := range m.LoopTasks {
		task(dt)
	}
	m.drainOneShots()

	m.tickBuses(dt)

	m.blend()

	m.Master.Tick(dt, m.mainBuf)

	m.computeCue()

	copy(m.Double.Render(), m.mainBuf)
	copy(m.Double.CueRender(), m.cueBuf)
	cueActive := m.anyCueActive()
	m.Double.Flip(cueActive)

	m.frameCount++
}

// FrameCount returns the number of frames published so far.
func (m *Mixer) FrameCount() int64 { return m.frameCount }

func (m *Mixer) drainOneShots() {
	for {
		select {
		case fn := <-m.oneShots:
			fn()
		default:
			return
		}
	}
}

func (m *Mixer) tickBuses(dt time.Duration) {
	if !m.ParallelChannels || len(m.Buses) < 2 {
		for _, b := range m.Buses {
			tickBusSafely(b, dt, m.Reporter)
		}
		return
	}

	var g errgroup.Group
	for _, b := range m.Buses {
		b := b
		g.Go(func() error {
			tickBusSafely(b, dt, m.Reporter)
			return nil
		})
	}
	_ = g.Wait() // bus ticks never return an error; isolation happens inside tickBusSafely
}

func tickBusSafely(b MixBus, dt time.Duration, reporter enginerr.Reporter) {
	defer func() {
		if r := recover(); r != nil && reporter != nil {
			reporter.Report(enginerr.CrashedModulator, "bus tick panicked", "")
			_ = r
		}
	}()
	b.Tick(dt)
}

// contributeToBus blends src, scaled by fader, into dst. The first
// contributor in a frame is composited against black instead of added, so
// a single channel at fader 1 reproduces its own colors exactly rather
// than adding onto whatever garbage was left in dst (spec.md §4.6 step 7).
func contributeToBus(src capability.Buffer, fader float64, dst capability.Buffer, first *bool) {
	mode := color.Add
	base := dst
	if *first {
		mode = color.Normal
		base = blackOf(dst)
		*first = false
	}
	color.BlendBuffer(mode, base, src, fader, dst)
}

func blackOf(like capability.Buffer) capability.Buffer {
	buf := make(capability.Buffer, len(like))
	for i := range buf {
		buf[i] = color.Black
	}
	return buf
}

// blend implements spec.md §4.6 steps 7-8: accumulate each bus into
// left/right/main per its crossfade group, then cross-fade left/right
// into main.
func (m *Mixer) blend() {
	clearBuffer(m.left)
	clearBuffer(m.right)
	clearBuffer(m.mainBuf)

	leftHasContent, rightHasContent := false, false
	firstLeft, firstRight, firstMain := true, true, true

	for _, b := range m.Buses {
		if !b.IsEnabled() && !b.IsCueActive() {
			continue
		}
		buf := b.Buffer()
		fader := b.FaderValue()
		switch b.Group() {
		case GroupA:
			contributeToBus(buf, fader, m.left, &firstLeft)
			leftHasContent = true
		case GroupB:
			contributeToBus(buf, fader, m.right, &firstRight)
			rightHasContent = true
		default: // GroupBypass
			contributeToBus(buf, fader, m.mainBuf, &firstMain)
		}
	}

	x := 0.5
	if m.Crossfader != nil {
		x = m.Crossfader.Value()
	}
	weightLeft := 1 - x
	weightRight := x

	switch {
	case leftHasContent && rightHasContent:
		// One blend, dst=left src=right alpha=weightRight: for
		// Dissolve/Lerp that's the direct per-channel linear weight
		// (weightLeft·left + weightRight·right), continuous across the
		// whole range with an exact 50/50 mix at x=0.5 — no direction
		// switch, so there's nothing to collapse to zero at the midpoint.
		color.BlendBuffer(m.CrossfadeBlend, m.left, m.right, weightRight, m.crossfaded)
		color.BlendBuffer(color.Add, m.mainBuf, m.crossfaded, 1.0, m.mainBuf)
	case leftHasContent:
		color.BlendBuffer(color.Add, m.mainBuf, m.left, weightLeft, m.mainBuf)
	case rightHasContent:
		color.BlendBuffer(color.Add, m.mainBuf, m.right, weightRight, m.mainBuf)
	}

	if !leftHasContent && !rightHasContent && firstMain {
		for i := range m.mainBuf {
			m.mainBuf[i] = color.Black
		}
	}
}

func (m *Mixer) computeCue() {
	clearBuffer(m.cueBuf)
	first := true
	for _, b := range m.Buses {
		if !b.IsCueActive() {
			continue
		}
		contributeToBus(b.Buffer(), b.FaderValue(), m.cueBuf, &first)
	}
	if m.Master.CueActive.Value() {
		contributeToBus(m.mainBuf, 1.0, m.cueBuf, &first)
	}
}

func (m *Mixer) anyCueActive() bool {
	if m.Master.CueActive.Value() {
		return true
	}
	for _, b := range m.Buses {
		if b.IsCueActive() {
			return true
		}
	}
	return false
}

func clearBuffer(buf capability.Buffer) {
	for i := range buf {
		buf[i] = 0
	}
}

