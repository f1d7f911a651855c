// Package modulation implements the data-flow substrate connecting
// modulator outputs to parameter inputs: the modulator variants of
// spec.md §4.3 and the compound/trigger modulation graph of §4.4, with
// cycle prohibition enforced on every edge addition.
package modulation

import (
	"math"
	"math/rand"
	"time"
)

// Modulator is a per-tick numeric signal source. All variants honour
// start/stop/reset and produce a new output every Tick.
type Modulator interface {
	// Tick advances internal state by dt and returns the new output.
	Tick(dt time.Duration) float64
	Start()
	Stop()
	Running() bool
	Reset()
	// SourceValue returns the most recently ticked output, for use as a
	// modulation source without re-ticking.
	SourceValue() float64
	// Label is used for persistence/UI and error reporting.
	Label() string
}

// Waveshape selects the periodic modulator's basis -> output mapping.
type Waveshape int

const (
	WaveSine Waveshape = iota
	WaveTriangle
	WaveUpRamp
	WaveDownRamp
	WaveSquare
)

// LFO is a periodic modulator: basis advances by dt/period each tick
// (wrapping mod 1) and is mapped to an output through the pipeline
// {phase -> bias -> skew -> waveshape -> shape -> exp}, each stage a pure
// function of the prior stage's result.
type LFO struct {
	label     string
	PeriodMs  float64
	Shape     Waveshape
	Phase     float64 // offset added before bias, in [0,1)
	Bias      float64 // piecewise stretch around centre, in (-1,1)
	Skew      float64 // pre-basis power, 0 means "none" (treated as 1)
	ShapePow  float64 // bipolar post-ramp power, 0 means "none" (treated as 1)
	Exp       float64 // post-shape power, 0 means "none" (treated as 1)

	basis   float64
	output  float64
	running bool
}

func NewLFO(label string, periodMs float64, shape Waveshape) *LFO {
	return &LFO{label: label, PeriodMs: periodMs, Shape: shape, running: true}
}

func (m *LFO) Label() string       { return m.label }
func (m *LFO) Running() bool       { return m.running }
func (m *LFO) Start()              { m.running = true }
func (m *LFO) Stop()               { m.running = false }
func (m *LFO) Reset()              { m.basis = 0; m.output = m.evaluate(0) }
func (m *LFO) SourceValue() float64 { return m.output }

func (m *LFO) Tick(dt time.Duration) float64 {
	if !m.running || m.PeriodMs <= 0 {
		return m.output
	}
	ms := float64(dt) / float64(time.Millisecond)
	m.basis = math.Mod(m.basis+ms/m.PeriodMs, 1.0)
	if m.basis < 0 {
		m.basis += 1.0
	}
	m.output = m.evaluate(m.basis)
	return m.output
}

func (m *LFO) evaluate(basis float64) float64 {
	x := basis

	// phase
	x = math.Mod(x+m.Phase, 1.0)
	if x < 0 {
		x += 1.0
	}

	// bias: piecewise stretch around the centre (0.5). bias in (-1,1);
	// bias>0 pushes the midpoint later, bias<0 earlier.
	if m.Bias != 0 {
		center := 0.5 + 0.5*m.Bias
		if center <= 0 {
			center = 1e-6
		}
		if center >= 1 {
			center = 1 - 1e-6
		}
		if x < 0.5 {
			x = (x / 0.5) * center
		} else {
			x = center + ((x-0.5)/0.5)*(1-center)
		}
	}

	// skew: pre-basis power
	if m.Skew != 0 && m.Skew != 1 {
		x = math.Pow(x, m.Skew)
	}

	// waveshape
	var out float64
	switch m.Shape {
	case WaveSine:
		out = math.Sin(2 * math.Pi * x)
	case WaveTriangle:
		out = 1 - 4*math.Abs(math.Mod(x+0.75, 1.0)-0.5)
	case WaveUpRamp:
		out = 2*x - 1
	case WaveDownRamp:
		out = 1 - 2*x
	case WaveSquare:
		if x < 0.5 {
			out = 1
		} else {
			out = -1
		}
	}

	// shape: bipolar post-ramp power, preserving sign
	if m.ShapePow != 0 && m.ShapePow != 1 {
		sign := 1.0
		if out < 0 {
			sign = -1.0
		}
		out = sign * math.Pow(math.Abs(out), m.ShapePow)
	}

	// exp: post-shape power, preserving sign
	if m.Exp != 0 && m.Exp != 1 {
		sign := 1.0
		if out < 0 {
			sign = -1.0
		}
		out = sign * math.Pow(math.Abs(out), m.Exp)
	}

	return out
}

// EnvelopeMode selects which stages an Envelope moves through.
type EnvelopeMode int

const (
	ModeAD EnvelopeMode = iota
	ModeAHD
	ModeADSR
	ModeAHDSR
	ModeDADSR
	ModeDAHDSR
)

// EnvelopeStage is a position in the envelope state machine.
type EnvelopeStage int

const (
	StageOff EnvelopeStage = iota
	StageDelay
	StageAttack
	StageHold
	StageDecay
	StageSustain
	StageRelease
)

// RetriggerPolicy controls what Engage does when the envelope is already
// running.
type RetriggerPolicy int

const (
	RetriggerHardReset RetriggerPolicy = iota
	RetriggerContinue
)

// Envelope advances through DELAY->ATTACK->HOLD->DECAY->SUSTAIN->RELEASE->
// OFF, the active subset determined by Mode. Engage/Release are
// edge-triggered.
type Envelope struct {
	label string

	Mode       EnvelopeMode
	DelayMs    float64
	AttackMs   float64
	HoldMs     float64
	DecayMs    float64
	SustainLvl float64 // [0,1]
	ReleaseMs  float64
	Retrigger  RetriggerPolicy

	// PeakScale multiplies the envelope's output; set from MIDI note-on
	// velocity (and optionally pitch response) by the host.
	PeakScale float64

	stage     EnvelopeStage
	elapsedMs float64
	output    float64
	engaged   bool
	running   bool
}

func NewEnvelope(label string, mode EnvelopeMode) *Envelope {
	return &Envelope{label: label, Mode: mode, SustainLvl: 1, PeakScale: 1, running: true}
}

func (e *Envelope) Label() string       { return e.label }
func (e *Envelope) Running() bool       { return e.running }
func (e *Envelope) Start()              { e.running = true }
func (e *Envelope) Stop()               { e.running = false; e.stage = StageOff; e.output = 0 }
func (e *Envelope) SourceValue() float64 { return e.output * e.PeakScale }

func (e *Envelope) Reset() {
	e.stage = StageOff
	e.elapsedMs = 0
	e.output = 0
	e.engaged = false
}

// stagesFor returns the ordered stage list this Mode visits between Engage
// and Release.
func (e *Envelope) stagesFor() []EnvelopeStage {
	switch e.Mode {
	case ModeAD:
		return []EnvelopeStage{StageAttack, StageDecay}
	case ModeAHD:
		return []EnvelopeStage{StageAttack, StageHold, StageDecay}
	case ModeADSR:
		return []EnvelopeStage{StageAttack, StageDecay, StageSustain}
	case ModeAHDSR:
		return []EnvelopeStage{StageAttack, StageHold, StageDecay, StageSustain}
	case ModeDADSR:
		return []EnvelopeStage{StageDelay, StageAttack, StageDecay, StageSustain}
	case ModeDAHDSR:
		return []EnvelopeStage{StageDelay, StageAttack, StageHold, StageDecay, StageSustain}
	}
	return []EnvelopeStage{StageAttack, StageDecay}
}

// Engage triggers the envelope on a rising edge. Per Retrigger, a
// re-engage while already running either hard-resets to the initial stage
// or continues advancing from the current output level.
func (e *Envelope) Engage() {
	if e.engaged {
		return
	}
	e.engaged = true
	stages := e.stagesFor()
	if e.Retrigger == RetriggerHardReset || e.stage == StageOff {
		e.elapsedMs = 0
		e.stage = stages[0]
	}
	// RetriggerContinue: keep current stage/output, just mark engaged so
	// the stage machine keeps advancing instead of moving to Release.
}

// Release triggers the release stage on a falling edge.
func (e *Envelope) Release() {
	if !e.engaged {
		return
	}
	e.engaged = false
	if e.hasReleaseStage() {
		e.stage = StageRelease
		e.elapsedMs = 0
	} else {
		e.stage = StageOff
		e.output = 0
	}
}

func (e *Envelope) hasReleaseStage() bool {
	switch e.Mode {
	case ModeADSR, ModeAHDSR, ModeDADSR, ModeDAHDSR:
		return true
	default:
		return false
	}
}

func (e *Envelope) Tick(dt time.Duration) float64 {
	if !e.running {
		return e.output
	}
	ms := float64(dt) / float64(time.Millisecond)
	e.elapsedMs += ms

	switch e.stage {
	case StageOff:
		e.output = 0
	case StageDelay:
		e.output = 0
		if e.elapsedMs >= e.DelayMs {
			e.stage = StageAttack
			e.elapsedMs -= e.DelayMs
		}
	case StageAttack:
		if e.AttackMs <= 0 {
			e.output = 1
			e.advanceFrom(StageAttack)
		} else {
			e.output = clamp01(e.elapsedMs / e.AttackMs)
			if e.elapsedMs >= e.AttackMs {
				e.advanceFrom(StageAttack)
			}
		}
	case StageHold:
		e.output = 1
		if e.elapsedMs >= e.HoldMs {
			e.advanceFrom(StageHold)
		}
	case StageDecay:
		if e.DecayMs <= 0 {
			e.output = e.sustainOrZero()
			e.advanceFrom(StageDecay)
		} else {
			t := clamp01(e.elapsedMs / e.DecayMs)
			target := e.sustainOrZero()
			e.output = 1 + t*(target-1)
			if e.elapsedMs >= e.DecayMs {
				e.advanceFrom(StageDecay)
			}
		}
	case StageSustain:
		e.output = e.SustainLvl
		// remains until Release() moves it on
	case StageRelease:
		startLevel := e.SustainLvl
		if e.ReleaseMs <= 0 {
			e.output = 0
			e.stage = StageOff
		} else {
			t := clamp01(e.elapsedMs / e.ReleaseMs)
			e.output = startLevel * (1 - t)
			if e.elapsedMs >= e.ReleaseMs {
				e.stage = StageOff
				e.output = 0
			}
		}
	}
	return e.output * e.PeakScale
}

func (e *Envelope) sustainOrZero() float64 {
	if e.hasReleaseStage() {
		return e.SustainLvl
	}
	return 0
}

func (e *Envelope) advanceFrom(cur EnvelopeStage) {
	stages := e.stagesFor()
	for i, s := range stages {
		if s == cur && i+1 < len(stages) {
			e.stage = stages[i+1]
			e.elapsedMs = 0
			return
		}
	}
	// last stage reached with no sustain (AD/AHD): envelope is done.
	if !e.hasReleaseStage() {
		e.stage = StageOff
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FollowerMode selects how RandomMod shapes its raw random target.
type FollowerMode int

const (
	FollowDirect FollowerMode = iota
	FollowDamped
	FollowSmoothed
)

// RandomMod generates a new random target at a randomised interval and
// outputs either the raw target, a critically-damped follower of it, or a
// single-pole smoothed follower.
type RandomMod struct {
	label string

	MinIntervalMs, MaxIntervalMs float64
	Mode                         FollowerMode
	SmoothingMs                  float64 // time constant for Damped/Smoothed

	rng *rand.Rand

	target      float64
	velocity    float64 // for critically-damped follower
	output      float64
	nextPickMs  float64
	elapsedMs   float64
	running     bool
}

func NewRandomMod(label string, minMs, maxMs float64, mode FollowerMode, seed int64) *RandomMod {
	m := &RandomMod{
		label: label, MinIntervalMs: minMs, MaxIntervalMs: maxMs,
		Mode: mode, SmoothingMs: 100, rng: rand.New(rand.NewSource(seed)),
		running: true,
	}
	m.pickNewTarget()
	return m
}

func (m *RandomMod) Label() string       { return m.label }
func (m *RandomMod) Running() bool       { return m.running }
func (m *RandomMod) Start()              { m.running = true }
func (m *RandomMod) Stop()               { m.running = false }
func (m *RandomMod) SourceValue() float64 { return m.output }

func (m *RandomMod) Reset() {
	m.elapsedMs = 0
	m.velocity = 0
	m.output = 0
	m.pickNewTarget()
}

func (m *RandomMod) pickNewTarget() {
	m.target = m.rng.Float64()
	span := m.MaxIntervalMs - m.MinIntervalMs
	if span < 0 {
		span = 0
	}
	m.nextPickMs = m.MinIntervalMs + m.rng.Float64()*span
	m.elapsedMs = 0
}

func (m *RandomMod) Tick(dt time.Duration) float64 {
	if !m.running {
		return m.output
	}
	ms := float64(dt) / float64(time.Millisecond)
	m.elapsedMs += ms
	if m.elapsedMs >= m.nextPickMs {
		m.pickNewTarget()
	}

	switch m.Mode {
	case FollowDirect:
		m.output = m.target
	case FollowSmoothed:
		tau := m.SmoothingMs
		if tau <= 0 {
			m.output = m.target
		} else {
			alpha := 1 - math.Exp(-ms/tau)
			m.output += alpha * (m.target - m.output)
		}
	case FollowDamped:
		tau := m.SmoothingMs
		if tau <= 0 {
			m.output = m.target
			m.velocity = 0
		} else {
			// critically damped second-order follower
			omega := 2 / tau
			dtS := ms / 1000.0
			accel := omega * omega * (m.target - m.output) - 2*omega*m.velocity
			m.velocity += accel * dtS
			m.output += m.velocity * dtS
		}
	}
	return m.output
}

// StepMod advances a step index either on an external trigger or after a
// fixed time, emitting that step's stored value.
type StepMod struct {
	label string

	Values     []float64
	StepMs     float64 // 0 disables time-based advance
	index      int
	elapsedMs  float64
	output     float64
	running    bool
}

func NewStepMod(label string, values []float64, stepMs float64) *StepMod {
	m := &StepMod{label: label, Values: values, StepMs: stepMs, running: true}
	if len(values) > 0 {
		m.output = values[0]
	}
	return m
}

func (m *StepMod) Label() string       { return m.label }
func (m *StepMod) Running() bool       { return m.running }
func (m *StepMod) Start()              { m.running = true }
func (m *StepMod) Stop()               { m.running = false }
func (m *StepMod) SourceValue() float64 { return m.output }

func (m *StepMod) Reset() {
	m.index = 0
	m.elapsedMs = 0
	if len(m.Values) > 0 {
		m.output = m.Values[0]
	}
}

// Advance moves to the next step immediately (external trigger).
func (m *StepMod) Advance() {
	if len(m.Values) == 0 {
		return
	}
	m.index = (m.index + 1) % len(m.Values)
	m.output = m.Values[m.index]
	m.elapsedMs = 0
}

func (m *StepMod) Tick(dt time.Duration) float64 {
	if !m.running || len(m.Values) == 0 {
		return m.output
	}
	if m.StepMs > 0 {
		ms := float64(dt) / float64(time.Millisecond)
		m.elapsedMs += ms
		if m.elapsedMs >= m.StepMs {
			m.Advance()
		}
	}
	return m.output
}

// TempoSource is the narrow contract a ClockLockedLFO reads instead of
// wall-clock dt: a beat position and the current tempo, as produced by
// the tempo package.
type TempoSource interface {
	BeatPhase(division float64) float64 // 0..1 phase within `division` beats
}

// ClockLockedLFO behaves like an LFO but derives its basis from a tempo
// division instead of a period in milliseconds.
type ClockLockedLFO struct {
	LFO
	Clock    TempoSource
	Division float64 // in beats, e.g. 1 = quarter note at the clock's definition
}

func NewClockLockedLFO(label string, clock TempoSource, division float64, shape Waveshape) *ClockLockedLFO {
	m := &ClockLockedLFO{LFO: LFO{label: label, Shape: shape, running: true}, Clock: clock, Division: division}
	return m
}

func (m *ClockLockedLFO) Tick(_ time.Duration) float64 {
	if !m.running || m.Clock == nil {
		return m.output
	}
	m.basis = m.Clock.BeatPhase(m.Division)
	m.output = m.evaluate(m.basis)
	return m.output
}
