// Package tempo implements the engine's shared beat clock: a free-running
// or tapped BPM that advances with wall-clock dt and exposes a
// division-relative phase for clock-locked modulators (spec.md §4.3,
// modulation.TempoSource).
//
// Grounded on the teacher's audio.Engine sequencer, which derives a 16th
// note step and an in-step progress fraction from a sample position and a
// fixed BPM (samplesPerBeat := sampleRate*60/bpm/4; step :=
// samplePos/samplesPerBeat % 16). Clock generalizes that same
// position/step/progress shape from a sample counter driven by a fixed
// sample rate to a beat counter driven by wall-clock dt at a mutable BPM,
// and adds BPM tap-tempo averaging the teacher's sequencer never needed
// because its tempo was a compile-time constant.
package tempo

import (
	"time"

	"github.com/lumenforge/lumencore/param"
)

const (
	minBPM = 20.0
	maxBPM = 300.0

	tapWindow   = 8               // taps retained for the running average
	tapTimeout  = 2 * time.Second // taps older than this reset the buffer
)

// Clock is a free-running beat position: BeatPos increases by
// (bpm/60)*dtSeconds every Advance, wrapping at BarLength bars. Division
// taps (quarter, eighth, sixteenth, ...) are exposed as 0..1 phases, what
// ClockLockedLFO reads directly instead of wall-clock dt.
type Clock struct {
	BPM       *param.BoundedParam
	BarBeats  int // beats per bar, e.g. 4 for 4/4
	BeatPos   float64
	running   bool

	taps []time.Time
}

// NewClock builds a clock at the given initial BPM (clamped to
// [20,300], the practically useful lighting range) and a 4-beat bar.
func NewClock(initialBPM float64) *Clock {
	return &Clock{
		BPM:      param.NewBounded("bpm", minBPM, maxBPM, initialBPM),
		BarBeats: 4,
		running:  true,
	}
}

func (c *Clock) Start() { c.running = true }
func (c *Clock) Stop()  { c.running = false }
func (c *Clock) Running() bool { return c.running }

// Advance moves the beat position forward by wallDt at the current BPM.
// Implements engine.TempoAdvancer / modulation's upstream driver, run once
// per mixer tick before the modulation graph (spec.md §4.6 step 2).
func (c *Clock) Advance(wallDt time.Duration) {
	if !c.running {
		return
	}
	beatsPerSec := c.BPM.Value() / 60.0
	c.BeatPos += beatsPerSec * wallDt.Seconds()
	barLen := float64(c.BarBeats)
	if barLen > 0 {
		for c.BeatPos >= barLen {
			c.BeatPos -= barLen
		}
	}
}

// Beat returns the current beat position within the bar, in [0, BarBeats).
func (c *Clock) Beat() float64 { return c.BeatPos }

// BeatPhase returns the 0..1 phase within `division` beats — division=1
// is quarter-note-relative, division=0.25 is sixteenth-note-relative,
// matching the teacher's samplePos%samplesPerBeat/samplesPerBeat
// "stepProgress" fraction, generalized from one fixed division (a 16th
// note) to an arbitrary caller-chosen one. Implements
// modulation.TempoSource.
func (c *Clock) BeatPhase(division float64) float64 {
	if division <= 0 {
		division = 1
	}
	x := c.BeatPos / division
	frac := x - float64(int64(x))
	if frac < 0 {
		frac += 1
	}
	return frac
}

// Step returns the current step index within one bar subdivided into
// `stepsPerBar` equal steps, the same indexing the teacher's sequencer
// used for its fixed 16-step patterns, generalized to an arbitrary step
// count.
func (c *Clock) Step(stepsPerBar int) int {
	if stepsPerBar <= 0 {
		return 0
	}
	frac := c.BeatPos / float64(c.BarBeats)
	return int(frac*float64(stepsPerBar)) % stepsPerBar
}

// Tap records one tap-tempo event at the current instant and, once at
// least two taps have landed within tapTimeout of each other, updates BPM
// to the running average interval. Stale taps beyond tapTimeout reset the
// buffer, so a long pause starts a fresh average instead of blending with
// a stale one.
func (c *Clock) Tap(now time.Time) {
	if len(c.taps) > 0 && now.Sub(c.taps[len(c.taps)-1]) > tapTimeout {
		c.taps = c.taps[:0]
	}
	c.taps = append(c.taps, now)
	if len(c.taps) > tapWindow {
		c.taps = c.taps[len(c.taps)-tapWindow:]
	}
	if len(c.taps) < 2 {
		return
	}
	total := c.taps[len(c.taps)-1].Sub(c.taps[0])
	avg := total.Seconds() / float64(len(c.taps)-1)
	if avg <= 0 {
		return
	}
	bpm := 60.0 / avg
	c.BPM.SetValue(bpm)
}
