package tempo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdvanceMovesBeatPositionByBPM(t *testing.T) {
	c := NewClock(120) // 2 beats/sec
	c.Advance(500 * time.Millisecond)
	assert.InDelta(t, 1.0, c.Beat(), 1e-9)
}

func TestAdvanceWrapsAtBarLength(t *testing.T) {
	c := NewClock(120) // 2 beats/sec, 4 beats/bar
	c.Advance(3 * time.Second) // 6 beats -> wraps once, lands at 2
	assert.InDelta(t, 2.0, c.Beat(), 1e-9)
}

func TestAdvanceIsNoOpWhenStopped(t *testing.T) {
	c := NewClock(120)
	c.Stop()
	c.Advance(time.Second)
	assert.Equal(t, 0.0, c.Beat())
}

func TestBeatPhaseWrapsToUnitInterval(t *testing.T) {
	c := NewClock(120)
	c.Advance(1250 * time.Millisecond) // 2.5 beats
	assert.InDelta(t, 0.5, c.BeatPhase(1), 1e-9)
}

func TestStepIndexesWithinBar(t *testing.T) {
	c := NewClock(120) // 4 beats/bar
	c.Advance(500 * time.Millisecond) // 1 beat in -> quarter of the way through the bar
	assert.Equal(t, 4, c.Step(16))
}

func TestTapAveragesIntervalsIntoBPM(t *testing.T) {
	c := NewClock(120)
	base := time.Now()

	c.Tap(base)
	c.Tap(base.Add(500 * time.Millisecond))
	c.Tap(base.Add(1 * time.Second))

	assert.InDelta(t, 120.0, c.BPM.Value(), 0.01)
}

func TestTapResetsAfterLongGap(t *testing.T) {
	c := NewClock(90)
	base := time.Now()

	c.Tap(base)
	c.Tap(base.Add(3 * time.Second)) // > tapTimeout, resets the buffer instead of averaging
	assert.Equal(t, 90.0, c.BPM.Value(), "a single tap after a reset must not move BPM yet")

	c.Tap(base.Add(3500 * time.Millisecond))
	assert.InDelta(t, 120.0, c.BPM.Value(), 0.01)
}

func TestBPMClampedToConfiguredRange(t *testing.T) {
	c := NewClock(120)
	c.BPM.SetValue(1000)
	assert.Equal(t, 300.0, c.BPM.Value())

	c.BPM.SetValue(-10)
	assert.Equal(t, 20.0, c.BPM.Value())
}
