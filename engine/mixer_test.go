package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/capability"
)

func newCrossfadeTestChannel(t *testing.T, group CrossfadeGroup, color capability.Color) *Channel {
	t.Helper()
	ch, err := NewChannel(1, []*PatternSlot{solidSlot(color)})
	require.NoError(t, err)
	ch.CrossfadeGroupParam.SetIndex(int(group))
	ch.Fader.SetValue(1)
	return ch
}

func tickAndSnapshot(mixer *Mixer) capability.Color {
	mixer.Tick(time.Time{}, 16*time.Millisecond)
	main, _, _ := mixer.Double.Snapshot()
	return main[0]
}

// TestMixerCrossfadeCheckpoints exercises the three checkpoints a
// crossfade across two fully-faded-in buses (group A red, group B blue)
// must hit under the default Dissolve blend mode: pure left at x=0, pure
// right at x=1, and — the point the old direction-switching alpha formula
// collapsed to pure-right on — an exact per-channel 50/50 mix at x=0.5.
func TestMixerCrossfadeCheckpoints(t *testing.T) {
	const red = capability.Color(0xFFFF0000)
	const blue = capability.Color(0xFF0000FF)

	chA := newCrossfadeTestChannel(t, GroupA, red)
	chB := newCrossfadeTestChannel(t, GroupB, blue)

	mixer := NewMixer(1, nil)
	mixer.AddBus(chA)
	mixer.AddBus(chB)

	mixer.Crossfader.SetValue(0)
	assert.Equal(t, red, tickAndSnapshot(mixer), "x=0 must be pure left")

	mixer.Crossfader.SetValue(1)
	assert.Equal(t, blue, tickAndSnapshot(mixer), "x=1 must be pure right")

	mixer.Crossfader.SetValue(0.5)
	assert.Equal(t, capability.Color(0xFF7F007F), tickAndSnapshot(mixer), "x=0.5 must be an exact per-channel 50/50 mix")
}

// TestMixerCrossfadeIsContinuousAroundMidpoint guards against any
// direction-switching formula: a small step either side of 0.5 must not
// jump discontinuously, the failure mode the old alpha=2*|0.5-x| formula
// had exactly at the tested point. A linear fade moves red from 130 to
// 124 across this 0.02 step (about 5 units, plus truncation), where a
// direction-switching formula jumps by hundreds.
func TestMixerCrossfadeIsContinuousAroundMidpoint(t *testing.T) {
	chA := newCrossfadeTestChannel(t, GroupA, 0xFFFF0000)
	chB := newCrossfadeTestChannel(t, GroupB, 0xFF0000FF)

	mixer := NewMixer(1, nil)
	mixer.AddBus(chA)
	mixer.AddBus(chB)

	mixer.Crossfader.SetValue(0.49)
	below := tickAndSnapshot(mixer)

	mixer.Crossfader.SetValue(0.51)
	above := tickAndSnapshot(mixer)

	rBelow := uint8(below >> 16)
	rAbove := uint8(above >> 16)
	assert.InDelta(t, int(rBelow), int(rAbove), 6, "red channel must move smoothly across the midpoint, not jump")
}

func TestMixerSingleSidedCrossfadeScalesByFader(t *testing.T) {
	chA := newCrossfadeTestChannel(t, GroupA, 0xFFFF0000)

	mixer := NewMixer(1, nil)
	mixer.AddBus(chA)

	mixer.Crossfader.SetValue(0.25)
	got := tickAndSnapshot(mixer)

	assert.Equal(t, uint8(0xFF), uint8(got>>24), "alpha must stay opaque")
	assert.NotZero(t, uint8(got>>16), "a left-only bus must still contribute red at any crossfader position left of 1")
}
