package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/capability"
)

func solidSlot(c capability.Color) *PatternSlot {
	return &PatternSlot{Node: NewComponent("solid"), Pattern: capability.SolidColor(c), Class: "solid"}
}

func newTestChannel(t *testing.T, n int) *Channel {
	t.Helper()
	slots := make([]*PatternSlot, n)
	for i := range slots {
		slots[i] = solidSlot(capability.Color(i + 1))
	}
	ch, err := NewChannel(4, slots)
	require.NoError(t, err)
	return ch
}

func TestNewChannelRejectsEmptyPatternList(t *testing.T) {
	_, err := NewChannel(4, nil)
	assert.Error(t, err)
}

func TestGoPatternSnapsImmediatelyWithoutTransitions(t *testing.T) {
	ch := newTestChannel(t, 2)
	require.NoError(t, ch.GoPattern(1))
	assert.Equal(t, 1, ch.ActiveIndex())
	assert.False(t, ch.Transitioning())
}

func TestGoPatternRejectsOutOfRangeIndex(t *testing.T) {
	ch := newTestChannel(t, 2)
	assert.Error(t, ch.GoPattern(5))
}

func TestGoPatternStartsTransitionWhenEnabled(t *testing.T) {
	ch := newTestChannel(t, 2)
	ch.TransitionsEnabled = true
	ch.TransitionSecs.SetValue(1)

	require.NoError(t, ch.GoPattern(1))
	assert.True(t, ch.Transitioning())
	assert.Equal(t, 0, ch.ActiveIndex())
	assert.Equal(t, 1, ch.NextIndex())
}

func TestTickFinishesTransitionOnceDurationElapses(t *testing.T) {
	ch := newTestChannel(t, 2)
	ch.TransitionsEnabled = true
	ch.TransitionSecs.SetValue(1)
	require.NoError(t, ch.GoPattern(1))

	ch.Tick(500 * time.Millisecond)
	assert.True(t, ch.Transitioning())

	ch.Tick(600 * time.Millisecond)
	assert.False(t, ch.Transitioning())
	assert.Equal(t, 1, ch.ActiveIndex())
}

func TestTickSkipsRenderingWhenDisabledAndNotCued(t *testing.T) {
	ch := newTestChannel(t, 1)
	ch.Enabled.SetValue(false)
	ch.CueActive.SetValue(false)

	before := make(capability.Buffer, len(ch.Buffer()))
	copy(before, ch.Buffer())

	ch.Tick(16 * time.Millisecond)
	assert.Equal(t, before, ch.Buffer(), "a disabled, non-cued channel must not render")
}

func TestRemovePatternRejectsLastPattern(t *testing.T) {
	ch := newTestChannel(t, 1)
	assert.Error(t, ch.RemovePattern(0))
}

func TestRemovePatternReselectsWhenActiveIsRemoved(t *testing.T) {
	ch := newTestChannel(t, 3)
	require.NoError(t, ch.GoPattern(2))

	require.NoError(t, ch.RemovePattern(2))
	assert.Equal(t, 0, ch.ActiveIndex(), "removing the active pattern forces reselection to index 0")
	assert.Len(t, ch.Patterns, 2)
}

func TestRemovePatternShiftsIndicesAfterRemoval(t *testing.T) {
	ch := newTestChannel(t, 3)
	require.NoError(t, ch.GoPattern(2))

	require.NoError(t, ch.RemovePattern(0)) // removes a pattern before the active one
	assert.Equal(t, 1, ch.ActiveIndex(), "the active index must shift down when an earlier pattern is removed")
}

func TestGroupAndFaderAccessorsReflectParameters(t *testing.T) {
	ch := newTestChannel(t, 1)
	ch.Fader.SetValue(0.75)
	ch.CrossfadeGroupParam.SetIndex(int(GroupA))

	assert.Equal(t, 0.75, ch.FaderValue())
	assert.Equal(t, GroupA, ch.Group())
}
