package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/param"
)

func TestCCBindingMatchesOnlyItsController(t *testing.T) {
	var got Message
	b := CC(CCVolume, func(m Message) { got = m })

	assert.True(t, b.Match(Message{Controller: CCVolume}))
	assert.False(t, b.Match(Message{Controller: CCPan}))
	assert.False(t, b.Match(Message{NoteOn: true, Controller: CCVolume}), "a note-on must never match a CC binding even if the fields alias")

	b.Action(Message{Controller: CCVolume, Value: 42})
	assert.EqualValues(t, 42, got.Value)
}

func TestNoteVelocityBindingMatchesOnlyNoteOn(t *testing.T) {
	b := NoteVelocity(func(Message) {})
	assert.True(t, b.Match(Message{NoteOn: true, Velocity: 100}))
	assert.False(t, b.Match(Message{NoteOn: false}))
}

func TestDispatchInboundRunsMatchingBindingsInOrder(t *testing.T) {
	var fired []string
	bindings := []Binding{
		CC(CCVolume, func(Message) { fired = append(fired, "volume") }),
		CC(CCPan, func(Message) { fired = append(fired, "pan") }),
	}
	s := NewSurface(bindings)

	s.post(Message{Controller: CCVolume, Value: 10})
	s.post(Message{Controller: CCPan, Value: 20})
	s.post(Message{Controller: 99, Value: 1}) // no binding matches

	s.DispatchInbound()

	assert.Equal(t, []string{"volume", "pan"}, fired)
}

func TestDispatchInboundDrainsEverythingQueued(t *testing.T) {
	count := 0
	s := NewSurface([]Binding{CC(CCVolume, func(Message) { count++ })})

	for i := 0; i < 5; i++ {
		s.post(Message{Controller: CCVolume})
	}
	s.DispatchInbound()
	assert.Equal(t, 5, count)

	// a second call with nothing queued must be a no-op, not a re-delivery
	s.DispatchInbound()
	assert.Equal(t, 5, count)
}

func TestWatchParameterFiresEncodeOnChangeAndUnwatchStopsIt(t *testing.T) {
	s := NewSurface(nil)
	p := param.NewBool("enabled", false)

	var encodedValue uint8
	calls := 0
	token := s.WatchParameter(p, func(param.Parameter) (uint8, uint8) {
		calls++
		encodedValue = 7
		return CCVolume, encodedValue
	})

	p.SetValue(true)
	assert.Equal(t, 1, calls)

	s.Unwatch(token)
	p.SetValue(false)
	assert.Equal(t, 1, calls, "unwatching must stop further encode calls")
}

func TestSendCCWithoutConnectionIsANoOp(t *testing.T) {
	s := NewSurface(nil)
	require.NoError(t, s.SendCC(0, CCVolume, 100))
	assert.False(t, s.IsConnected())
}

func TestPortNamesDefaultToNone(t *testing.T) {
	s := NewSurface(nil)
	assert.Equal(t, "None", s.InputPortName())
	assert.Equal(t, "None", s.OutputPortName())
}
