package osc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/registry"
)

func newTestMixer(t *testing.T, busCount int) (*engine.Mixer, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	graph := modulation.NewGraph()
	mixer := engine.NewMixer(8, graph)
	require.NoError(t, reg.Register(mixer.Master.Node()))

	for i := 0; i < busCount; i++ {
		slot := &engine.PatternSlot{Node: engine.NewComponent("solid")}
		require.NoError(t, reg.Register(slot.Node))
		ch, err := engine.NewChannel(8, []*engine.PatternSlot{slot})
		require.NoError(t, err)
		require.NoError(t, reg.Register(ch.Node()))
		mixer.AddBus(ch)
	}
	return mixer, reg
}

func TestResolveChannelFaderByIndex(t *testing.T) {
	mixer, _ := newTestMixer(t, 2)
	r := NewRouter(mixer)

	p, err := r.Resolve("channels/1/fader")
	require.NoError(t, err)
	assert.Same(t, mixer.Buses[0].(*engine.Channel).Fader, p)
}

func TestResolveMasterCueActive(t *testing.T) {
	mixer, _ := newTestMixer(t, 1)
	r := NewRouter(mixer)

	p, err := r.Resolve("master/cueActive")
	require.NoError(t, err)
	assert.Same(t, mixer.Master.CueActive, p)
}

func TestResolveRejectsOutOfRangeChannelIndex(t *testing.T) {
	mixer, _ := newTestMixer(t, 2)
	r := NewRouter(mixer)

	_, err := r.Resolve("channels/5/fader")
	require.Error(t, err)
	var ee *enginerr.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, enginerr.InvalidCommand, ee.Kind)
}

func TestResolveRejectsUnknownEntryPoint(t *testing.T) {
	mixer, _ := newTestMixer(t, 1)
	r := NewRouter(mixer)

	_, err := r.Resolve("groups/1/fader")
	assert.Error(t, err)
}

func TestDispatchWritesBoundedParamFromFloatArg(t *testing.T) {
	mixer, _ := newTestMixer(t, 1)
	r := NewRouter(mixer)

	err := r.Dispatch(Message{Address: "channels/1/fader", Args: []any{float32(0.25)}})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, mixer.Buses[0].FaderValue(), 1e-9)
}

func TestDispatchWritesBoolParamFromIntArg(t *testing.T) {
	mixer, _ := newTestMixer(t, 1)
	r := NewRouter(mixer)

	err := r.Dispatch(Message{Address: "channels/1/enabled", Args: []any{int32(0)}})
	require.NoError(t, err)
	assert.False(t, mixer.Buses[0].IsEnabled())
}

func TestDispatchRejectsMessageWithNoArgs(t *testing.T) {
	mixer, _ := newTestMixer(t, 1)
	r := NewRouter(mixer)

	err := r.Dispatch(Message{Address: "channels/1/fader"})
	assert.Error(t, err)
}

func TestDispatchInboundDrainsQueuedMessages(t *testing.T) {
	mixer, _ := newTestMixer(t, 1)
	r := NewRouter(mixer)

	r.Post(Message{Address: "channels/1/fader", Args: []any{float64(0.75)}})
	r.DispatchInbound()

	assert.InDelta(t, 0.75, mixer.Buses[0].FaderValue(), 1e-9)
}
