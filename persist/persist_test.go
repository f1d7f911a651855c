package persist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/capability"
	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/modulation"
	"github.com/lumenforge/lumencore/registry"
)

func testClasses() Classes {
	return Classes{
		Patterns: map[string]PatternFactory{
			"solid": func() capability.Pattern { return capability.SolidColor(0xFFFF00FF) },
		},
		Effects: map[string]EffectFactory{},
	}
}

func newTestChannel(t *testing.T) *engine.Channel {
	t.Helper()
	slot := &engine.PatternSlot{
		Node:    engine.NewComponent("solid"),
		Pattern: capability.SolidColor(0xFFFF00FF),
		Class:   "solid",
	}
	ch, err := engine.NewChannel(4, []*engine.PatternSlot{slot})
	require.NoError(t, err)
	ch.Fader.SetValue(0.75)
	ch.CrossfadeGroupParam.SetIndex(int(engine.GroupA))
	return ch
}

// TestChannelSaveLoadRoundTrips asserts save(load(doc)) == doc (spec.md:218):
// a document produced by one codec, loaded into a channel by a second codec
// backed by a fresh registry, then re-saved, must reproduce the original
// document exactly. RegisterWithID preserves the id across the round trip
// since nothing else occupies it in the fresh registry.
func TestChannelSaveLoadRoundTrips(t *testing.T) {
	classes := testClasses()

	reg1 := registry.New()
	codec1 := NewCodec(reg1, classes, modulation.NewGraph())
	ch1 := newTestChannel(t)
	require.NoError(t, reg1.Register(ch1.Node()))

	doc1 := codec1.SaveChannel(ch1)

	reg2 := registry.New()
	codec2 := NewCodec(reg2, classes, modulation.NewGraph())
	ch2, err := codec2.LoadChannel(doc1, 4)
	require.NoError(t, err)

	doc2 := codec2.SaveChannel(ch2)

	assert.Equal(t, doc1, doc2)
}

// TestLoadChannelFreshAssignsNewID asserts the destroy/recreate building
// block never reuses the document's old id, even when that id is free.
func TestLoadChannelFreshAssignsNewID(t *testing.T) {
	classes := testClasses()

	reg1 := registry.New()
	codec1 := NewCodec(reg1, classes, modulation.NewGraph())
	ch1 := newTestChannel(t)
	require.NoError(t, reg1.Register(ch1.Node()))
	originalID := ch1.Node().ID()

	doc := codec1.SaveChannel(ch1)

	reg2 := registry.New()
	codec2 := NewCodec(reg2, classes, modulation.NewGraph())
	ch2, err := codec2.LoadChannelFresh(doc, 4)
	require.NoError(t, err)

	assert.NotEqual(t, originalID, ch2.Node().ID(), "LoadChannelFresh must never reuse the document's old id")
}
