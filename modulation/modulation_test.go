package modulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/enginerr"
	"github.com/lumenforge/lumencore/param"
)

// constSource is a fixed-value NumericSource/BoolSource, the simplest
// fixture for exercising graph wiring without a real modulator's timing.
type constSource struct {
	value float64
	flag  bool
}

func (c *constSource) SourceValue() float64 { return c.value }
func (c *constSource) SourceBool() bool     { return c.flag }

func TestAddModulationAppliesContributionImmediately(t *testing.T) {
	g := NewGraph()
	target := param.NewCompound("level", 0, 1, 0.5)
	src := &constSource{value: 1}

	_, err := g.AddModulation(src, target, 0.5, param.Unipolar)
	require.NoError(t, err)

	assert.Greater(t, target.Effective(), target.Base())
}

func TestAddModulationRejectsOutOfRangeAmount(t *testing.T) {
	g := NewGraph()
	target := param.NewCompound("level", 0, 1, 0.5)
	src := &constSource{value: 1}

	_, err := g.AddModulation(src, target, 2, param.Unipolar)
	assert.Error(t, err)
}

func TestAddModulationDetectsCycle(t *testing.T) {
	g := NewGraph()
	a := param.NewCompound("a", 0, 1, 0.5)
	b := param.NewCompound("b", 0, 1, 0.5)

	_, err := g.AddModulation(a, b, 0.5, param.Unipolar)
	require.NoError(t, err)

	_, err = g.AddModulation(b, a, 0.5, param.Unipolar)
	require.Error(t, err)
	var ee *enginerr.Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, enginerr.CycleError, ee.Kind)
}

func TestRemoveModulationClearsContribution(t *testing.T) {
	g := NewGraph()
	target := param.NewCompound("level", 0, 1, 0.5)
	src := &constSource{value: 1}

	mod, err := g.AddModulation(src, target, 1, param.Unipolar)
	require.NoError(t, err)
	assert.True(t, target.HasModulation())

	g.RemoveModulation(mod.ID)
	assert.False(t, target.HasModulation())
	assert.Equal(t, target.Base(), target.Effective())
}

func TestAddTriggerModulationFiresOnRisingEdge(t *testing.T) {
	g := NewGraph()
	target := param.NewBool("gate", false)
	src := &constSource{flag: false}

	_, err := g.AddTriggerModulation(src, target, TriggerSet)
	require.NoError(t, err)

	src.flag = true
	g.Tick(time.Millisecond, enginerr.NopReporter)
	assert.True(t, target.Value())
}

func TestModulatorByLabelFindsRegistered(t *testing.T) {
	g := NewGraph()
	lfo := NewLFO("wobble", 1000, WaveSine)
	g.RegisterModulator(lfo)

	found, ok := g.ModulatorByLabel("wobble")
	require.True(t, ok)
	assert.Same(t, lfo, found)

	_, ok = g.ModulatorByLabel("missing")
	assert.False(t, ok)
}

func TestGraphTickAdvancesRegisteredModulators(t *testing.T) {
	g := NewGraph()
	lfo := NewLFO("wobble", 1000, WaveSine)
	lfo.Start()
	g.RegisterModulator(lfo)

	before := lfo.SourceValue()
	g.Tick(250*time.Millisecond, enginerr.NopReporter)
	assert.NotEqual(t, before, lfo.SourceValue())
}
