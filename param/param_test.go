package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedParamClampsValue(t *testing.T) {
	p := NewBounded("level", 0, 1, 0.5)

	p.SetValue(2)
	assert.Equal(t, 1.0, p.Value())

	p.SetValue(-1)
	assert.Equal(t, 0.0, p.Value())

	p.SetValue(0.25)
	assert.Equal(t, 0.25, p.Value())
}

func TestDiscreteParamRejectsOutOfRange(t *testing.T) {
	p := NewDiscrete("index", 0, 3, 0)

	require.True(t, p.SetValue(2))
	assert.Equal(t, 2, p.Value())

	require.False(t, p.SetValue(9))
	assert.Equal(t, 2, p.Value(), "a rejected SetValue must not change the stored value")
}

func TestEnumParamSelected(t *testing.T) {
	p := NewEnum("group", []string{"A", "B", "BYPASS"}, 2)
	assert.Equal(t, "BYPASS", p.Selected())

	require.True(t, p.SetIndex(0))
	assert.Equal(t, "A", p.Selected())

	require.False(t, p.SetIndex(5))
	assert.Equal(t, 0, p.Index())
}

func TestListenerFiresOnSetValueAndRemoveStopsIt(t *testing.T) {
	p := NewBool("enabled", false)

	calls := 0
	tok := p.AddListener(func(Parameter) { calls++ })

	p.SetValue(true)
	assert.Equal(t, 1, calls)

	p.RemoveListener(tok)
	p.SetValue(false)
	assert.Equal(t, 1, calls, "a removed listener must not fire again")
}

func TestListenerCanRemoveItselfDuringNotification(t *testing.T) {
	p := NewBool("flag", false)

	var tok ListenerToken
	fired := 0
	tok = p.AddListener(func(pr Parameter) {
		fired++
		pr.RemoveListener(tok)
	})

	p.SetValue(true)
	p.SetValue(false)

	assert.Equal(t, 1, fired, "self-removal mid-callback must not corrupt the in-flight notification pass")
}

func TestStringParamSetValue(t *testing.T) {
	p := NewString("name", "bus 1")
	assert.Equal(t, "bus 1", p.Value())

	p.SetValue("bus 2")
	assert.Equal(t, "bus 2", p.Value())
}
