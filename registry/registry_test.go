package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComponent struct {
	id ID
}

func (f *fakeComponent) ID() ID     { return f.id }
func (f *fakeComponent) SetID(id ID) { f.id = id }

func TestRegisterAssignsSequentialIDsPastRoot(t *testing.T) {
	r := New()

	a := &fakeComponent{}
	b := &fakeComponent{}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	assert.Equal(t, Root+1, a.id)
	assert.Equal(t, Root+2, b.id)
	assert.Equal(t, 2, r.Count())
}

func TestRegisterRejectsDuplicateID(t *testing.T) {
	r := New()

	a := &fakeComponent{id: 5}
	require.NoError(t, r.Register(a))

	b := &fakeComponent{id: 5}
	err := r.Register(b)
	assert.Error(t, err)
}

func TestResolveFindsLiveComponent(t *testing.T) {
	r := New()
	a := &fakeComponent{}
	require.NoError(t, r.Register(a))

	got, ok := r.Resolve(a.id)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Resolve(a.id + 100)
	assert.False(t, ok)
}

func TestRegisterWithIDTakesFreeSlotDirectly(t *testing.T) {
	r := New()
	a := &fakeComponent{}

	require.NoError(t, r.RegisterWithID(a, 50))
	assert.EqualValues(t, 50, a.id)

	got, ok := r.Resolve(50)
	require.True(t, ok)
	assert.Same(t, a, got)
}

func TestRegisterWithIDRemapsOnCollision(t *testing.T) {
	r := New()

	existing := &fakeComponent{}
	require.NoError(t, r.Register(existing)) // takes Root+1

	incoming := &fakeComponent{}
	require.NoError(t, r.RegisterWithID(incoming, existing.id))

	// incoming got a fresh live id, but resolving the old projectId now
	// returns incoming via the remap table.
	assert.NotEqual(t, existing.id, incoming.id)

	got, ok := r.Resolve(existing.id)
	require.True(t, ok)
	assert.Same(t, incoming, got)
}

func TestResetProjectRemapClearsRemapTable(t *testing.T) {
	r := New()
	existing := &fakeComponent{}
	require.NoError(t, r.Register(existing))

	incoming := &fakeComponent{}
	require.NoError(t, r.RegisterWithID(incoming, existing.id))

	r.ResetProjectRemap()

	got, ok := r.Resolve(existing.id)
	require.True(t, ok)
	assert.Same(t, existing, got, "after clearing the remap, the original projectId resolves through the live table again")
}

func TestDisposeRemovesFromLiveTable(t *testing.T) {
	r := New()
	a := &fakeComponent{}
	require.NoError(t, r.Register(a))

	r.Dispose(a.id)

	_, ok := r.Resolve(a.id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestBumpNextIDAboveAdvancesOnlyForward(t *testing.T) {
	r := New()
	r.BumpNextIDAbove(1000)

	a := &fakeComponent{}
	require.NoError(t, r.Register(a))
	assert.EqualValues(t, 1001, a.id)

	r.BumpNextIDAbove(5) // must not move nextID backwards
	b := &fakeComponent{}
	require.NoError(t, r.Register(b))
	assert.EqualValues(t, 1002, b.id)
}
