package command

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenforge/lumencore/engine"
	"github.com/lumenforge/lumencore/param"
	"github.com/lumenforge/lumencore/registry"
)

// recordingCommand counts Do/Undo calls against a shared counter, the
// simplest possible Command for exercising Engine's stack bookkeeping.
type recordingCommand struct {
	name    string
	counter *int
	failDo  bool
}

func (c *recordingCommand) Description() string { return c.name }
func (c *recordingCommand) Do(Resolver) error {
	if c.failDo {
		return fmt.Errorf("boom")
	}
	*c.counter++
	return nil
}
func (c *recordingCommand) Undo(Resolver) error {
	*c.counter--
	return nil
}

type coalescingCommand struct {
	key   string
	value int
}

func (c *coalescingCommand) Description() string { return "set" }
func (c *coalescingCommand) Do(Resolver) error    { return nil }
func (c *coalescingCommand) Undo(Resolver) error  { return nil }
func (c *coalescingCommand) CoalesceKey() any      { return c.key }
func (c *coalescingCommand) CoalesceWith(next Command) (Command, bool) {
	n, ok := next.(*coalescingCommand)
	if !ok || n.key != c.key {
		return nil, false
	}
	return &coalescingCommand{key: c.key, value: n.value}, true
}

func TestPerformPushesUndoEntryAndStampsRunID(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	counter := 0

	id, err := e.Perform(&recordingCommand{name: "inc", counter: &counter})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, 1, counter)
	assert.True(t, e.CanUndo())
}

func TestPerformFailureLeavesStackUntouched(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	counter := 0

	_, err := e.Perform(&recordingCommand{name: "fail", counter: &counter, failDo: true})
	assert.Error(t, err)
	assert.False(t, e.CanUndo())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	counter := 0

	_, err := e.Perform(&recordingCommand{name: "inc", counter: &counter})
	require.NoError(t, err)
	assert.Equal(t, 1, counter)

	require.NoError(t, e.Undo())
	assert.Equal(t, 0, counter)
	assert.True(t, e.CanRedo())

	require.NoError(t, e.Redo())
	assert.Equal(t, 1, counter)
}

func TestUndoOnEmptyStackErrors(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	assert.Error(t, e.Undo())
}

func TestPerformingNewCommandClearsRedoStack(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	counter := 0

	_, _ = e.Perform(&recordingCommand{name: "a", counter: &counter})
	require.NoError(t, e.Undo())
	require.True(t, e.CanRedo())

	_, _ = e.Perform(&recordingCommand{name: "b", counter: &counter})
	assert.False(t, e.CanRedo(), "performing a new command after an undo must drop the redo branch")
}

func TestCoalescingMergesIntoSameRunID(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)

	firstID, err := e.Perform(&coalescingCommand{key: "fader:1", value: 1})
	require.NoError(t, err)

	secondID, err := e.Perform(&coalescingCommand{key: "fader:1", value: 2})
	require.NoError(t, err)

	assert.Equal(t, firstID, secondID, "a coalesced command keeps the original entry's run id")

	desc, ok := e.UndoDescription()
	require.True(t, ok)
	assert.Equal(t, "set", desc)
}

func TestMaxDepthTrimsOldestEntries(t *testing.T) {
	e := NewEngine(nopResolver{}, 2)
	counter := 0

	for i := 0; i < 5; i++ {
		_, err := e.Perform(&recordingCommand{name: fmt.Sprintf("op%d", i), counter: &counter})
		require.NoError(t, err)
	}

	assert.Equal(t, 5, counter)
	// Only the last 2 entries survive; undoing both should bring the
	// counter down by exactly 2, not 5.
	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	assert.Equal(t, 3, counter)
	assert.False(t, e.CanUndo())
}

func TestPerformBatchRunsAllAsOneUndoEntry(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	counter := 0

	cmds := []Command{
		&recordingCommand{name: "a", counter: &counter},
		&recordingCommand{name: "b", counter: &counter},
		&recordingCommand{name: "c", counter: &counter},
	}
	_, err := e.PerformBatch("batch", cmds)
	require.NoError(t, err)
	assert.Equal(t, 3, counter)

	require.NoError(t, e.Undo())
	assert.Equal(t, 0, counter, "undoing the batch must unwind every member command")
}

func TestPerformBatchRollsBackOnPartialFailure(t *testing.T) {
	e := NewEngine(nopResolver{}, 0)
	counter := 0

	cmds := []Command{
		&recordingCommand{name: "a", counter: &counter},
		&recordingCommand{name: "b", counter: &counter, failDo: true},
		&recordingCommand{name: "c", counter: &counter},
	}
	_, err := e.PerformBatch("batch", cmds)
	assert.Error(t, err)
	assert.Equal(t, 0, counter, "the first command's effect must be unwound when a later one fails")
	assert.False(t, e.CanUndo(), "a failed batch must not land on the undo stack")
}

// nopResolver satisfies command.Resolver for tests that never resolve a
// real handle.
type nopResolver struct{}

func (nopResolver) ResolveParameter(engine.Handle) (param.Parameter, bool) { return nil, false }
func (nopResolver) ResolveComponent(registry.ID) (*engine.Component, bool) { return nil, false }
