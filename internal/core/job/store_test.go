package job

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sepheus7/dataforge-studio/internal/core/event"
)

func newTestStore() (*Store, *event.Bus) {
	bus := event.NewBus()
	return NewStore(bus), bus
}

func TestCreateAssignsPrefixedID(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()

	assert.True(t, strings.HasPrefix(id, "job_"))
	assert.Len(t, id, len("job_")+12)

	j, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusQueued, j.Status)
	assert.Zero(t, j.Progress)
	assert.Nil(t, j.CompletedAt)
}

func TestLifecycleQueuedToSucceeded(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()

	store.Start(id)
	j, _ := store.Get(id)
	assert.Equal(t, StatusRunning, j.Status)
	require.NotNil(t, j.StartedAt)

	store.UpdateProgress(id, 0.5, "halfway")
	j, _ = store.Get(id)
	assert.Equal(t, 0.5, j.Progress)
	assert.Equal(t, "halfway", j.Message)

	store.Complete(id, map[string]any{"total_rows": 10})
	j, _ = store.Get(id)
	assert.Equal(t, StatusSucceeded, j.Status)
	assert.Equal(t, 1.0, j.Progress)
	require.NotNil(t, j.CompletedAt)
	assert.Equal(t, 10, j.Summary["total_rows"])
}

func TestTerminalStateIsFrozen(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()
	store.Start(id)
	store.Fail(id, "boom")

	// Every later mutation must be ignored.
	store.Start(id)
	store.UpdateProgress(id, 0.9, "late update")
	store.Complete(id, map[string]any{"x": 1})

	j, _ := store.Get(id)
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "boom", j.Error)
	assert.Nil(t, j.Summary)
	assert.NotEqual(t, 0.9, j.Progress)
}

func TestProgressClamped(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()
	store.Start(id)

	store.UpdateProgress(id, -0.3, "")
	j, _ := store.Get(id)
	assert.Equal(t, 0.0, j.Progress)

	store.UpdateProgress(id, 1.7, "")
	j, _ = store.Get(id)
	assert.Equal(t, 1.0, j.Progress)
}

func TestUpdateProgressKeepsMessageWhenEmpty(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()
	store.Start(id)

	store.UpdateProgress(id, 0.2, "working")
	store.UpdateProgress(id, 0.3, "")
	j, _ := store.Get(id)
	assert.Equal(t, "working", j.Message)
}

func TestCancel(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()

	cancelled := false
	store.RegisterTask(id, func() { cancelled = true })

	assert.True(t, store.Cancel(id))
	assert.True(t, cancelled)

	j, _ := store.Get(id)
	assert.Equal(t, StatusCancelled, j.Status)
	require.NotNil(t, j.CompletedAt)

	// Second cancel and cancel of unknown jobs both report false.
	assert.False(t, store.Cancel(id))
	assert.False(t, store.Cancel("job_missing"))
}

func TestMutationsOnUnknownJobAreNoOps(t *testing.T) {
	store, _ := newTestStore()
	store.Start("job_missing")
	store.UpdateProgress("job_missing", 0.5, "x")
	store.Complete("job_missing", nil)
	store.Fail("job_missing", "x")

	_, ok := store.Get("job_missing")
	assert.False(t, ok)
}

func TestCleanupRemovesOnlyOldTerminalJobs(t *testing.T) {
	store, _ := newTestStore()

	oldDone := store.Create()
	store.Complete(oldDone, nil)
	recentDone := store.Create()
	store.Complete(recentDone, nil)
	running := store.Create()
	store.Start(running)

	// Backdate the first job's completion.
	store.mu.Lock()
	past := time.Now().UTC().Add(-2 * time.Hour)
	store.jobs[oldDone].CompletedAt = &past
	store.mu.Unlock()

	removed := store.Cleanup(time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := store.Get(oldDone)
	assert.False(t, ok)
	_, ok = store.Get(recentDone)
	assert.True(t, ok)
	_, ok = store.Get(running)
	assert.True(t, ok)
}

func TestRestoreDoesNotOverwriteLiveRecord(t *testing.T) {
	store, _ := newTestStore()
	id := store.Create()
	store.Start(id)

	store.Restore(Job{ID: id, Status: StatusSucceeded})
	j, _ := store.Get(id)
	assert.Equal(t, StatusRunning, j.Status)

	store.Restore(Job{ID: "job_restored", Status: StatusSucceeded, Progress: 1})
	j, ok := store.Get("job_restored")
	require.True(t, ok)
	assert.Equal(t, StatusSucceeded, j.Status)
}

func TestEveryMutationPublishesOneSnapshot(t *testing.T) {
	store, bus := newTestStore()
	id := store.Create()

	sub := bus.Subscribe(id)
	store.Start(id)
	store.UpdateProgress(id, 0.4, "step")
	store.Complete(id, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var got []event.StreamEvent
	for {
		ev, ok := sub.Next(ctx)
		if !ok {
			break
		}
		got = append(got, ev)
	}

	// connect + start + progress + complete, then the stream closes.
	require.Len(t, got, 4)
	assert.Equal(t, "connect", got[0].Event)
	for _, ev := range got[1:] {
		update, ok := ev.Data.(event.JobUpdate)
		require.True(t, ok)
		assert.Equal(t, id, update.JobID)
	}
	statuses := []string{
		got[1].Data.(event.JobUpdate).Status,
		got[2].Data.(event.JobUpdate).Status,
		got[3].Data.(event.JobUpdate).Status,
	}
	assert.Equal(t, []string{"running", "running", "succeeded"}, statuses)
}
