package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndHistoryOrdering(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, "thread_1", Message{Role: "user", Content: "hello"}))
	require.NoError(t, l.Append(ctx, "thread_1", Message{Role: "assistant", Content: "hi"}))
	require.NoError(t, l.Append(ctx, "thread_1", Message{Role: "user", Content: "generate users"}))

	history, err := l.History(ctx, "thread_1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "generate users", history[2].Content)
	assert.False(t, history[0].CreatedAt.IsZero())
}

func TestThreadsAreIsolated(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Append(ctx, "thread_a", Message{Role: "user", Content: "a"}))
	require.NoError(t, l.Append(ctx, "thread_b", Message{Role: "user", Content: "b"}))

	a, err := l.History(ctx, "thread_a")
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "a", a[0].Content)

	empty, err := l.History(ctx, "thread_missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestReopenKeepsMessages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(ctx, "thread_1", Message{Role: "user", Content: "persisted"}))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()

	history, err := l.History(ctx, "thread_1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "persisted", history[0].Content)
}
