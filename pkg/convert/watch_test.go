package convert

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatcherRunsOnNewSources(t *testing.T) {
	root := t.TempDir()

	var runs int32
	run := func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(root, []string{".heic"}, 30*time.Millisecond, run, zap.NewNop())
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher time to register the tree
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&runs), "unrelated files do not trigger a pass")

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.HEIC"), []byte("x"), 0o644))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancellation")
	}
}

func TestWatcherMissingRoot(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), []string{".heic"}, time.Millisecond,
		func(context.Context) error { return nil }, zap.NewNop())
	assert.Error(t, w.Watch(context.Background()))
}
