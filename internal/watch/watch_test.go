package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 100 * time.Millisecond

func startWatcher(t *testing.T, root string) *atomic.Int32 {
	t.Helper()

	w, err := New(root, testDebounce, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var calls atomic.Int32

	go func() {
		defer close(done)
		_ = w.Run(ctx, func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})
	return &calls
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), 0, nil)
	assert.Error(t, err)
}

func TestWatcher_TriggersOnDocumentChange(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	for _, name := range []string{"a.txt", "b.md", "c.markdown"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	root := t.TempDir()
	calls := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "scan.pdf"), []byte("%PDF"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".notes.txt.swp"), []byte("x"), 0o644))

	assert.Never(t, func() bool { return calls.Load() > 0 }, 5*testDebounce, 20*time.Millisecond)
}

func TestWatcher_WatchesNestedDirectories(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "chapter1")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	calls := startWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(nested, "page.md"), []byte("# One"), 0o644))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
}
