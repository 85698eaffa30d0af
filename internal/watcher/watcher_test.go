package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchCollector struct {
	mu      sync.Mutex
	batches [][]string
}

func (c *batchCollector) handle(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, paths)
}

func (c *batchCollector) wait(t *testing.T, timeout time.Duration) [][]string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.batches) > 0 {
			out := c.batches
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func TestWatcher_ReportsComponentChanges(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	require.NoError(t, fw.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector := &batchCollector{}
	fw.Start(ctx, collector.handle)

	path := filepath.Join(dir, "app.au")
	require.NoError(t, os.WriteFile(path, []byte("<template><i></i></template>"), 0o644))

	batches := collector.wait(t, 3*time.Second)
	require.NotEmpty(t, batches, "expected a change batch")
	assert.Contains(t, batches[0], path)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	require.NoError(t, fw.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector := &batchCollector{}
	fw.Start(ctx, collector.handle)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	assert.Empty(t, collector.wait(t, 300*time.Millisecond))
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	require.NoError(t, fw.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector := &batchCollector{}
	fw.Start(ctx, collector.handle)

	path := filepath.Join(dir, "app.au")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("<template><i></i></template>"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	batches := collector.wait(t, 3*time.Second)
	require.NotEmpty(t, batches)

	// All writes land inside one debounce window, so the path appears once.
	assert.Len(t, batches[0], 1)
}

func TestWatcher_SeesNewSubdirectories(t *testing.T) {
	dir := t.TempDir()
	fw, err := New(20*time.Millisecond, nil)
	require.NoError(t, err)
	defer fw.Close()
	require.NoError(t, fw.AddRecursive(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	collector := &batchCollector{}
	fw.Start(ctx, collector.handle)

	sub := filepath.Join(dir, "components")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Give the watcher a beat to register the new directory.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "card.au")
	require.NoError(t, os.WriteFile(path, []byte("<template><i></i></template>"), 0o644))

	batches := collector.wait(t, 3*time.Second)
	require.NotEmpty(t, batches)
	assert.Contains(t, batches[0], path)
}
