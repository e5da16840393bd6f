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

	"github.com/moonrailgun/reqcraft/pkg/importer"
)

type resultCollector struct {
	mu      sync.Mutex
	results []BuildResult
}

func (c *resultCollector) onBuild(r BuildResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *resultCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *resultCollector) last() BuildResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[len(c.results)-1]
}

func waitForCount(t *testing.T, c *resultCollector, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d build(s), got %d", n, c.count())
}

func TestWatcherInitialBuildSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.rqc")
	require.NoError(t, os.WriteFile(path, []byte(`api /a { get { response { ok Boolean } } }`), 0o644))

	c := &resultCollector{}
	w := New(path, importer.New(), c.onBuild)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	waitForCount(t, c, 1, 2*time.Second)
	res := c.last()
	require.NoError(t, res.Err)
	require.Len(t, res.Model.Endpoints, 1)
	assert.Equal(t, "/a", res.Model.Endpoints[0].Path)

	cancel()
	<-done
}

func TestWatcherRebuildsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.rqc")
	require.NoError(t, os.WriteFile(path, []byte(`api /a { get { response {} } }`), 0o644))

	c := &resultCollector{}
	w := New(path, importer.New(), c.onBuild)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	waitForCount(t, c, 1, 2*time.Second)

	require.NoError(t, os.WriteFile(path, []byte(`api /a { get { response {} } } api /b { get { response {} } }`), 0o644))

	waitForCount(t, c, 2, 2*time.Second)
	res := c.last()
	require.NoError(t, res.Err)
	assert.Len(t, res.Model.Endpoints, 2)

	cancel()
	<-done
}

func TestWatcherRetainsWatchSetAfterFailedBuild(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.rqc")
	require.NoError(t, os.WriteFile(path, []byte(`api /a { get { response {} } }`), 0o644))

	c := &resultCollector{}
	w := New(path, importer.New(), c.onBuild)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	waitForCount(t, c, 1, 2*time.Second)

	// Break the file, then fix it — the watch set must not be shrunk on
	// failure so the fix is still picked up.
	require.NoError(t, os.WriteFile(path, []byte(`api /a { get { response { ] } } }`), 0o644))
	waitForCount(t, c, 2, 2*time.Second)
	require.Error(t, c.last().Err)

	require.NoError(t, os.WriteFile(path, []byte(`api /a { get { response {} } }`), 0o644))
	waitForCount(t, c, 3, 2*time.Second)
	require.NoError(t, c.last().Err)

	cancel()
	<-done
}
