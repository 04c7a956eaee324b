package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docker/mcp-widgets/pkg/log"
	"github.com/docker/mcp-widgets/pkg/toast"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "greeting"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))

	var builds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- watch(ctx, []string{dir}, 20*time.Millisecond, func(context.Context) error {
			if builds.Add(1) == 2 {
				return errors.New("syntax error")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting", "index.tsx"), []byte("a"), 0o644))
	require.Eventually(t, func() bool { return builds.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	// A failed rebuild does not stop watching.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting", "index.tsx"), []byte("b"), 0o644))
	require.Eventually(t, func() bool { return builds.Load() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchIgnoresNodeModules(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))

	var builds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = watch(ctx, []string{dir}, 20*time.Millisecond, func(context.Context) error {
			builds.Add(1)
			return nil
		})
	}()
	require.Eventually(t, func() bool { return builds.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg", "index.js"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, int32(1), builds.Load())
}

func TestWatchMissingDir(t *testing.T) {
	err := watch(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}, time.Millisecond, func(context.Context) error {
		return nil
	})
	require.Error(t, err)
}

func TestWatchReportsFailedBuildOnce(t *testing.T) {
	logs := &syncBuffer{}
	log.SetLogWriter(logs)
	t.Cleanup(func() { log.SetLogWriter(os.Stderr) })

	notices := &syncBuffer{}
	container := toast.Mount(notices)
	t.Cleanup(container.Unmount)

	fs, bundler := newProject(t)
	bundler.err = errors.New("vite exited with status 1")
	p := &Pipeline{Fs: fs, Root: root, OutDir: outDir, Bundler: bundler, SkipServer: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, p, t.TempDir()) }()

	require.Eventually(t, func() bool {
		return strings.Contains(notices.String(), "Build failed")
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 1, strings.Count(logs.String(), "Build failed"), logs.String())
	assert.NotContains(t, logs.String(), "Rebuild failed")
	assert.Contains(t, notices.String(), "✗ Build failed: bundling clock: vite exited with status 1")
}
