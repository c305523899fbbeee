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

// recorder collects handled paths.
type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.paths = append(r.paths, path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.paths))
	copy(out, r.paths)

	return out
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}

		time.Sleep(10 * time.Millisecond)
	}

	return cond()
}

// startWatcher runs a Watcher in the background and returns the recorder
// and a cancel function.
func startWatcher(t *testing.T, dir string, debounce time.Duration) (*recorder, context.CancelFunc) {
	t.Helper()

	rec := &recorder{}
	w := New(dir, debounce, rec.handle, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = w.Watch(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watch set time to establish before the test writes files.
	time.Sleep(100 * time.Millisecond)

	return rec, cancel
}

func TestWatch_UploadsSettledFile(t *testing.T) {
	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, 50*time.Millisecond)

	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	require.True(t, waitFor(t, 3*time.Second, func() bool {
		return len(rec.snapshot()) == 1
	}), "handler fires once the file settles")

	assert.Equal(t, []string{path}, rec.snapshot())
}

// A burst of writes to one file coalesces into a single handler call.
func TestWatch_DebounceCoalescesWrites(t *testing.T) {
	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, 150*time.Millisecond)

	path := filepath.Join(dir, "big.bin")

	f, err := os.Create(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = f.Write([]byte("chunk"))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		time.Sleep(30 * time.Millisecond)
	}

	require.NoError(t, f.Close())

	require.True(t, waitFor(t, 3*time.Second, func() bool {
		return len(rec.snapshot()) >= 1
	}))

	// Wait out a further debounce window: no second call may arrive.
	time.Sleep(400 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1, "rapid writes coalesce into one upload")
}

func TestWatch_SkipsHiddenAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, 50*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup~"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "partial.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "real.txt"), []byte("x"), 0o644))

	require.True(t, waitFor(t, 3*time.Second, func() bool {
		return len(rec.snapshot()) >= 1
	}))

	assert.Equal(t, []string{filepath.Join(dir, "real.txt")}, rec.snapshot())
}

// A file removed before its debounce expires is never handled.
func TestWatch_RemovedFileCancelsPending(t *testing.T) {
	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, 300*time.Millisecond)

	path := filepath.Join(dir, "fleeting.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Remove(path))

	time.Sleep(700 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestWatch_NewSubdirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	rec, _ := startWatcher(t, dir, 50*time.Millisecond)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	// Give the watcher a beat to add the new directory.
	time.Sleep(200 * time.Millisecond)

	path := filepath.Join(sub, "nested.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	require.True(t, waitFor(t, 3*time.Second, func() bool {
		return len(rec.snapshot()) == 1
	}))

	assert.Equal(t, []string{path}, rec.snapshot())
}

func TestSkipName(t *testing.T) {
	assert.True(t, skipName(".hidden"))
	assert.True(t, skipName("file.swp"))
	assert.True(t, skipName("file.tmp"))
	assert.True(t, skipName("backup~"))
	assert.False(t, skipName("report.pdf"))
	assert.False(t, skipName("archive.tar.gz"))
}
