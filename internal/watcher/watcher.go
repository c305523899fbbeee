// Package watcher observes a local directory for new and modified files
// and invokes a handler after a quiet period, so that files still being
// written are picked up only once they settle.
package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultDebounce is the quiet period after the last write to a file
	// before it is handed to the handler.
	DefaultDebounce = 2 * time.Second

	errInitBackoff = 100 * time.Millisecond
	errMaxBackoff  = 10 * time.Second
	errBackoffMult = 2
)

// Handler is called with the absolute path of a file once it has settled.
type Handler func(ctx context.Context, path string)

// Watcher observes a single directory tree.
type Watcher struct {
	dir      string
	debounce time.Duration
	handle   Handler
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New returns a Watcher for dir. handle must not be nil.
func New(dir string, debounce time.Duration, handle Handler, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		handle:   handle,
		logger:   logger,
		timers:   make(map[string]*time.Timer),
	}
}

// Watch blocks, watching the directory tree until ctx is cancelled.
// Subdirectories created while watching are added to the watch set.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.dir); err != nil {
		return err
	}

	w.logger.Info("watching directory", slog.String("dir", w.dir))

	defer w.stopTimers()

	backoff := errInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			w.handleEvent(ctx, fsw, ev)
			backoff = errInitBackoff

		case werr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", werr.Error()),
				slog.Duration("backoff", backoff),
			)

			// Exponential backoff prevents a tight loop under sustained
			// errors (e.g., kernel buffer overflow).
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}

			backoff *= errBackoffMult
			if backoff > errMaxBackoff {
				backoff = errMaxBackoff
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	// Mode changes are not uploads.
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	name := filepath.Base(ev.Name)
	if skipName(name) {
		w.logger.Debug("watch: skipping file", slog.String("name", name))
		return
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		// A removed file no longer needs uploading; drop any pending timer.
		w.cancelTimer(ev.Name)

	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			// File may have been removed immediately after creation.
			w.logger.Debug("stat failed for watched path",
				slog.String("path", ev.Name), slog.String("error", err.Error()))

			return
		}

		if info.IsDir() {
			if ev.Has(fsnotify.Create) {
				if addErr := w.addTree(fsw, ev.Name); addErr != nil {
					w.logger.Warn("failed to watch new directory",
						slog.String("path", ev.Name), slog.String("error", addErr.Error()))
				}
			}

			return
		}

		w.scheduleUpload(ctx, ev.Name)
	}
}

// scheduleUpload arms (or re-arms) the debounce timer for path. The handler
// fires only after the file has been quiet for the full debounce window.
func (w *Watcher) scheduleUpload(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}

		w.handle(ctx, path)
	})
}

func (w *Watcher) cancelTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// addTree registers path and every directory beneath it with the watcher.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && skipName(d.Name()) {
			return filepath.SkipDir
		}

		return fsw.Add(path)
	})
}

// skipName reports whether a file or directory name should never be
// uploaded: hidden files and common editor temp artifacts.
func skipName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}

	if strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".tmp") {
		return true
	}

	return false
}
