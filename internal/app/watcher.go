package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/nexus/internal/debug"
	"github.com/justyntemme/nexus/internal/host"
)

// DefaultDebounce is how long a folder must stay quiet before a change is
// reported.
const DefaultDebounce = 200 * time.Millisecond

// DirectoryWatcher follows one folder at a time and reports it once it has
// stopped changing for the debounce interval.
type DirectoryWatcher struct {
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	path     string
	notify   chan string
	done     chan struct{}
	once     sync.Once
	debounce time.Duration
}

// NewDirectoryWatcher starts a watcher that follows no folder yet.
func NewDirectoryWatcher(debounce time.Duration) (*DirectoryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	dw := &DirectoryWatcher{
		watcher:  w,
		notify:   make(chan string, 1),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go dw.run()
	return dw, nil
}

func (dw *DirectoryWatcher) run() {
	var (
		pending   string
		lastEvent time.Time
	)
	tick := dw.debounce / 4
	if tick <= 0 {
		tick = dw.debounce
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-dw.done:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
				continue
			}
			dw.mu.Lock()
			cur := dw.path
			dw.mu.Unlock()
			// Events name the changed entry; the folder itself shows up when
			// it is renamed or removed.
			if cur != "" && (filepath.Dir(event.Name) == cur || event.Name == cur) {
				pending = cur
				lastEvent = time.Now()
				debug.Log(debug.FS_ENTRY, "watch: %s %s", event.Op, event.Name)
			}

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			debug.Log(debug.FS, "watch error: %v", err)

		case <-ticker.C:
			if pending == "" || time.Since(lastEvent) < dw.debounce {
				continue
			}
			select {
			case dw.notify <- pending:
				debug.Log(debug.FS, "folder changed: %s", pending)
			default:
				// a notification for this folder is already queued
			}
			pending = ""
		}
	}
}

// Follow switches the watch to path. An empty path stops watching.
func (dw *DirectoryWatcher) Follow(path string) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if path == dw.path {
		return nil
	}
	if dw.path != "" {
		// the folder may already be gone
		_ = dw.watcher.Remove(dw.path)
		dw.path = ""
	}
	if path == "" {
		return nil
	}
	if err := dw.watcher.Add(path); err != nil {
		return err
	}
	dw.path = path
	debug.Log(debug.FS, "watching %s", path)
	return nil
}

// watched returns the followed folder, "" if none.
func (dw *DirectoryWatcher) watched() string {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.path
}

// Notify receives the path of a folder that changed.
func (dw *DirectoryWatcher) Notify() <-chan string {
	return dw.notify
}

// Done is closed by Close.
func (dw *DirectoryWatcher) Done() <-chan struct{} {
	return dw.done
}

// Close stops the watcher. It is safe to call more than once.
func (dw *DirectoryWatcher) Close() error {
	var err error
	dw.once.Do(func() {
		close(dw.done)
		err = dw.watcher.Close()
	})
	return err
}

// followLocked points the watcher at folder's local path. Hosts without
// local paths are not watched. b.mu must be held.
func (b *Browser) followLocked(h host.DirectoryHandle) {
	if b.watcher == nil {
		return
	}
	path := ""
	if loc, ok := h.(host.Locator); ok {
		path = loc.Path()
	}
	if err := b.watcher.Follow(path); err != nil {
		debug.Log(debug.FS, "cannot watch %s: %v", path, err)
	}
	b.watched = b.watcher.watched()
}

// watchLoop reloads the current folder when it changes on disk.
func (b *Browser) watchLoop(w *DirectoryWatcher) {
	for {
		select {
		case <-w.Done():
			return
		case path := <-w.Notify():
			err := b.refresh(context.Background(), path)
			if err != nil && !errors.Is(err, ErrSuperseded) {
				debug.Log(debug.APP, "reload after change: %v", err)
			}
		}
	}
}
