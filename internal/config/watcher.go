package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/keydb/keydb/internal/logging"
)

// Watcher watches a configuration file for changes and invokes registered
// callbacks on write/create events. Only a handful of fields are safe to
// hot-reload (see SPEC_FULL.md §3.2); everything else requires a restart.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []func(path string)
	mu        sync.RWMutex
	done      chan struct{}
	log       logging.Logger
}

// NewWatcher creates a Watcher using the process default logger.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher: w,
		done:    make(chan struct{}),
		log:     logging.Default().With("component", "config.watcher"),
	}, nil
}

// Watch registers path's containing directory for change notifications
// (directory-level, so editor rename-and-replace saves are still seen).
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	if err := w.watcher.Add(dir); err != nil {
		w.log.Error("failed to watch config directory", "path", dir, "error", err)
		return err
	}
	return nil
}

// OnChange registers a callback invoked with the changed file's path.
func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start blocks, dispatching change notifications until Stop is called.
// Call it in its own goroutine.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.dispatch(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// Stop stops the watcher and releases its file handle.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) dispatch(path string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, cb := range w.callbacks {
		cb(path)
	}
}
