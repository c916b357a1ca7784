package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"applykit/internal/errors"
)

// Watcher reloads the profile store when its backing file changes on disk.
// Events are debounced so editors that write in multiple steps trigger a
// single reload.
type Watcher struct {
	mu sync.Mutex

	path          string
	store         *Store
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer
	stopChan      chan struct{}
	logger        *errors.Logger
	running       bool
}

// NewWatcher creates a watcher for the profile file at path
func NewWatcher(path string, store *Store, debounceDelay time.Duration, logger *errors.Logger) *Watcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	return &Watcher{
		path:          path,
		store:         store,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		logger:        logger,
	}
}

// Start begins watching. The containing directory is watched rather than the
// file itself so atomic rename saves are observed.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("profile watcher is already running")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		if closeErr := fsWatcher.Close(); closeErr != nil {
			w.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch profile directory: %w", err)
	}

	w.fsWatcher = fsWatcher
	w.running = true
	go w.watchLoop()

	w.logger.Info("Profile file watcher started", "path", w.path, "debounce", w.debounceDelay)
	return nil
}

// Stop halts watching and releases the underlying watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	if err := w.fsWatcher.Close(); err != nil {
		w.logger.LogError(err, "Failed to close profile file watcher")
	}
	w.running = false
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.LogError(err, "Profile file watcher error")
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, func() {
		if err := w.store.Reload(context.Background()); err != nil {
			w.logger.LogError(err, "Failed to reload profile after file change")
			return
		}
		w.logger.Info("Profile reloaded after file change", "path", w.path)
	})
}
