package file

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/federa/internal/logger"
)

// ApplyFunc receives each valid configuration read by a Watcher.
type ApplyFunc func(cfg *Config) error

// Watcher reloads the configuration file when it changes.
type Watcher struct {
	path  string
	apply ApplyFunc

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher for path. apply is called from the Watch
// goroutine only.
func NewWatcher(path string, apply ApplyFunc) *Watcher {
	return &Watcher{path: path, apply: apply}
}

// Reload reads the file and applies it if valid.
// The previous configuration stays active on error.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	if err := w.apply(cfg); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	logger.Info("Configuration reloaded from %s", w.path)
	return nil
}

// Watch blocks until ctx is cancelled, reloading on every write.
// The parent directory is watched so editors that replace the file by
// rename are picked up.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return errors.New("config watcher is already running")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create file watcher: %w", err)
	}
	w.watcher = fw
	w.mu.Unlock()

	defer w.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	logger.Info("Watching configuration file %s", w.path)

	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if err := w.Reload(); err != nil {
					logger.Error("Failed to reload config: %v", err)
				}
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			logger.Warn("Config watcher error: %v", err)
		}
	}
}

// Close stops the underlying file watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}
