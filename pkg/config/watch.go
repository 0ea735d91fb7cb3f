package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"global-menu/pkg/core"
)

// reloadDelay collapses the burst of events an editor produces on save.
const reloadDelay = 200 * time.Millisecond

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path    string
	log     core.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches the directory of path, so files replaced by rename are
// picked up as well.
func NewWatcher(path string, log core.Logger) (*Watcher, error) {
	if log == nil {
		log = core.Nop()
	}
	path = filepath.Clean(path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	log.Debug("Watching configuration", "path", path)
	return &Watcher{path: path, log: log, watcher: fw}, nil
}

// Run calls onChange with every successfully reloaded configuration until
// ctx is cancelled or the watcher is closed. A file that fails to parse is
// reported and skipped.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) error {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			pending = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Config watcher error", err, "path", w.path)
		case <-pending:
			pending = nil
			cfg, err := loadConfigFromPath(w.path, w.log)
			if err != nil {
				w.log.Warn("Keeping previous configuration", "path", w.path, "error", err.Error())
				continue
			}
			w.log.Info("Configuration reloaded", "path", w.path)
			onChange(cfg)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
