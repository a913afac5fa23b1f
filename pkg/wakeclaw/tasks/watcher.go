package tasks

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses editor write bursts (save + rename + chmod) into
// one notification.
const watchDebounce = 500 * time.Millisecond

// Watcher observes the checklist file and notifies when it changes, so an
// edit to HEARTBEAT.md wakes the agent without waiting for the next
// interval tick.
type Watcher struct {
	path   string
	notify func()
	logger *slog.Logger

	fw     *fsnotify.Watcher
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for path that calls notify on changes.
func NewWatcher(path string, notify func(), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:   path,
		notify: notify,
		logger: logger.With("component", "tasks-watcher"),
	}
}

// Start begins watching in a background goroutine. The parent directory is
// watched rather than the file itself, so saves that replace the file
// (the common editor pattern) keep being observed.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	w.fw = fw

	wCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go w.loop(wCtx)
	w.logger.Info("watching task file", "path", w.path)
	return nil
}

// Stop ends the watch. Idempotent.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.fw != nil {
		w.fw.Close()
	}
}

func (w *Watcher) loop(ctx context.Context) {
	var debounce *time.Timer
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				w.logger.Debug("task file changed", "path", w.path)
				w.notify()
			})

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}
