package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RunFunc performs one full reconciliation pass.
type RunFunc func(ctx context.Context) error

// DefaultDebounce is the default quiet period between the last observed
// file change and the triggered run.
const DefaultDebounce = 500 * time.Millisecond

// Watcher triggers a run whenever a watched path changes, debounced so
// bursts of writes collapse into a single run.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	run      RunFunc
	logger   *slog.Logger
}

// NewWatcher creates a Watcher over the given paths (files or
// directories). A non-positive debounce falls back to DefaultDebounce.
func NewWatcher(paths []string, debounce time.Duration, run RunFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %q: %w", p, err)
		}
	}

	return &Watcher{
		watcher:  fsw,
		debounce: debounce,
		run:      run,
		logger:   logger.With("component", "runner.watcher"),
	}, nil
}

// Watch blocks until ctx is cancelled, running the RunFunc after each
// debounced batch of changes. Run failures are logged; watching
// continues.
func (w *Watcher) Watch(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("change detected", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil
			w.logger.Info("running reconciliation after file change")
			if err := w.run(ctx); err != nil {
				w.logger.Error("reconciliation run failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// relevant filters events that can change reconciliation input.
func relevant(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
