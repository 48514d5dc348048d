package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the default coalescing window: repeated filesystem
// events inside this window collapse into a single reload.
const DefaultDebounce = 300 * time.Millisecond

// Sink receives a freshly discovered ResolvedConfig after a debounced
// reload. Normally wired to the Fleet Manager's ApplyConfigDiff.
type Sink func(ResolvedConfig)

// Watcher re-runs Discover whenever any loaded config file changes,
// delivering the result to a Sink no more than once per debounce window.
// Grounded on the single named-timer debounce idiom used for reconnect
// scheduling, applied here to fsnotify events instead of backoff.
type Watcher struct {
	opts     Options
	debounce time.Duration
	sink     Sink
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher constructs a Watcher over the given discovery options.
func NewWatcher(opts Options, debounce time.Duration, sink Sink, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{opts: opts, debounce: debounce, sink: sink, logger: logger, fsw: fsw}, nil
}

// Watch begins watching every file in provenance and blocks, delivering
// debounced reloads to sink, until ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, provenance []string) error {
	for _, path := range provenance {
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch config file", "path", path, "error", err)
		}
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return w.fsw.Close()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)

		case <-reload:
			resolved, err := Discover(w.opts, w.logger)
			if err != nil {
				w.logger.Warn("config reload failed", "error", err)
				continue
			}
			w.logger.Info("config reloaded", "upstreams", len(resolved.Upstreams))
			w.sink(resolved)
		}
	}
}
