// Package reconnect implements the Reconnect Scheduler: a per-upstream
// exponential backoff timer that never touches upstream state directly,
// only invoking a caller-supplied callback. Uses a named-timer-map,
// generalized from a single debounce timer to one timer per upstream
// name.
package reconnect

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Callback is invoked when a scheduled reconnect attempt fires. It returns
// an error if the attempt failed, which schedules the next backoff step;
// a nil error cancels the schedule for that name.
type Callback func(ctx context.Context, name string) error

// Config holds the backoff parameters: 1s initial, 30s max, doubling,
// capped at 5 attempts by default.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// DefaultConfig returns the default backoff parameters.
func DefaultConfig() Config {
	return Config{InitialDelay: time.Second, MaxDelay: 30 * time.Second, MaxAttempts: 5}
}

// delay returns the backoff delay for the given 0-indexed attempt number:
// min(initialDelay*2^n, maxDelay).
func (c Config) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

type entry struct {
	timer   *time.Timer
	attempt int
	cancel  context.CancelFunc
}

// Scheduler owns one optional pending timer per upstream name.
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	entries  map[string]*entry
	callback Callback
	logger   *slog.Logger
}

// New constructs a Scheduler that invokes callback on each fired attempt.
func New(cfg Config, callback Callback, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		entries:  make(map[string]*entry),
		callback: callback,
		logger:   logger,
	}
}

// Schedule arms (or re-arms) the backoff timer for name, starting at
// attempt 0. Calling Schedule again for a name already scheduled resets it
// to attempt 0 — used when an upstream disconnects freshly after having
// previously recovered.
func (s *Scheduler) Schedule(ctx context.Context, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(name)
	s.armLocked(ctx, name, 0)
}

func (s *Scheduler) armLocked(ctx context.Context, name string, attempt int) {
	if attempt >= s.cfg.MaxAttempts {
		s.logger.Warn("reconnect attempts exhausted", "upstream", name, "attempts", attempt)
		delete(s.entries, name)
		return
	}

	delay := s.cfg.delay(attempt)
	attemptCtx, cancel := context.WithCancel(ctx)
	e := &entry{attempt: attempt, cancel: cancel}
	e.timer = time.AfterFunc(delay, func() { s.fire(attemptCtx, name, attempt) })
	s.entries[name] = e
}

func (s *Scheduler) fire(ctx context.Context, name string, attempt int) {
	err := s.callback(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[name]
	if !ok || current.attempt != attempt {
		return // superseded by a newer Schedule/Cancel call
	}
	delete(s.entries, name)

	if err == nil {
		s.logger.Info("reconnect succeeded", "upstream", name, "attempt", attempt)
		return
	}
	s.logger.Warn("reconnect attempt failed", "upstream", name, "attempt", attempt, "error", err)
	s.armLocked(ctx, name, attempt+1)
}

// Cancel stops any pending timer for name; no-op if none is scheduled.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(name)
}

func (s *Scheduler) cancelLocked(name string) {
	if e, ok := s.entries[name]; ok {
		e.timer.Stop()
		e.cancel()
		delete(s.entries, name)
	}
}

// CancelAll stops every pending timer, used on shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.entries {
		s.cancelLocked(name)
	}
}

// Pending reports whether name currently has an outstanding timer.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}
