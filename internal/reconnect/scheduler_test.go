package reconnect

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDelayDoublesAndCaps(t *testing.T) {
	cfg := Config{InitialDelay: time.Second, MaxDelay: 10 * time.Second, MaxAttempts: 10}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second}, // would be 16s, capped
		{10, 10 * time.Second},
	}
	for _, c := range cases {
		if got := cfg.delay(c.attempt); got != c.want {
			t.Fatalf("delay(%d) = %v, want %v", c.attempt, got, c.want)
		}
	}
}

func TestScheduleRetriesUntilSuccess(t *testing.T) {
	var calls int32
	cfg := Config{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 5}
	done := make(chan struct{})
	s := New(cfg, func(ctx context.Context, name string) error {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			return errFake{}
		}
		close(done)
		return nil
	}, discardLogger())

	s.Schedule(context.Background(), "svc")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for retries to succeed")
	}
	if atomic.LoadInt32(&calls) < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", calls)
	}
}

func TestCancelStopsPendingTimer(t *testing.T) {
	cfg := Config{InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, MaxAttempts: 5}
	var calls int32
	s := New(cfg, func(ctx context.Context, name string) error {
		atomic.AddInt32(&calls, 1)
		return errFake{}
	}, discardLogger())

	s.Schedule(context.Background(), "svc")
	if !s.Pending("svc") {
		t.Fatal("expected pending timer after Schedule")
	}
	s.Cancel("svc")
	if s.Pending("svc") {
		t.Fatal("expected no pending timer after Cancel")
	}

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected callback not to fire after cancel, got %d calls", calls)
	}
}

func TestAttemptsExhaustedStopsRescheduling(t *testing.T) {
	var calls int32
	cfg := Config{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxAttempts: 2}
	s := New(cfg, func(ctx context.Context, name string) error {
		atomic.AddInt32(&calls, 1)
		return errFake{}
	}, discardLogger())

	s.Schedule(context.Background(), "svc")
	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
	if s.Pending("svc") {
		t.Fatal("expected scheduler to give up after MaxAttempts")
	}
}

type errFake struct{}

func (errFake) Error() string { return "fake failure" }
