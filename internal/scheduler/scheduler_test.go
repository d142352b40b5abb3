package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func shortConfig() Config {
	return Config{
		Interval:       50 * time.Millisecond,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		MaxElapsed:     25 * time.Millisecond,
	}
}

func TestRun_EagerFirstCycle(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	s := New(func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			close(done)
		}
		return nil
	}, shortConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first cycle did not run eagerly")
	}
	cancel()
	if !s.Available() {
		t.Fatal("successful cycle must mark the scheduler available")
	}
}

func TestRun_RetriesWithBackoffUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	s := New(func(ctx context.Context) error {
		n := calls.Add(1)
		if n < 3 {
			return errors.New("upstream down")
		}
		select {
		case <-done:
		default:
			close(done)
		}
		return nil
	}, shortConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not retry to success")
	}
	if got := calls.Load(); got < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", got)
	}
	if !s.Available() {
		t.Fatal("availability must recover after a successful retry")
	}
}

func TestRun_StaysDegradedWhileFailing(t *testing.T) {
	attempted := make(chan struct{}, 64)
	s := New(func(ctx context.Context) error {
		select {
		case attempted <- struct{}{}:
		default:
		}
		return errors.New("still down")
	}, shortConfig(), zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	if len(attempted) == 0 {
		t.Fatal("expected attempts")
	}
	if s.Available() {
		t.Fatal("scheduler must stay degraded while cycles abort")
	}
}

func TestRun_ObserverSeesOutcomes(t *testing.T) {
	var observed atomic.Int32
	s := New(func(ctx context.Context) error { return nil }, shortConfig(), zerolog.Nop())
	s.OnCycle = func(err error, took time.Duration) {
		if err == nil {
			observed.Add(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	// Eager run plus at least one tick.
	if observed.Load() < 2 {
		t.Fatalf("expected observer to see multiple cycles, got %d", observed.Load())
	}
}
