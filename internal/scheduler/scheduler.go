// Package scheduler drives the sync coordinator: one eager cycle at
// startup, then a fixed-interval tick. An aborted cycle is retried with
// exponential backoff inside the tick window, and availability stays
// degraded until a cycle succeeds.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// CycleFunc runs one sync cycle. Returning an error marks the integration
// degraded and triggers backoff.
type CycleFunc func(ctx context.Context) error

// Config controls cadence and retry behavior.
type Config struct {
	Interval       time.Duration // tick cadence, default 15m
	InitialBackoff time.Duration // first retry delay after an aborted cycle
	MaxBackoff     time.Duration // retry delay ceiling
	MaxElapsed     time.Duration // give up retrying until the next tick
}

// Scheduler owns the polling loop for one coordinator.
type Scheduler struct {
	run       CycleFunc
	cfg       Config
	log       zerolog.Logger
	available atomic.Bool

	// OnCycle, when set, observes every attempt's outcome and duration.
	OnCycle func(err error, took time.Duration)
}

// New constructs a scheduler with defaults filled in.
func New(run CycleFunc, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 15 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 2 * time.Minute
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = cfg.Interval / 2
	}
	return &Scheduler{run: run, cfg: cfg, log: log}
}

// Available reports whether the last attempted cycle succeeded.
func (s *Scheduler) Available() bool { return s.available.Load() }

// Run blocks until ctx is canceled. The first cycle runs immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("sync scheduler starting")

	s.attempt(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sync scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.attempt(ctx)
		}
	}
}

// attempt runs one cycle, retrying aborted cycles with exponential backoff
// until MaxElapsed is spent. Degraded fields inside a successful cycle are
// not errors; only full aborts land here.
func (s *Scheduler) attempt(ctx context.Context) {
	op := func() error {
		start := time.Now()
		err := s.run(ctx)
		if s.OnCycle != nil {
			s.OnCycle(err, time.Since(start))
		}
		if err != nil {
			s.available.Store(false)
			s.log.Warn().Err(err).Msg("sync cycle aborted")
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialBackoff
	bo.MaxInterval = s.cfg.MaxBackoff
	bo.MaxElapsedTime = s.cfg.MaxElapsed

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error().Err(err).Msg("sync cycle failed; waiting for next tick")
		return
	}
	s.available.Store(true)
}
