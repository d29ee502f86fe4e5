// Package scheduler triggers the ingestion pipeline on a fixed interval
// and exposes a manual on-demand trigger sharing the same concurrency
// guard.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bryceloomis/Capstone-Recall-Alert/internal/metrics"
	"github.com/bryceloomis/Capstone-Recall-Alert/internal/recall"
)

// ErrRunInProgress is returned when a trigger arrives while a run is
// active. Triggers are rejected, never queued.
var ErrRunInProgress = errors.New("refresh run already in progress")

// Runner executes one full pipeline run.
type Runner interface {
	Run(ctx context.Context) recall.RunSummary
}

// Config controls trigger timing.
type Config struct {
	// Interval between scheduled runs.
	Interval time.Duration
	// MisfireGrace is how late a scheduled firing may be and still run.
	// A firing later than this (e.g. after a long process suspend) is
	// dropped; re-anchoring ensures at most one catch-up run.
	MisfireGrace time.Duration
	// RunOnStart triggers one run immediately at startup so first-light
	// data is never a full interval stale.
	RunOnStart bool
}

// Scheduler owns the Idle/Running state machine. The transition guard is
// a compare-and-swap on a single flag: whoever wins the swap runs, every
// other trigger observes Running and is dropped.
type Scheduler struct {
	runner  Runner
	cfg     Config
	clock   recall.Clock
	logger  *zap.Logger
	running atomic.Bool
}

// New constructs a Scheduler.
func New(runner Runner, cfg Config, clock recall.Clock, logger *zap.Logger) *Scheduler {
	metrics.Init()
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.MisfireGrace <= 0 {
		cfg.MisfireGrace = 5 * time.Minute
	}
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// Start launches the timer loop in its own goroutine and returns.
// Canceling ctx stops the loop; an in-flight run completes first.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	if s.cfg.RunOnStart {
		if _, err := s.tryRun(ctx, "startup"); err != nil {
			s.logger.Info("startup run dropped", zap.Error(err))
		}
	}

	next := s.clock.Now().Add(s.cfg.Interval)
	for {
		wait := next.Sub(s.clock.Now())
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		late := s.clock.Now().Sub(next)
		switch {
		case late > s.cfg.MisfireGrace:
			s.logger.Warn("scheduled run missed its grace window, dropped",
				zap.Duration("late", late),
			)
		default:
			if _, err := s.tryRun(ctx, "interval"); errors.Is(err, ErrRunInProgress) {
				// Expected under overlap; the in-flight run is not
				// interrupted and this trigger is not queued.
				s.logger.Info("scheduled trigger dropped, run active")
			}
		}

		// Re-anchor strictly past now so a long outage or a run longer
		// than the interval produces at most one catch-up firing.
		now := s.clock.Now()
		for !next.After(now) {
			next = next.Add(s.cfg.Interval)
		}
	}
}

// TriggerNow runs the pipeline synchronously and returns its summary.
// If a run is already active it returns ErrRunInProgress immediately.
func (s *Scheduler) TriggerNow(ctx context.Context) (recall.RunSummary, error) {
	return s.tryRun(ctx, "manual")
}

// Running reports whether a run is currently active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

func (s *Scheduler) tryRun(ctx context.Context, trigger string) (recall.RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return recall.RunSummary{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := s.clock.Now()
	summary := s.runner.Run(ctx)
	metrics.ObserveRun(trigger, s.clock.Now().Sub(start))
	return summary, nil
}
