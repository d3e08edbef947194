package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a Job periodically. A run that is still in progress when the
// next tick fires causes that tick to be skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	job       Job
	interval  time.Duration
	logger    *slog.Logger

	lastErr atomic.Pointer[error]
	runs    atomic.Int64
}

// NewScheduler creates a Scheduler. Call Start to begin running.
func NewScheduler(interval time.Duration, job Job, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		job:       job,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the job, running it immediately and then every interval.
// Runs are bound to ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", "interval", s.interval.String())
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Runs reports how many runs have completed.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

// CheckReadiness reports the error from the most recent run, if any.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Info("scheduled run starting")
	err := s.job(ctx)
	if err != nil {
		s.logger.Error("scheduled run failed", "error", err)
		s.lastErr.Store(&err)
	} else {
		s.lastErr.Store(nil)
		s.logger.Info("scheduled run completed")
	}
	s.runs.Add(1)
}
