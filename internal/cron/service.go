package cron

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/talentbridge/talentbridge-backend/pkg/logger"
	"github.com/talentbridge/talentbridge-backend/pkg/metrics"
)

const (
	defaultInterval   = time.Hour
	defaultJobTimeout = 30 * time.Minute
	releaseTimeout    = 5 * time.Second
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// JobTimeout bounds each job; keep it under the lock TTL so a slow
	// reconciliation cannot outlive its lease.
	JobTimeout time.Duration
}

// Service runs reconciliation and retention on a fixed cadence. Only the
// instance holding the lease runs a cycle.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		jobTimeout: params.JobTimeout,
	}
	if svc.registry == nil {
		svc.registry = NewRegistry()
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	if svc.jobTimeout <= 0 {
		svc.jobTimeout = defaultJobTimeout
	}
	return svc, nil
}

// Run executes a cycle immediately, then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce runs every job once under the lease. A failing or panicking job is
// logged and counted and the remaining jobs still run.
func (s *Service) RunOnce(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance holds the lease; skipping this cycle")
		s.metrics.IncSkippedCycle()
		return nil
	}
	defer s.release(ctx)

	jobs := s.registry.Jobs()
	s.logg.Info(s.logg.WithField(ctx, "jobs", len(jobs)), "scheduled run starting")
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		s.runJob(ctx, job)
	}
	s.logg.Info(ctx, "scheduled run complete")
	return nil
}

// release runs on a fresh context so a shutdown signal still frees the lease.
func (s *Service) release(ctx context.Context) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(releaseCtx); err != nil {
		s.logg.Error(releaseCtx, "failed to release cron lock", err)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": name, "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")

	start := time.Now()
	err := s.invoke(jobCtx, job)
	took := time.Since(start)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	switch {
	case err == nil:
		s.logg.Info(jobCtx, "job completed")
		s.metrics.ObserveRun(name, metrics.JobOutcomeSuccess, took)
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.logg.Error(jobCtx, "job exceeded its timeout", err)
		s.metrics.ObserveRun(name, metrics.JobOutcomeTimeout, took)
	default:
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.ObserveRun(name, metrics.JobOutcomeFailure, took)
	}
}

func (s *Service) invoke(ctx context.Context, job Job) (err error) {
	runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v\n%s", job.Name(), r, debug.Stack())
		}
	}()
	return job.Run(runCtx)
}
