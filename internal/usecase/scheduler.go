package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"MarketBrief/internal/domain"
	"MarketBrief/internal/logging"
	"MarketBrief/internal/ports"
)

// SessionJob binds a session to its cron spec.
type SessionJob struct {
	Session domain.Session
	Spec    string
}

// SchedulerDeps wires the recurring jobs.
type SchedulerDeps struct {
	Driver        ports.Scheduler
	Pipeline      *Pipeline
	Cleaner       *Cleaner
	Sessions      []SessionJob
	CleanupSpec   string
	RetentionDays int
	Logger        *slog.Logger
}

// Scheduler registers the session pipelines and retention cleanup on the driver.
type Scheduler struct {
	driver        ports.Scheduler
	pipeline      *Pipeline
	cleaner       *Cleaner
	sessions      []SessionJob
	cleanupSpec   string
	retentionDays int
	logger        *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	s := &Scheduler{
		driver:        deps.Driver,
		pipeline:      deps.Pipeline,
		cleaner:       deps.Cleaner,
		sessions:      deps.Sessions,
		cleanupSpec:   deps.CleanupSpec,
		retentionDays: deps.RetentionDays,
		logger:        deps.Logger,
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Start registers every job and starts the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	if s.pipeline != nil {
		for _, job := range s.sessions {
			session := job.Session
			err := s.driver.Schedule(string(session)+"_pipeline", job.Spec, func(ctx context.Context) {
				if _, err := s.pipeline.RunSession(ctx, session); err != nil {
					s.logger.ErrorContext(ctx, "scheduled session finished with errors", "session", session, "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("register %s session: %w", session, err)
			}
		}
	}

	if s.cleaner != nil && s.cleanupSpec != "" {
		err := s.driver.Schedule("retention_cleanup", s.cleanupSpec, func(ctx context.Context) {
			if _, err := s.cleaner.CleanupOldData(ctx, s.retentionDays); err != nil {
				s.logger.ErrorContext(ctx, "scheduled cleanup failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("register cleanup: %w", err)
		}
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
