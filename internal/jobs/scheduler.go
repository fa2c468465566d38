// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/platform/config"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/session"
)

// # Embedded Scheduler

// Scheduler drives the maintenance jobs on cron specs inside the API
// process. Single-instance deployments enable it instead of running an
// external cron against the trigger endpoints; the jobs themselves are
// idempotent either way, so accidentally running both is wasteful, not
// incorrect.
type Scheduler struct {
	runner         *cron.Cron
	sessionService *session.Service
	monitor        *credential.Monitor
	scanner        *credential.ExpiryScanner
	logger         *slog.Logger
}

// NewScheduler constructs a Scheduler; call [Scheduler.Start] to arm it.
func NewScheduler(
	sessionService *session.Service,
	monitor *credential.Monitor,
	scanner *credential.ExpiryScanner,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		runner:         cron.New(),
		sessionService: sessionService,
		monitor:        monitor,
		scanner:        scanner,
		logger:         logger,
	}
}

// Start registers the four maintenance jobs from the configured cron
// specs and launches the scheduler goroutine.
func (scheduler *Scheduler) Start(cfg *config.Config) error {
	jobs := []struct {
		name   string
		spec   string
		budget time.Duration
		run    func(ctx context.Context) error
	}{
		{
			name:   "credential_health",
			spec:   cfg.HealthCronSpec,
			budget: constants.CredentialHealthBudget,
			run: func(ctx context.Context) error {
				_, err := scheduler.monitor.RunHealthCheck(ctx)
				return err
			},
		},
		{
			name:   "credential_expiry",
			spec:   cfg.ExpiryCronSpec,
			budget: constants.ExpiryScanBudget,
			run: func(ctx context.Context) error {
				_, err := scheduler.scanner.RunExpiryScan(ctx)
				return err
			},
		},
		{
			name:   "session_inactivity",
			spec:   cfg.InactivityCronSpec,
			budget: constants.SessionSweepBudget,
			run: func(ctx context.Context) error {
				_, err := scheduler.sessionService.InactivitySweep(ctx)
				return err
			},
		},
		{
			name:   "session_purge",
			spec:   cfg.RetentionCronSpec,
			budget: constants.SessionSweepBudget,
			run: func(ctx context.Context) error {
				_, err := scheduler.sessionService.RetentionSweep(ctx)
				return err
			},
		},
	}

	for _, job := range jobs {
		job := job
		_, err := scheduler.runner.AddFunc(job.spec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), job.budget)
			defer cancel()

			if err := job.run(ctx); err != nil {
				scheduler.logger.Error("scheduled_job_failed",
					slog.String("job", job.name),
					slog.String("error", err.Error()),
				)
			}
		})
		if err != nil {
			return err
		}
	}

	scheduler.runner.Start()
	scheduler.logger.Info("scheduler_started", slog.Int("jobs", len(jobs)))
	return nil
}

// Stop halts the scheduler and waits for in-flight jobs to finish.
func (scheduler *Scheduler) Stop() {
	<-scheduler.runner.Stop().Done()
	scheduler.logger.Info("scheduler_stopped")
}
