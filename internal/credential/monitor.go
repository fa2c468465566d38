// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

// # Contracts & Types

// BundleDecrypter is the vault surface the monitor needs.
type BundleDecrypter interface {
	// DecryptRecord decodes an opaque ciphertext into target, failing
	// deterministically on tamper or wrong key.
	DecryptRecord(opaque string, target any) error
}

// Prober performs a side-effect-free reachability check against an
// integration endpoint using a decrypted bundle.
//
// A permanently rejected grant (invalid-grant class) must surface as an
// apperr with code UPSTREAM_REJECTED; transient unreachability as
// UPSTREAM_ERROR. The monitor deactivates records only on the former.
type Prober interface {
	Probe(ctx context.Context, record *Credential, bundle *Bundle) error
}

// RunSummary is the structured outcome of one job run.
//
// Per-item failures are captured in Errors and reflected in the counts;
// they never abort the batch.
type RunSummary struct {
	Status         string        `json:"status"`
	ItemsProcessed int           `json:"items_processed"`
	ItemsSucceeded int           `json:"items_succeeded"`
	ItemsFailed    int           `json:"items_failed"`
	Errors         []string      `json:"errors"`
	Duration       time.Duration `json:"-"`
	DurationMS     int64         `json:"duration_ms"`
}

// Run status values.
const (
	RunStatusCompleted  = "completed"
	RunStatusWithErrors = "completed_with_errors"
)

// finalize stamps the duration and derives the overall status.
func (summary *RunSummary) finalize(startedAt time.Time) *RunSummary {
	summary.Duration = time.Since(startedAt)
	summary.DurationMS = summary.Duration.Milliseconds()
	if summary.ItemsFailed > 0 {
		summary.Status = RunStatusWithErrors
	} else {
		summary.Status = RunStatusCompleted
	}
	if summary.Errors == nil {
		summary.Errors = []string{}
	}
	return summary
}

// # Health Monitor

// Monitor runs scheduled health checks over active credential records.
type Monitor struct {
	repository   Repository
	vault        BundleDecrypter
	prober       Prober
	logger       *slog.Logger
	probeTimeout time.Duration
}

// NewMonitor constructs a new [Monitor] with necessary dependencies.
func NewMonitor(
	repository Repository,
	vault BundleDecrypter,
	prober Prober,
	probeTimeout time.Duration,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		repository:   repository,
		vault:        vault,
		prober:       prober,
		logger:       logger,
		probeTimeout: probeTimeout,
	}
}

/*
RunHealthCheck probes every active credential and records the outcome.

# Flow

 1. List active records; a store failure here fails the whole run.
 2. Per record: decrypt the bundle, probe the endpoint under the
    per-item timeout, and write status plus latency onto the row.
 3. A probe rejected with an invalid-grant class error deactivates the
    record immediately — retrying a permanently dead grant cannot
    succeed and would alert on every run.

Per-item failures are logged with the record's identity, never its
secret content, and the batch continues. Processing order within a run
is unspecified.

Returns:
  - *RunSummary: Counts, per-item error strings, duration
  - error: Whole-run failures only (store unreachable)
*/
func (monitor *Monitor) RunHealthCheck(ctx context.Context) (*RunSummary, error) {
	startedAt := time.Now()
	summary := &RunSummary{}

	records, err := monitor.repository.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("credential health run: listing active records: %w", err)
	}

	for _, record := range records {
		summary.ItemsProcessed++

		if err := monitor.checkOne(ctx, record); err != nil {
			summary.ItemsFailed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %s", record.Service, err.Error()))
			continue
		}
		summary.ItemsSucceeded++
	}

	summary.finalize(startedAt)
	monitor.logger.InfoContext(ctx, "credential_health_run_finished",
		slog.String("status", summary.Status),
		slog.Int("processed", summary.ItemsProcessed),
		slog.Int("failed", summary.ItemsFailed),
		slog.Int64("duration_ms", summary.DurationMS),
	)

	return summary, nil
}

// checkOne handles a single record: decrypt, probe, persist outcome.
func (monitor *Monitor) checkOne(ctx context.Context, record *Credential) error {

	// ── 1. Decrypt ────────────────────────────────────────────────────────
	bundle := &Bundle{}
	if err := monitor.vault.DecryptRecord(record.EncryptedBundle, bundle); err != nil {
		// Log which record, never its content.
		monitor.logger.ErrorContext(ctx, "credential_decrypt_failed",
			slog.String("credential_id", record.ID),
			slog.String("service", record.Service),
		)
		return fmt.Errorf("bundle decryption failed")
	}

	// ── 2. Probe ──────────────────────────────────────────────────────────
	probeCtx, cancel := context.WithTimeout(ctx, monitor.probeTimeout)
	defer cancel()

	probeStart := time.Now()
	probeErr := monitor.prober.Probe(probeCtx, record, bundle)
	latency := time.Since(probeStart)

	// ── 3. Record Outcome ─────────────────────────────────────────────────
	status := ProbeStatusHealthy
	if probeErr != nil {
		status = ProbeStatusUnhealthy
	}

	if err := monitor.repository.RecordProbe(ctx, record.ID, status, latency, time.Now()); err != nil {
		return fmt.Errorf("recording probe outcome: %w", err)
	}

	if probeErr == nil {
		return nil
	}

	if apperr.IsCode(probeErr, "UPSTREAM_REJECTED") {
		// Permanently invalid grant: park the record instead of
		// re-alerting on every run.
		if err := monitor.repository.Deactivate(ctx, record.ID); err != nil {
			return fmt.Errorf("deactivating rejected credential: %w", err)
		}
		monitor.logger.WarnContext(ctx, "credential_deactivated",
			slog.String("credential_id", record.ID),
			slog.String("service", record.Service),
		)
		return fmt.Errorf("grant rejected by provider, credential deactivated")
	}

	return fmt.Errorf("probe failed: %s", probeErr.Error())
}
