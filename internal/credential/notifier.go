// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fabrika-platform/fabrika/internal/platform/constants"
)

// # Expiry Thresholds

// Threshold identifies an expiry boundary a credential can cross.
type Threshold string

const (
	ThresholdWeek    Threshold = "7d"
	ThresholdDay     Threshold = "1d"
	ThresholdExpired Threshold = "expired"
)

// crossedThreshold maps days-until-expiry to the tightest crossed
// boundary. A credential eight or more days out crosses nothing.
func crossedThreshold(daysLeft int) (Threshold, bool) {
	switch {
	case daysLeft < 0:
		return ThresholdExpired, true
	case daysLeft <= 1:
		return ThresholdDay, true
	case daysLeft <= 7:
		return ThresholdWeek, true
	default:
		return "", false
	}
}

// # Contracts

// Notifier delivers an expiry alert for one credential and threshold.
type Notifier interface {
	Notify(ctx context.Context, record *Credential, threshold Threshold, daysLeft int) error
}

// Deduper decides whether an alert was already sent today.
//
// MarkSent must be atomic: when two concurrent scans race on the same
// key, exactly one observes first=true.
type Deduper interface {
	// MarkSent records that (credentialID, threshold) fired on the given
	// calendar day and reports whether this call was the first to do so.
	MarkSent(ctx context.Context, credentialID string, threshold Threshold, day string) (first bool, err error)
}

// # Implementations

// LogNotifier emits expiry alerts as structured log events, the delivery
// channel ops dashboards tail in every environment.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements [Notifier].
func (notifier *LogNotifier) Notify(ctx context.Context, record *Credential, threshold Threshold, daysLeft int) error {
	notifier.logger.WarnContext(ctx, "credential_expiry_notice",
		slog.String("credential_id", record.ID),
		slog.String("service", record.Service),
		slog.String("threshold", string(threshold)),
		slog.Int("days_left", daysLeft),
	)
	return nil
}

// RedisDeduper implements [Deduper] on Redis SET NX, giving cross-instance
// idempotency for the daily scan.
type RedisDeduper struct {
	client *redis.Client
}

// NewRedisDeduper wraps an existing Redis client.
func NewRedisDeduper(client *redis.Client) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// MarkSent implements [Deduper]. Keys expire after 48 hours; the day
// component already scopes them, the TTL just bounds keyspace growth.
func (deduper *RedisDeduper) MarkSent(ctx context.Context, credentialID string, threshold Threshold, day string) (bool, error) {
	key := fmt.Sprintf("%s%s:%s:%s", constants.RedisPrefixExpiryNotice, credentialID, threshold, day)

	first, err := deduper.client.SetNX(ctx, key, "1", 48*time.Hour).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx expiry notice: %w", err)
	}
	return first, nil
}

// # Expiry Scanner

// ExpiryScanner runs the daily threshold scan over expiring credentials.
type ExpiryScanner struct {
	repository Repository
	notifier   Notifier
	deduper    Deduper
	logger     *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewExpiryScanner constructs a new [ExpiryScanner].
func NewExpiryScanner(repository Repository, notifier Notifier, deduper Deduper, logger *slog.Logger) *ExpiryScanner {
	return &ExpiryScanner{
		repository: repository,
		notifier:   notifier,
		deduper:    deduper,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the scanner's time source. Test hook.
func (scanner *ExpiryScanner) WithClock(now func() time.Time) *ExpiryScanner {
	scanner.now = now
	return scanner
}

/*
RunExpiryScan notifies on every credential that crossed an expiry
threshold, at most once per threshold per calendar day.

# Idempotency

The deduper key is (credential, threshold, calendar day): re-running the
scan the same day is silent for already-flagged thresholds; the next day
the same threshold fires again until the credential is rotated or it
crosses the next boundary, which starts a fresh key.

Returns:
  - *RunSummary: ItemsSucceeded counts alerts actually sent; suppressed
    duplicates count as processed but neither succeeded nor failed
  - error: Whole-run failures only (store unreachable)
*/
func (scanner *ExpiryScanner) RunExpiryScan(ctx context.Context) (*RunSummary, error) {
	startedAt := scanner.now()
	summary := &RunSummary{}

	records, err := scanner.repository.ListExpiring(ctx)
	if err != nil {
		return nil, fmt.Errorf("credential expiry run: listing records: %w", err)
	}

	today := startedAt.Format("2006-01-02")

	for _, record := range records {
		summary.ItemsProcessed++

		daysLeft, hasExpiry := record.DaysUntilExpiry(startedAt)
		if !hasExpiry {
			continue
		}

		threshold, crossed := crossedThreshold(daysLeft)
		if !crossed {
			continue
		}

		first, err := scanner.deduper.MarkSent(ctx, record.ID, threshold, today)
		if err != nil {
			summary.ItemsFailed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: dedup check failed: %s", record.Service, err.Error()))
			continue
		}
		if !first {
			// Already flagged today.
			continue
		}

		if err := scanner.notifier.Notify(ctx, record, threshold, daysLeft); err != nil {
			summary.ItemsFailed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: notification failed: %s", record.Service, err.Error()))
			continue
		}
		summary.ItemsSucceeded++
	}

	summary.finalize(startedAt)
	scanner.logger.InfoContext(ctx, "credential_expiry_run_finished",
		slog.String("status", summary.Status),
		slog.Int("processed", summary.ItemsProcessed),
		slog.Int("notified", summary.ItemsSucceeded),
		slog.Int64("duration_ms", summary.DurationMS),
	)

	return summary, nil
}
