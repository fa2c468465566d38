// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/credential"
)

// recordingNotifier captures alerts instead of delivering them.
type recordingNotifier struct {
	alerts []string
}

func (notifier *recordingNotifier) Notify(_ context.Context, record *credential.Credential, threshold credential.Threshold, _ int) error {
	notifier.alerts = append(notifier.alerts, record.Service+"/"+string(threshold))
	return nil
}

// mapDeduper is an in-memory Deduper.
type mapDeduper struct {
	sent map[string]bool
}

func (deduper *mapDeduper) MarkSent(_ context.Context, credentialID string, threshold credential.Threshold, day string) (bool, error) {
	key := credentialID + "/" + string(threshold) + "/" + day
	if deduper.sent[key] {
		return false, nil
	}
	deduper.sent[key] = true
	return true, nil
}

func expiringRecord(t *testing.T, id, service string, expiresAt time.Time) *credential.Credential {
	t.Helper()
	record := seedRecord(t, testVault(t), id, service)
	record.ExpiresAt = &expiresAt
	return record
}

/*
TestExpiryScanner_Thresholds walks the boundary mapping: 6 days out
fires the week threshold, 1 day fires the day threshold, past expiry
fires expired, and 8 days out stays silent.
*/
func TestExpiryScanner_Thresholds(t *testing.T) {
	now := time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)

	repository := newFakeRepository(
		expiringRecord(t, "cred-1", "six-days", now.Add(6*24*time.Hour)),
		expiringRecord(t, "cred-2", "one-day", now.Add(20*time.Hour)),
		expiringRecord(t, "cred-3", "expired", now.Add(-2*time.Hour)),
		expiringRecord(t, "cred-4", "far-out", now.Add(8*24*time.Hour+time.Hour)),
	)
	notifier := &recordingNotifier{}

	scanner := credential.NewExpiryScanner(
		repository, notifier, &mapDeduper{sent: map[string]bool{}}, discardLogger(),
	).WithClock(func() time.Time { return now })

	summary, err := scanner.RunExpiryScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.ItemsProcessed)
	assert.Equal(t, 3, summary.ItemsSucceeded)
	assert.ElementsMatch(t, []string{
		"six-days/7d",
		"one-day/1d",
		"expired/expired",
	}, notifier.alerts)
}

/*
TestExpiryScanner_DailyIdempotency re-runs the scan on the same calendar
day and then the next day: same-day reruns are silent, the next day the
threshold fires again until rotation.
*/
func TestExpiryScanner_DailyIdempotency(t *testing.T) {
	now := time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)

	repository := newFakeRepository(
		expiringRecord(t, "cred-1", "warehouse-api", now.Add(6*24*time.Hour)),
	)
	notifier := &recordingNotifier{}
	deduper := &mapDeduper{sent: map[string]bool{}}

	clock := now
	scanner := credential.NewExpiryScanner(repository, notifier, deduper, discardLogger()).
		WithClock(func() time.Time { return clock })

	// 1. First run notifies.
	_, err := scanner.RunExpiryScan(context.Background())
	require.NoError(t, err)
	require.Len(t, notifier.alerts, 1)

	// 2. Re-running the same day is silent.
	clock = now.Add(4 * time.Hour)
	summary, err := scanner.RunExpiryScan(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.alerts, 1)
	assert.Equal(t, 1, summary.ItemsProcessed)
	assert.Zero(t, summary.ItemsSucceeded)

	// 3. The next calendar day fires again for the same threshold.
	clock = now.Add(24 * time.Hour)
	_, err = scanner.RunExpiryScan(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.alerts, 2)
}

/*
TestRedisDeduper verifies the SETNX semantics against an embedded Redis:
first caller wins, second sees a duplicate, different day is fresh.
*/
func TestRedisDeduper(t *testing.T) {
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	deduper := credential.NewRedisDeduper(client)
	ctx := context.Background()

	first, err := deduper.MarkSent(ctx, "cred-1", credential.ThresholdWeek, "2026-08-29")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := deduper.MarkSent(ctx, "cred-1", credential.ThresholdWeek, "2026-08-29")
	require.NoError(t, err)
	assert.False(t, second)

	nextDay, err := deduper.MarkSent(ctx, "cred-1", credential.ThresholdWeek, "2026-08-30")
	require.NoError(t, err)
	assert.True(t, nextDay)

	// A different threshold on the same day is also fresh.
	otherThreshold, err := deduper.MarkSent(ctx, "cred-1", credential.ThresholdDay, "2026-08-29")
	require.NoError(t, err)
	assert.True(t, otherThreshold)
}
