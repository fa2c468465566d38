// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package jobs_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/identity"
	"github.com/fabrika-platform/fabrika/internal/jobs"
	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/session"
	"github.com/fabrika-platform/fabrika/internal/vault"
)

// # Stubs

type stubUsers struct{}

func (stubUsers) FindByID(context.Context, string) (*identity.User, error) {
	return nil, apperr.NotFound("User")
}
func (stubUsers) FindByEmail(context.Context, string) (*identity.User, error) {
	return nil, apperr.NotFound("User")
}
func (stubUsers) UpdateStatus(context.Context, string, string) error { return nil }

// stubSessions counts sweep invocations and reports fixed results.
type stubSessions struct {
	revoked int64
	purged  int64
}

func (stub *stubSessions) Create(context.Context, *session.Session) error { return nil }
func (stub *stubSessions) FindByID(context.Context, string) (*session.Session, error) {
	return nil, apperr.NotFound("Session")
}
func (stub *stubSessions) Rotate(context.Context, string, string, string, time.Time, time.Time) error {
	return nil
}
func (stub *stubSessions) TouchActivity(context.Context, string, time.Time) error { return nil }
func (stub *stubSessions) Revoke(context.Context, string, string, time.Time) error {
	return nil
}
func (stub *stubSessions) RevokeIdleSince(context.Context, time.Time, string, time.Time) (int64, error) {
	return stub.revoked, nil
}
func (stub *stubSessions) DeleteRetired(context.Context, time.Time) (int64, error) {
	return stub.purged, nil
}

// stubCredentials is an empty credential store.
type stubCredentials struct{}

func (stubCredentials) ListAll(context.Context) ([]*credential.Credential, error)    { return nil, nil }
func (stubCredentials) ListActive(context.Context) ([]*credential.Credential, error) { return nil, nil }
func (stubCredentials) ListExpiring(context.Context) ([]*credential.Credential, error) {
	return nil, nil
}
func (stubCredentials) FindByService(context.Context, string) (*credential.Credential, error) {
	return nil, apperr.NotFound("Credential")
}
func (stubCredentials) Save(context.Context, *credential.Credential) error { return nil }
func (stubCredentials) RecordProbe(context.Context, string, string, time.Duration, time.Time) error {
	return nil
}
func (stubCredentials) Deactivate(context.Context, string) error { return nil }

type stubProber struct{}

func (stubProber) Probe(context.Context, *credential.Credential, *credential.Bundle) error {
	return nil
}

type stubDeduper struct{}

func (stubDeduper) MarkSent(context.Context, string, credential.Threshold, string) (bool, error) {
	return true, nil
}

// # Harness

const triggerSecret = "cron-shared-secret"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v, err := vault.New("unit-test-master-secret")
	require.NoError(t, err)

	sessionService := session.NewService(
		stubUsers{}, &stubSessions{revoked: 3, purged: 7}, nil,
		30*time.Minute, 90*24*time.Hour, logger,
	)
	monitor := credential.NewMonitor(stubCredentials{}, v, stubProber{}, time.Second, logger)
	scanner := credential.NewExpiryScanner(stubCredentials{}, credential.NewLogNotifier(logger), stubDeduper{}, logger)

	handler := jobs.NewHandler(sessionService, monitor, scanner, triggerSecret)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server
}

func trigger(t *testing.T, server *httptest.Server, path, secret string) *http.Response {
	t.Helper()

	request, err := http.NewRequest(http.MethodPost, server.URL+path, nil)
	require.NoError(t, err)
	if secret != "" {
		request.Header.Set("Authorization", "Bearer "+secret)
	}

	response, err := server.Client().Do(request)
	require.NoError(t, err)
	t.Cleanup(func() { _ = response.Body.Close() })
	return response
}

func decodeData(t *testing.T, response *http.Response) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	return envelope.Data
}

// # Tests

/*
TestTriggers_RequireSharedSecret: every endpoint rejects a missing or
wrong bearer secret with 401 before any work happens.
*/
func TestTriggers_RequireSharedSecret(t *testing.T) {
	server := newServer(t)

	paths := []string{
		"/credential-health",
		"/credential-expiry",
		"/session-inactivity",
		"/session-purge",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			response := trigger(t, server, path, "")
			assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

			response = trigger(t, server, path, "wrong-secret")
			assert.Equal(t, http.StatusUnauthorized, response.StatusCode)
		})
	}
}

/*
TestTrigger_SessionInactivity returns the sweep payload shape.
*/
func TestTrigger_SessionInactivity(t *testing.T) {
	server := newServer(t)

	response := trigger(t, server, "/session-inactivity", triggerSecret)
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeData(t, response)
	assert.Equal(t, float64(3), data["terminated_sessions"])
	assert.Contains(t, data, "duration_ms")
	assert.Contains(t, data, "timestamp")
}

/*
TestTrigger_SessionPurge returns the purge payload shape.
*/
func TestTrigger_SessionPurge(t *testing.T) {
	server := newServer(t)

	response := trigger(t, server, "/session-purge", triggerSecret)
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeData(t, response)
	assert.Equal(t, float64(7), data["purged_sessions"])
}

/*
TestTrigger_CredentialHealth runs a clean (empty-store) batch and
returns the structured summary.
*/
func TestTrigger_CredentialHealth(t *testing.T) {
	server := newServer(t)

	response := trigger(t, server, "/credential-health", triggerSecret)
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeData(t, response)
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(0), data["items_processed"])
	assert.Contains(t, data, "duration_ms")
}

/*
TestTrigger_CredentialExpiry runs a clean scan.
*/
func TestTrigger_CredentialExpiry(t *testing.T) {
	server := newServer(t)

	response := trigger(t, server, "/credential-expiry", triggerSecret)
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeData(t, response)
	assert.Equal(t, "completed", data["status"])
}
