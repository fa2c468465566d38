// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package jobs exposes the scheduled maintenance work of the platform:
credential health runs, expiry scans, and session sweeps.

# Invocation Models

Every job is reachable through an HTTP trigger authenticated with the
shared job-trigger secret (external cron, one-off operator runs), and
optionally through the embedded cron [Scheduler]. Both paths execute the
same service methods under the same per-job execution budget, so a job
abandoned at its deadline leaves unprocessed items to the next run
rather than corrupting state.
*/
package jobs

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/platform/middleware"
	"github.com/fabrika-platform/fabrika/internal/platform/respond"
	"github.com/fabrika-platform/fabrika/internal/session"
)

// # Definitions & Constructors

// Handler implements the trusted-caller job trigger endpoints.
type Handler struct {
	sessionService *session.Service
	monitor        *credential.Monitor
	scanner        *credential.ExpiryScanner
	triggerSecret  string
}

// NewHandler constructs a new [Handler] with its job dependencies.
func NewHandler(
	sessionService *session.Service,
	monitor *credential.Monitor,
	scanner *credential.ExpiryScanner,
	triggerSecret string,
) *Handler {
	return &Handler{
		sessionService: sessionService,
		monitor:        monitor,
		scanner:        scanner,
		triggerSecret:  triggerSecret,
	}
}

// Routes returns a [chi.Router] with every trigger endpoint behind the
// trusted-caller gate. User sessions never pass this gate; the two
// credential classes share no validation code.
//
// # Endpoints
//   - POST /credential-health  : Runs the health monitor batch.
//   - POST /credential-expiry  : Runs the daily expiry scan.
//   - POST /session-inactivity : Revokes idle sessions.
//   - POST /session-purge      : Deletes sessions past retention.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.TrustedCaller(handler.triggerSecret))

	router.Post("/credential-health", handler.credentialHealth)
	router.Post("/credential-expiry", handler.credentialExpiry)
	router.Post("/session-inactivity", handler.sessionInactivity)
	router.Post("/session-purge", handler.sessionPurge)

	return router
}

/*
CredentialHealth triggers one credential health run.

POST /api/v1/jobs/credential-health

Description: Probes every active credential under the job's execution
budget. Per-item failures appear in the summary; only a whole-run
failure (store unreachable) yields 500.

Response:
  - 200: RunSummary: {status, items_processed, items_succeeded,
    items_failed, errors, duration_ms}
  - 401: ErrUnauthorized: Bad or missing trigger secret
  - 500: ErrInternal: Whole-run failure or unconfigured secret
*/
func (handler *Handler) credentialHealth(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), constants.CredentialHealthBudget)
	defer cancel()

	summary, err := handler.monitor.RunHealthCheck(ctx)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, summary)
}

/*
CredentialExpiry triggers one expiry notification scan.

POST /api/v1/jobs/credential-expiry

Description: Notifies on crossed expiry thresholds, at most once per
threshold per calendar day. Safe to re-trigger.

Response:
  - 200: RunSummary
  - 401: ErrUnauthorized: Bad or missing trigger secret
  - 500: ErrInternal: Whole-run failure
*/
func (handler *Handler) credentialExpiry(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), constants.ExpiryScanBudget)
	defer cancel()

	summary, err := handler.scanner.RunExpiryScan(ctx)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, summary)
}

/*
SessionInactivity triggers one inactivity sweep.

POST /api/v1/jobs/session-inactivity

Description: Revokes live sessions idle beyond the configured timeout.
Concurrent triggers converge on the same end state.

Response:
  - 200: {terminated_sessions, duration_ms, timestamp}
  - 401: ErrUnauthorized: Bad or missing trigger secret
  - 500: ErrInternal: Store failure
*/
func (handler *Handler) sessionInactivity(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), constants.SessionSweepBudget)
	defer cancel()

	startedAt := time.Now()
	revoked, err := handler.sessionService.InactivitySweep(ctx)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, map[string]any{
		"terminated_sessions": revoked,
		"duration_ms":         time.Since(startedAt).Milliseconds(),
		"timestamp":           time.Now().UTC(),
	})
}

/*
SessionPurge triggers one retention sweep.

POST /api/v1/jobs/session-purge

Description: Permanently deletes sessions whose revocation or expiry is
older than the retention horizon.

Response:
  - 200: {purged_sessions, duration_ms, timestamp}
  - 401: ErrUnauthorized: Bad or missing trigger secret
  - 500: ErrInternal: Store failure
*/
func (handler *Handler) sessionPurge(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), constants.SessionSweepBudget)
	defer cancel()

	startedAt := time.Now()
	purged, err := handler.sessionService.RetentionSweep(ctx)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.OK(writer, map[string]any{
		"purged_sessions": purged,
		"duration_ms":     time.Since(startedAt).Milliseconds(),
		"timestamp":       time.Now().UTC(),
	})
}
