// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/csrf"
	"github.com/fabrika-platform/fabrika/internal/jobs"
	"github.com/fabrika-platform/fabrika/internal/platform/config"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/platform/middleware"
	"github.com/fabrika-platform/fabrika/internal/rbac"
	"github.com/fabrika-platform/fabrika/internal/session"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Session handles the session lifecycle routes (login, refresh, logout).
	Session *session.Handler

	// CSRF issues tokens for state-changing requests.
	CSRF *csrf.Handler

	// RBAC answers role and permission queries.
	RBAC *rbac.Handler

	// Credential exposes masked credential inspection for administrators.
	Credential *credential.Handler

	// Jobs exposes the trusted-caller job trigger endpoints.
	Jobs *jobs.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
//
// JWT authentication applies only to the browser-facing group: the job
// trigger mount reads the same Authorization header for its shared
// secret, so it must never pass through the JWT parser. The CSRF guard
// sits after authentication so session-bound verification sees the
// caller's claims; machine callers hold no session to bind to and skip
// it entirely.
func NewServer(
	context context.Context,
	cfg *config.Config,
	log *slog.Logger,
	verifier middleware.TokenVerifier,
	sessions middleware.SessionValidator,
	ranker middleware.RoleRanker,
	guard *csrf.Guard,
	h Handlers,
) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/api/v1", func(api chi.Router) {

		// Machine-to-machine triggers: trusted-caller gate only. Mounted
		// outside the JWT group because the trigger secret travels in the
		// same Authorization header.
		api.Mount("/jobs", h.Jobs.Routes())

		// Browser-facing routes: JWT authentication, then the CSRF guard.
		api.Group(func(protected chi.Router) {
			protected.Use(middleware.Authenticate(verifier, sessions))
			protected.Use(csrf.Protect(guard))

			protected.Mount("/auth", h.Session.Routes())
			protected.Mount("/csrf", h.CSRF.Routes())

			protected.Group(func(authed chi.Router) {
				authed.Use(middleware.RequireAuth)
				authed.Mount("/rbac", h.RBAC.Routes())
			})

			protected.Group(func(admin chi.Router) {
				admin.Use(middleware.RequireRank(ranker, rbac.RoleAdmin))
				admin.Mount("/credentials", h.Credential.Routes())
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the composed router so tests can exercise requests
// through the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
