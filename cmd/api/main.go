// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

// Command api is the entry point for the Fabrika access-management API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Initialize crypto services (JWT signing, credential vault).
//  7. Wire domain services and HTTP handlers.
//  8. Start HTTP server (and optional embedded scheduler) with graceful
//     shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fabrika-platform/fabrika/internal/api"
	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/csrf"
	"github.com/fabrika-platform/fabrika/internal/identity"
	"github.com/fabrika-platform/fabrika/internal/jobs"
	"github.com/fabrika-platform/fabrika/internal/platform/config"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/platform/migration"
	pgstore "github.com/fabrika-platform/fabrika/internal/platform/postgres"
	redisstore "github.com/fabrika-platform/fabrika/internal/platform/redis"
	"github.com/fabrika-platform/fabrika/internal/platform/sec"
	"github.com/fabrika-platform/fabrika/internal/rbac"
	"github.com/fabrika-platform/fabrika/internal/session"
	"github.com/fabrika-platform/fabrika/internal/vault"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "fabrika"))
	slog.SetDefault(log)

	log.Info("[Fabrika] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "fabrika"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Crypto Services ────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	credentialVault, err := vault.New(cfg.VaultMasterSecret)
	must(log, err, "initialize credential vault")

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	userRepository := identity.NewUserRepository(pool)

	sessionRepository := session.NewRepository(pool)
	sessionService := session.NewService(
		userRepository,
		sessionRepository,
		jwtSvc,
		cfg.SessionInactivityTimeout,
		cfg.SessionRetention(),
		log,
	)
	sessionHandler := session.NewHandler(sessionService)

	rbacService := rbac.NewService(
		rbac.NewCatalog(),
		rbac.NewAssignmentRepository(pool),
		rbac.NewRedisCache(rdb, cfg.RBACCacheTTL),
		log,
	)
	rbacHandler := rbac.NewHandler(rbacService)

	csrfGuard := csrf.NewGuard(csrf.NewRedisBinder(rdb))
	csrfHandler := csrf.NewHandler(csrfGuard)

	credentialRepository := credential.NewRepository(pool)
	credentialMonitor := credential.NewMonitor(
		credentialRepository,
		credentialVault,
		credential.NewHTTPProber(nil),
		cfg.HealthProbeTimeout,
		log,
	)
	expiryScanner := credential.NewExpiryScanner(
		credentialRepository,
		credential.NewLogNotifier(log),
		credential.NewRedisDeduper(rdb),
		log,
	)
	credentialHandler := credential.NewHandler(credentialRepository, credentialVault)

	jobsHandler := jobs.NewHandler(sessionService, credentialMonitor, expiryScanner, cfg.JobTriggerSecret)

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Session:    sessionHandler,
		CSRF:       csrfHandler,
		RBAC:       rbacHandler,
		Credential: credentialHandler,
		Jobs:       jobsHandler,
	}

	server := api.NewServer(context.Background(), cfg, log, jwtSvc, sessionService, rbacService, csrfGuard, handlers)

	// ── 10. Embedded Scheduler (optional) ─────────────────────────────────
	// Single-instance deployments run the maintenance jobs in-process;
	// multi-instance deployments leave this disabled and drive the trigger
	// endpoints from an external cron instead.
	if cfg.JobsCronEnabled {
		scheduler := jobs.NewScheduler(sessionService, credentialMonitor, expiryScanner, log)
		must(log, scheduler.Start(cfg), "start job scheduler")
		defer scheduler.Stop()
	}

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
