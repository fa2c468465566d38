// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Vault) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Fabrika API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Cryptographic keys for session and identity signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// VaultMasterSecret seeds the process-wide encryption key for stored
	// third-party credentials. Missing value aborts startup; there is no
	// degraded mode without the vault.
	//
	// Single-tenant deployment: one derived key covers all encrypted
	// records, so a compromise of this secret affects them uniformly.
	VaultMasterSecret string `env:"VAULT_MASTER_SECRET,required"`

	// JobTriggerSecret authenticates scheduled-job trigger requests.
	// This is a trusted-caller capability, distinct from user sessions.
	JobTriggerSecret string `env:"JOB_TRIGGER_SECRET,required"`

	// Session lifecycle tuning
	SessionInactivityTimeout time.Duration `env:"SESSION_INACTIVITY_TIMEOUT" envDefault:"30m"`
	SessionRetentionDays     int           `env:"SESSION_RETENTION_DAYS"     envDefault:"90"`

	// RBACCacheTTL is the staleness bound for cached role lookups. After a
	// demotion, stale privilege can persist up to this duration on instances
	// that have not observed the invalidation.
	RBACCacheTTL time.Duration `env:"RBAC_CACHE_TTL" envDefault:"5m"`

	// Credential monitor tuning
	HealthProbeTimeout time.Duration `env:"HEALTH_PROBE_TIMEOUT" envDefault:"10s"`

	// Embedded scheduler. When disabled, jobs run only via the authenticated
	// HTTP trigger endpoints (external cron).
	JobsCronEnabled    bool   `env:"JOBS_CRON_ENABLED"    envDefault:"false"`
	HealthCronSpec     string `env:"HEALTH_CRON_SPEC"     envDefault:"*/10 * * * *"`
	ExpiryCronSpec     string `env:"EXPIRY_CRON_SPEC"     envDefault:"0 6 * * *"`
	InactivityCronSpec string `env:"INACTIVITY_CRON_SPEC" envDefault:"*/15 * * * *"`
	RetentionCronSpec  string `env:"RETENTION_CRON_SPEC"  envDefault:"30 4 * * *"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ExtraAllowedOrigins returns the comma-separated EXTRA_ORIGINS list as
// a slice, with empty entries dropped.
func (c *Config) ExtraAllowedOrigins() []string {
	if c.ExtraOrigins == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(c.ExtraOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// SessionRetention returns the retention horizon as a duration.
func (c *Config) SessionRetention() time.Duration {
	return time.Duration(c.SessionRetentionDays) * 24 * time.Hour
}
