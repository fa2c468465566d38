// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package credential manages encrypted third-party integration credentials
and their scheduled health surveillance.

# Architecture

Secret bundles are never stored in the clear: the vault encrypts them to
an opaque string at setup and decrypts them only when a health probe or
an administrator display needs them. Two scheduled jobs operate on the
records:

  - Health monitor: decrypts each active credential, probes the
    integration endpoint, and records status and latency per item.
  - Expiry notifier: computes days-until-expiry daily and alerts on
    threshold crossings (7 days, 1 day, expired), at most once per
    threshold per calendar day.

Per-item failures never abort a run; only whole-store failures do.
*/
package credential

import "time"

// Probe status values recorded on the credential row.
const (
	ProbeStatusHealthy   = "healthy"
	ProbeStatusUnhealthy = "unhealthy"
)

// Credential is a persisted integration credential record. The secret
// bundle is stored encrypted; everything else is operational metadata.
type Credential struct {
	ID          string `json:"id"`
	Service     string `json:"service"`
	DisplayName string `json:"display_name"`

	// EncryptedBundle is the vault's opaque ciphertext of the [Bundle].
	EncryptedBundle string `json:"-"`

	// ProbeURL is the integration endpoint used for reachability checks.
	ProbeURL string `json:"probe_url"`

	RotationInterval time.Duration `json:"rotation_interval"`
	LastRotatedAt    *time.Time    `json:"last_rotated_at,omitempty"`
	NextRotationAt   *time.Time    `json:"next_rotation_at,omitempty"`
	ExpiresAt        *time.Time    `json:"expires_at,omitempty"`
	IsActive         bool          `json:"is_active"`

	LastProbeAt      *time.Time `json:"last_probe_at,omitempty"`
	LastProbeStatus  string     `json:"last_probe_status,omitempty"`
	LastProbeLatency int64      `json:"last_probe_latency_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bundle is the decrypted secret payload of a credential.
type Bundle struct {
	APIKey       string `json:"api_key"`
	APISecret    string `json:"api_secret,omitempty"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// DaysUntilExpiry returns whole days until expires_at, rounded down.
// Negative values mean already expired. The second return value is
// false when no expiry is set.
func (credential *Credential) DaysUntilExpiry(now time.Time) (int, bool) {
	if credential.ExpiresAt == nil {
		return 0, false
	}
	days := int(credential.ExpiresAt.Sub(now).Hours() / 24)
	if credential.ExpiresAt.Before(now) && days == 0 {
		days = -1
	}
	return days, true
}
