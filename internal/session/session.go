// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package session manages the authenticated session lifecycle.

# State Machine

A session moves through: active → refreshed (same row, rotated refresh
credential) → expired (TTL or inactivity) or revoked (explicit action),
and is finally purged by the retention sweep once old enough.

A session with a non-nil RevokedAt is never usable for authorization or
refresh, whatever the reason. Sweeps operate on time predicates only, so
overlapping runs converge to the same end state instead of
double-processing rows.
*/
package session

import "time"

// Revocation reason codes. Inactivity revocation is distinguishable from
// an explicit logout in forensic queries.
const (
	RevokeReasonLogout     = "logout"
	RevokeReasonInactivity = "inactivity_timeout"
)

// Session is a persisted authentication session row.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// TokenFingerprint is the jti of the most recently issued access
	// token; it changes on every refresh.
	TokenFingerprint string `json:"-"`

	// RefreshTokenHash is the SHA-256 of the currently valid refresh
	// token. Rotation replaces it, which makes each refresh token
	// single-use.
	RefreshTokenHash string `json:"-"`

	ExpiresAt      time.Time  `json:"expires_at"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokeReason   string     `json:"revoke_reason,omitempty"`

	// Request provenance captured at creation.
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// IsRevoked reports whether the session was revoked, for any reason.
func (session *Session) IsRevoked() bool {
	return session.RevokedAt != nil
}

// IsExpired reports whether the session's absolute horizon has passed.
func (session *Session) IsExpired(now time.Time) bool {
	return now.After(session.ExpiresAt)
}

// Usable reports whether the session may still authorize a refresh.
func (session *Session) Usable(now time.Time) bool {
	return !session.IsRevoked() && !session.IsExpired(now)
}
