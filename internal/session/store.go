// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package session

import (
	"context"
	"time"
)

// # Session Data Access

// Repository defines the data access contract for session rows.
//
// The two sweep operations are time-predicate updates/deletes and must be
// safe to run concurrently with live traffic and with each other.
type Repository interface {

	/*
		Create persists a new session row.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Database write failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByID returns the session with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Session: Hydrated row including revocation state
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Session, error)

	/*
		Rotate updates the row after a successful refresh: new access
		token fingerprint, new refresh token hash, pushed-out expiry,
		and a fresh activity timestamp. Only a live (non-revoked) row
		is updated.

		Parameters:
		  - context: context.Context
		  - id: string
		  - tokenFingerprint: string (jti of the new access token)
		  - refreshTokenHash: string (SHA-256 of the new refresh token)
		  - expiresAt: time.Time
		  - activityAt: time.Time

		Returns:
		  - error: apperr.NotFound when no live row matches, or write failures
	*/
	Rotate(context context.Context, id, tokenFingerprint, refreshTokenHash string, expiresAt, activityAt time.Time) error

	/*
		TouchActivity advances the last-activity timestamp of a live row.
		A missing or revoked row is a silent no-op.

		Parameters:
		  - context: context.Context
		  - id: string
		  - at: time.Time

		Returns:
		  - error: Database write failures
	*/
	TouchActivity(context context.Context, id string, at time.Time) error

	/*
		Revoke marks a single session revoked with a reason code.
		Revoking an already revoked session is a no-op, preserving the
		original reason and timestamp.

		Parameters:
		  - context: context.Context
		  - id: string
		  - reason: string
		  - at: time.Time

		Returns:
		  - error: Database write failures
	*/
	Revoke(context context.Context, id, reason string, at time.Time) error

	/*
		RevokeIdleSince revokes every live session whose last activity
		is older than the cutoff. The predicate lives in the query, so
		two overlapping sweeps converge.

		Parameters:
		  - context: context.Context
		  - cutoff: time.Time (sessions idle since before this are revoked)
		  - reason: string
		  - at: time.Time (revocation timestamp to record)

		Returns:
		  - int64: Number of sessions revoked by this call
		  - error: Database write failures
	*/
	RevokeIdleSince(context context.Context, cutoff time.Time, reason string, at time.Time) (int64, error)

	/*
		DeleteRetired permanently deletes rows whose revocation or
		expiry (whichever is later) predates the horizon. Live
		sessions inside the horizon are never touched.

		Parameters:
		  - context: context.Context
		  - horizon: time.Time

		Returns:
		  - int64: Number of rows deleted
		  - error: Database write failures
	*/
	DeleteRetired(context context.Context, horizon time.Time) (int64, error)
}
