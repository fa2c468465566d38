// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

// # Session Repository (PostgreSQL)

// PostgresRepository implements [Repository] against trust.session using
// pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the session
// Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new session row.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, session *Session) error {
	const query = `
		INSERT INTO trust.session (
			id, user_id, token_fingerprint, refresh_token_hash,
			expires_at, created_at, last_activity_at, ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.TokenFingerprint,
		session.RefreshTokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.LastActivityAt,
		session.IPAddress,
		session.UserAgent,
	)

	if err != nil {
		return fmt.Errorf("postgres_session_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a session row by its primary key, including revoked
rows — usability is the service's decision, not the store's.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Session: Hydrated row
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Session, error) {
	const query = `
		SELECT id, user_id, token_fingerprint, refresh_token_hash,
		       expires_at, created_at, last_activity_at,
		       revoked_at, revoke_reason, ip_address, user_agent
		FROM trust.session
		WHERE id = $1`

	session := &Session{}
	var revokeReason *string

	err := repository.pool.QueryRow(context, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.TokenFingerprint,
		&session.RefreshTokenHash,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.LastActivityAt,
		&session.RevokedAt,
		&revokeReason,
		&session.IPAddress,
		&session.UserAgent,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Session")
		}
		return nil, fmt.Errorf("postgres_session_find_failed: %w", err)
	}

	if revokeReason != nil {
		session.RevokeReason = *revokeReason
	}

	return session, nil
}

/*
Rotate applies the post-refresh update to a live row.

Description: The WHERE clause excludes revoked rows so a revocation that
landed between verification and rotation wins — the refresh then fails
with NotFound instead of resurrecting the session.

Returns:
  - error: apperr.NotFound when no live row matched
*/
func (repository *PostgresRepository) Rotate(context context.Context, id, tokenFingerprint, refreshTokenHash string, expiresAt, activityAt time.Time) error {
	const query = `
		UPDATE trust.session
		SET token_fingerprint = $2,
		    refresh_token_hash = $3,
		    expires_at = $4,
		    last_activity_at = $5
		WHERE id = $1 AND revoked_at IS NULL`

	tag, err := repository.pool.Exec(context, query, id, tokenFingerprint, refreshTokenHash, expiresAt, activityAt)
	if err != nil {
		return fmt.Errorf("postgres_session_rotate_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Session")
	}

	return nil
}

/*
TouchActivity advances last_activity_at on a live row. Missing or
revoked rows are ignored.
*/
func (repository *PostgresRepository) TouchActivity(context context.Context, id string, at time.Time) error {
	const query = `
		UPDATE trust.session
		SET last_activity_at = $2
		WHERE id = $1 AND revoked_at IS NULL AND last_activity_at < $2`

	if _, err := repository.pool.Exec(context, query, id, at); err != nil {
		return fmt.Errorf("postgres_session_touch_failed: %w", err)
	}

	return nil
}

/*
Revoke marks one session revoked. The revoked_at IS NULL guard keeps the
first revocation's reason and timestamp under concurrent calls.
*/
func (repository *PostgresRepository) Revoke(context context.Context, id, reason string, at time.Time) error {
	const query = `
		UPDATE trust.session
		SET revoked_at = $2, revoke_reason = $3
		WHERE id = $1 AND revoked_at IS NULL`

	if _, err := repository.pool.Exec(context, query, id, at, reason); err != nil {
		return fmt.Errorf("postgres_session_revoke_failed: %w", err)
	}

	return nil
}

/*
RevokeIdleSince bulk-revokes live sessions idle since before the cutoff.

Description: A single predicate UPDATE; two concurrent sweeps each revoke
a disjoint subset and converge to the same end state.

Returns:
  - int64: Rows transitioned by this call
*/
func (repository *PostgresRepository) RevokeIdleSince(context context.Context, cutoff time.Time, reason string, at time.Time) (int64, error) {
	const query = `
		UPDATE trust.session
		SET revoked_at = $2, revoke_reason = $3
		WHERE revoked_at IS NULL AND last_activity_at < $1`

	tag, err := repository.pool.Exec(context, query, cutoff, at, reason)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_idle_sweep_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

/*
DeleteRetired purges rows whose revocation or expiry (whichever is
later) predates the horizon.

Returns:
  - int64: Rows deleted
*/
func (repository *PostgresRepository) DeleteRetired(context context.Context, horizon time.Time) (int64, error) {
	const query = `
		DELETE FROM trust.session
		WHERE GREATEST(COALESCE(revoked_at, expires_at), expires_at) < $1`

	tag, err := repository.pool.Exec(context, query, horizon)
	if err != nil {
		return 0, fmt.Errorf("postgres_session_purge_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
