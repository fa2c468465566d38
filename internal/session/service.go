// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/fabrika-platform/fabrika/internal/identity"
	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/platform/sec"
	"github.com/fabrika-platform/fabrika/pkg/uuidv7"
)

// # Contracts & Types

// TokenProvider defines the contract for issuing and checking the JWT
// credentials a session hands out.
type TokenProvider interface {
	// GenerateAccessToken creates a signed short-lived JWT and returns
	// the token with its jti for fingerprinting onto the session row.
	GenerateAccessToken(userID, email, role, sessionID string, timeToLive time.Duration) (token string, jti string, err error)

	// GenerateRefreshToken creates a signed long-lived JWT bound to a
	// session and returns it with its expiry.
	GenerateRefreshToken(userID, sessionID string, timeToLive time.Duration) (token string, expiresAt time.Time, err error)

	// VerifyRefreshToken checks signature and expiry of a refresh token.
	VerifyRefreshToken(token string) (*sec.RefreshClaims, error)
}

// Service implements the session lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to the refresh or
// sweep logic must be reviewed by the security team.
type Service struct {
	userRepository    identity.UserRepository
	sessionRepository Repository
	tokenProvider     TokenProvider
	logger            *slog.Logger

	inactivityTimeout time.Duration
	retention         time.Duration
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo identity.UserRepository,
	sessionRepo Repository,
	tokenProv TokenProvider,
	inactivityTimeout time.Duration,
	retention time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		userRepository:    userRepo,
		sessionRepository: sessionRepo,
		tokenProvider:     tokenProv,
		logger:            logger,
		inactivityTimeout: inactivityTimeout,
		retention:         retention,
	}
}

// # Login Flow

// LoginInput holds the data required to open a session.
type LoginInput struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// AuthResult is the outcome of a successful login or refresh.
type AuthResult struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  identity.Profile
}

/*
Login authenticates a user and opens a new session.

Description: Verifies the password against the stored bcrypt hash, gates
on account status, then persists a session row carrying the access-token
fingerprint, the refresh-token hash, and request provenance.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *AuthResult: Token pair plus public profile
  - error: apperr.Unauthorized on bad credentials or inactive account
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {

	// ── 1. Credential Check ───────────────────────────────────────────────
	user, err := service.userRepository.FindByEmail(ctx, input.Email)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			// Hide which half of the pair was wrong.
			return nil, apperr.Unauthorized("Invalid email or password")
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid email or password")
	}

	if !user.CanAuthenticate() {
		return nil, apperr.Unauthorized("Account is not active")
	}

	// ── 2. Token Issuance ─────────────────────────────────────────────────
	sessionID := uuidv7.Must()

	accessToken, jti, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Email, user.Role, sessionID, constants.AccessTokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	refreshToken, refreshExpiresAt, err := service.tokenProvider.GenerateRefreshToken(
		user.ID, sessionID, constants.RefreshTokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	// ── 3. Session Persistence ────────────────────────────────────────────
	now := time.Now()
	record := &Session{
		ID:               sessionID,
		UserID:           user.ID,
		TokenFingerprint: jti,
		RefreshTokenHash: sec.HashToken(refreshToken),
		ExpiresAt:        refreshExpiresAt,
		CreatedAt:        now,
		LastActivityAt:   now,
		IPAddress:        input.IPAddress,
		UserAgent:        input.UserAgent,
	}

	if err := service.sessionRepository.Create(ctx, record); err != nil {
		return nil, err
	}

	service.logger.InfoContext(ctx, "session_created",
		slog.String("session_id", sessionID),
		slog.String("user_id", user.ID),
	)

	return &AuthResult{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		User:                  user.PublicProfile(),
	}, nil
}

// # Refresh Flow

/*
Refresh exchanges a refresh token for a new access token, rotating the
refresh credential on the same session row.

Description: The token is first verified cryptographically, then matched
against the session row's stored hash — a token that was already rotated
no longer matches and is rejected, making each refresh token single-use.
The bound session must be live and the account still active.

Failure map:
  - Malformed/expired token, revoked/expired/missing session, or hash
    mismatch: apperr.Unauthorized with a stable message.
  - Account no longer active: apperr.Unauthorized "User not authorized".
  - Store trouble during rotation: propagated as-is.

Parameters:
  - ctx: context.Context
  - refreshToken: string
  - userAgent: string (logged, not stored; provenance stays creation-time)
  - ipAddress: string

Returns:
  - *AuthResult: Rotated token pair plus public profile
  - error: See failure map
*/
func (service *Service) Refresh(ctx context.Context, refreshToken, userAgent, ipAddress string) (*AuthResult, error) {

	// ── 1. Cryptographic Verification ─────────────────────────────────────
	claims, err := service.tokenProvider.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// ── 2. Session Lookup & Usability ─────────────────────────────────────
	record, err := service.sessionRepository.FindByID(ctx, claims.SessionID)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, err
	}

	now := time.Now()
	if record.UserID != claims.UserID || !record.Usable(now) {
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	if !sec.TokenHashEqual(refreshToken, record.RefreshTokenHash) {
		// Presented token was already rotated away. Possible replay.
		service.logger.WarnContext(ctx, "session_refresh_replay_detected",
			slog.String("session_id", record.ID),
			slog.String("user_id", record.UserID),
			slog.String("ip_address", ipAddress),
		)
		return nil, apperr.Unauthorized("Invalid or expired refresh token")
	}

	// ── 3. Account Status Gate ────────────────────────────────────────────
	user, err := service.userRepository.FindByID(ctx, record.UserID)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("User not authorized")
		}
		return nil, err
	}
	if !user.CanAuthenticate() {
		return nil, apperr.Unauthorized("User not authorized")
	}

	// ── 4. Rotation ───────────────────────────────────────────────────────
	accessToken, jti, err := service.tokenProvider.GenerateAccessToken(
		user.ID, user.Email, user.Role, record.ID, constants.AccessTokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	newRefreshToken, refreshExpiresAt, err := service.tokenProvider.GenerateRefreshToken(
		user.ID, record.ID, constants.RefreshTokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	err = service.sessionRepository.Rotate(ctx, record.ID, jti, sec.HashToken(newRefreshToken), refreshExpiresAt, now)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			// Revoked between lookup and rotation; the revocation wins.
			return nil, apperr.Unauthorized("Invalid or expired refresh token")
		}
		return nil, err
	}

	service.logger.InfoContext(ctx, "session_refreshed",
		slog.String("session_id", record.ID),
		slog.String("user_id", user.ID),
	)

	return &AuthResult{
		AccessToken:           accessToken,
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresAt: refreshExpiresAt,
		User:                  user.PublicProfile(),
	}, nil
}

// # Access Validation

/*
ValidateAccess checks that the session behind a verified access token is
still live and that the token is the most recently issued one for it.

Description: Signature verification alone cannot see a logout or a
refresh that happened after the token was signed. This check closes that
gap: the session row must exist, be neither revoked nor expired, and its
stored fingerprint must match the token's jti — an access token issued
before the last refresh fails the fingerprint comparison. On success the
row's last-activity timestamp is advanced, so the inactivity sweep
measures real use rather than time since the last refresh.

Parameters:
  - ctx: context.Context
  - sessionID: string (the token's sid claim)
  - tokenJTI: string (the token's jti claim)

Returns:
  - error: apperr.Unauthorized for a missing, revoked, or expired
    session and for a rotated-away token; store failures as-is
*/
func (service *Service) ValidateAccess(ctx context.Context, sessionID, tokenJTI string) error {
	record, err := service.sessionRepository.FindByID(ctx, sessionID)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return apperr.Unauthorized("Session is no longer valid")
		}
		return err
	}

	if !record.Usable(time.Now()) {
		return apperr.Unauthorized("Session is no longer valid")
	}

	if !sec.ConstantTimeEquals(tokenJTI, record.TokenFingerprint) {
		// The token predates the last refresh.
		return apperr.Unauthorized("Session is no longer valid")
	}

	service.TouchActivity(ctx, sessionID)
	return nil
}

// # Revocation & Activity

// Logout revokes a single session with the explicit-logout reason code.
// Revoking an already revoked session is a no-op.
func (service *Service) Logout(ctx context.Context, sessionID string) error {
	if err := service.sessionRepository.Revoke(ctx, sessionID, RevokeReasonLogout, time.Now()); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "session_revoked",
		slog.String("session_id", sessionID),
		slog.String("reason", RevokeReasonLogout),
	)
	return nil
}

// TouchActivity records liveness for a session. Failures are logged and
// swallowed: activity tracking must never fail a request.
func (service *Service) TouchActivity(ctx context.Context, sessionID string) {
	if err := service.sessionRepository.TouchActivity(ctx, sessionID, time.Now()); err != nil {
		service.logger.WarnContext(ctx, "session_touch_failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// # Sweeps

/*
InactivitySweep revokes every live session idle beyond the configured
inactivity timeout.

Description: A session being actively used cannot be caught by the sweep,
since its last-activity timestamp sits inside the window; one that goes
idle exactly at the boundary is revoked on its next use attempt at the
latest. Safe to run concurrently with live traffic and with itself.

Returns:
  - int64: Sessions revoked by this run
  - error: Store failures
*/
func (service *Service) InactivitySweep(ctx context.Context) (int64, error) {
	now := time.Now()
	cutoff := now.Add(-service.inactivityTimeout)

	revoked, err := service.sessionRepository.RevokeIdleSince(ctx, cutoff, RevokeReasonInactivity, now)
	if err != nil {
		return 0, err
	}

	service.logger.InfoContext(ctx, "session_inactivity_sweep",
		slog.Int64("revoked", revoked),
		slog.Time("cutoff", cutoff),
	)
	return revoked, nil
}

/*
RetentionSweep permanently deletes sessions whose revocation or expiry
(whichever is later) is older than the retention horizon, bounding
storage growth without losing short-term forensic value.

Returns:
  - int64: Rows purged by this run
  - error: Store failures
*/
func (service *Service) RetentionSweep(ctx context.Context) (int64, error) {
	horizon := time.Now().Add(-service.retention)

	purged, err := service.sessionRepository.DeleteRetired(ctx, horizon)
	if err != nil {
		return 0, err
	}

	service.logger.InfoContext(ctx, "session_retention_sweep",
		slog.Int64("purged", purged),
		slog.Time("horizon", horizon),
	)
	return purged, nil
}
