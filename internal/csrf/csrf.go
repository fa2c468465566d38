// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package csrf implements the double-submit defense for state-changing requests.

# Architecture

Tokens are 32 bytes of secure randomness, hex-encoded to 64 characters, and
carried in the X-CSRF-Token header. Safe methods (GET, HEAD, OPTIONS) are
never inspected.

Two verification tiers exist:

  - Structural: length and hex alphabet only. Applied to anonymous requests,
    where no server-side reference exists.
  - Bound: for authenticated requests, the issued token is stored against the
    caller's session ID and verification requires constant-time equality with
    that stored value, closing the timing and token-fixation gaps of the
    structural tier.
*/
package csrf

import (
	"context"
	"fmt"

	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/platform/sec"
)

// Binder persists the session → token association for the bound tier.
//
// # Implementations
//
// The canonical implementation is Redis ([RedisBinder]); tests use an
// in-memory fake.
type Binder interface {
	// Bind stores token as the current CSRF reference for sessionID.
	Bind(ctx context.Context, sessionID, token string) error

	// Lookup returns the bound token for sessionID, or "" if none exists.
	Lookup(ctx context.Context, sessionID string) (string, error)
}

// Guard issues and verifies CSRF tokens.
type Guard struct {
	binder Binder
}

// NewGuard constructs a Guard. A nil binder disables the bound tier entirely
// (structural checks only), which is acceptable for tooling but not production.
func NewGuard(binder Binder) *Guard {
	return &Guard{binder: binder}
}

// GenerateToken returns a fresh 64-hex-character token from a
// cryptographically secure source.
func GenerateToken() (string, error) {
	token, err := sec.GenerateSecureToken(constants.CSRFTokenBytes)
	if err != nil {
		return "", fmt.Errorf("csrf: token generation failed: %w", err)
	}
	return token, nil
}

// IsStructurallyValid reports whether token has the exact issued shape:
// 64 characters of hex alphabet.
func IsStructurallyValid(token string) bool {
	if len(token) != constants.CSRFTokenHexLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		isHex := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}

// Issue generates a token and, when a session is present, binds it to that
// session for later equality verification.
func (guard *Guard) Issue(ctx context.Context, sessionID string) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	if sessionID != "" && guard.binder != nil {
		if err := guard.binder.Bind(ctx, sessionID, token); err != nil {
			return "", fmt.Errorf("csrf: binding failed: %w", err)
		}
	}

	return token, nil
}

// isSafeMethod reports whether the HTTP method never mutates state.
func isSafeMethod(method string) bool {
	return method == "GET" || method == "HEAD" || method == "OPTIONS"
}

// Check decides whether a request may proceed.
//
// # Decision Table
//
//   - Safe method: always pass, token ignored.
//   - Unsafe method, no token: reject.
//   - Unsafe method, malformed token: reject.
//   - Unsafe method, session present: pass only on constant-time equality
//     with the session-bound token.
//   - Unsafe method, anonymous: structural validity suffices.
//
// The bound comparison uses an accumulate-XOR equality that never
// short-circuits on the first mismatching byte.
func (guard *Guard) Check(ctx context.Context, method, headerToken, sessionID string) (bool, error) {
	// ── 1. Safe Methods ───────────────────────────────────────────────────
	if isSafeMethod(method) {
		return true, nil
	}

	// ── 2. Structural Tier ────────────────────────────────────────────────
	if !IsStructurallyValid(headerToken) {
		return false, nil
	}

	// ── 3. Bound Tier ─────────────────────────────────────────────────────
	if sessionID != "" && guard.binder != nil {
		boundToken, err := guard.binder.Lookup(ctx, sessionID)
		if err != nil {
			return false, fmt.Errorf("csrf: binding lookup failed: %w", err)
		}
		if boundToken == "" {
			// Authenticated caller never fetched a token for this session.
			return false, nil
		}
		return sec.ConstantTimeEquals(headerToken, boundToken), nil
	}

	return true, nil
}
