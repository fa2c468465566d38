// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package csrf_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/csrf"
)

// fakeBinder is an in-memory Binder for guard tests.
type fakeBinder struct {
	bindings map[string]string
}

func newFakeBinder() *fakeBinder {
	return &fakeBinder{bindings: make(map[string]string)}
}

func (binder *fakeBinder) Bind(_ context.Context, sessionID, token string) error {
	binder.bindings[sessionID] = token
	return nil
}

func (binder *fakeBinder) Lookup(_ context.Context, sessionID string) (string, error) {
	return binder.bindings[sessionID], nil
}

/*
TestGenerateToken verifies the issued token shape: 64 lowercase hex
characters, unique per call.
*/
func TestGenerateToken(t *testing.T) {
	first, err := csrf.GenerateToken()
	require.NoError(t, err)

	second, err := csrf.GenerateToken()
	require.NoError(t, err)

	assert.Len(t, first, 64)
	assert.True(t, csrf.IsStructurallyValid(first))
	assert.NotEqual(t, first, second)
}

/*
TestIsStructurallyValid covers the token shape gate.
*/
func TestIsStructurallyValid(t *testing.T) {
	tests := []struct {
		name  string
		token string
		valid bool
	}{
		{"valid_lowercase", strings.Repeat("ab12cd34", 8), true},
		{"valid_uppercase", strings.Repeat("AB12CD34", 8), true},
		{"too_short", strings.Repeat("a", 63), false},
		{"too_long", strings.Repeat("a", 65), false},
		{"empty", "", false},
		{"non_hex_char", strings.Repeat("a", 63) + "g", false},
		{"whitespace", strings.Repeat("a", 63) + " ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, csrf.IsStructurallyValid(tt.token))
		})
	}
}

/*
TestGuard_Check_Anonymous exercises the decision table for requests that
carry no session: safe methods always pass, unsafe methods demand a
structurally valid token.
*/
func TestGuard_Check_Anonymous(t *testing.T) {
	guard := csrf.NewGuard(newFakeBinder())
	validToken := strings.Repeat("0f", 32)

	tests := []struct {
		name   string
		method string
		token  string
		pass   bool
	}{
		{"get_without_token", "GET", "", true},
		{"head_without_token", "HEAD", "", true},
		{"options_without_token", "OPTIONS", "", true},
		{"post_without_token", "POST", "", false},
		{"post_with_valid_token", "POST", validToken, true},
		{"post_with_short_token", "POST", "abc123", false},
		{"put_with_valid_token", "PUT", validToken, true},
		{"delete_without_token", "DELETE", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, err := guard.Check(context.Background(), tt.method, tt.token, "")
			require.NoError(t, err)
			assert.Equal(t, tt.pass, passed)
		})
	}
}

/*
TestGuard_Check_SessionBound verifies the strict tier: an authenticated
caller must present the exact token bound to its session, and a
well-formed but unbound token is rejected.
*/
func TestGuard_Check_SessionBound(t *testing.T) {
	guard := csrf.NewGuard(newFakeBinder())
	ctx := context.Background()
	sessionID := "550e8400-e29b-41d4-a716-446655440000"

	// 1. Issue binds the token to the session.
	issued, err := guard.Issue(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, issued, 64)

	// 2. Exact match passes.
	passed, err := guard.Check(ctx, "POST", issued, sessionID)
	require.NoError(t, err)
	assert.True(t, passed)

	// 3. A different well-formed token is rejected for this session.
	foreign := strings.Repeat("ef", 32)
	passed, err = guard.Check(ctx, "POST", foreign, sessionID)
	require.NoError(t, err)
	assert.False(t, passed)

	// 4. A session that never fetched a token is rejected outright.
	passed, err = guard.Check(ctx, "POST", issued, "unknown-session")
	require.NoError(t, err)
	assert.False(t, passed)

	// 5. Safe methods bypass the bound tier entirely.
	passed, err = guard.Check(ctx, "GET", "", sessionID)
	require.NoError(t, err)
	assert.True(t, passed)
}

/*
TestGuard_Issue_Rotation checks that re-issuing replaces the binding:
only the latest token verifies.
*/
func TestGuard_Issue_Rotation(t *testing.T) {
	guard := csrf.NewGuard(newFakeBinder())
	ctx := context.Background()
	sessionID := "session-1"

	first, err := guard.Issue(ctx, sessionID)
	require.NoError(t, err)

	second, err := guard.Issue(ctx, sessionID)
	require.NoError(t, err)

	passed, err := guard.Check(ctx, "POST", first, sessionID)
	require.NoError(t, err)
	assert.False(t, passed, "stale token must not verify after rotation")

	passed, err = guard.Check(ctx, "POST", second, sessionID)
	require.NoError(t, err)
	assert.True(t, passed)
}

/*
TestRedisBinder exercises the Redis-backed binding store against an
embedded server, including the TTL on stored bindings.
*/
func TestRedisBinder(t *testing.T) {
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	binder := csrf.NewRedisBinder(client)
	ctx := context.Background()

	// 1. Missing binding reads as empty, not as an error.
	token, err := binder.Lookup(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, token)

	// 2. Round-trip.
	require.NoError(t, binder.Bind(ctx, "sess-42", strings.Repeat("aa", 32)))
	token, err = binder.Lookup(ctx, "sess-42")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("aa", 32), token)

	// 3. Bindings expire.
	server.FastForward(3 * time.Hour)
	token, err = binder.Lookup(ctx, "sess-42")
	require.NoError(t, err)
	assert.Empty(t, token)
}
