// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/platform/sec"
)

/*
TestGenerateSecureToken verifies length and uniqueness of generated tokens.
*/
func TestGenerateSecureToken(t *testing.T) {
	first, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	second, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)

	// 1. Hex encoding doubles the byte length
	assert.Len(t, first, 64)
	assert.Len(t, second, 64)

	// 2. Two draws must differ
	assert.NotEqual(t, first, second)
}

/*
TestHashToken verifies fingerprints are deterministic and non-reversible in shape.
*/
func TestHashToken(t *testing.T) {
	token := "refresh-token-value"

	hash := sec.HashToken(token)

	// 1. SHA-256 hex output is 64 characters
	assert.Len(t, hash, 64)

	// 2. Deterministic
	assert.Equal(t, hash, sec.HashToken(token))

	// 3. Distinct inputs produce distinct fingerprints
	assert.NotEqual(t, hash, sec.HashToken("other-token"))
}

/*
TestTokenHashEqual verifies constant-time fingerprint comparison.
*/
func TestTokenHashEqual(t *testing.T) {
	token := "session-refresh-token"
	stored := sec.HashToken(token)

	assert.True(t, sec.TokenHashEqual(token, stored))
	assert.False(t, sec.TokenHashEqual("wrong-token", stored))
	assert.False(t, sec.TokenHashEqual(token, "not-a-hash"))
}

/*
TestConstantTimeEquals verifies the accumulate-XOR comparison.
*/
func TestConstantTimeEquals(t *testing.T) {
	assert.True(t, sec.ConstantTimeEquals("abcdef", "abcdef"))
	assert.False(t, sec.ConstantTimeEquals("abcdef", "abcdeg"))
	assert.False(t, sec.ConstantTimeEquals("abc", "abcdef"))
	assert.True(t, sec.ConstantTimeEquals("", ""))
}
