// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns byteLength random bytes, hex-encoded.
//
// The output string is twice byteLength characters long and drawn from a
// cryptographically secure source.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the SHA-256 fingerprint of a token, hex-encoded.
//
// # Usage
//
// Refresh tokens are never stored raw. The session row keeps only this
// fingerprint, so a database leak does not yield usable credentials.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenHashEqual compares a presented token against a stored fingerprint in
// constant time. Returns true only on an exact match.
func TokenHashEqual(presentedToken, storedHash string) bool {
	presentedHash := HashToken(presentedToken)
	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
}

// ConstantTimeEquals compares two strings without short-circuiting on the
// first mismatching byte.
//
// # Timing Safety
//
// The comparison accumulates XOR over every byte pair, so the duration
// depends only on the input length, never on where the strings diverge.
// Unequal lengths fail immediately; length is not a secret here.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	var acc byte
	for i := 0; i < len(a); i++ {
		acc |= a[i] ^ b[i]
	}
	return acc == 0
}
