// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package vault implements authenticated symmetric encryption for stored
third-party credentials.

# Architecture

The vault is a pure, CPU-bound component: a single AES-256 key is derived
once at process start and held read-only, so concurrent Encrypt/Decrypt calls
need no locking. All persistence of the resulting opaque strings belongs to
the credential store, never to this package.

# Wire Format

	base64( nonce[16] ‖ tag[16] ‖ ciphertext )

A fresh random nonce is drawn per encryption. Nonce reuse under the same key
breaks confidentiality, which is why encryption never accepts a caller-chosen
nonce.
*/
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

// # Cipher Parameters

const (
	// nonceSize is the per-message random nonce length in bytes.
	nonceSize = 16

	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16

	// keySize selects AES-256.
	keySize = 32

	// scrypt cost parameters. Interactive-grade work factor: key derivation
	// happens once per process, not per request.
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// keySalt is the fixed derivation salt.
//
// A fixed salt is acceptable here because the master secret is a single
// high-entropy machine secret, not a user password; the salt only
// domain-separates this derivation from any other use of the same secret.
var keySalt = []byte("fabrika.vault.v1")

// Vault encrypts and decrypts opaque secret blobs with a process-wide key.
type Vault struct {
	aead cipher.AEAD
}

// New derives the encryption key from the master secret and returns a ready vault.
//
// # Failure Mode
//
// An empty master secret is a fatal startup condition ([apperr.Configuration]).
// The application must refuse to serve traffic without a vault rather than
// silently storing plaintext.
func New(masterSecret string) (*Vault, error) {
	if strings.TrimSpace(masterSecret) == "" {
		return nil, apperr.Configuration("Vault master secret is required")
	}

	key, err := scrypt.Key([]byte(masterSecret), keySalt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("vault: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init failed: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("vault: AEAD init failed: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals raw plaintext bytes and returns the opaque base64 string.
func (vault *Vault) Encrypt(plaintext []byte) (string, error) {
	// ── 1. Fresh Nonce ────────────────────────────────────────────────────
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: nonce generation failed: %w", err)
	}

	// ── 2. Seal ───────────────────────────────────────────────────────────
	// Go appends the tag to the ciphertext; the wire format wants it up
	// front (nonce ‖ tag ‖ ciphertext), so split and reassemble.
	sealed := vault.aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	// ── 3. Wire Layout ────────────────────────────────────────────────────
	payload := make([]byte, 0, nonceSize+tagSize+len(ciphertext))
	payload = append(payload, nonce...)
	payload = append(payload, tag...)
	payload = append(payload, ciphertext...)

	return base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt opens an opaque string produced by [Vault.Encrypt].
//
// # Failure Semantics
//
// Any malformation (bad base64, truncated payload) or authentication failure
// (tampered bytes, wrong key) yields a deterministic CRYPTO_FAILURE error.
// Corrupted-but-parseable output is never returned.
func (vault *Vault) Decrypt(opaque string) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return nil, apperr.CryptoFailure(fmt.Errorf("vault: payload is not valid base64: %w", err))
	}

	if len(payload) < nonceSize+tagSize {
		return nil, apperr.CryptoFailure(fmt.Errorf("vault: payload too short (%d bytes)", len(payload)))
	}

	nonce := payload[:nonceSize]
	tag := payload[nonceSize : nonceSize+tagSize]
	ciphertext := payload[nonceSize+tagSize:]

	// Reassemble into Go's ciphertext‖tag layout before opening.
	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := vault.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Tamper or wrong key. The error carries no plaintext.
		return nil, apperr.CryptoFailure(fmt.Errorf("vault: authentication failed: %w", err))
	}

	return plaintext, nil
}

// EncryptRecord JSON-marshals a structured record and seals it.
//
// # Usage
//
// Credential bundles (API keys, refresh tokens, endpoint URLs) are stored as
// a single opaque string column via this method.
func (vault *Vault) EncryptRecord(record any) (string, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("vault: record marshal failed: %w", err)
	}
	return vault.Encrypt(raw)
}

// DecryptRecord opens an opaque string and unmarshals it into target.
func (vault *Vault) DecryptRecord(opaque string, target any) error {
	raw, err := vault.Decrypt(opaque)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return apperr.CryptoFailure(fmt.Errorf("vault: record unmarshal failed: %w", err))
	}

	return nil
}

// # Display Masking

// Mask renders a secret for display without exposing its full value.
//
// The first and last visibleChars characters remain readable with asterisks
// between them. Secrets too short to keep both ends distinct are fully
// masked instead.
//
// Example:
//
//	Mask("sk_live_abcdef1234567890", 4) // "sk_l****************7890"
func Mask(secret string, visibleChars int) string {
	if visibleChars < 1 {
		visibleChars = 1
	}

	// Both visible ends would overlap: hide everything.
	if len(secret) <= visibleChars*2 {
		return strings.Repeat("*", len(secret))
	}

	masked := len(secret) - visibleChars*2
	return secret[:visibleChars] + strings.Repeat("*", masked) + secret[len(secret)-visibleChars:]
}
