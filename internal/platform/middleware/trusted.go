// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package middleware

import (
	"net/http"
	"strings"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	"github.com/fabrika-platform/fabrika/internal/platform/ctxutil"
	"github.com/fabrika-platform/fabrika/internal/platform/respond"
	"github.com/fabrika-platform/fabrika/internal/platform/sec"
)

// TrustedCaller authenticates scheduled-job trigger requests via a shared
// bearer secret.
//
// # Capability, not identity
//
// A trusted caller is a machine capability (the external cron runner), not a
// user. It deliberately shares no validation code path with user sessions:
// no JWT parsing, no claims, no role resolution. The context is marked so
// downstream handlers can assert the distinction.
//
// # Flow
//  1. Missing server-side secret is a configuration fault: respond 500.
//  2. Extract 'Authorization: Bearer <secret>'.
//  3. Compare against the configured secret in constant time.
//  4. Mark the context as trusted and proceed.
func TrustedCaller(configuredSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Server Configuration Check ─────────────────────────────────
			if configuredSecret == "" {
				respond.Error(writer, request, apperr.Configuration("Job trigger secret is not configured"))
				return
			}

			// ── 2. Bearer Extraction ──────────────────────────────────────────
			authHeader := request.Header.Get(constants.HeaderAuthorization)
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Trigger authentication required"))
				return
			}

			// ── 3. Constant-Time Comparison ───────────────────────────────────
			if !sec.ConstantTimeEquals(parts[1], configuredSecret) {
				respond.Error(writer, request, apperr.Unauthorized("Invalid trigger credentials"))
				return
			}

			// ── 4. Context Marking ────────────────────────────────────────────
			ctx := ctxutil.WithTrustedCaller(request.Context())
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}
