// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

/*
TestConstructors_CodeAndStatus verifies the code → HTTP status mapping of
every constructor in the taxonomy.
*/
func TestConstructors_CodeAndStatus(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name       string
		err        *apperr.AppError
		wantCode   string
		wantStatus int
	}{
		{"not_found", apperr.NotFound("Session"), "NOT_FOUND", http.StatusNotFound},
		{"unauthorized", apperr.Unauthorized("Invalid credentials"), "UNAUTHORIZED", http.StatusUnauthorized},
		{"forbidden", apperr.Forbidden("Insufficient privilege"), "FORBIDDEN", http.StatusForbidden},
		{"conflict", apperr.Conflict("Already exists"), "CONFLICT", http.StatusConflict},
		{"validation", apperr.ValidationError("Validation failed"), "VALIDATION_ERROR", http.StatusBadRequest},
		{"rate_limited", apperr.RateLimited(30), "RATE_LIMITED", http.StatusTooManyRequests},
		{"internal", apperr.Internal(cause), "INTERNAL_ERROR", http.StatusInternalServerError},
		{"unavailable", apperr.ServiceUnavailable("Maintenance"), "SERVICE_UNAVAILABLE", http.StatusServiceUnavailable},
		{"crypto", apperr.CryptoFailure(cause), "CRYPTO_FAILURE", http.StatusInternalServerError},
		{"configuration", apperr.Configuration("Missing master secret"), "CONFIGURATION_ERROR", http.StatusInternalServerError},
		{"upstream", apperr.Upstream("Endpoint unreachable", cause), "UPSTREAM_ERROR", http.StatusBadGateway},
		{"upstream_rejected", apperr.UpstreamRejected("Grant rejected", cause), "UPSTREAM_REJECTED", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

/*
TestNotFound_MessageSuffix: the constructor appends the suffix itself, so
callers pass the bare resource name.
*/
func TestNotFound_MessageSuffix(t *testing.T) {
	assert.Equal(t, "Session not found", apperr.NotFound("Session").Error())
}

/*
TestUnwrap_PreservesCauseChain verifies errors.Is traversal through the
hidden cause, and that the cause never leaks into the client message.
*/
func TestUnwrap_PreservesCauseChain(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := apperr.Internal(fmt.Errorf("sweep failed: %w", cause))

	assert.True(t, errors.Is(err, cause))
	assert.NotContains(t, err.Error(), "connection refused")
}

/*
TestHelpers covers IsAppError / As / IsCode over wrapped and foreign
errors.
*/
func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", apperr.Forbidden("CSRF token missing or invalid"))

	assert.True(t, apperr.IsAppError(wrapped))
	assert.True(t, apperr.IsCode(wrapped, "FORBIDDEN"))
	assert.False(t, apperr.IsCode(wrapped, "UNAUTHORIZED"))

	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusForbidden, ae.HTTPStatus)

	plain := errors.New("plain")
	assert.False(t, apperr.IsAppError(plain))
	assert.Nil(t, apperr.As(plain))
	assert.False(t, apperr.IsCode(nil, "FORBIDDEN"))
}
