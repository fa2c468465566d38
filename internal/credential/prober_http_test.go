// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

/*
TestHTTPProber_Classification maps endpoint behavior onto the error
taxonomy: 2xx is healthy, invalid_grant bodies are permanent rejections,
everything else is retryable upstream trouble.
*/
func TestHTTPProber_Classification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantCode   string
		wantHealth bool
	}{
		{"ok", http.StatusOK, `{"status":"up"}`, "", true},
		{"no_content", http.StatusNoContent, "", "", true},
		{"invalid_grant", http.StatusUnauthorized, `{"error":"invalid_grant"}`, "UPSTREAM_REJECTED", false},
		{"revoked_token", http.StatusForbidden, `{"error":"token_revoked"}`, "UPSTREAM_REJECTED", false},
		{"plain_unauthorized", http.StatusUnauthorized, `{"error":"bad_signature"}`, "UPSTREAM_ERROR", false},
		{"server_error", http.StatusBadGateway, "upstream down", "UPSTREAM_ERROR", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				gotAuth = request.Header.Get("Authorization")
				writer.WriteHeader(tt.status)
				_, _ = writer.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			prober := credential.NewHTTPProber(server.Client())
			record := &credential.Credential{ID: "cred-1", Service: "erp-api", ProbeURL: server.URL}
			bundle := &credential.Bundle{APIKey: "sk_live_test"}

			err := prober.Probe(context.Background(), record, bundle)

			assert.Equal(t, "Bearer sk_live_test", gotAuth, "probe must authenticate with the bundle")
			if tt.wantHealth {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, apperr.IsCode(err, tt.wantCode), "expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

/*
TestHTTPProber_Unreachable: transport failures are retryable upstream
errors, never rejections.
*/
func TestHTTPProber_Unreachable(t *testing.T) {
	prober := credential.NewHTTPProber(nil)
	record := &credential.Credential{ID: "cred-1", Service: "erp-api", ProbeURL: "http://127.0.0.1:1/health"}

	err := prober.Probe(context.Background(), record, &credential.Bundle{APIKey: "k"})
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "UPSTREAM_ERROR"))
}
