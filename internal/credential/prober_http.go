// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

// # HTTP Prober

// HTTPProber probes integration endpoints with an authenticated GET.
// The probe is side-effect-free: it only reads the endpoint's health or
// identity resource named in the record's ProbeURL.
type HTTPProber struct {
	client *http.Client
}

// NewHTTPProber constructs an HTTPProber. Per-probe deadlines come from
// the caller's context, so the client itself carries no timeout.
func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProber{client: client}
}

/*
Probe implements [Prober].

Classification:
  - 2xx: healthy.
  - 401/403 with an invalid-grant class body: UPSTREAM_REJECTED — the
    stored grant is permanently dead.
  - Any other status or a transport error: UPSTREAM_ERROR, retryable on
    the next run.
*/
func (prober *HTTPProber) Probe(ctx context.Context, record *Credential, bundle *Bundle) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, record.ProbeURL, nil)
	if err != nil {
		return apperr.Upstream("Malformed probe URL", err)
	}

	switch {
	case bundle.AccessToken != "":
		request.Header.Set("Authorization", "Bearer "+bundle.AccessToken)
	case bundle.APIKey != "":
		request.Header.Set("Authorization", "Bearer "+bundle.APIKey)
	}

	response, err := prober.client.Do(request)
	if err != nil {
		return apperr.Upstream("Integration endpoint unreachable", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		if isInvalidGrant(string(body)) {
			return apperr.UpstreamRejected(
				"Provider rejected the stored grant",
				fmt.Errorf("probe returned %d", response.StatusCode),
			)
		}
	}

	return apperr.Upstream(
		"Integration endpoint returned an error",
		fmt.Errorf("probe returned %d", response.StatusCode),
	)
}

// isInvalidGrant recognizes the OAuth invalid-grant error family in a
// response body.
func isInvalidGrant(body string) bool {
	lowered := strings.ToLower(body)
	return strings.Contains(lowered, "invalid_grant") ||
		strings.Contains(lowered, "invalid grant") ||
		strings.Contains(lowered, "token_revoked")
}
