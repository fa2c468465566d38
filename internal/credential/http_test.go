// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/credential"
	"github.com/fabrika-platform/fabrika/internal/vault"
)

// # Helpers

func newCredentialServer(t *testing.T, v *vault.Vault, repository *fakeRepository) *httptest.Server {
	t.Helper()
	handler := credential.NewHandler(repository, v)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return server
}

func putJSON(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()

	request, err := http.NewRequest(http.MethodPut, server.URL+"/", strings.NewReader(body))
	require.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")

	response, err := server.Client().Do(request)
	require.NoError(t, err)
	t.Cleanup(func() { _ = response.Body.Close() })
	return response
}

func decodeEnvelope(t *testing.T, response *http.Response) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&envelope))
	return envelope.Data
}

// # Listing

/*
TestHandler_List_MasksKeys verifies that the admin listing renders the
API key masked and never leaks the rest of the bundle.
*/
func TestHandler_List_MasksKeys(t *testing.T) {
	v := testVault(t)
	repository := newFakeRepository(seedRecord(t, v, "cred-1", "warehouse-api"))
	server := newCredentialServer(t, v, repository)

	response, err := server.Client().Get(server.URL + "/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = response.Body.Close() })
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeEnvelope(t, response)
	assert.EqualValues(t, 1, data["count"])

	listed := data["credentials"].([]any)[0].(map[string]any)
	assert.Equal(t, "warehouse-api", listed["service"])

	masked := listed["api_key_masked"].(string)
	assert.True(t, strings.Contains(masked, "*"), "key must be masked: %q", masked)
	assert.NotContains(t, masked, "sk_live_cred-1")
}

/*
TestHandler_List_UndecryptableRecordStillListed: a record with a broken
ciphertext shows up with an empty mask instead of vanishing.
*/
func TestHandler_List_UndecryptableRecordStillListed(t *testing.T) {
	v := testVault(t)
	record := seedRecord(t, v, "cred-1", "warehouse-api")
	record.EncryptedBundle = "bm90LXJlYWwtY2lwaGVydGV4dA=="
	server := newCredentialServer(t, v, newFakeRepository(record))

	response, err := server.Client().Get(server.URL + "/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = response.Body.Close() })
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeEnvelope(t, response)
	assert.EqualValues(t, 1, data["count"])
}

// # Setup & Rotation

/*
TestHandler_Save_DerivesServiceSlug: setup without an explicit service
key derives it from the display name, and the stored bundle round-trips
through the vault.
*/
func TestHandler_Save_DerivesServiceSlug(t *testing.T) {
	v := testVault(t)
	repository := newFakeRepository()
	server := newCredentialServer(t, v, repository)

	response := putJSON(t, server, `{
		"display_name": "Warehouse API (EU)",
		"api_key": "sk_live_abcdef1234567890",
		"probe_url": "https://warehouse.example.com/health"
	}`)
	require.Equal(t, http.StatusOK, response.StatusCode)

	data := decodeEnvelope(t, response)
	assert.Equal(t, "warehouse-api-eu", data["service"])
	assert.Equal(t, "sk_l****************7890", data["api_key_masked"])

	stored, err := repository.FindByService(t.Context(), "warehouse-api-eu")
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	bundle := &credential.Bundle{}
	require.NoError(t, v.DecryptRecord(stored.EncryptedBundle, bundle))
	assert.Equal(t, "sk_live_abcdef1234567890", bundle.APIKey)
}

/*
TestHandler_Save_RotationKeepsIdentity: a second save for the same
service replaces the bundle on the same row and reactivates a record the
health monitor parked.
*/
func TestHandler_Save_RotationKeepsIdentity(t *testing.T) {
	v := testVault(t)
	repository := newFakeRepository()
	server := newCredentialServer(t, v, repository)

	response := putJSON(t, server, `{"display_name": "ERP", "api_key": "sk_old"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)
	firstID := decodeEnvelope(t, response)["id"].(string)

	// The upstream rejected the grant in between.
	require.NoError(t, repository.Deactivate(t.Context(), firstID))

	response = putJSON(t, server, `{"display_name": "ERP", "api_key": "sk_new_0123456789"}`)
	require.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, firstID, decodeEnvelope(t, response)["id"].(string))

	stored, err := repository.FindByService(t.Context(), "erp")
	require.NoError(t, err)
	assert.True(t, stored.IsActive, "rotation must re-arm the record")

	bundle := &credential.Bundle{}
	require.NoError(t, v.DecryptRecord(stored.EncryptedBundle, bundle))
	assert.Equal(t, "sk_new_0123456789", bundle.APIKey)
}

/*
TestHandler_Save_Validation rejects payloads missing required fields.
*/
func TestHandler_Save_Validation(t *testing.T) {
	server := newCredentialServer(t, testVault(t), newFakeRepository())

	tests := []struct {
		name string
		body string
	}{
		{"missing_api_key", `{"display_name": "ERP"}`},
		{"missing_display_name", `{"api_key": "sk_x"}`},
		{"negative_rotation", `{"display_name": "ERP", "api_key": "sk_x", "rotation_interval_seconds": -60}`},
		{"malformed_json", `{"display_name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response := putJSON(t, server, tt.body)
			assert.Equal(t, http.StatusBadRequest, response.StatusCode)
		})
	}
}
