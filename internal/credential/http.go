// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	requestutil "github.com/fabrika-platform/fabrika/internal/platform/request"
	"github.com/fabrika-platform/fabrika/internal/platform/respond"
	"github.com/fabrika-platform/fabrika/internal/platform/validate"
	"github.com/fabrika-platform/fabrika/internal/vault"
	"github.com/fabrika-platform/fabrika/pkg/slug"
	"github.com/fabrika-platform/fabrika/pkg/uuidv7"
)

// # Definitions & Constructors

// BundleCrypter is the vault surface the handler needs: decryption for
// masked listing, encryption for setup and rotation.
type BundleCrypter interface {
	BundleDecrypter
	EncryptRecord(record any) (string, error)
}

// Handler implements the credential administration endpoints. Secrets
// are only ever rendered masked.
type Handler struct {
	repository Repository
	crypter    BundleCrypter
}

// NewHandler constructs a new [Handler].
func NewHandler(repository Repository, crypter BundleCrypter) *Handler {
	return &Handler{repository: repository, crypter: crypter}
}

// Routes returns a [chi.Router] with the credential administration
// routes. The admin rank gate is applied where this router is mounted.
//
// # Endpoints
//   - GET /  : Lists all credential records with masked key material.
//   - PUT /  : Creates or rotates a credential record.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.list)
	router.Put("/", handler.save)

	return router
}

// listedCredential is the response projection of a record. The API key
// appears masked; the rest of the bundle is never rendered at all.
type listedCredential struct {
	ID               string `json:"id"`
	Service          string `json:"service"`
	DisplayName      string `json:"display_name"`
	MaskedAPIKey     string `json:"api_key_masked"`
	ExpiresAt        any    `json:"expires_at,omitempty"`
	IsActive         bool   `json:"is_active"`
	LastProbeStatus  string `json:"last_probe_status,omitempty"`
	LastProbeLatency int64  `json:"last_probe_latency_ms,omitempty"`
}

/*
List returns every credential record with masked key material.

GET /api/v1/credentials

Description: Admin-only. A record whose bundle fails to decrypt is still
listed, with an empty mask, so operators can spot it; the decryption
failure itself is a server-side log concern.

Response:
  - 200: {credentials, count}
  - 401/403: Enforced by the mount-point middleware
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	records, err := handler.repository.ListAll(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	listed := make([]listedCredential, 0, len(records))
	for _, record := range records {
		entry := listedCredential{
			ID:               record.ID,
			Service:          record.Service,
			DisplayName:      record.DisplayName,
			IsActive:         record.IsActive,
			LastProbeStatus:  record.LastProbeStatus,
			LastProbeLatency: record.LastProbeLatency,
		}
		if record.ExpiresAt != nil {
			entry.ExpiresAt = record.ExpiresAt
		}

		bundle := &Bundle{}
		if err := handler.crypter.DecryptRecord(record.EncryptedBundle, bundle); err == nil {
			entry.MaskedAPIKey = vault.Mask(bundle.APIKey, 4)
		}

		listed = append(listed, entry)
	}

	respond.OK(writer, map[string]any{
		"credentials": listed,
		"count":       len(listed),
	})
}

// saveRequest is the setup/rotation payload. Secret fields arrive in
// plaintext over TLS and are encrypted before they touch the store.
type saveRequest struct {
	Service                 string     `json:"service"`
	DisplayName             string     `json:"display_name"`
	APIKey                  string     `json:"api_key"`
	APISecret               string     `json:"api_secret"`
	AccessToken             string     `json:"access_token"`
	RefreshToken            string     `json:"refresh_token"`
	ProbeURL                string     `json:"probe_url"`
	RotationIntervalSeconds int64      `json:"rotation_interval_seconds"`
	ExpiresAt               *time.Time `json:"expires_at"`
}

/*
Save creates or rotates a credential record.

PUT /api/v1/credentials

Description: Admin-only upsert keyed by service slug. An omitted service
is derived from the display name. Rotation replaces the encrypted bundle
wholesale and restarts the rotation clock; probe history stays on the
row. A record deactivated by the health monitor is re-armed here once
its upstream grant has been reissued.

Request:
  - Body: saveRequest

Response:
  - 200: The stored record with masked key material
  - 400: Validation failure
  - 401/403: Enforced by the mount-point middleware
*/
func (handler *Handler) save(writer http.ResponseWriter, request *http.Request) {
	var input saveRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Service == "" {
		input.Service = slug.From(input.DisplayName)
	}

	validator := &validate.Validator{}
	validator.Required("display_name", input.DisplayName).
		Required("api_key", input.APIKey).
		Slug("service", input.Service).
		Custom("rotation_interval_seconds", input.RotationIntervalSeconds < 0, "must not be negative")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	encrypted, err := handler.crypter.EncryptRecord(&Bundle{
		APIKey:       input.APIKey,
		APISecret:    input.APISecret,
		AccessToken:  input.AccessToken,
		RefreshToken: input.RefreshToken,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	now := time.Now()
	record := &Credential{
		ID:               uuidv7.Must(),
		Service:          input.Service,
		DisplayName:      input.DisplayName,
		EncryptedBundle:  encrypted,
		ProbeURL:         input.ProbeURL,
		RotationInterval: time.Duration(input.RotationIntervalSeconds) * time.Second,
		LastRotatedAt:    &now,
		ExpiresAt:        input.ExpiresAt,
		IsActive:         true,
	}
	if record.RotationInterval > 0 {
		next := now.Add(record.RotationInterval)
		record.NextRotationAt = &next
	}

	// Rotation reuses the existing row identity.
	existing, err := handler.repository.FindByService(request.Context(), input.Service)
	switch {
	case err == nil:
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
	case !apperr.IsCode(err, "NOT_FOUND"):
		respond.Error(writer, request, err)
		return
	}

	if err := handler.repository.Save(request.Context(), record); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, listedCredential{
		ID:           record.ID,
		Service:      record.Service,
		DisplayName:  record.DisplayName,
		MaskedAPIKey: vault.Mask(input.APIKey, 4),
		ExpiresAt:    record.ExpiresAt,
		IsActive:     true,
	})
}
