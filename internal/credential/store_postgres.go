// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/platform/dberr"
)

// # Credential Repository (PostgreSQL)

// PostgresRepository implements [Repository] against trust.credential
// using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the
// credential Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const credentialColumns = `
	id, service, display_name, encrypted_bundle, probe_url,
	rotation_interval_seconds, last_rotated_at, next_rotation_at,
	expires_at, is_active, last_probe_at, last_probe_status,
	last_probe_latency_ms, created_at, updated_at`

func scanCredential(row pgx.Row) (*Credential, error) {
	record := &Credential{}
	var rotationSeconds int64
	var probeStatus *string

	err := row.Scan(
		&record.ID,
		&record.Service,
		&record.DisplayName,
		&record.EncryptedBundle,
		&record.ProbeURL,
		&rotationSeconds,
		&record.LastRotatedAt,
		&record.NextRotationAt,
		&record.ExpiresAt,
		&record.IsActive,
		&record.LastProbeAt,
		&probeStatus,
		&record.LastProbeLatency,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.RotationInterval = time.Duration(rotationSeconds) * time.Second
	if probeStatus != nil {
		record.LastProbeStatus = *probeStatus
	}
	return record, nil
}

func (repository *PostgresRepository) list(context context.Context, query string) ([]*Credential, error) {
	rows, err := repository.pool.Query(context, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_credentials")
	}
	defer rows.Close()

	records := make([]*Credential, 0, 8)
	for rows.Next() {
		record, err := scanCredential(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "scan_credential")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_credentials")
	}

	return records, nil
}

/*
ListAll returns every credential record ordered by service slug.
*/
func (repository *PostgresRepository) ListAll(context context.Context) ([]*Credential, error) {
	return repository.list(context, `
		SELECT `+credentialColumns+`
		FROM trust.credential
		ORDER BY service`)
}

/*
ListActive returns every record still participating in health
surveillance.
*/
func (repository *PostgresRepository) ListActive(context context.Context) ([]*Credential, error) {
	return repository.list(context, `
		SELECT `+credentialColumns+`
		FROM trust.credential
		WHERE is_active = TRUE
		ORDER BY service`)
}

/*
ListExpiring returns active records carrying an expiry timestamp.
*/
func (repository *PostgresRepository) ListExpiring(context context.Context) ([]*Credential, error) {
	return repository.list(context, `
		SELECT `+credentialColumns+`
		FROM trust.credential
		WHERE is_active = TRUE AND expires_at IS NOT NULL
		ORDER BY expires_at`)
}

/*
FindByService returns the record keyed by service slug.

Returns:
  - *Credential: Hydrated record
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByService(context context.Context, service string) (*Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM trust.credential
		WHERE service = $1`

	record, err := scanCredential(repository.pool.QueryRow(context, query, service))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Credential")
		}
		return nil, dberr.Wrap(err, "get_credential_by_service")
	}

	return record, nil
}

/*
Save upserts a credential record keyed by service slug.

Description: Setup and rotation both land here; the encrypted bundle and
rotation metadata are replaced wholesale, probe fields are preserved.
*/
func (repository *PostgresRepository) Save(context context.Context, credential *Credential) error {
	const query = `
		INSERT INTO trust.credential (
			id, service, display_name, encrypted_bundle, probe_url,
			rotation_interval_seconds, last_rotated_at, next_rotation_at,
			expires_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (service) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			encrypted_bundle = EXCLUDED.encrypted_bundle,
			probe_url = EXCLUDED.probe_url,
			rotation_interval_seconds = EXCLUDED.rotation_interval_seconds,
			last_rotated_at = EXCLUDED.last_rotated_at,
			next_rotation_at = EXCLUDED.next_rotation_at,
			expires_at = EXCLUDED.expires_at,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`

	now := time.Now()
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = now
	}
	credential.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		credential.ID,
		credential.Service,
		credential.DisplayName,
		credential.EncryptedBundle,
		credential.ProbeURL,
		int64(credential.RotationInterval/time.Second),
		credential.LastRotatedAt,
		credential.NextRotationAt,
		credential.ExpiresAt,
		credential.IsActive,
		now,
	)

	if err != nil {
		return dberr.Wrap(err, "save_credential")
	}

	return nil
}

/*
RecordProbe writes one probe outcome onto the row.
*/
func (repository *PostgresRepository) RecordProbe(context context.Context, id, status string, latency time.Duration, at time.Time) error {
	const query = `
		UPDATE trust.credential
		SET last_probe_at = $2,
		    last_probe_status = $3,
		    last_probe_latency_ms = $4,
		    updated_at = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id, at, status, latency.Milliseconds())
	if err != nil {
		return dberr.Wrap(err, "record_credential_probe")
	}

	return nil
}

/*
Deactivate parks a credential whose stored grant is permanently invalid.
*/
func (repository *PostgresRepository) Deactivate(context context.Context, id string) error {
	const query = `
		UPDATE trust.credential
		SET is_active = FALSE, updated_at = $2
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return dberr.Wrap(err, "deactivate_credential")
	}

	return nil
}
