// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package credential

import (
	"context"
	"time"
)

// # Credential Data Access

// Repository defines the data access contract for credential records.
type Repository interface {

	/*
		ListAll returns every credential record, active or not, ordered
		by service name.

		Returns:
		  - []*Credential: All records (empty when none)
		  - error: Database retrieval failures
	*/
	ListAll(context context.Context) ([]*Credential, error)

	/*
		ListActive returns every record with is_active = true.

		Returns:
		  - []*Credential: Active records (empty when none)
		  - error: Database retrieval failures
	*/
	ListActive(context context.Context) ([]*Credential, error)

	/*
		ListExpiring returns active records that carry an expiry
		timestamp, for the daily threshold scan.

		Returns:
		  - []*Credential: Active records with expires_at set
		  - error: Database retrieval failures
	*/
	ListExpiring(context context.Context) ([]*Credential, error)

	/*
		FindByService returns the record keyed by service slug.

		Returns:
		  - *Credential: Hydrated record
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByService(context context.Context, service string) (*Credential, error)

	/*
		Save upserts a credential record keyed by service slug,
		replacing the encrypted bundle and rotation metadata.

		Returns:
		  - error: Database write failures
	*/
	Save(context context.Context, credential *Credential) error

	/*
		RecordProbe writes the outcome of one health probe onto the row.

		Parameters:
		  - id: string
		  - status: string (ProbeStatusHealthy / ProbeStatusUnhealthy)
		  - latency: time.Duration
		  - at: time.Time

		Returns:
		  - error: Database write failures
	*/
	RecordProbe(context context.Context, id, status string, latency time.Duration, at time.Time) error

	/*
		Deactivate clears is_active on a record. Used when the upstream
		provider permanently rejects the stored grant; retrying cannot
		succeed, so the record is parked rather than deleted.

		Returns:
		  - error: Database write failures
	*/
	Deactivate(context context.Context, id string) error
}
