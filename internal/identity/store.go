// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package identity

import "context"

// # User Data Access

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		UpdateStatus transitions an account to a new status.

		Parameters:
		  - context: context.Context
		  - id: string
		  - status: string (one of the Status* constants)

		Returns:
		  - error: apperr.NotFound or database write failures
	*/
	UpdateStatus(context context.Context, id, status string) error
}
