// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import "context"

// # Role Assignment Data Access

// AssignmentRepository defines the data access contract for user → role
// assignments.
type AssignmentRepository interface {

	/*
		RolesForUser returns every role assigned to the given user.

		An unknown user or a user with no assignments yields an empty
		slice, never an error.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []string: Assigned role names
		  - error: Database retrieval failures
	*/
	RolesForUser(context context.Context, userID string) ([]string, error)

	/*
		Assign grants a role to a user. Re-assigning an already held
		role is a no-op, not an error.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: string

		Returns:
		  - error: Database write failures
	*/
	Assign(context context.Context, userID, role string) error

	/*
		Unassign removes a role from a user. Removing a role the user
		does not hold is a no-op.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - role: string

		Returns:
		  - error: Database write failures
	*/
	Unassign(context context.Context, userID, role string) error
}
