// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabrika-platform/fabrika/internal/platform/dberr"
)

// # Role Assignment Repository (PostgreSQL)

// PostgresAssignmentRepository implements [AssignmentRepository] against
// the trust.role_assignment table using pgx.
type PostgresAssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new PostgreSQL implementation of the
// AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *PostgresAssignmentRepository {
	return &PostgresAssignmentRepository{pool: pool}
}

/*
RolesForUser returns every role assigned to the given user.

Description: Reads the assignment rows for the user; no join against the
role catalog is needed since the catalog is in-process configuration.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []string: Assigned role names (empty when none)
  - error: Database retrieval failures
*/
func (repository *PostgresAssignmentRepository) RolesForUser(context context.Context, userID string) ([]string, error) {
	const query = `
		SELECT role
		FROM trust.role_assignment
		WHERE user_id = $1
		ORDER BY role`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_role_assignments")
	}
	defer rows.Close()

	roles := make([]string, 0, 4)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, dberr.Wrap(err, "scan_role_assignment")
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate_role_assignments")
	}

	return roles, nil
}

/*
Assign grants a role to a user.

Description: Uses an upsert on the (user_id, role) primary key so that
repeated grants converge without constraint violations.

Parameters:
  - context: context.Context
  - userID: string
  - role: string

Returns:
  - error: Database write failures
*/
func (repository *PostgresAssignmentRepository) Assign(context context.Context, userID, role string) error {
	const query = `
		INSERT INTO trust.role_assignment (user_id, role, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role) DO NOTHING`

	_, err := repository.pool.Exec(context, query, userID, role, time.Now())
	if err != nil {
		return dberr.Wrap(err, "assign_role")
	}

	return nil
}

/*
Unassign removes a role from a user.

Parameters:
  - context: context.Context
  - userID: string
  - role: string

Returns:
  - error: Database write failures
*/
func (repository *PostgresAssignmentRepository) Unassign(context context.Context, userID, role string) error {
	const query = `
		DELETE FROM trust.role_assignment
		WHERE user_id = $1 AND role = $2`

	_, err := repository.pool.Exec(context, query, userID, role)
	if err != nil {
		return dberr.Wrap(err, "unassign_role")
	}

	return nil
}
