// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/rbac"
)

// fakeAssignments is an in-memory AssignmentRepository.
type fakeAssignments struct {
	roles    map[string][]string
	failWith error
	reads    int
}

func (fake *fakeAssignments) RolesForUser(_ context.Context, userID string) ([]string, error) {
	fake.reads++
	if fake.failWith != nil {
		return nil, fake.failWith
	}
	return fake.roles[userID], nil
}

func (fake *fakeAssignments) Assign(_ context.Context, userID, role string) error {
	if fake.failWith != nil {
		return fake.failWith
	}
	for _, held := range fake.roles[userID] {
		if held == role {
			return nil
		}
	}
	fake.roles[userID] = append(fake.roles[userID], role)
	return nil
}

func (fake *fakeAssignments) Unassign(_ context.Context, userID, role string) error {
	kept := fake.roles[userID][:0]
	for _, held := range fake.roles[userID] {
		if held != role {
			kept = append(kept, held)
		}
	}
	fake.roles[userID] = kept
	return nil
}

func newTestService(assignments *fakeAssignments) *rbac.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rbac.NewService(rbac.NewCatalog(), assignments, rbac.NewMemoryCache(5*time.Minute), logger)
}

/*
TestService_EffectiveRoles covers resolution basics: direct assignments
come back deduplicated, unknown roles are dropped, and a user with no
assignments yields an empty set rather than an error.
*/
func TestService_EffectiveRoles(t *testing.T) {
	assignments := &fakeAssignments{roles: map[string][]string{
		"user-1": {rbac.RoleOperator, rbac.RoleQCInspector, rbac.RoleOperator},
		"user-2": {"ghost_role"},
	}}
	service := newTestService(assignments)
	ctx := context.Background()

	// 1. Deduplicated direct assignments.
	roles, err := service.EffectiveRoles(ctx, "user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rbac.RoleOperator, rbac.RoleQCInspector}, roles)

	// 2. Unknown roles are silently dropped.
	roles, err = service.EffectiveRoles(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, roles)

	// 3. No assignments is empty, not an error.
	roles, err = service.EffectiveRoles(ctx, "user-without-roles")
	require.NoError(t, err)
	assert.Empty(t, roles)
}

/*
TestService_EffectiveRoles_Caching verifies the read-through cache: the
second resolution for the same user must not touch the store, and
invalidation forces a re-read.
*/
func TestService_EffectiveRoles_Caching(t *testing.T) {
	assignments := &fakeAssignments{roles: map[string][]string{
		"user-1": {rbac.RoleViewer},
	}}
	service := newTestService(assignments)
	ctx := context.Background()

	_, err := service.EffectiveRoles(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, assignments.reads)

	_, err = service.EffectiveRoles(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, assignments.reads, "second read must be served from cache")

	require.NoError(t, service.InvalidateUser(ctx, "user-1"))

	_, err = service.EffectiveRoles(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, assignments.reads, "invalidation must force a store read")
}

/*
TestService_UserPermissions checks the permission union and its
monotonicity under role grants.
*/
func TestService_UserPermissions(t *testing.T) {
	assignments := &fakeAssignments{roles: map[string][]string{
		"user-1": {rbac.RoleViewer},
	}}
	service := newTestService(assignments)
	ctx := context.Background()

	before, err := service.UserPermissions(ctx, "user-1")
	require.NoError(t, err)
	assert.Contains(t, before, "production.view")
	assert.NotContains(t, before, "qc.approve")

	// Granting a role never shrinks the permission set.
	require.NoError(t, service.GrantRole(ctx, "user-1", rbac.RoleQCInspector))

	after, err := service.UserPermissions(ctx, "user-1")
	require.NoError(t, err)
	assert.Subset(t, after, before)
	assert.Contains(t, after, "qc.approve")
}

/*
TestService_GrantRole_UnknownRole rejects grants outside the catalog.
*/
func TestService_GrantRole_UnknownRole(t *testing.T) {
	service := newTestService(&fakeAssignments{roles: map[string][]string{}})

	err := service.GrantRole(context.Background(), "user-1", "ghost_role")
	require.Error(t, err)
	assert.True(t, apperr.IsCode(err, "VALIDATION_ERROR"))
}

/*
TestService_StoreFailure propagates infrastructure errors instead of
masking them as empty sets.
*/
func TestService_StoreFailure(t *testing.T) {
	assignments := &fakeAssignments{failWith: errors.New("connection refused")}
	service := newTestService(assignments)

	_, err := service.EffectiveRoles(context.Background(), "user-1")
	require.Error(t, err)

	_, err = service.UserPermissions(context.Background(), "user-1")
	require.Error(t, err)
}

/*
TestService_AuthorizeQuery exercises the cross-user gate: self-query is
always allowed, cross-user requires admin rank or better.
*/
func TestService_AuthorizeQuery(t *testing.T) {
	service := newTestService(&fakeAssignments{roles: map[string][]string{}})

	tests := []struct {
		name      string
		caller    string
		role      string
		target    string
		forbidden bool
	}{
		{"self_query_any_rank", "user-1", rbac.RoleViewer, "user-1", false},
		{"self_query_no_role", "user-1", "", "user-1", false},
		{"cross_query_admin", "user-1", rbac.RoleAdmin, "user-2", false},
		{"cross_query_super_admin", "user-1", rbac.RoleSuperAdmin, "user-2", false},
		{"cross_query_manager", "user-1", rbac.RoleProductionManager, "user-2", true},
		{"cross_query_viewer", "user-1", rbac.RoleViewer, "user-2", true},
		{"cross_query_unknown_role", "user-1", "ghost", "user-2", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.AuthorizeQuery(tt.caller, tt.role, tt.target)
			if tt.forbidden {
				require.Error(t, err)
				assert.True(t, apperr.IsCode(err, "FORBIDDEN"))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
