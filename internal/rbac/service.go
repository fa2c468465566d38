// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import (
	"context"
	"log/slog"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
)

// # Service

// Service resolves effective roles and permissions for users, fronted by
// a TTL cache, and enforces the cross-user query gate.
//
// # Review Process
//
// This service is critical for security. Any changes to the resolution or
// gating logic must be reviewed by the security team.
type Service struct {
	catalog     *Catalog
	assignments AssignmentRepository
	cache       Cache
	logger      *slog.Logger
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(catalog *Catalog, assignments AssignmentRepository, cache Cache, logger *slog.Logger) *Service {
	return &Service{
		catalog:     catalog,
		assignments: assignments,
		cache:       cache,
		logger:      logger,
	}
}

// Catalog exposes the immutable role catalog for collaborators that only
// need rank comparisons.
func (service *Service) Catalog() *Catalog {
	return service.catalog
}

// AtLeast reports whether role holds at least the privilege of target.
// Satisfies the authorization middleware's ranker contract.
func (service *Service) AtLeast(role, target string) bool {
	return service.catalog.AtLeast(role, target)
}

// # Resolution

/*
EffectiveRoles returns the deduplicated set of roles held by a user.

Description: Reads through the cache; on a miss, fetches the user's direct
assignments from the store, drops any role unknown to the catalog, and
repopulates the cache. A user with no assignments yields an empty set,
never an error — callers must treat empty as "no access", not
"unauthenticated".

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - []string: Effective role names (empty when none)
  - error: Store failures only
*/
func (service *Service) EffectiveRoles(ctx context.Context, userID string) ([]string, error) {

	// ── 1. Cache Read ─────────────────────────────────────────────────────
	if cached, hit, err := service.cache.Get(ctx, userID); err == nil && hit {
		return cached, nil
	} else if err != nil {
		// Cache trouble degrades to a store read, it never blocks resolution.
		service.logger.WarnContext(ctx, "rbac_cache_read_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	// ── 2. Store Fetch ────────────────────────────────────────────────────
	assigned, err := service.assignments.RolesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(assigned))
	seen := make(map[string]struct{}, len(assigned))
	for _, role := range assigned {
		if !service.catalog.Known(role) {
			service.logger.WarnContext(ctx, "rbac_unknown_role_skipped",
				slog.String("user_id", userID),
				slog.String("role", role),
			)
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}

	// ── 3. Cache Fill ─────────────────────────────────────────────────────
	if err := service.cache.Set(ctx, userID, roles); err != nil {
		service.logger.WarnContext(ctx, "rbac_cache_write_failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	return roles, nil
}

/*
UserPermissions returns the union of permission sets of every effective
role of a user.

Description: Deterministic and order-independent; the result is sorted so
two calls with the same role set compare equal.

Parameters:
  - ctx: context.Context
  - userID: string

Returns:
  - []string: Permission names (empty when the user holds no roles)
  - error: Store failures only
*/
func (service *Service) UserPermissions(ctx context.Context, userID string) ([]string, error) {
	roles, err := service.EffectiveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	return service.catalog.PermissionUnion(roles), nil
}

/*
HighestRole returns the single highest-ranked role a user holds.

Returns:
  - string: Role name, "" when the user holds no roles
  - error: Store failures only
*/
func (service *Service) HighestRole(ctx context.Context, userID string) (string, error) {
	roles, err := service.EffectiveRoles(ctx, userID)
	if err != nil {
		return "", err
	}
	highest, _ := service.catalog.HighestRole(roles)
	return highest, nil
}

// InvalidateUser drops the cached role set for a user. Must be called on
// every assignment change to bound stale privilege to the cache TTL.
func (service *Service) InvalidateUser(ctx context.Context, userID string) error {
	return service.cache.Invalidate(ctx, userID)
}

// # Assignment Mutation

/*
GrantRole assigns a role to a user and invalidates their cache entry.

Returns:
  - error: apperr.ValidationError for a role unknown to the catalog,
    otherwise store failures
*/
func (service *Service) GrantRole(ctx context.Context, userID, role string) error {
	if !service.catalog.Known(role) {
		return apperr.ValidationError("Unknown role: " + role)
	}

	if err := service.assignments.Assign(ctx, userID, role); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "rbac_role_granted",
		slog.String("user_id", userID),
		slog.String("role", role),
	)

	return service.cache.Invalidate(ctx, userID)
}

/*
RevokeRole removes a role from a user and invalidates their cache entry.
*/
func (service *Service) RevokeRole(ctx context.Context, userID, role string) error {
	if err := service.assignments.Unassign(ctx, userID, role); err != nil {
		return err
	}

	service.logger.InfoContext(ctx, "rbac_role_revoked",
		slog.String("user_id", userID),
		slog.String("role", role),
	)

	return service.cache.Invalidate(ctx, userID)
}

// # Query Gate

/*
AuthorizeQuery decides whether a caller may inspect the roles or
permissions of targetUserID.

Description: Self-query always succeeds regardless of rank. Cross-user
query requires the caller to hold at least admin rank.

Parameters:
  - callerUserID: string (authenticated principal)
  - callerRole: string (principal's role claim)
  - targetUserID: string

Returns:
  - error: apperr.Forbidden when the rank gate fails, nil otherwise
*/
func (service *Service) AuthorizeQuery(callerUserID, callerRole, targetUserID string) error {
	if callerUserID == targetUserID {
		return nil
	}

	if !service.catalog.AtLeast(callerRole, RoleAdmin) {
		return apperr.Forbidden("Insufficient privilege to query another user's access")
	}

	return nil
}
