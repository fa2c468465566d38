// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

/*
Package rbac implements role-based authorization for the back-office.

# Architecture

The package has three layers:

  - Catalog: an immutable, process-wide mapping of role → rank and
    role → permission set, constructed once at startup and passed by
    reference. Rank is used only for privilege comparisons; permissions
    come from the explicit per-role grant table, which already encodes
    cumulative capabilities.
  - Store: persistence of user → role assignments.
  - Service: effective-role resolution, permission union, and the
    cross-user query gate, fronted by a TTL cache.

Role and permission lookups never fail for "no assignment" — they return
empty sets. Only infrastructure errors propagate.
*/
package rbac

import "sort"

// Role names recognized by the platform. The catalog is the single
// authority on their ranks and grants.
const (
	RoleSuperAdmin        = "super_admin"
	RoleAdmin             = "admin"
	RoleProductionManager = "production_manager"
	RoleQCInspector       = "qc_inspector"
	RoleOperator          = "operator"
	RoleViewer            = "viewer"
)

// Catalog is the immutable role configuration: rank weights and
// permission grants. Construct it with [NewCatalog] and share the
// pointer freely; no method mutates it after construction.
type Catalog struct {
	ranks       map[string]int
	permissions map[string][]string
}

// NewCatalog builds the platform's role catalog.
//
// # Rank Order
//
// super_admin(100) > admin(80) > production_manager(60) >
// qc_inspector(40) > operator(30) > viewer(10).
//
// Grants are cumulative: every role carries the permissions of all
// lower-ranked roles plus its own additions.
func NewCatalog() *Catalog {
	ranks := map[string]int{
		RoleSuperAdmin:        100,
		RoleAdmin:             80,
		RoleProductionManager: 60,
		RoleQCInspector:       40,
		RoleOperator:          30,
		RoleViewer:            10,
	}

	viewerGrants := []string{
		"production.view",
		"orders.view",
		"reports.view",
	}
	operatorGrants := appendGrants(viewerGrants,
		"production.record",
		"inventory.view",
	)
	inspectorGrants := appendGrants(operatorGrants,
		"qc.view",
		"qc.record",
		"qc.approve",
	)
	managerGrants := appendGrants(inspectorGrants,
		"production.edit",
		"production.schedule",
		"orders.edit",
		"reports.export",
	)
	adminGrants := appendGrants(managerGrants,
		"users.view",
		"users.manage",
		"credentials.view",
		"credentials.rotate",
	)
	superAdminGrants := appendGrants(adminGrants,
		"credentials.manage",
		"system.configure",
	)

	return &Catalog{
		ranks: ranks,
		permissions: map[string][]string{
			RoleViewer:            viewerGrants,
			RoleOperator:          operatorGrants,
			RoleQCInspector:       inspectorGrants,
			RoleProductionManager: managerGrants,
			RoleAdmin:             adminGrants,
			RoleSuperAdmin:        superAdminGrants,
		},
	}
}

// appendGrants copies base and appends extras, so grant slices never
// alias each other.
func appendGrants(base []string, extras ...string) []string {
	grants := make([]string, 0, len(base)+len(extras))
	grants = append(grants, base...)
	grants = append(grants, extras...)
	return grants
}

// Rank returns the integer weight of a role, or 0 for an unknown role.
// Every catalog role has a strictly positive rank.
func (catalog *Catalog) Rank(role string) int {
	return catalog.ranks[role]
}

// Known reports whether role exists in the catalog.
func (catalog *Catalog) Known(role string) bool {
	_, ok := catalog.ranks[role]
	return ok
}

// IsHigherRole reports whether a strictly outranks b.
// Unknown roles rank 0, so no role is higher than itself.
func (catalog *Catalog) IsHigherRole(a, b string) bool {
	return catalog.Rank(a) > catalog.Rank(b)
}

// AtLeast reports whether role holds at least the privilege of target.
// Unknown roles never satisfy any target.
func (catalog *Catalog) AtLeast(role, target string) bool {
	rank := catalog.Rank(role)
	return rank > 0 && rank >= catalog.Rank(target)
}

// HighestRole reduces a role set to its single highest-ranked member.
// The second return value is false for an empty or all-unknown input.
func (catalog *Catalog) HighestRole(roles []string) (string, bool) {
	best := ""
	bestRank := 0
	for _, role := range roles {
		if rank := catalog.Rank(role); rank > bestRank {
			best = role
			bestRank = rank
		}
	}
	return best, best != ""
}

// Permissions returns the grant set of a single role, sorted, or an
// empty slice for an unknown role. The result is a fresh copy.
func (catalog *Catalog) Permissions(role string) []string {
	grants := catalog.permissions[role]
	out := make([]string, len(grants))
	copy(out, grants)
	sort.Strings(out)
	return out
}

// PermissionUnion returns the deduplicated, sorted union of the grant
// sets of every role in roles. Unknown roles contribute nothing.
func (catalog *Catalog) PermissionUnion(roles []string) []string {
	seen := make(map[string]struct{})
	for _, role := range roles {
		for _, permission := range catalog.permissions[role] {
			seen[permission] = struct{}{}
		}
	}

	union := make([]string, 0, len(seen))
	for permission := range seen {
		union = append(union, permission)
	}
	sort.Strings(union)
	return union
}

// Roles returns every catalog role, sorted by descending rank.
func (catalog *Catalog) Roles() []string {
	roles := make([]string, 0, len(catalog.ranks))
	for role := range catalog.ranks {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool {
		return catalog.ranks[roles[i]] > catalog.ranks[roles[j]]
	})
	return roles
}
