// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/fabrika-platform/fabrika/internal/platform/request"
	"github.com/fabrika-platform/fabrika/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the role and permission query endpoints.
type Handler struct {
	rbacService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{rbacService: service}
}

// Routes returns a [chi.Router] configured with RBAC query routes.
//
// # Endpoints
//   - GET /roles       : Effective roles of self or ?user_id= target.
//   - GET /permissions : Derived permissions of self or ?user_id= target.
//
// Both routes assume the authentication middleware already ran; an
// unauthenticated request is rejected with 401 here regardless.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/roles", handler.queryRoles)
	router.Get("/permissions", handler.queryPermissions)

	return router
}

// resolveTarget picks the query target: the explicit ?user_id= parameter
// when present, the caller itself otherwise. The rank gate runs in the
// service.
func resolveTarget(request *http.Request, callerUserID string) string {
	if target := request.URL.Query().Get("user_id"); target != "" {
		return target
	}
	return callerUserID
}

/*
QueryRoles returns the effective role set of a user.

GET /api/v1/rbac/roles?user_id={optional}

Description: Without user_id, returns the caller's own roles. With
user_id, the caller must hold at least admin rank to inspect another
identity.

Response:
  - 200: {user_id, roles, count}
  - 401: ErrUnauthorized: Caller unauthenticated
  - 403: ErrForbidden: Cross-user query without sufficient rank
*/
func (handler *Handler) queryRoles(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetUserID := resolveTarget(request, claims.UserID)
	if err := handler.rbacService.AuthorizeQuery(claims.UserID, claims.Role, targetUserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	roles, err := handler.rbacService.EffectiveRoles(request.Context(), targetUserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"user_id": targetUserID,
		"roles":   roles,
		"count":   len(roles),
	})
}

/*
QueryPermissions returns the derived permission set of a user.

GET /api/v1/rbac/permissions?user_id={optional}

Description: The permission set is the union of grants of every
effective role; it is sorted and deduplicated. Gating is identical to
the roles query.

Response:
  - 200: {user_id, permissions, count}
  - 401: ErrUnauthorized: Caller unauthenticated
  - 403: ErrForbidden: Cross-user query without sufficient rank
*/
func (handler *Handler) queryPermissions(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetUserID := resolveTarget(request, claims.UserID)
	if err := handler.rbacService.AuthorizeQuery(claims.UserID, claims.Role, targetUserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	permissions, err := handler.rbacService.UserPermissions(request.Context(), targetUserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"user_id":     targetUserID,
		"permissions": permissions,
		"count":       len(permissions),
	})
}
