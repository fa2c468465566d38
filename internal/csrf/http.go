// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package csrf

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/platform/constants"
	requestutil "github.com/fabrika-platform/fabrika/internal/platform/request"
	"github.com/fabrika-platform/fabrika/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the CSRF token issuance endpoint.
type Handler struct {
	guard *Guard
}

// NewHandler constructs a new [Handler] with its guard dependency.
func NewHandler(guard *Guard) *Handler {
	return &Handler{guard: guard}
}

// Routes returns a [chi.Router] configured with CSRF routes.
//
// # Endpoints
//   - GET /token : Issues a fresh CSRF token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/token", handler.issueToken)

	return router
}

/*
IssueToken hands the client a fresh CSRF token.

GET /api/v1/csrf/token

Description: Generates a new token and, for authenticated callers, binds it
to their session so later verification can demand exact equality. The
response carries cache-disabling headers so no intermediary ever replays a
token to a second client.

Response:
  - 200: {csrf_token}: Freshly issued token
  - 500: ErrInternal: Secure randomness or binding store unavailable
*/
func (handler *Handler) issueToken(writer http.ResponseWriter, request *http.Request) {
	sessionID := ""
	if claims := requestutil.Claims(request); claims != nil {
		sessionID = claims.SessionID
	}

	token, err := handler.guard.Issue(request.Context(), sessionID)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.NoStore(writer, map[string]string{
		"csrf_token": token,
	})
}

// # Middleware

/*
Protect returns HTTP middleware enforcing CSRF verification on every
state-changing request that passes through it.

Safe methods flow through untouched. Unsafe methods must carry a valid
X-CSRF-Token header per [Guard.Check]; failures receive 403 with a stable
error code and the request never reaches the inner handler.
*/
func Protect(guard *Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if isSafeMethod(request.Method) {
				next.ServeHTTP(writer, request)
				return
			}

			sessionID := ""
			if claims := requestutil.Claims(request); claims != nil {
				sessionID = claims.SessionID
			}

			headerToken := request.Header.Get(constants.HeaderCSRFToken)

			passed, err := guard.Check(request.Context(), request.Method, headerToken, sessionID)
			if err != nil {
				respond.Error(writer, request, apperr.Internal(err))
				return
			}
			if !passed {
				respond.Error(writer, request, apperr.Forbidden("CSRF token missing or invalid"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
