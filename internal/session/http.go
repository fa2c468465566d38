// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fabrika-platform/fabrika/internal/platform/apperr"
	"github.com/fabrika-platform/fabrika/internal/platform/middleware"
	requestutil "github.com/fabrika-platform/fabrika/internal/platform/request"
	"github.com/fabrika-platform/fabrika/internal/platform/respond"
	"github.com/fabrika-platform/fabrika/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the session lifecycle HTTP endpoints.
type Handler struct {
	sessionService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{sessionService: service}
}

// Routes returns a [chi.Router] configured with session routes.
//
// # Endpoints
//   - POST /login   : Opens a session, returns a token pair.
//   - POST /refresh : Exchanges a refresh token for a rotated pair.
//   - POST /logout  : Revokes the caller's session.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

/*
Login authenticates a user and opens a session.

POST /api/v1/auth/login

Description: Verifies credentials, persists a session row, and returns
the access/refresh token pair alongside the public profile.

Request:
  - Body: loginRequest (Email, Password)

Response:
  - 200: {access_token, refresh_token, user}
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 401: ErrUnauthorized: Invalid credentials or inactive account
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.sessionService.Login(request.Context(), LoginInput{
		Email:     input.Email,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
		IPAddress: getClientIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"user":          result.User,
	})
}

/*
Refresh exchanges a refresh token for a new access token.

POST /api/v1/auth/refresh

Description: Validates the refresh credential and rotates it on the same
session row. The previous refresh token is dead after this call.

Request:
  - Body: refreshRequest (RefreshToken)

Response:
  - 200: {access_token, refresh_token, user: {id, email, full_name, role, avatar}}
  - 400: ErrValidation: Refresh token required
  - 401: ErrUnauthorized: Invalid/expired token or user not authorized
  - 500: ErrInternal: Token refresh failed
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.RefreshToken == "" {
		respond.Error(writer, request, apperr.ValidationError("Refresh token required"))
		return
	}

	result, err := handler.sessionService.Refresh(
		request.Context(),
		input.RefreshToken,
		request.UserAgent(),
		getClientIP(request),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"user":          result.User,
	})
}

/*
Logout revokes the caller's session.

POST /api/v1/auth/logout

Description: Marks the session behind the presented access token revoked
with the explicit-logout reason. Idempotent.

Response:
  - 204: No Content: Session terminated
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.sessionService.Logout(request.Context(), claims.SessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// getClientIP tries to extract the real IP address of a user over proxy environments.
func getClientIP(request *http.Request) string {

	ip := request.Header.Get("X-Real-IP")
	if ip == "" {
		ip = request.Header.Get("X-Forwarded-For")
	}

	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}
