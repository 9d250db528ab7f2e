// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
HTTP delivery layer for session lifecycle endpoints.

This layer is strictly responsible for transport concerns (status codes,
headers, JSON). Token resolution lives in [Issuer].
*/
package session

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	requestutil "github.com/taibuivan/facegate/internal/platform/request"
	"github.com/taibuivan/facegate/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements session-related HTTP endpoints.
type Handler struct {
	issuer *Issuer
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(issuer *Issuer) *Handler {
	return &Handler{issuer: issuer}
}

// RegisterRoutes attaches session routes onto the shared API router.
//
// # Endpoints
//   - POST /logout           : Revokes the presented session.
//   - GET  /validate-session : Resolves the presented session to its account.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/logout", handler.logout)
	router.Get("/validate-session", handler.validateSession)
}

// # Response Payloads

type validateResponse struct {
	Valid bool          `json:"valid"`
	User  *sessionOwner `json:"user,omitempty"`
}

type sessionOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

/*
Logout revokes the presented bearer session.

POST /api/logout

Description: Idempotent revocation. A missing or already-revoked token still
yields 200 so clients can always clear local state.

Request:
  - Header: Authorization: Bearer <token>

Response:
  - 200: Confirmation message
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {

	token := requestutil.BearerToken(request)
	if token == "" {
		// Nothing to revoke; logout is still a success.
		respond.OK(writer, map[string]string{"message": "Logged out"})
		return
	}

	if err := handler.issuer.Revoke(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Logged out"})
}

/*
ValidateSession resolves the presented bearer token to its account.

GET /api/validate-session

Description: Used by clients to restore UI state after a reload. An invalid
or expired token yields 401.

Request:
  - Header: Authorization: Bearer <token>

Response:
  - 200: validateResponse with the session owner
  - 401: ErrUnauthorized: Missing, unknown, or expired token
*/
func (handler *Handler) validateSession(writer http.ResponseWriter, request *http.Request) {

	token := requestutil.BearerToken(request)
	if token == "" {
		respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
		return
	}

	entry, err := handler.issuer.Validate(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, validateResponse{
		Valid: true,
		User: &sessionOwner{
			Name:  entry.Name,
			Email: entry.Email,
		},
	})
}
