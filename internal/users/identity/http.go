// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
HTTP delivery layer for account enrollment.

# Architecture

The handler acts as a thin mediation layer between the web and domain services:
  - Protocol: Standard RESTful JSON interface.
  - Verification: Enforces strict input validation before passing to [Service].

This layer is strictly responsible for transport concerns (status codes, headers, JSON).
*/
package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/facegate/internal/platform/request"
	"github.com/taibuivan/facegate/internal/platform/respond"
	"github.com/taibuivan/facegate/internal/platform/validate"
	"github.com/taibuivan/facegate/internal/users/session"
)

// # Definitions & Constructors

// Handler implements enrollment-related HTTP endpoints.
type Handler struct {
	identityService *Service
	issuer          *session.Issuer
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, issuer *session.Issuer) *Handler {
	return &Handler{identityService: service, issuer: issuer}
}

// RegisterRoutes attaches enrollment routes onto the shared API router.
//
// # Endpoints
//   - POST /register : Creates a new account (optionally enrolling a face template).
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/register", handler.register)
}

// # Request Payloads

type registerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FaceImage string `json:"face_image,omitempty"`
}

type registerResponse struct {
	User *Identity `json:"user"`
	// Token is a session issued at enrollment so clients skip the first login.
	Token string `json:"token"`
}

/*
Register handles the creation of a new account.

POST /api/register

Description: Validates input, checks for email conflicts, hashes the password,
and optionally extracts and stores the authorized face template.

Request:
  - Body: registerRequest (Name, Email, Password, FaceImage?)

Response:
  - 201: registerResponse: Created account profile plus a session token
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email already registered
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	// Field-level validation happens in the service, which also canonicalizes
	// the email before the uniqueness check.
	identity, err := handler.identityService.Register(request.Context(), RegisterInput{
		Name:      input.Name,
		Email:     input.Email,
		Password:  input.Password,
		FaceImage: input.FaceImage,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, _, err := handler.issuer.Issue(request.Context(), session.IssueInput{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Name:       identity.Name,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, registerResponse{User: identity, Token: token})
}
