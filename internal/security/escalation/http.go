// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
HTTP delivery layer for the login gate.

The login response is the one place the API speaks the escalation protocol
to clients: the require_face flag tells the client to open the camera for
the next attempt, attempts_remaining drives its warning banner, and the
locked payload carries the retry horizon. Everything else is transport.
*/
package escalation

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/platform/middleware"
	requestutil "github.com/taibuivan/facegate/internal/platform/request"
	"github.com/taibuivan/facegate/internal/platform/respond"
	"github.com/taibuivan/facegate/internal/platform/validate"
	"github.com/taibuivan/facegate/internal/users/identity"
	"github.com/taibuivan/facegate/internal/users/session"
)

// # Definitions & Constructors

// Handler implements the login gate HTTP endpoints.
type Handler struct {
	policy *Policy
	issuer *session.Issuer
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(policy *Policy, issuer *session.Issuer) *Handler {
	return &Handler{policy: policy, issuer: issuer}
}

// RegisterRoutes attaches gate routes onto the shared API router.
//
// # Endpoints
//   - POST /login   : Runs one attempt through the escalation policy.
//   - GET  /posture : Reports the current posture for an email (advisory).
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/login", handler.login)
	router.Get("/posture", handler.posture)
}

// # Request & Response Payloads

type loginRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FaceImage string  `json:"face_image,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

type loginSuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *loginOwner `json:"user"`
}

type loginOwner struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginFailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
	// Attempts is the windowed failure total including this attempt;
	// MaxAttempts is the lock threshold it is counting toward.
	Attempts          int  `json:"attempts"`
	MaxAttempts       int  `json:"max_attempts"`
	RequireFace       bool `json:"require_face"`
	AttemptsRemaining int  `json:"attempts_remaining"`
}

type loginLockedResponse struct {
	Success           bool      `json:"success"`
	Message           string    `json:"message"`
	Code              string    `json:"code"`
	LockedUntil       time.Time `json:"locked_until"`
	RetryAfterSeconds int       `json:"retry_after_seconds"`
}

type postureResponse struct {
	Success           bool       `json:"success"`
	State             State      `json:"state"`
	RequireFace       bool       `json:"require_face"`
	AttemptsRemaining int        `json:"attempts_remaining"`
	LockedUntil       *time.Time `json:"locked_until,omitempty"`
}

/*
Login runs one attempt through the escalation policy.

POST /api/login

Description: Validates the payload, evaluates the attempt, and on success
issues a bearer session. Unknown emails and wrong passwords produce
byte-identical failure responses.

Request:
  - Body: loginRequest (Name, Email, Password, FaceImage?)

Response:
  - 200: loginSuccessResponse with the session token
  - 401: loginFailureResponse with escalation flags
  - 403: loginLockedResponse while a lockout is active
  - 400: ErrInvalidJSON: Bad input or validation failure
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(identity.FieldName, input.Name).
		Required(identity.FieldEmail, input.Email).
		Required(identity.FieldPassword, input.Password)
	if input.FaceImage != "" {
		validator.Base64Image(identity.FieldFaceImage, input.FaceImage)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.policy.Evaluate(request.Context(), AttemptInput{
		Email:     input.Email,
		Name:      input.Name,
		Password:  input.Password,
		FaceImage: input.FaceImage,
		IPAddress: middleware.RealIP(request),
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	})
	if err != nil {
		respond.Error(writer, request, apperr.Storage(err))
		return
	}

	switch {
	case outcome.State == StateLocked:
		handler.writeLocked(writer, outcome)

	case outcome.Identity != nil:
		handler.writeSuccess(writer, request, outcome)

	default:
		handler.writeFailure(writer, outcome)
	}
}

// writeSuccess issues the session and writes the 200 payload.
func (handler *Handler) writeSuccess(writer http.ResponseWriter, request *http.Request, outcome *Outcome) {

	token, _, err := handler.issuer.Issue(request.Context(), session.IssueInput{
		IdentityID: outcome.Identity.ID,
		Email:      outcome.Identity.Email,
		Name:       outcome.Identity.Name,
	})
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	respond.JSON(writer, http.StatusOK, loginSuccessResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User: &loginOwner{
			Name:  outcome.Identity.Name,
			Email: outcome.Identity.Email,
		},
	})
}

// writeFailure writes the 401 payload with escalation flags.
func (handler *Handler) writeFailure(writer http.ResponseWriter, outcome *Outcome) {

	message := "Invalid credentials"
	if outcome.FaceRequired {
		message = "Invalid credentials. Face verification is required for further attempts."
	}

	respond.JSON(writer, http.StatusUnauthorized, loginFailureResponse{
		Success:           false,
		Message:           message,
		Code:              "UNAUTHORIZED",
		Attempts:          outcome.FailureCount,
		MaxAttempts:       outcome.FailureCount + outcome.AttemptsRemaining,
		RequireFace:       outcome.FaceRequired,
		AttemptsRemaining: outcome.AttemptsRemaining,
	})
}

// writeLocked writes the 403 payload with the retry horizon.
func (handler *Handler) writeLocked(writer http.ResponseWriter, outcome *Outcome) {

	retryAfter := int(time.Until(outcome.LockedUntil).Seconds())
	if retryAfter < 0 {
		retryAfter = 0
	}

	respond.JSON(writer, http.StatusForbidden, loginLockedResponse{
		Success:           false,
		Message:           "Account temporarily locked due to repeated failed attempts",
		Code:              "LOCKED",
		LockedUntil:       outcome.LockedUntil,
		RetryAfterSeconds: retryAfter,
	})
}

/*
Posture reports the current escalation posture for an email.

GET /api/posture?email=...

Description: Advisory pre-flight so clients know whether to open the camera
before submitting. Answers identically for known and unknown emails.

Request:
  - Query: email (required)

Response:
  - 200: postureResponse
  - 400: ErrValidation: Missing email parameter
*/
func (handler *Handler) posture(writer http.ResponseWriter, request *http.Request) {

	email := request.URL.Query().Get(identity.FieldEmail)
	if email == "" {
		respond.Error(writer, request, validate.RequiredError(identity.FieldEmail, "This field is required"))
		return
	}

	outcome, err := handler.policy.Posture(request.Context(), email)
	if err != nil {
		respond.Error(writer, request, apperr.Storage(err))
		return
	}

	response := postureResponse{
		Success:           true,
		State:             outcome.State,
		RequireFace:       outcome.FaceRequired,
		AttemptsRemaining: outcome.AttemptsRemaining,
	}
	if outcome.State == StateLocked {
		lockedUntil := outcome.LockedUntil
		response.LockedUntil = &lockedUntil
		response.AttemptsRemaining = 0
	}

	respond.JSON(writer, http.StatusOK, response)
}
