// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package admin exposes the operator surface of the gate.

It is read-mostly: paginated views over the attempt ledger, the lockout
registry, and alert history, plus the single mutating action an operator
has — lifting a lockout early. All routes require an authenticated session.
*/
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/facegate/internal/platform/middleware"
	requestutil "github.com/taibuivan/facegate/internal/platform/request"
	"github.com/taibuivan/facegate/internal/platform/respond"
	"github.com/taibuivan/facegate/internal/platform/validate"
	"github.com/taibuivan/facegate/internal/security/alert"
	"github.com/taibuivan/facegate/internal/security/attempt"
	"github.com/taibuivan/facegate/internal/security/lockout"
	"github.com/taibuivan/facegate/pkg/normalize"
	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the operator HTTP endpoints.
type Handler struct {
	ledger   attempt.Ledger
	registry lockout.Registry
	alerts   alert.Repository
}

// NewHandler constructs a new [Handler] with its storage dependencies.
func NewHandler(ledger attempt.Ledger, registry lockout.Registry, alerts alert.Repository) *Handler {
	return &Handler{
		ledger:   ledger,
		registry: registry,
		alerts:   alerts,
	}
}

// Routes returns a [chi.Router] with all operator routes, session-protected.
//
// # Endpoints
//   - GET  /login-attempts : Paginated attempt ledger (optional ?email= filter).
//   - GET  /lockouts       : Paginated lockout history.
//   - GET  /alerts         : Paginated unresolved alerts (?all=true for history).
//   - POST /alerts/resolve : Marks an alert as handled.
//   - POST /unlock         : Lifts the active lockout for an email.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)

	router.Get("/login-attempts", handler.listAttempts)
	router.Get("/lockouts", handler.listLockouts)
	router.Get("/alerts", handler.listAlerts)
	router.Post("/alerts/resolve", handler.resolveAlert)
	router.Post("/unlock", handler.unlock)

	return router
}

// # Request Payloads

type unlockRequest struct {
	Email string `json:"email"`
}

type resolveAlertRequest struct {
	ID string `json:"id"`
}

/*
ListAttempts returns a page of the attempt ledger, newest first.

GET /api/admin/login-attempts?page=&limit=&email=

Response:
  - 200: Paginated []attempt.Record
*/
func (handler *Handler) listAttempts(writer http.ResponseWriter, request *http.Request) {

	params := pagination.FromRequest(request)
	email := ""
	if raw := request.URL.Query().Get("email"); raw != "" {
		email = normalize.Email(raw)
	}

	records, total, err := handler.ledger.List(request.Context(), email, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, records, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
ListLockouts returns a page of lockout history, newest first.

GET /api/admin/lockouts?page=&limit=

Response:
  - 200: Paginated []lockout.Lockout
*/
func (handler *Handler) listLockouts(writer http.ResponseWriter, request *http.Request) {

	params := pagination.FromRequest(request)

	lockouts, total, err := handler.registry.List(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, lockouts, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
ListAlerts returns a page of unresolved alerts, newest first.

GET /api/admin/alerts?page=&limit=&all=

Description: Unresolved alerts are the operator's work queue; pass all=true
to include resolved history.

Response:
  - 200: Paginated []alert.Alert
*/
func (handler *Handler) listAlerts(writer http.ResponseWriter, request *http.Request) {

	params := pagination.FromRequest(request)
	onlyUnresolved := request.URL.Query().Get("all") != "true"

	alerts, total, err := handler.alerts.List(request.Context(), onlyUnresolved, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, alerts, pagination.NewMeta(params.Page, params.Limit, total))
}

/*
ResolveAlert marks an alert as handled by the operator.

POST /api/admin/alerts/resolve

Description: Idempotent; resolving an already resolved alert still yields 200.

Request:
  - Body: resolveAlertRequest (ID)

Response:
  - 200: Confirmation message
  - 400: ErrValidation: Missing id
*/
func (handler *Handler) resolveAlert(writer http.ResponseWriter, request *http.Request) {
	var input resolveAlertRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.ID == "" {
		respond.Error(writer, request, validate.RequiredError("id", "This field is required"))
		return
	}

	if err := handler.alerts.Resolve(request.Context(), input.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Alert resolved"})
}

/*
Unlock lifts the active lockout for an email.

POST /api/admin/unlock

Description: Idempotent operator action; unlocking an unlocked account
still yields 200. The failure window is untouched, so the next failure can
re-lock immediately if the attack is ongoing.

Request:
  - Body: unlockRequest (Email)

Response:
  - 200: Confirmation message
  - 400: ErrValidation: Missing email
*/
func (handler *Handler) unlock(writer http.ResponseWriter, request *http.Request) {
	var input unlockRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.Email == "" {
		respond.Error(writer, request, validate.RequiredError("email", "This field is required"))
		return
	}

	if err := handler.registry.Unlock(request.Context(), normalize.Email(input.Email)); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Account unlocked"})
}
