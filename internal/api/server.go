// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/facegate/internal/admin"
	"github.com/taibuivan/facegate/internal/platform/config"
	"github.com/taibuivan/facegate/internal/platform/constants"
	"github.com/taibuivan/facegate/internal/platform/middleware"
	"github.com/taibuivan/facegate/internal/platform/respond"
	"github.com/taibuivan/facegate/internal/security/escalation"
	"github.com/taibuivan/facegate/internal/users/identity"
	"github.com/taibuivan/facegate/internal/users/session"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /health handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Status is the /api/status handler reporting operational counters.
	Status http.HandlerFunc

	// Identity handles account enrollment routes (register).
	Identity *identity.Handler

	// Gate handles the escalating login flow (login, posture).
	Gate *escalation.Handler

	// Session handles session lifecycle routes (logout, validate-session).
	Session *session.Handler

	// Admin exposes the operator surface (ledger, lockouts, alerts, unlock).
	Admin *admin.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.SessionVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Unauthenticated health probes for container orchestration.
	r.Get("/", banner)
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)

	// # Application API
	// Public gate endpoints live directly under /api; the operator surface
	// gets its own protected subtree.
	r.Route("/api", func(api chi.Router) {
		api.Get("/status", h.Status)
		h.Identity.RegisterRoutes(api)
		h.Gate.RegisterRoutes(api)
		h.Session.RegisterRoutes(api)
		api.Mount("/admin", h.Admin.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// banner identifies the service to anyone probing the root path.
func banner(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]any{
		"service": constants.AppName,
		"version": constants.AppVersion,
		"features": []string{
			"credential-authentication",
			"face-verification-escalation",
			"account-lockout",
			"operator-alerts",
		},
	})
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
