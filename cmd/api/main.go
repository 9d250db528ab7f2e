// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Facegate HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire the escalation policy, session issuer, and alert dispatcher.
//  7. Start the janitor and the HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/facegate/internal/admin"
	"github.com/taibuivan/facegate/internal/api"
	"github.com/taibuivan/facegate/internal/platform/config"
	"github.com/taibuivan/facegate/internal/platform/constants"
	"github.com/taibuivan/facegate/internal/platform/janitor"
	"github.com/taibuivan/facegate/internal/platform/migration"
	pgstore "github.com/taibuivan/facegate/internal/platform/postgres"
	redisstore "github.com/taibuivan/facegate/internal/platform/redis"
	"github.com/taibuivan/facegate/internal/security/alert"
	"github.com/taibuivan/facegate/internal/security/attempt"
	"github.com/taibuivan/facegate/internal/security/biometric"
	"github.com/taibuivan/facegate/internal/security/escalation"
	"github.com/taibuivan/facegate/internal/security/lockout"
	"github.com/taibuivan/facegate/internal/users/identity"
	"github.com/taibuivan/facegate/internal/users/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "facegate"))
	slog.SetDefault(log)

	log.Info("[Facegate] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "facegate"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// Background context for long-lived workers (dispatcher, janitor,
	// rate-limiter cleanup). Cancelled during shutdown.
	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	defer backgroundCancel()

	// ── 6. Alerting ───────────────────────────────────────────────────────
	// The notifier is optional: without SMTP credentials alerts are still
	// persisted for the operator surface, just never mailed.
	alertRepository := alert.NewRepository(pool)

	var notifier alert.Notifier
	if cfg.SMTPUsername != "" && cfg.AdminEmail != "" {
		smtpNotifier, err := alert.NewSMTPNotifier(alert.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			AdminEmail: cfg.AdminEmail,
		})
		must(log, err, "initialize smtp notifier")
		notifier = smtpNotifier
	} else {
		log.Warn("smtp_not_configured", slog.String("effect", "alerts persisted but not emailed"))
	}

	dispatcher := alert.NewDispatcher(alertRepository, notifier, log)
	dispatcher.Start(backgroundCtx)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	encoder := biometric.NewHTTPEncoder(cfg.EncoderURL, cfg.EncoderTimeout)
	gate := biometric.NewGate(encoder, cfg.FaceMatchThreshold)

	identityRepository := identity.NewRepository(pool)
	identityService := identity.NewService(identityRepository, encoder, cfg.MinPasswordLen)

	ledger := attempt.NewLedger(pool)
	registry := lockout.NewRegistry(pool)

	policy := escalation.NewPolicy(
		identityService,
		ledger,
		registry,
		gate,
		dispatcher,
		alertRepository,
		escalation.Thresholds{
			FaceThreshold:   cfg.FaceThreshold,
			LockThreshold:   cfg.LockThreshold,
			FailureWindow:   cfg.FailureWindow,
			EvidenceWindow:  cfg.EvidenceWindow,
			EvidenceLimit:   cfg.EvidenceLimit,
			LockoutDuration: cfg.LockoutDuration,
		},
	)

	sessionRepository := session.NewRepository(pool)
	sessionCache := session.NewCache(rdb)
	issuer := session.NewIssuer(sessionRepository, sessionCache, cfg.SessionTTL)

	// ── 8. Janitor ────────────────────────────────────────────────────────
	sweeper := janitor.New(cfg.SweepInterval, log,
		janitor.Task{
			Name: "attempt_retention",
			Run: func(ctx context.Context) (int64, error) {
				return ledger.DeleteOlderThan(ctx, time.Now().Add(-cfg.RetentionAge))
			},
		},
		janitor.Task{
			Name: "session_expiry",
			Run:  sessionRepository.DeleteExpired,
		},
		janitor.Task{
			Name: "lockout_expiry",
			Run:  registry.DeactivateExpired,
		},
	)
	sweeper.Start(backgroundCtx)

	// ── 9. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	status := api.NewStatusHandler(api.StatusCounters{
		CountAccounts:       identityService.Count,
		CountAttempts:       ledger.Count,
		CountFailedSince:    ledger.CountFailedSince,
		CountActiveLockouts: registry.CountActive,
		CountActiveSessions: issuer.CountActive,
	}, log)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Status:    status,
		Identity:  identity.NewHandler(identityService, issuer),
		Gate:      escalation.NewHandler(policy, issuer),
		Session:   session.NewHandler(issuer),
		Admin:     admin.NewHandler(ledger, registry, alertRepository),
	}

	server := api.NewServer(backgroundCtx, cfg, log, issuer, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Stop the background workers and let the dispatcher drain its queue so
	// no accepted alert is lost on a clean exit.
	backgroundCancel()
	dispatcher.Wait()

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
