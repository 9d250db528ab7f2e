// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Operational status counters for the /api/status endpoint.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/facegate/internal/platform/constants"
	"github.com/taibuivan/facegate/internal/platform/respond"
)

// StatusCounters holds the injectable counter sources for /api/status.
//
// Each source is independent; a failing one reports -1 rather than taking
// the whole endpoint down.
type StatusCounters struct {
	// CountAccounts returns the total registered accounts.
	CountAccounts func(ctx context.Context) (int, error)

	// CountAttempts returns the total ledger rows.
	CountAttempts func(ctx context.Context) (int, error)

	// CountFailedSince returns failed attempts since the given instant.
	CountFailedSince func(ctx context.Context, since time.Time) (int, error)

	// CountActiveLockouts returns currently active lockouts.
	CountActiveLockouts func(ctx context.Context) (int, error)

	// CountActiveSessions returns unexpired sessions.
	CountActiveSessions func(ctx context.Context) (int, error)
}

// failedWindow is the trailing window for the failed-attempt counter.
const failedWindow = 24 * time.Hour

type statusHandler struct {
	counters StatusCounters
	logger   *slog.Logger
}

// NewStatusHandler creates the /api/status http.HandlerFunc.
func NewStatusHandler(counters StatusCounters, logger *slog.Logger) http.HandlerFunc {
	handler := &statusHandler{counters: counters, logger: logger}
	return handler.status
}

// status handles GET /api/status.
func (handler *statusHandler) status(writer http.ResponseWriter, request *http.Request) {

	ctx := request.Context()

	respond.OK(writer, map[string]any{
		"service":             constants.AppName,
		"version":             constants.AppVersion,
		"total_accounts":      handler.count(ctx, handler.counters.CountAccounts),
		"total_attempts":      handler.count(ctx, handler.counters.CountAttempts),
		"failed_attempts_24h": handler.countSince(ctx, handler.counters.CountFailedSince),
		"active_lockouts":     handler.count(ctx, handler.counters.CountActiveLockouts),
		"active_sessions":     handler.count(ctx, handler.counters.CountActiveSessions),
	})
}

// count runs one counter source, degrading to -1 on failure.
func (handler *statusHandler) count(ctx context.Context, source func(ctx context.Context) (int, error)) int {
	if source == nil {
		return -1
	}
	value, err := source(ctx)
	if err != nil {
		handler.logger.Error("status_counter_failed", slog.Any("error", err))
		return -1
	}
	return value
}

// countSince runs the windowed counter source, degrading to -1 on failure.
func (handler *statusHandler) countSince(ctx context.Context, source func(ctx context.Context, since time.Time) (int, error)) int {
	if source == nil {
		return -1
	}
	value, err := source(ctx, time.Now().Add(-failedWindow))
	if err != nil {
		handler.logger.Error("status_counter_failed", slog.Any("error", err))
		return -1
	}
	return value
}
