// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// queueCapacity bounds the in-flight alert queue. Alerts are rare by
// construction (threshold crossings, not every failure), so a small buffer
// absorbs any burst without ever blocking the login path.
const queueCapacity = 64

// persistTimeout bounds the database write for one alert.
const persistTimeout = 5 * time.Second

// Dispatcher decouples alert emission from persistence and delivery.
//
// # Concurrency
//
// Enqueue is non-blocking and safe for concurrent use. A single background
// worker drains the queue: it persists the alert row first (durable truth),
// then attempts email delivery best-effort. Neither failure propagates to
// the caller; the login response never waits on SMTP.
type Dispatcher struct {
	repository Repository
	notifier   Notifier
	logger     *slog.Logger

	queue chan *Alert
	wg    sync.WaitGroup
}

// NewDispatcher constructs a [Dispatcher]. Call [Dispatcher.Start] before
// enqueueing.
func NewDispatcher(repository Repository, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		repository: repository,
		notifier:   notifier,
		logger:     logger,
		queue:      make(chan *Alert, queueCapacity),
	}
}

// Start launches the background worker. The worker drains remaining queued
// alerts after ctx is cancelled, then exits.
func (dispatcher *Dispatcher) Start(ctx context.Context) {
	dispatcher.wg.Add(1)
	go func() {
		defer dispatcher.wg.Done()

		for {
			select {
			case entry := <-dispatcher.queue:
				dispatcher.process(entry)
			case <-ctx.Done():
				// Drain what is already queued before exiting.
				for {
					select {
					case entry := <-dispatcher.queue:
						dispatcher.process(entry)
					default:
						dispatcher.logger.Info("alert_dispatcher_stopped")
						return
					}
				}
			}
		}
	}()
}

// Wait blocks until the worker has exited. Used during shutdown.
func (dispatcher *Dispatcher) Wait() {
	dispatcher.wg.Wait()
}

/*
Enqueue hands an alert to the background worker without blocking.

Description: If the queue is full the alert is dropped with an error log.
Dropping is preferable to stalling a login request; the durable attempt
ledger still holds the underlying evidence.

Parameters:
  - entry: *Alert
*/
func (dispatcher *Dispatcher) Enqueue(entry *Alert) {
	select {
	case dispatcher.queue <- entry:
	default:
		dispatcher.logger.Error("alert_queue_full_dropped",
			slog.String("kind", string(entry.Kind)),
			slog.String("email", entry.Email),
		)
	}
}

// process persists one alert and attempts delivery.
func (dispatcher *Dispatcher) process(entry *Alert) {

	// Persistence first: the alert row is the durable record regardless of
	// whether the email goes out.
	persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	err := dispatcher.repository.Create(persistCtx, entry)
	cancel()

	if err != nil {
		dispatcher.logger.Error("alert_persist_failed",
			slog.String("kind", string(entry.Kind)),
			slog.String("email", entry.Email),
			slog.Any("error", err),
		)
		return
	}

	// Delivery second, best-effort.
	if dispatcher.notifier == nil {
		return
	}

	if err := dispatcher.notifier.Notify(context.Background(), entry); err != nil {
		dispatcher.logger.Error("alert_delivery_failed",
			slog.String("kind", string(entry.Kind)),
			slog.String("email", entry.Email),
			slog.Any("error", err),
		)
		return
	}

	markCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := dispatcher.repository.MarkDelivered(markCtx, entry.ID); err != nil {
		dispatcher.logger.Error("alert_mark_delivered_failed",
			slog.String("alert_id", entry.ID),
			slog.Any("error", err),
		)
	}

	dispatcher.logger.Info("alert_dispatched",
		slog.String("kind", string(entry.Kind)),
		slog.String("email", entry.Email),
		slog.Int("evidence_count", len(entry.Evidence)),
	)
}
