// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package janitor runs periodic background maintenance sweeps.

Security tables grow without bound if left alone: every login writes an
attempt row, every lockout leaves history, and expired sessions linger until
someone deletes them. The janitor owns that hygiene so request handlers never
have to.

Registered Sweeps:

  - Attempt retention: deletes attempt records older than the retention horizon.
  - Session expiry: deletes sessions whose expiry has passed.
  - Lockout expiry: deactivates lockouts whose window has elapsed.

Each sweep is independent; one failing does not stop the others.
*/
package janitor

import (
	"context"
	"log/slog"
	"time"
)

// Task is a single maintenance sweep. It returns the number of rows affected.
type Task struct {
	// Name identifies the task in logs (snake_case).
	Name string
	// Run performs one sweep pass.
	Run func(ctx context.Context) (int64, error)
}

// Janitor executes registered tasks on a fixed interval until its context
// is cancelled.
type Janitor struct {
	interval time.Duration
	tasks    []Task
	logger   *slog.Logger
}

// New creates a Janitor that runs every interval.
func New(interval time.Duration, logger *slog.Logger, tasks ...Task) *Janitor {
	return &Janitor{
		interval: interval,
		tasks:    tasks,
		logger:   logger,
	}
}

// Start launches the sweep loop in a new goroutine. It returns immediately.
//
// One pass runs at startup so a long-idle deployment does not wait a full
// interval before cleaning up.
func (j *Janitor) Start(ctx context.Context) {
	go func() {
		j.sweep(ctx)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				j.sweep(ctx)
			case <-ctx.Done():
				j.logger.Info("janitor_stopped")
				return
			}
		}
	}()
}

// sweep runs every registered task once.
func (j *Janitor) sweep(ctx context.Context) {
	for _, task := range j.tasks {
		affected, err := task.Run(ctx)
		if err != nil {
			// Maintenance is best-effort; log and keep going.
			j.logger.Error("janitor_task_failed",
				slog.String("task", task.Name),
				slog.Any("error", err),
			)
			continue
		}

		if affected > 0 {
			j.logger.Info("janitor_task_completed",
				slog.String("task", task.Name),
				slog.Int64("rows_affected", affected),
			)
		}
	}
}
