// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package alert

import (
	"context"
	"time"

	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Alert Data Access

// Repository defines the data access contract for alert history.
type Repository interface {

	/*
		Create persists a new alert row.

		Parameters:
		  - context: context.Context
		  - alert: *Alert

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, alert *Alert) error

	/*
		MarkDelivered flips the delivered flag after a successful send.

		Parameters:
		  - context: context.Context
		  - alertID: string

		Returns:
		  - error: Persistence failures
	*/
	MarkDelivered(context context.Context, alertID string) error

	/*
		ExistsSince reports whether an alert of the given kind was already
		recorded for an email within the window. The policy uses this to
		keep the suspicious-login warning a one-time event per episode.

		Parameters:
		  - context: context.Context
		  - email: string
		  - kind: Kind
		  - since: time.Time

		Returns:
		  - bool: true when such an alert exists
		  - error: Database retrieval failures
	*/
	ExistsSince(context context.Context, email string, kind Kind, since time.Time) (bool, error)

	/*
		List returns a page of alert history, newest first.

		Parameters:
		  - context: context.Context
		  - onlyUnresolved: bool (true restricts the page to open alerts)
		  - params: pagination.Params

		Returns:
		  - []*Alert: Page of alerts
		  - int: Total rows
		  - error: Database retrieval failures
	*/
	List(context context.Context, onlyUnresolved bool, params pagination.Params) ([]*Alert, int, error)

	/*
		Resolve marks an alert as handled by an operator. Idempotent.

		Parameters:
		  - context: context.Context
		  - alertID: string

		Returns:
		  - error: Persistence failures
	*/
	Resolve(context context.Context, alertID string) error
}
