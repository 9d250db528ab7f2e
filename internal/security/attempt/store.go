// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package attempt

import (
	"context"
	"time"

	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Ledger Data Access

// Ledger defines the data access contract for the login attempt ledger.
type Ledger interface {

	/*
		Record appends one immutable attempt row.

		Parameters:
		  - context: context.Context
		  - record: *Record

		Returns:
		  - error: Persistence failures
	*/
	Record(context context.Context, record *Record) error

	/*
		CountFailuresSince counts failed attempts for an email within the
		trailing window. This is the number the escalation policy keys off.

		Parameters:
		  - context: context.Context
		  - email: string (canonical lowercase key)
		  - since: time.Time (window start)

		Returns:
		  - int: Failed attempt count
		  - error: Database retrieval failures
	*/
	CountFailuresSince(context context.Context, email string, since time.Time) (int, error)

	/*
		ListUnauthorizedSince returns recent failed attempts for an email that
		carried a face capture the gate did not authorize, newest first.
		Used to assemble lockout alert evidence.

		Parameters:
		  - context: context.Context
		  - email: string
		  - since: time.Time
		  - limit: int (evidence cap)

		Returns:
		  - []*Record: Matching attempts, newest first
		  - error: Database retrieval failures
	*/
	ListUnauthorizedSince(context context.Context, email string, since time.Time, limit int) ([]*Record, error)

	/*
		List returns a page of attempts, optionally filtered by email,
		newest first.

		Parameters:
		  - context: context.Context
		  - email: string (empty = all accounts)
		  - params: pagination.Params

		Returns:
		  - []*Record: Page of attempts
		  - int: Total matching rows
		  - error: Database retrieval failures
	*/
	List(context context.Context, email string, params pagination.Params) ([]*Record, int, error)

	/*
		Count returns the total number of ledger rows.

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Row count
		  - error: Database retrieval failures
	*/
	Count(context context.Context) (int, error)

	/*
		CountFailedSince counts failed attempts across all accounts since the
		given instant. Feeds the operational status endpoint.

		Parameters:
		  - context: context.Context
		  - since: time.Time

		Returns:
		  - int: Failed attempt count
		  - error: Database retrieval failures
	*/
	CountFailedSince(context context.Context, since time.Time) (int, error)

	/*
		DeleteOlderThan physically removes ledger rows created before the cutoff.

		Parameters:
		  - context: context.Context
		  - cutoff: time.Time

		Returns:
		  - int64: Rows deleted
		  - error: Cleanup failures
	*/
	DeleteOlderThan(context context.Context, cutoff time.Time) (int64, error)
}
