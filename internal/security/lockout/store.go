// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lockout

import (
	"context"

	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Registry Data Access

// Registry defines the data access contract for account lockouts.
type Registry interface {

	/*
		Lock records a lockout for an email, upserting against the
		one-active-per-email constraint. When an active lockout already
		exists, its window is replaced by the new one.

		Parameters:
		  - context: context.Context
		  - lockout: *Lockout

		Returns:
		  - error: Persistence failures
	*/
	Lock(context context.Context, lockout *Lockout) error

	/*
		ActiveForEmail returns the active, unexpired lockout for an email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Lockout: The active lockout, or nil when none exists
		  - error: Database retrieval failures
	*/
	ActiveForEmail(context context.Context, email string) (*Lockout, error)

	/*
		Unlock deactivates the active lockout for an email, if any.
		Idempotent: unlocking an unlocked account is a no-op.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - error: Persistence failures
	*/
	Unlock(context context.Context, email string) error

	/*
		DeactivateExpired flips the active flag off for lockouts whose
		window has elapsed. Run by the janitor.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Rows deactivated
		  - error: Persistence failures
	*/
	DeactivateExpired(context context.Context) (int64, error)

	/*
		CountActive returns the number of currently active, unexpired lockouts.

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Active lockout count
		  - error: Database retrieval failures
	*/
	CountActive(context context.Context) (int, error)

	/*
		List returns a page of lockout history, newest first.

		Parameters:
		  - context: context.Context
		  - params: pagination.Params

		Returns:
		  - []*Lockout: Page of lockouts
		  - int: Total rows
		  - error: Database retrieval failures
	*/
	List(context context.Context, params pagination.Params) ([]*Lockout, int, error)
}
