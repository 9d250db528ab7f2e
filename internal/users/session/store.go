// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"time"
)

// # Durable Session Data Access

// Repository defines the data access contract for durable sessions.
type Repository interface {

	/*
		Create persists a new session row.

		Parameters:
		  - context: context.Context
		  - session: *Session

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, session *Session) error

	/*
		FindByTokenHash returns the unexpired session matching the token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Hydrated entity
		  - error: apperr.NotFound or retrieval failures
	*/
	FindByTokenHash(context context.Context, tokenHash string) (*Session, error)

	/*
		DeleteByTokenHash removes the session with the given token hash.
		Idempotent: deleting an absent session is a no-op.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Persistence failures
	*/
	DeleteByTokenHash(context context.Context, tokenHash string) error

	/*
		CountActive returns the number of unexpired sessions.

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Active session count
		  - error: Retrieval failures
	*/
	CountActive(context context.Context) (int, error)

	/*
		DeleteExpired physically removes sessions whose expiry has passed.

		Parameters:
		  - context: context.Context

		Returns:
		  - int64: Rows deleted
		  - error: Cleanup failures
	*/
	DeleteExpired(context context.Context) (int64, error)
}

// # Volatile Session Data Access

// Cache defines the contract for the fast session index in front of the
// durable repository.
type Cache interface {

	/*
		Set stores a session under its token hash for the given TTL.

		Parameters:
		  - context: context.Context
		  - session: *Session
		  - ttl: time.Duration

		Returns:
		  - error: Cache write failures
	*/
	Set(context context.Context, session *Session, ttl time.Duration) error

	/*
		Get retrieves a cached session by token hash.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - *Session: Cached entity, or nil on a miss
		  - error: Cache read failures (a miss is not an error)
	*/
	Get(context context.Context, tokenHash string) (*Session, error)

	/*
		Delete evicts a cached session by token hash. Idempotent.

		Parameters:
		  - context: context.Context
		  - tokenHash: string

		Returns:
		  - error: Cache write failures
	*/
	Delete(context context.Context, tokenHash string) error
}
