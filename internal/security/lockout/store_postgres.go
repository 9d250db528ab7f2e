// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementation of the lockout registry.
//
// # Concurrency
//
// The security.lockout table carries a partial unique index on (email)
// WHERE active. Lock relies on ON CONFLICT against that index, so two
// requests locking the same account concurrently converge on one active
// row instead of racing check-then-act in application code.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Lockout Registry

// PostgresRegistry implements the Registry interface using pgx.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewRegistry creates a new PostgreSQL implementation of the Registry.
func NewRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

/*
Lock records a lockout for an email, upserting against the active constraint.

Description: ON CONFLICT targets the partial unique index, so a concurrent
second lock replaces the window of the first instead of failing or creating
a duplicate active row.

Parameters:
  - context: context.Context
  - lockout: *Lockout

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRegistry) Lock(context context.Context, lockout *Lockout) error {
	const query = `
		INSERT INTO security.lockout (id, email, reason, lockedat, expiresat, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (email) WHERE active
		DO UPDATE SET reason = EXCLUDED.reason,
		              lockedat = EXCLUDED.lockedat,
		              expiresat = EXCLUDED.expiresat`

	if lockout.LockedAt.IsZero() {
		lockout.LockedAt = time.Now()
	}
	lockout.Active = true

	_, err := repository.pool.Exec(context, query,
		lockout.ID,
		lockout.Email,
		lockout.Reason,
		lockout.LockedAt,
		lockout.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_lockout_registry_lock_failed: %w", err)
	}

	return nil
}

/*
ActiveForEmail returns the active, unexpired lockout for an email.

Description: Expiry is enforced in the query itself; a row whose window
elapsed is invisible here even before the janitor deactivates it.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Lockout: The active lockout, or nil when none exists
  - error: Execution errors
*/
func (repository *PostgresRegistry) ActiveForEmail(context context.Context, email string) (*Lockout, error) {
	const query = `
		SELECT id, email, reason, lockedat, expiresat, active
		FROM security.lockout
		WHERE email = $1 AND active = TRUE AND expiresat > NOW()`

	lockout := &Lockout{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&lockout.ID,
		&lockout.Email,
		&lockout.Reason,
		&lockout.LockedAt,
		&lockout.ExpiresAt,
		&lockout.Active,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres_lockout_registry_active_for_email_failed: %w", err)
	}

	return lockout, nil
}

/*
Unlock deactivates the active lockout for an email.

Description: Idempotent operator action; no error when nothing was active.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRegistry) Unlock(context context.Context, email string) error {
	const query = "UPDATE security.lockout SET active = FALSE WHERE email = $1 AND active = TRUE"

	_, err := repository.pool.Exec(context, query, email)
	if err != nil {
		return fmt.Errorf("postgres_lockout_registry_unlock_failed: %w", err)
	}

	return nil
}

/*
DeactivateExpired flips the active flag off for elapsed lockouts.

Description: Hygiene sweep run by the janitor so history queries see
accurate flags.

Parameters:
  - context: context.Context

Returns:
  - int64: Rows deactivated
  - error: Execution errors
*/
func (repository *PostgresRegistry) DeactivateExpired(context context.Context) (int64, error) {
	const query = "UPDATE security.lockout SET active = FALSE WHERE active = TRUE AND expiresat <= NOW()"

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_lockout_registry_deactivate_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}

/*
CountActive returns the number of currently active, unexpired lockouts.

Parameters:
  - context: context.Context

Returns:
  - int: Active lockout count
  - error: Execution errors
*/
func (repository *PostgresRegistry) CountActive(context context.Context) (int, error) {
	const query = "SELECT COUNT(*) FROM security.lockout WHERE active = TRUE AND expiresat > NOW()"

	var total int
	if err := repository.pool.QueryRow(context, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_lockout_registry_count_active_failed: %w", err)
	}

	return total, nil
}

/*
List returns a page of lockout history, newest first.

Parameters:
  - context: context.Context
  - params: pagination.Params

Returns:
  - []*Lockout: Page of lockouts
  - int: Total rows
  - error: Execution errors
*/
func (repository *PostgresRegistry) List(context context.Context, params pagination.Params) ([]*Lockout, int, error) {
	const countQuery = "SELECT COUNT(*) FROM security.lockout"

	var total int
	if err := repository.pool.QueryRow(context, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_lockout_registry_list_count_failed: %w", err)
	}

	const query = `
		SELECT id, email, reason, lockedat, expiresat, active
		FROM security.lockout
		ORDER BY lockedat DESC
		LIMIT $1 OFFSET $2`

	rows, err := repository.pool.Query(context, query, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_lockout_registry_list_failed: %w", err)
	}
	defer rows.Close()

	var lockouts []*Lockout
	for rows.Next() {
		lockout := &Lockout{}
		if err := rows.Scan(
			&lockout.ID,
			&lockout.Email,
			&lockout.Reason,
			&lockout.LockedAt,
			&lockout.ExpiresAt,
			&lockout.Active,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_lockout_registry_scan_failed: %w", err)
		}
		lockouts = append(lockouts, lockout)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_lockout_registry_rows_failed: %w", err)
	}

	return lockouts, total, nil
}
