// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementation of the attempt ledger.
//
// # Error Mapping
//
// Storage-specific errors are mapped to domain-friendly [apperr.AppError]
// types by callers via the dberr bridge; this file wraps raw errors with
// operation context only.
package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Ledger Repository

// PostgresLedger implements the Ledger interface using pgx.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a new PostgreSQL implementation of the Ledger.
func NewLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

/*
Record appends one immutable attempt row into security.login_attempt.

Description: The gate verdict is evaluated before this insert, so a single
row carries both the credential outcome and the biometric result.

Parameters:
  - context: context.Context
  - record: *Record

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresLedger) Record(context context.Context, record *Record) error {
	const query = `
		INSERT INTO security.login_attempt (
			id, email, name, success, faceimage, facechecked, faceauthorized, similarity, ipaddress, latitude, longitude, createdat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		record.ID,
		record.Email,
		record.Name,
		record.Success,
		record.FaceImage,
		record.FaceChecked,
		record.FaceAuthorized,
		record.Similarity,
		record.IPAddress,
		record.Latitude,
		record.Longitude,
		record.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_attempt_ledger_record_failed: %w", err)
	}

	return nil
}

/*
CountFailuresSince counts failed attempts for an email within the window.

Parameters:
  - context: context.Context
  - email: string
  - since: time.Time

Returns:
  - int: Failed attempt count
  - error: Execution errors
*/
func (repository *PostgresLedger) CountFailuresSince(context context.Context, email string, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM security.login_attempt
		WHERE email = $1 AND success = FALSE AND createdat >= $2`

	var total int
	if err := repository.pool.QueryRow(context, query, email, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_attempt_ledger_count_failures_failed: %w", err)
	}

	return total, nil
}

/*
ListUnauthorizedSince returns recent unauthorized-capture failures, newest first.

Description: Evidence query for lockout alerts. Only failed attempts that
carried a capture the gate rejected qualify.

Parameters:
  - context: context.Context
  - email: string
  - since: time.Time
  - limit: int

Returns:
  - []*Record: Matching attempts
  - error: Execution errors
*/
func (repository *PostgresLedger) ListUnauthorizedSince(context context.Context, email string, since time.Time, limit int) ([]*Record, error) {
	const query = `
		SELECT id, email, name, success, faceimage, facechecked, faceauthorized, similarity, ipaddress, latitude, longitude, createdat
		FROM security.login_attempt
		WHERE email = $1
		  AND success = FALSE
		  AND facechecked = TRUE
		  AND faceauthorized = FALSE
		  AND faceimage <> ''
		  AND createdat >= $2
		ORDER BY createdat DESC
		LIMIT $3`

	rows, err := repository.pool.Query(context, query, email, since, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres_attempt_ledger_list_unauthorized_failed: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record := &Record{}
		if err := rows.Scan(
			&record.ID,
			&record.Email,
			&record.Name,
			&record.Success,
			&record.FaceImage,
			&record.FaceChecked,
			&record.FaceAuthorized,
			&record.Similarity,
			&record.IPAddress,
			&record.Latitude,
			&record.Longitude,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres_attempt_ledger_scan_failed: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_attempt_ledger_rows_failed: %w", err)
	}

	return records, nil
}

/*
List returns a page of attempts, optionally filtered by email, newest first.

Parameters:
  - context: context.Context
  - email: string (empty = all accounts)
  - params: pagination.Params

Returns:
  - []*Record: Page of attempts
  - int: Total matching rows
  - error: Execution errors
*/
func (repository *PostgresLedger) List(context context.Context, email string, params pagination.Params) ([]*Record, int, error) {
	const countQuery = `
		SELECT COUNT(*)
		FROM security.login_attempt
		WHERE ($1 = '' OR email = $1)`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, email).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_attempt_ledger_list_count_failed: %w", err)
	}

	const query = `
		SELECT id, email, name, success, faceimage, facechecked, faceauthorized, similarity, ipaddress, latitude, longitude, createdat
		FROM security.login_attempt
		WHERE ($1 = '' OR email = $1)
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, query, email, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_attempt_ledger_list_failed: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record := &Record{}
		if err := rows.Scan(
			&record.ID,
			&record.Email,
			&record.Name,
			&record.Success,
			&record.FaceImage,
			&record.FaceChecked,
			&record.FaceAuthorized,
			&record.Similarity,
			&record.IPAddress,
			&record.Latitude,
			&record.Longitude,
			&record.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_attempt_ledger_scan_failed: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_attempt_ledger_rows_failed: %w", err)
	}

	return records, total, nil
}

/*
Count returns the total number of ledger rows.

Parameters:
  - context: context.Context

Returns:
  - int: Row count
  - error: Execution errors
*/
func (repository *PostgresLedger) Count(context context.Context) (int, error) {
	const query = "SELECT COUNT(*) FROM security.login_attempt"

	var total int
	if err := repository.pool.QueryRow(context, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_attempt_ledger_count_failed: %w", err)
	}

	return total, nil
}

/*
CountFailedSince counts failed attempts across all accounts since the instant.

Parameters:
  - context: context.Context
  - since: time.Time

Returns:
  - int: Failed attempt count
  - error: Execution errors
*/
func (repository *PostgresLedger) CountFailedSince(context context.Context, since time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM security.login_attempt
		WHERE success = FALSE AND createdat >= $1`

	var total int
	if err := repository.pool.QueryRow(context, query, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_attempt_ledger_count_failed_since_failed: %w", err)
	}

	return total, nil
}

/*
DeleteOlderThan physically removes ledger rows created before the cutoff.

Description: Retention sweep executed by the janitor.

Parameters:
  - context: context.Context
  - cutoff: time.Time

Returns:
  - int64: Rows deleted
  - error: Cleanup failures
*/
func (repository *PostgresLedger) DeleteOlderThan(context context.Context, cutoff time.Time) (int64, error) {
	const query = "DELETE FROM security.login_attempt WHERE createdat < $1"

	tag, err := repository.pool.Exec(context, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres_attempt_ledger_delete_older_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
