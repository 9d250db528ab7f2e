// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementation of the alert history.
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/facegate/pkg/pagination"
)

// # Alert Repository

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new alert row into security.alert.

Description: Evidence captures are stored as a JSONB array on the row so the
operator view can replay them; the count is denormalized for cheap listing.

Parameters:
  - context: context.Context
  - alert: *Alert

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, alert *Alert) error {
	const query = `
		INSERT INTO security.alert (id, kind, severity, email, message, evidence, evidencecount, delivered, resolved, createdat)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}
	if alert.Severity == "" {
		alert.Severity = SeverityFor(alert.Kind)
	}
	alert.EvidenceCount = len(alert.Evidence)

	evidence, err := json.Marshal(alert.Evidence)
	if err != nil {
		return fmt.Errorf("postgres_alert_repo_evidence_marshal_failed: %w", err)
	}

	_, err = repository.pool.Exec(context, query,
		alert.ID,
		string(alert.Kind),
		string(alert.Severity),
		alert.Email,
		alert.Message,
		evidence,
		alert.EvidenceCount,
		alert.Delivered,
		alert.Resolved,
		alert.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_alert_repo_create_failed: %w", err)
	}

	return nil
}

/*
MarkDelivered flips the delivered flag after a successful send.

Parameters:
  - context: context.Context
  - alertID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) MarkDelivered(context context.Context, alertID string) error {
	const query = "UPDATE security.alert SET delivered = TRUE WHERE id = $1"

	_, err := repository.pool.Exec(context, query, alertID)
	if err != nil {
		return fmt.Errorf("postgres_alert_repo_mark_delivered_failed: %w", err)
	}

	return nil
}

/*
ExistsSince reports whether an alert of the kind exists for the email
within the window.

Parameters:
  - context: context.Context
  - email: string
  - kind: Kind
  - since: time.Time

Returns:
  - bool: true when such an alert exists
  - error: Execution errors
*/
func (repository *PostgresRepository) ExistsSince(context context.Context, email string, kind Kind, since time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM security.alert
			WHERE email = $1 AND kind = $2 AND createdat >= $3
		)`

	var exists bool
	if err := repository.pool.QueryRow(context, query, email, string(kind), since).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_alert_repo_exists_since_failed: %w", err)
	}

	return exists, nil
}

/*
List returns a page of alert history, newest first.

Parameters:
  - context: context.Context
  - onlyUnresolved: bool (true restricts the page to open alerts)
  - params: pagination.Params

Returns:
  - []*Alert: Page of alerts
  - int: Total rows
  - error: Execution errors
*/
func (repository *PostgresRepository) List(context context.Context, onlyUnresolved bool, params pagination.Params) ([]*Alert, int, error) {
	const countQuery = `
		SELECT COUNT(*)
		FROM security.alert
		WHERE ($1 = FALSE OR resolved = FALSE)`

	var total int
	if err := repository.pool.QueryRow(context, countQuery, onlyUnresolved).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_alert_repo_list_count_failed: %w", err)
	}

	const query = `
		SELECT id, kind, severity, email, message, evidence, evidencecount, delivered, resolved, createdat
		FROM security.alert
		WHERE ($1 = FALSE OR resolved = FALSE)
		ORDER BY createdat DESC
		LIMIT $2 OFFSET $3`

	rows, err := repository.pool.Query(context, query, onlyUnresolved, params.Limit, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_alert_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		entry := &Alert{}
		var kind, severity string
		var evidence []byte
		if err := rows.Scan(
			&entry.ID,
			&kind,
			&severity,
			&entry.Email,
			&entry.Message,
			&evidence,
			&entry.EvidenceCount,
			&entry.Delivered,
			&entry.Resolved,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("postgres_alert_repo_scan_failed: %w", err)
		}
		entry.Kind = Kind(kind)
		entry.Severity = Severity(severity)
		if len(evidence) > 0 {
			if err := json.Unmarshal(evidence, &entry.Evidence); err != nil {
				return nil, 0, fmt.Errorf("postgres_alert_repo_evidence_unmarshal_failed: %w", err)
			}
		}
		alerts = append(alerts, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_alert_repo_rows_failed: %w", err)
	}

	return alerts, total, nil
}

/*
Resolve marks an alert as handled. Idempotent; resolving twice is a no-op.

Parameters:
  - context: context.Context
  - alertID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) Resolve(context context.Context, alertID string) error {
	const query = "UPDATE security.alert SET resolved = TRUE WHERE id = $1"

	_, err := repository.pool.Exec(context, query, alertID)
	if err != nil {
		return fmt.Errorf("postgres_alert_repo_resolve_failed: %w", err)
	}

	return nil
}
