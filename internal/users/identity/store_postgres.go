// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// PostgreSQL implementation of the identity storage layer.
//
// # Architecture
//
// Repositories in this file are strictly separated from domain logic. They
// implement domain-defined interfaces (e.g., [Repository]) using the
// [pgxpool.Pool] connection manager.
//
// # Error Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to domain-friendly
// [apperr.AppError] types to avoid leaking storage implementation details.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/platform/dberr"
)

// # Identity Repository

// PostgresRepository implements the Repository interface using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL implementation of the Repository.
func NewRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create persists a new account record into the users.account table.

Description: Deep-persists account metadata, ensuring timestamps are initialized
if not provided.

Parameters:
  - context: context.Context
  - identity: *Identity (Entity to persist)

Returns:
  - error: Database constraint violations or connectivity errors
*/
func (repository *PostgresRepository) Create(context context.Context, identity *Identity) error {
	const query = `
		INSERT INTO users.account (
			id, name, email, passwordhash, facetemplate, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	now := time.Now()
	if identity.CreatedAt.IsZero() {
		identity.CreatedAt = now
	}
	identity.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		identity.ID,
		identity.Name,
		identity.Email,
		identity.PasswordHash,
		identity.FaceTemplate,
		identity.CreatedAt,
		identity.UpdatedAt,
	)

	if err != nil {
		// The unique index on email is the last line of defense against a
		// concurrent duplicate enrollment slipping past the service's lookup.
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Email is already registered")
		}
		return fmt.Errorf("postgres_identity_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByEmail retrieves an account record by its unique lowercase email.

Description: Performs a lookup on the account table using the canonical
email key.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Identity: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindByEmail(context context.Context, email string) (*Identity, error) {
	const query = `
		SELECT id, name, email, passwordhash, facetemplate, createdat, updatedat
		FROM users.account
		WHERE email = $1`

	identity := &Identity{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&identity.FaceTemplate,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account not found with this email")
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_by_email_failed: %w", err)
	}

	return identity, nil
}

/*
FindByID retrieves an account record by its unique ID.

Description: Primary key resolution for accounts.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Identity: Hydrated account entity
  - error: Not found or execution errors
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*Identity, error) {
	const query = `
		SELECT id, name, email, passwordhash, facetemplate, createdat, updatedat
		FROM users.account
		WHERE id = $1`

	identity := &Identity{}
	err := repository.pool.QueryRow(context, query, id).Scan(
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&identity.FaceTemplate,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Account not found")
		}
		return nil, fmt.Errorf("postgres_identity_repo_find_by_id_failed: %w", err)
	}

	return identity, nil
}

/*
UpdateFaceTemplate replaces only the authorized face template for an account.

Parameters:
  - context: context.Context
  - identityID: string
  - template: []float64

Returns:
  - error: Execution errors
*/
func (repository *PostgresRepository) UpdateFaceTemplate(context context.Context, identityID string, template []float64) error {
	const query = `
		UPDATE users.account
		SET facetemplate = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, identityID, template, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_identity_repo_update_face_template_failed: %w", err)
	}

	return nil
}

/*
Count returns the total number of registered accounts.

Description: Feeds the operational status endpoint.

Parameters:
  - context: context.Context

Returns:
  - int: Account count
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) Count(context context.Context) (int, error) {
	const query = "SELECT COUNT(*) FROM users.account"

	var total int
	if err := repository.pool.QueryRow(context, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres_identity_repo_count_failed: %w", err)
	}

	return total, nil
}
