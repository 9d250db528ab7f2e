// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/platform/ctxutil"
	"github.com/taibuivan/facegate/internal/platform/sec"
	"github.com/taibuivan/facegate/pkg/uuid"
)

// # Session Issuer

// Issuer implements the session lifecycle: issue on successful login,
// validate on every authenticated request, revoke on logout.
type Issuer struct {
	repository Repository
	cache      Cache
	ttl        time.Duration
}

// NewIssuer constructs an [Issuer] with its storage dependencies.
func NewIssuer(repository Repository, cache Cache, ttl time.Duration) *Issuer {
	return &Issuer{
		repository: repository,
		cache:      cache,
		ttl:        ttl,
	}
}

// IssueInput identifies the account a new session authenticates.
type IssueInput struct {
	IdentityID string
	Email      string
	Name       string
}

/*
Issue mints a fresh opaque token and persists the session.

Description: The durable row is written first; cache population is
best-effort because validation falls back to Postgres on a miss anyway.

Parameters:
  - context: context.Context
  - input: IssueInput

Returns:
  - string: The plaintext bearer token (shown to the client exactly once)
  - *Session: The persisted session
  - error: Token generation or storage failures
*/
func (issuer *Issuer) Issue(context context.Context, input IssueInput) (string, *Session, error) {

	// Generate the opaque bearer token
	token, err := sec.GenerateSecureToken(TokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("session_issuer_token_failed: %w", err)
	}

	now := time.Now()
	entry := &Session{
		ID:         uuid.New(),
		IdentityID: input.IdentityID,
		Email:      input.Email,
		Name:       input.Name,
		TokenHash:  sec.HashToken(token),
		ExpiresAt:  now.Add(issuer.ttl),
		CreatedAt:  now,
	}

	// Durable truth first
	if err := issuer.repository.Create(context, entry); err != nil {
		return "", nil, fmt.Errorf("session_issuer_create_failed: %w", err)
	}

	// Cache population is best-effort
	if err := issuer.cache.Set(context, entry, issuer.ttl); err != nil {
		ctxutil.GetLogger(context).Warn("session_cache_populate_failed",
			slog.Any("error", err),
		)
	}

	return token, entry, nil
}

/*
Validate resolves a plaintext bearer token to its live session.

Description: Cache hit returns immediately. A miss falls back to the durable
store and repopulates the cache with the remaining lifetime, so cache
evictions are invisible to clients.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *Session: The live session
  - error: apperr.Unauthorized when the token is unknown or expired
*/
func (issuer *Issuer) Validate(context context.Context, token string) (*Session, error) {

	tokenHash := sec.HashToken(token)
	now := time.Now()

	// 1. Fast path: cache lookup
	cached, err := issuer.cache.Get(context, tokenHash)
	if err != nil {
		// Cache trouble degrades to the durable path, never to a denial.
		ctxutil.GetLogger(context).Warn("session_cache_read_failed",
			slog.Any("error", err),
		)
	}
	if cached != nil {
		if cached.Expired(now) {
			_ = issuer.cache.Delete(context, tokenHash)
			return nil, apperr.Unauthorized("Invalid or expired session")
		}
		return cached, nil
	}

	// 2. Durable fallback
	entry, err := issuer.repository.FindByTokenHash(context, tokenHash)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired session")
	}

	// 3. Repopulate the cache with the remaining lifetime
	if remaining := entry.Remaining(now); remaining > 0 {
		if err := issuer.cache.Set(context, entry, remaining); err != nil {
			ctxutil.GetLogger(context).Warn("session_cache_repopulate_failed",
				slog.Any("error", err),
			)
		}
	}

	return entry, nil
}

/*
VerifySession resolves a token into an authenticated principal.

Description: Adapter onto [Issuer.Validate] satisfying the middleware's
SessionVerifier contract.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *sec.Principal: The authenticated principal
  - error: apperr.Unauthorized for unknown or expired tokens
*/
func (issuer *Issuer) VerifySession(context context.Context, token string) (*sec.Principal, error) {
	entry, err := issuer.Validate(context, token)
	if err != nil {
		return nil, err
	}

	return &sec.Principal{
		IdentityID: entry.IdentityID,
		Email:      entry.Email,
		Name:       entry.Name,
	}, nil
}

/*
Revoke permanently invalidates a session by its plaintext token.

Description: Deletes from both stores. Idempotent: revoking an unknown or
already-revoked token succeeds silently.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Storage failures on the durable delete only
*/
func (issuer *Issuer) Revoke(context context.Context, token string) error {

	tokenHash := sec.HashToken(token)

	// Evict the cache first so no fast-path hit survives the revocation.
	if err := issuer.cache.Delete(context, tokenHash); err != nil {
		ctxutil.GetLogger(context).Warn("session_cache_evict_failed",
			slog.Any("error", err),
		)
	}

	if err := issuer.repository.DeleteByTokenHash(context, tokenHash); err != nil {
		return fmt.Errorf("session_issuer_revoke_failed: %w", err)
	}

	return nil
}

/*
CountActive returns the number of unexpired sessions.

Parameters:
  - context: context.Context

Returns:
  - int: Active session count
  - error: Storage errors
*/
func (issuer *Issuer) CountActive(context context.Context) (int, error) {
	return issuer.repository.CountActive(context)
}
