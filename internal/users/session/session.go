// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session implements issuance and validation of opaque bearer sessions.

A session token is 32 bytes of [crypto/rand] entropy, URL-safe base64
encoded, handed to the client exactly once. Only its SHA-256 digest is ever
stored. PostgreSQL holds the durable truth; Redis caches live sessions in
front of it so per-request validation stays off the primary database.

# Cache Lifecycle

  - Issue: write Postgres, then populate the cache with the session TTL.
  - Validate: cache hit returns immediately; a miss falls back to Postgres
    and repopulates the cache with the remaining lifetime.
  - Revoke: delete from both stores; idempotent either way.

A cache eviction is therefore invisible to clients — the token keeps working
as long as the durable row lives.
*/
package session

import (
	"time"
)

// # Domain Entities

// Session represents one active login session.
type Session struct {
	ID string `json:"id"`
	// IdentityID is the account this session authenticates.
	IdentityID string `json:"identity_id"`
	// Email is denormalized so validation does not need an account lookup.
	Email string `json:"email"`
	// Name is the account display name at issue time.
	Name string `json:"name"`
	// TokenHash is the SHA-256 digest of the bearer token. The plaintext
	// token is never stored.
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session lifetime has elapsed at the instant.
func (session *Session) Expired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// Remaining returns the session lifetime left, floored at zero.
func (session *Session) Remaining(now time.Time) time.Duration {
	if session.Expired(now) {
		return 0
	}
	return session.ExpiresAt.Sub(now)
}

// # Session Constraints

const (
	// TokenLength is the byte length of the random secure token.
	TokenLength = 32
)
