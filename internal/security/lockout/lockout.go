// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package lockout implements the account lockout registry.

A lockout is a hard time-boxed denial: while one is active for an email,
every login is refused before credentials are even examined. Lockouts are
created by the escalation policy when the failure count crosses the lock
threshold and expire on their own; the janitor deactivates stale rows and
the registry ignores expired ones on read regardless.

# Concurrency

Two requests can cross the lock threshold at the same instant. The registry
resolves that race in storage: a partial unique index allows at most one
active lockout per email, and Lock upserts against it, so concurrent calls
collapse into a single active row with the latest expiry.
*/
package lockout

import (
	"time"
)

// # Domain Entities

// Lockout is one denial window for an account.
type Lockout struct {
	ID string `json:"id"`
	// Email is the canonical (lowercase) identity key under lockout.
	Email string `json:"email"`
	// Reason is a short operator-facing explanation.
	Reason    string    `json:"reason"`
	LockedAt  time.Time `json:"locked_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// Active is false once the window elapsed or an operator lifted the lock.
	Active bool `json:"active"`
}

// Expired reports whether the lockout window has elapsed at the given instant.
func (lockout *Lockout) Expired(now time.Time) bool {
	return !now.Before(lockout.ExpiresAt)
}

// Remaining returns the time left in the denial window, floored at zero.
func (lockout *Lockout) Remaining(now time.Time) time.Duration {
	if lockout.Expired(now) {
		return 0
	}
	return lockout.ExpiresAt.Sub(now)
}
