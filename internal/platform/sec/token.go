// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the security primitives shared across domains:
// password hashing, opaque session token generation, and the authenticated
// principal carried through request contexts.
//
// Session tokens are deliberately opaque (not JWTs): the server must be able
// to revoke a single session immediately, which requires a server-side
// registry as the source of truth. Only the SHA-256 digest of a token is ever
// stored; a database leak does not yield usable bearer tokens.
package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns a URL-safe, unpadded base64 token of the given
// byte length, backed by [crypto/rand]. The plaintext token is handed to the
// client exactly once and never persisted.
func GenerateSecureToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Both the session registry and the cache are keyed by this digest, so the
// plaintext bearer value exists only in flight.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
