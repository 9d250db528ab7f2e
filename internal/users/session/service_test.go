// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/platform/sec"
	"github.com/taibuivan/facegate/internal/users/session"
)

// # Fakes

type memoryRepository struct {
	mu     sync.Mutex
	byHash map[string]*session.Session
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byHash: make(map[string]*session.Session)}
}

func (r *memoryRepository) Create(_ context.Context, entry *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[entry.TokenHash] = entry
	return nil
}

func (r *memoryRepository) FindByTokenHash(_ context.Context, tokenHash string) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byHash[tokenHash]
	if !ok || entry.Expired(time.Now()) {
		return nil, apperr.NotFound("Session")
	}
	return entry, nil
}

func (r *memoryRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byHash, tokenHash)
	return nil
}

func (r *memoryRepository) CountActive(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, entry := range r.byHash {
		if !entry.Expired(time.Now()) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepository) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type memoryCache struct {
	mu      sync.Mutex
	byHash  map[string]*session.Session
	readErr error
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{byHash: make(map[string]*session.Session)}
}

func (c *memoryCache) Set(_ context.Context, entry *session.Session, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash[entry.TokenHash] = entry
	c.sets++
	return nil
}

func (c *memoryCache) Get(_ context.Context, tokenHash string) (*session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.byHash[tokenHash], nil
}

func (c *memoryCache) Delete(_ context.Context, tokenHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byHash, tokenHash)
	return nil
}

func (c *memoryCache) evict(tokenHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byHash, tokenHash)
}

func newIssuer(t *testing.T) (*session.Issuer, *memoryRepository, *memoryCache) {
	t.Helper()
	repository := newMemoryRepository()
	cache := newMemoryCache()
	return session.NewIssuer(repository, cache, time.Hour), repository, cache
}

var aliceInput = session.IssueInput{
	IdentityID: "018f0000-0000-7000-8000-000000000001",
	Email:      "alice@example.com",
	Name:       "Alice",
}

// # Tests

/*
TestIssuer_IssueAndValidate covers the core round trip: a freshly issued
token resolves to its session, and only the token hash ever hits storage.
*/
func TestIssuer_IssueAndValidate(t *testing.T) {
	issuer, repository, _ := newIssuer(t)
	ctx := context.Background()

	token, entry, err := issuer.Issue(ctx, aliceInput)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The plaintext token is never stored, only its digest.
	assert.Equal(t, sec.HashToken(token), entry.TokenHash)
	_, plaintextStored := repository.byHash[token]
	assert.False(t, plaintextStored)

	resolved, err := issuer.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resolved.Email)
	assert.Equal(t, entry.ID, resolved.ID)
}

/*
TestIssuer_TokensAreUnique verifies that repeated issuance never repeats a
token.
*/
func TestIssuer_TokensAreUnique(t *testing.T) {
	issuer, _, _ := newIssuer(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, _, err := issuer.Issue(ctx, aliceInput)
		require.NoError(t, err)
		require.False(t, seen[token], "token issued twice")
		seen[token] = true
	}
}

/*
TestIssuer_Validate_CacheMissFallsBack verifies that a cache eviction is
invisible: validation falls back to the durable store and repopulates the
cache for the next lookup.
*/
func TestIssuer_Validate_CacheMissFallsBack(t *testing.T) {
	issuer, _, cache := newIssuer(t)
	ctx := context.Background()

	token, entry, err := issuer.Issue(ctx, aliceInput)
	require.NoError(t, err)

	// Simulate a Redis eviction.
	cache.evict(entry.TokenHash)
	setsBefore := cache.sets

	resolved, err := issuer.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, resolved.ID)

	// The durable hit repopulated the cache.
	assert.Equal(t, setsBefore+1, cache.sets)
	assert.NotNil(t, cache.byHash[entry.TokenHash])
}

/*
TestIssuer_Validate_CacheErrorDegrades verifies that cache trouble never
denies a valid session: a failing read degrades to the durable path.
*/
func TestIssuer_Validate_CacheErrorDegrades(t *testing.T) {
	issuer, _, cache := newIssuer(t)
	ctx := context.Background()

	token, _, err := issuer.Issue(ctx, aliceInput)
	require.NoError(t, err)

	cache.readErr = errors.New("redis connection refused")

	resolved, err := issuer.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resolved.Email)
}

/*
TestIssuer_Validate_RejectsUnknownToken verifies that a token with no
backing session yields an unauthorized error.
*/
func TestIssuer_Validate_RejectsUnknownToken(t *testing.T) {
	issuer, _, _ := newIssuer(t)

	_, err := issuer.Validate(context.Background(), "never-issued")
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "UNAUTHORIZED", ae.Code)
}

/*
TestIssuer_Validate_RejectsExpired verifies that an expired session is
refused even when it still sits in the cache, and is evicted on the spot.
*/
func TestIssuer_Validate_RejectsExpired(t *testing.T) {
	repository := newMemoryRepository()
	cache := newMemoryCache()
	issuer := session.NewIssuer(repository, cache, -time.Minute) // already expired

	token, entry, err := issuer.Issue(context.Background(), aliceInput)
	require.NoError(t, err)

	_, err = issuer.Validate(context.Background(), token)
	require.Error(t, err)
	assert.Nil(t, cache.byHash[entry.TokenHash])
}

/*
TestIssuer_Revoke verifies revocation removes the session from both stores
and that revoking twice is harmless.
*/
func TestIssuer_Revoke(t *testing.T) {
	issuer, repository, cache := newIssuer(t)
	ctx := context.Background()

	token, entry, err := issuer.Issue(ctx, aliceInput)
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, token))

	assert.Nil(t, cache.byHash[entry.TokenHash])
	_, durable := repository.byHash[entry.TokenHash]
	assert.False(t, durable)

	_, err = issuer.Validate(ctx, token)
	require.Error(t, err)

	// Idempotent: a second revocation still succeeds.
	require.NoError(t, issuer.Revoke(ctx, token))
}

/*
TestIssuer_VerifySession verifies the middleware adapter maps a session onto
its principal.
*/
func TestIssuer_VerifySession(t *testing.T) {
	issuer, _, _ := newIssuer(t)
	ctx := context.Background()

	token, _, err := issuer.Issue(ctx, aliceInput)
	require.NoError(t, err)

	principal, err := issuer.VerifySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, aliceInput.IdentityID, principal.IdentityID)
	assert.Equal(t, aliceInput.Email, principal.Email)
	assert.Equal(t, aliceInput.Name, principal.Name)
}
