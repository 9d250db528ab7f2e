// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/facegate/internal/platform/constants"
)

// # Redis Session Cache

// RedisCache implements Cache using Redis with per-key TTL.
type RedisCache struct {
	client *redis.Client
}

// NewCache creates a new Redis-backed session [Cache].
func NewCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

/*
Set stores a session under its token hash for the given TTL.

Description: The full session is serialized so cache hits require zero
database round trips.

Parameters:
  - context: context.Context
  - session: *Session
  - ttl: time.Duration

Returns:
  - error: Serialization or cache write failures
*/
func (cache *RedisCache) Set(context context.Context, session *Session, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixSession + session.TokenHash

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_cache_marshal_failed: %w", err)
	}

	// Set the session with TTL
	if err := cache.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Get retrieves a cached session by token hash.

Description: A miss returns (nil, nil); only connectivity or decode problems
are errors.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *Session: Cached entity, or nil on a miss
  - error: Connectivity or decode failures
*/
func (cache *RedisCache) Get(context context.Context, tokenHash string) (*Session, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixSession + tokenHash

	// Get the session from Redis
	payload, err := cache.client.Get(context, key).Bytes()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_session_cache_get_failed: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal(payload, session); err != nil {
		return nil, fmt.Errorf("redis_session_cache_unmarshal_failed: %w", err)
	}

	// TokenHash is json-omitted on purpose; restore it from the key context.
	session.TokenHash = tokenHash

	return session, nil
}

/*
Delete evicts a cached session by token hash.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - error: Deletion failures
*/
func (cache *RedisCache) Delete(context context.Context, tokenHash string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixSession + tokenHash

	// Delete the session from Redis
	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_session_cache_delete_failed: %w", err)
	}

	// Return nil on success
	return nil
}
