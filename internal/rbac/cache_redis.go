// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fabrika-platform/fabrika/internal/platform/constants"
)

// RedisCache is a shared [Cache] backed by Redis, making role-change
// invalidation effective across all API instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing Redis client with the given entry TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func roleCacheKey(userID string) string {
	return constants.RedisPrefixRoleCache + userID
}

// Get implements [Cache]. A missing key is a plain miss, not an error.
func (cache *RedisCache) Get(ctx context.Context, userID string) ([]string, bool, error) {
	payload, err := cache.client.Get(ctx, roleCacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get role cache: %w", err)
	}

	var roles []string
	if err := json.Unmarshal(payload, &roles); err != nil {
		// Unreadable entry: treat as a miss so the store refills it.
		_ = cache.client.Del(ctx, roleCacheKey(userID)).Err()
		return nil, false, nil
	}
	return roles, true, nil
}

// Set implements [Cache].
func (cache *RedisCache) Set(ctx context.Context, userID string, roles []string) error {
	payload, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("marshal role cache entry: %w", err)
	}

	if err := cache.client.Set(ctx, roleCacheKey(userID), payload, cache.ttl).Err(); err != nil {
		return fmt.Errorf("redis set role cache: %w", err)
	}
	return nil
}

// Invalidate implements [Cache].
func (cache *RedisCache) Invalidate(ctx context.Context, userID string) error {
	if err := cache.client.Del(ctx, roleCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del role cache: %w", err)
	}
	return nil
}
