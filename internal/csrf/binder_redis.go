// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package csrf

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/fabrika-platform/fabrika/internal/platform/constants"
)

// RedisBinder stores session → token bindings in Redis with a sliding TTL,
// so abandoned sessions shed their bindings without explicit cleanup.
type RedisBinder struct {
	client *redis.Client
}

// NewRedisBinder wraps an existing Redis client.
func NewRedisBinder(client *redis.Client) *RedisBinder {
	return &RedisBinder{client: client}
}

func bindingKey(sessionID string) string {
	return constants.RedisPrefixCSRFBinding + sessionID
}

// Bind replaces the current binding for sessionID, resetting the TTL.
func (binder *RedisBinder) Bind(ctx context.Context, sessionID, token string) error {
	err := binder.client.Set(ctx, bindingKey(sessionID), token, constants.CSRFBindingTTL).Err()
	if err != nil {
		return fmt.Errorf("redis set csrf binding: %w", err)
	}
	return nil
}

// Lookup returns the bound token, or "" when the binding is absent or expired.
func (binder *RedisBinder) Lookup(ctx context.Context, sessionID string) (string, error) {
	token, err := binder.client.Get(ctx, bindingKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get csrf binding: %w", err)
	}
	return token, nil
}
