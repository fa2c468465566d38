// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import "context"

// Cache stores resolved role sets per user for a bounded staleness
// window.
//
// # Staleness Contract
//
// A demoted user may retain cached privilege for up to the configured
// TTL. Call sites that change role assignments must call Invalidate to
// shorten that window; in a multi-instance deployment only a shared
// implementation ([RedisCache]) makes invalidation effective across
// processes.
type Cache interface {
	// Get returns the cached role set for userID. The second return
	// value is false on a miss or an expired entry.
	Get(ctx context.Context, userID string) ([]string, bool, error)

	// Set stores the role set for userID, replacing any prior entry
	// and restarting its TTL.
	Set(ctx context.Context, userID string, roles []string) error

	// Invalidate drops the entry for userID if present.
	Invalidate(ctx context.Context, userID string) error
}
