// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is a process-local [Cache] guarded by a mutex.
//
// Suitable for single-instance deployments only: invalidation does not
// propagate to other processes.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	roles      []string
	computedAt time.Time
}

// NewMemoryCache constructs a MemoryCache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements [Cache]. Expired entries are dropped lazily on read.
func (cache *MemoryCache) Get(_ context.Context, userID string) ([]string, bool, error) {
	cache.mu.RLock()
	entry, ok := cache.entries[userID]
	cache.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}

	if cache.now().Sub(entry.computedAt) > cache.ttl {
		cache.mu.Lock()
		delete(cache.entries, userID)
		cache.mu.Unlock()
		return nil, false, nil
	}

	roles := make([]string, len(entry.roles))
	copy(roles, entry.roles)
	return roles, true, nil
}

// Set implements [Cache].
func (cache *MemoryCache) Set(_ context.Context, userID string, roles []string) error {
	stored := make([]string, len(roles))
	copy(stored, roles)

	cache.mu.Lock()
	cache.entries[userID] = memoryEntry{roles: stored, computedAt: cache.now()}
	cache.mu.Unlock()
	return nil
}

// Invalidate implements [Cache].
func (cache *MemoryCache) Invalidate(_ context.Context, userID string) error {
	cache.mu.Lock()
	delete(cache.entries, userID)
	cache.mu.Unlock()
	return nil
}
