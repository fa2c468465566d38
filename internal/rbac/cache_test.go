// Copyright (c) 2026 Fabrika. All rights reserved.
// Author: platform@fabrika.dev

package rbac_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabrika-platform/fabrika/internal/rbac"
)

/*
TestMemoryCache covers the in-process cache lifecycle: miss, fill, hit,
invalidate.
*/
func TestMemoryCache(t *testing.T) {
	cache := rbac.NewMemoryCache(5 * time.Minute)
	ctx := context.Background()

	// 1. Cold cache misses.
	_, hit, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, hit)

	// 2. Fill and hit.
	require.NoError(t, cache.Set(ctx, "user-1", []string{rbac.RoleViewer}))
	roles, hit, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{rbac.RoleViewer}, roles)

	// 3. An empty role set is a valid cached value, distinct from a miss.
	require.NoError(t, cache.Set(ctx, "user-2", []string{}))
	roles, hit, err = cache.Get(ctx, "user-2")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Empty(t, roles)

	// 4. Invalidation brings back the miss.
	require.NoError(t, cache.Invalidate(ctx, "user-1"))
	_, hit, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, hit)
}

/*
TestMemoryCache_Isolation verifies the cache hands out copies, so a
caller mutating the returned slice cannot poison later reads.
*/
func TestMemoryCache_Isolation(t *testing.T) {
	cache := rbac.NewMemoryCache(5 * time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "user-1", []string{rbac.RoleViewer, rbac.RoleOperator}))

	first, hit, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, hit)
	first[0] = "mutated"

	second, hit, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{rbac.RoleViewer, rbac.RoleOperator}, second)
}

/*
TestRedisCache exercises the shared cache against an embedded Redis,
including TTL expiry.
*/
func TestRedisCache(t *testing.T) {
	server := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := rbac.NewRedisCache(client, 5*time.Minute)
	ctx := context.Background()

	// 1. Miss, fill, hit.
	_, hit, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "user-1", []string{rbac.RoleAdmin, rbac.RoleViewer}))
	roles, hit, err := cache.Get(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []string{rbac.RoleAdmin, rbac.RoleViewer}, roles)

	// 2. Entries expire with the configured TTL.
	server.FastForward(6 * time.Minute)
	_, hit, err = cache.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, hit)

	// 3. Invalidation removes the entry immediately.
	require.NoError(t, cache.Set(ctx, "user-2", []string{rbac.RoleViewer}))
	require.NoError(t, cache.Invalidate(ctx, "user-2"))
	_, hit, err = cache.Get(ctx, "user-2")
	require.NoError(t, err)
	assert.False(t, hit)
}
