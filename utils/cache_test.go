package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *RedisFolderCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, NewRedisFolderCache(rc, time.Minute)
}

func TestRedisFolderCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, cache := newTestCache(t)

	_, ok, err := cache.Get(ctx, "root")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "root", "folder-1"))
	id, ok, err := cache.Get(ctx, "root")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "folder-1", id)
	assert.True(t, mr.Exists("intake:folder:root"))
	assert.Equal(t, time.Minute, mr.TTL("intake:folder:root"))
}

func TestRedisFolderCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, cache := newTestCache(t)

	require.NoError(t, cache.Set(ctx, "root", "folder-1"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := cache.Get(ctx, "root")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisFolderCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	_, cache := newTestCache(t)

	require.NoError(t, cache.Set(ctx, "root", "folder-1"))
	require.NoError(t, cache.Invalidate(ctx, "root"))
	_, ok, err := cache.Get(ctx, "root")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisFolderCache_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rc.Close() })
	cache := NewRedisFolderCache(rc, time.Minute)
	mr.Close()

	_, _, err = cache.Get(context.Background(), "root")
	assert.Error(t, err)
}

func TestNewRedisFolderCache_NilClient(t *testing.T) {
	assert.Nil(t, NewRedisFolderCache(nil, time.Minute))
}
