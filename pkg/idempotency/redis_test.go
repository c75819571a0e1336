package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client, 10*time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func TestRedisCache_ReserveMintsThenReuses(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	first, err := cache.Reserve(ctx, "user-1", "hash-1")
	require.NoError(t, err)
	assert.False(t, first.Reused)
	assert.NotEmpty(t, first.Key)
	assert.True(t, mr.Exists(cacheKey("user-1", "hash-1")))
	assert.Equal(t, 10*time.Minute, mr.TTL(cacheKey("user-1", "hash-1")))

	second, err := cache.Reserve(ctx, "user-1", "hash-1")
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.CreatedAt.UnixMilli(), second.CreatedAt.UnixMilli())
}

func TestRedisCache_ExpiresAfterTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	first, _ := cache.Reserve(ctx, "user-1", "hash-1")
	mr.FastForward(11 * time.Minute)

	second, err := cache.Reserve(ctx, "user-1", "hash-1")
	require.NoError(t, err)
	assert.False(t, second.Reused)
	assert.NotEqual(t, first.Key, second.Key)
}

func TestRedisCache_Release(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	_, _ = cache.Reserve(ctx, "user-1", "hash-1")
	require.NoError(t, cache.Release(ctx, "user-1", "hash-1"))
	assert.False(t, mr.Exists(cacheKey("user-1", "hash-1")))
}

func TestRedisCache_MalformedEntry(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("user-1", "hash-1"), "garbage"))
	_, err := cache.Reserve(context.Background(), "user-1", "hash-1")
	assert.Error(t, err)
}

func TestRedisCache_Unavailable(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	mr.Close()
	_, err := cache.Reserve(context.Background(), "user-1", "hash-1")
	assert.Error(t, err)
}
