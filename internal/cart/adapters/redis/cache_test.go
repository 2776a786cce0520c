package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mpetrovic/storefront/internal/cart/domain"
	"github.com/mpetrovic/storefront/internal/cart/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client), mr
}

func TestCacheGet(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a cached cart", func(t *testing.T) {
		cache, mr := setupTestCache(t)

		cart := &domain.Cart{
			UserID: "user-1",
			Items: []domain.Item{
				{ProductID: "prod-1", Quantity: 2},
			},
		}
		data, _ := json.Marshal(cart)
		require.NoError(t, mr.Set(cacheKey("user-1"), string(data)))

		result, err := cache.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", result.UserID)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, "prod-1", result.Items[0].ProductID)
	})

	t.Run("misses for an unknown user", func(t *testing.T) {
		cache, _ := setupTestCache(t)

		result, err := cache.Get(ctx, "nonexistent")
		assert.ErrorIs(t, err, ports.ErrCacheMiss)
		assert.Nil(t, result)
	})

	t.Run("fails on corrupted cache payload", func(t *testing.T) {
		cache, mr := setupTestCache(t)
		require.NoError(t, mr.Set(cacheKey("user-1"), "not-json"))

		_, err := cache.Get(ctx, "user-1")
		assert.Error(t, err)
	})
}

func TestCacheSet(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the cart with a jittered TTL", func(t *testing.T) {
		cache, mr := setupTestCache(t)

		cart := &domain.Cart{UserID: "user-1", Items: []domain.Item{{ProductID: "prod-1", Quantity: 1}}}
		require.NoError(t, cache.Set(ctx, "user-1", cart))

		ttl := mr.TTL(cacheKey("user-1"))
		assert.GreaterOrEqual(t, ttl, baseTTL)
		assert.LessOrEqual(t, ttl, baseTTL+5*time.Minute)

		result, err := cache.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, cart.UserID, result.UserID)
	})
}

func TestCacheDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the cached entry", func(t *testing.T) {
		cache, mr := setupTestCache(t)
		require.NoError(t, mr.Set(cacheKey("user-1"), "{}"))

		require.NoError(t, cache.Delete(ctx, "user-1"))

		_, err := cache.Get(ctx, "user-1")
		assert.ErrorIs(t, err, ports.ErrCacheMiss)
	})

	t.Run("is a no-op when nothing is cached", func(t *testing.T) {
		cache, _ := setupTestCache(t)
		assert.NoError(t, cache.Delete(ctx, "user-1"))
	})
}
