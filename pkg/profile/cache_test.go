package profile

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/siteuser/pkg/auth0"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemoryCache()
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", &auth0.User{UserID: "auth0|1"}, time.Minute))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "auth0|1", got.UserID)

	now = now.Add(time.Minute)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheReturnsCopies(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", &auth0.User{UserID: "auth0|1", UserMetadata: map[string]any{"given_name": "Ada"}}, time.Minute))

	first, _, _ := cache.Get(ctx, "k")
	first.UserMetadata["given_name"] = "changed"

	second, _, _ := cache.Get(ctx, "k")
	assert.Equal(t, "Ada", second.UserMetadata["given_name"])
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache := NewRedisCache(client)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, CacheKey("auth0|1"))
	require.NoError(t, err)
	assert.False(t, ok)

	family := "Lovelace"
	require.NoError(t, cache.Set(ctx, CacheKey("auth0|1"), &auth0.User{
		UserID:       "auth0|1",
		Email:        "ada@example.com",
		FamilyName:   &family,
		UserMetadata: map[string]any{"given_name": "Ada"},
	}, 10*time.Minute))

	assert.True(t, mr.Exists("auth0user.userprofile.auth0|1"))
	assert.Equal(t, 10*time.Minute, mr.TTL("auth0user.userprofile.auth0|1"))

	got, ok, err := cache.Get(ctx, CacheKey("auth0|1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", got.Email)
	require.NotNil(t, got.FamilyName)
	assert.Equal(t, "Lovelace", *got.FamilyName)
	assert.Equal(t, "Ada", got.UserMetadata["given_name"])

	mr.FastForward(11 * time.Minute)
	_, ok, err = cache.Get(ctx, CacheKey("auth0|1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, mr.Set(CacheKey("auth0|1"), "{not json"))

	_, ok, err := NewRedisCache(client).Get(context.Background(), CacheKey("auth0|1"))
	assert.Error(t, err)
	assert.False(t, ok)
}
