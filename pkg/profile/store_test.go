package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/siteuser/pkg/auth0"
	"github.com/tendant/siteuser/pkg/auth0/auth0test"
	apperrors "github.com/tendant/siteuser/pkg/errors"
	"github.com/tendant/siteuser/pkg/profile"
)

func newStore(t *testing.T) (*auth0test.Server, *profile.MemoryCache, *profile.Store) {
	t.Helper()
	srv := auth0test.NewServer()
	t.Cleanup(srv.Close)
	cache := profile.NewMemoryCache()
	return srv, cache, profile.NewStore(srv.Client(), cache, 10*time.Minute)
}

func TestGetReadsThroughCache(t *testing.T) {
	srv, cache, store := newStore(t)
	srv.AddUser(auth0.User{UserID: "auth0|1", Email: "ada@example.com", UserMetadata: map[string]any{"given_name": "Ada"}})
	ctx := context.Background()

	p := store.Get(ctx, "auth0|1")
	assert.True(t, p.Backed())
	assert.Equal(t, "ada@example.com", p.Email())
	assert.Equal(t, "Ada", p.GivenName())

	cached, ok, err := cache.Get(ctx, "auth0user.userprofile.auth0|1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", cached.Email)

	again := store.Get(ctx, "auth0|1")
	assert.Equal(t, "ada@example.com", again.Email())
	assert.Equal(t, 1, srv.Calls("get"))
}

func TestGetNeverFails(t *testing.T) {
	srv, _, store := newStore(t)
	ctx := context.Background()

	t.Run("empty id", func(t *testing.T) {
		p := store.Get(ctx, "")
		assert.False(t, p.Backed())
		assert.Zero(t, srv.TotalCalls())
	})

	t.Run("missing remote user", func(t *testing.T) {
		p := store.Get(ctx, "auth0|missing")
		assert.False(t, p.Backed())
		assert.Empty(t, p.Email())
		assert.Empty(t, p.UserMetadata())
	})

	t.Run("provider down", func(t *testing.T) {
		srv.AddUser(auth0.User{UserID: "auth0|2", Email: "b@example.com"})
		srv.FailNext("get", 1)
		p := store.Get(ctx, "auth0|2")
		assert.False(t, p.Backed())

		// nothing was cached, so the next read reaches the provider again
		p = store.Get(ctx, "auth0|2")
		assert.True(t, p.Backed())
	})
}

func TestPutOverwrites(t *testing.T) {
	srv, _, store := newStore(t)
	srv.AddUser(auth0.User{UserID: "auth0|1", Email: "old@example.com"})
	ctx := context.Background()

	store.Get(ctx, "auth0|1")
	store.Put(ctx, &auth0.User{UserID: "auth0|1", Email: "fresh@example.com"})

	assert.Equal(t, "fresh@example.com", store.Get(ctx, "auth0|1").Email())
	assert.Equal(t, 1, srv.Calls("get"))
}

func TestSavePushesChanges(t *testing.T) {
	srv, cache, store := newStore(t)
	srv.AddUser(auth0.User{UserID: "auth0|1", Email: "ada@example.com"})
	ctx := context.Background()

	p := store.Get(ctx, "auth0|1")
	p.SetGivenName("Ada")
	p.SetEmail("ada@lovelace.dev")
	p.SetPassword("Sup3r-secret")

	require.NoError(t, store.Save(ctx, p))
	assert.Equal(t, 1, srv.Calls("patch"))
	assert.Equal(t, "Sup3r-secret", srv.LastPatch["password"])
	assert.Equal(t, "ada@lovelace.dev", srv.LastPatch["email"])
	assert.Empty(t, p.PendingPassword())

	remote, _ := srv.User("auth0|1")
	assert.Equal(t, "Ada", remote.UserMetadata["given_name"])

	cached, ok, err := cache.Get(ctx, profile.CacheKey("auth0|1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada@lovelace.dev", cached.Email)

	// unchanged profiles do not reach the provider
	require.NoError(t, store.Save(ctx, p))
	assert.Equal(t, 1, srv.Calls("patch"))
}

func TestSaveUnbackedIsNoop(t *testing.T) {
	srv, _, store := newStore(t)

	p := profile.Empty()
	p.SetEmail("x@example.com")
	require.NoError(t, store.Save(context.Background(), p))
	assert.Zero(t, srv.TotalCalls())
}

func TestSaveMissingRemoteUser(t *testing.T) {
	srv, _, store := newStore(t)
	ctx := context.Background()
	store.Put(ctx, &auth0.User{UserID: "auth0|gone", Email: "gone@example.com"})

	p := store.Get(ctx, "auth0|gone")
	p.SetEmail("new@example.com")

	err := store.Save(ctx, p)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, 1, srv.Calls("patch"))
}
