package siteuser

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

// testRepositoryContract exercises behaviour every Repository must share.
func testRepositoryContract(t *testing.T, repo Repository) {
	ctx := context.Background()
	joined := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	newUser := func(externalID string, siteID int64, email string) *User {
		return &User{
			ExternalID: externalID,
			Email:      email,
			Password:   "!unusable",
			IsActive:   true,
			SiteID:     siteID,
			DateJoined: joined,
			CreatedAt:  joined,
			ModifiedAt: joined,
		}
	}

	t.Run("create and get by natural key", func(t *testing.T) {
		u := newUser("auth0|c1", 1, "c1@example.com")
		require.NoError(t, repo.Create(ctx, u))
		assert.NotZero(t, u.ID)

		got, err := repo.GetByNaturalKey(ctx, "auth0|c1", 1)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "c1@example.com", got.Email)
		assert.True(t, got.IsActive)
		assert.False(t, got.IsStaff)
		assert.Nil(t, got.LastLogin)
		assert.True(t, joined.Equal(got.DateJoined))
	})

	t.Run("natural key is exact", func(t *testing.T) {
		_, err := repo.GetByNaturalKey(ctx, "auth0|c1", 2)
		assert.True(t, apperrors.IsNotFound(err))
		_, err = repo.GetByNaturalKey(ctx, "auth0|C1", 1)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("same identity on another site", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newUser("auth0|c1", 2, "c1@example.com")))
	})

	t.Run("duplicate natural key", func(t *testing.T) {
		err := repo.Create(ctx, newUser("auth0|c1", 1, "other@example.com"))
		assert.True(t, apperrors.IsAlreadyExists(err), "got %v", err)
	})

	t.Run("get by email", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "C1@Example.com", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.SiteID)

		_, err = repo.GetByEmail(ctx, "c1@example.com", 3)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("update leaves email alone", func(t *testing.T) {
		u, err := repo.GetByNaturalKey(ctx, "auth0|c1", 1)
		require.NoError(t, err)

		u.Email = "ignored@example.com"
		u.IsStaff = true
		u.IsActive = false
		u.Password = "$argon2id$new"
		u.ModifiedAt = joined.Add(time.Hour)
		require.NoError(t, repo.Update(ctx, u))

		got, err := repo.GetByNaturalKey(ctx, "auth0|c1", 1)
		require.NoError(t, err)
		assert.Equal(t, "c1@example.com", got.Email)
		assert.True(t, got.IsStaff)
		assert.False(t, got.IsActive)
		assert.Equal(t, "$argon2id$new", got.Password)
		assert.True(t, joined.Add(time.Hour).Equal(got.ModifiedAt))
	})

	t.Run("targeted updates", func(t *testing.T) {
		u, err := repo.GetByNaturalKey(ctx, "auth0|c1", 1)
		require.NoError(t, err)
		at := joined.Add(2 * time.Hour)

		require.NoError(t, repo.UpdatePassword(ctx, u.ID, "$argon2id$rehashed", at))
		require.NoError(t, repo.UpdateEmail(ctx, u.ID, "renamed@example.com", at))
		require.NoError(t, repo.UpdateLastLogin(ctx, u.ID, at))

		got, err := repo.GetByNaturalKey(ctx, "auth0|c1", 1)
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$rehashed", got.Password)
		assert.Equal(t, "renamed@example.com", got.Email)
		require.NotNil(t, got.LastLogin)
		assert.True(t, at.Equal(*got.LastLogin))
	})

	t.Run("updates of missing rows", func(t *testing.T) {
		assert.True(t, apperrors.IsNotFound(repo.UpdateLastLogin(ctx, 999999, joined)))
		assert.True(t, apperrors.IsNotFound(repo.UpdateEmail(ctx, 999999, "x@example.com", joined)))
	})
}

func TestInMemoryRepository(t *testing.T) {
	testRepositoryContract(t, NewInMemoryRepository())
}

func TestInMemoryRepositoryReturnsCopies(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &User{ExternalID: "auth0|1", SiteID: 1, Email: "a@example.com"}))

	got, err := repo.GetByNaturalKey(ctx, "auth0|1", 1)
	require.NoError(t, err)
	got.Email = "mutated@example.com"

	again, err := repo.GetByNaturalKey(ctx, "auth0|1", 1)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", again.Email)
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := Open(context.Background(), "sqlite://"+filepath.Join(t.TempDir(), "siteuser.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	testRepositoryContract(t, repo)
}

func TestSQLiteRepositoryInMemory(t *testing.T) {
	repo, err := Open(context.Background(), "sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	testRepositoryContract(t, repo)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://root:hunter2@db/site")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter2")
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithInitScripts(filepath.Join("../../migrations", "siteuser.sql")),
		postgres.WithDatabase("idm_db"),
		postgres.WithUsername("idm"),
		postgres.WithPassword("pwd"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := Open(ctx, connString)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	testRepositoryContract(t, repo)
}
