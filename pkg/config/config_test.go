package config

import (
	"testing"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SU_TEST_BOOL", "Yes")
	t.Setenv("SU_TEST_INT", "42")
	t.Setenv("SU_TEST_BAD_INT", "forty")
	t.Setenv("SU_TEST_DURATION", "90s")
	t.Setenv("SU_TEST_SLICE", " a, ,b ,")

	assert.True(t, GetEnvBool("SU_TEST_BOOL", false))
	assert.True(t, GetEnvBool("SU_TEST_UNSET", true))
	assert.Equal(t, int64(42), GetEnvInt64("SU_TEST_INT", 1))
	assert.Equal(t, int64(1), GetEnvInt64("SU_TEST_BAD_INT", 1))
	assert.Equal(t, 90*time.Second, GetEnvDuration("SU_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b"}, GetEnvSlice("SU_TEST_SLICE", nil))
	assert.Equal(t, "fallback", GetEnvOrDefault("SU_TEST_UNSET", "fallback"))
}

func TestAuth0ConfigDefaults(t *testing.T) {
	t.Setenv("AUTH0_DOMAIN", "tenant.auth0.com")
	t.Setenv("AUTH0_CLIENT_ID", "client")
	t.Setenv("AUTH0_CLIENT_SECRET", "secret")
	t.Setenv("AUTH0_JWT", "mgmt-token")

	var cfg Auth0Config
	require.NoError(t, cleanenv.ReadEnv(&cfg))

	assert.Equal(t, "Username-Password-Authentication", cfg.Connection)
	assert.Equal(t, 10*time.Minute, cfg.ProfileCache)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestAuth0ConfigValidateReportsEveryField(t *testing.T) {
	cfg := Auth0Config{Domain: "https://tenant.auth0.com/", Connection: "db"}

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, 0, len(verrs))
	for _, v := range verrs {
		fields = append(fields, v.Field)
	}
	assert.ElementsMatch(t, []string{
		"AUTH0_DOMAIN", "AUTH0_CLIENT_ID", "AUTH0_CLIENT_SECRET", "AUTH0_JWT",
		"AUTH0_PROFILE_CACHE", "AUTH0_TIMEOUT",
	}, fields)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   DriverPostgres,
		Host:     "db",
		Port:     5432,
		Database: "idm",
		User:     "idm",
		Password: "p@ss",
		Schema:   "public",
	}

	dsn, err := cfg.DSN("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://idm:p%40ss@db:5432/idm?sslmode=disable&search_path=public,public", dsn)

	t.Setenv("IDM_DB_URL_REPLICA_EU", "sqlite:///tmp/replica.db")
	dsn, err = cfg.DSN("replica-eu")
	require.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/replica.db", dsn)

	_, err = cfg.DSN("missing")
	assert.ErrorContains(t, err, "IDM_DB_URL_MISSING")

	cfg.Driver = DriverSQLite
	cfg.SQLitePath = "/var/lib/siteuser.db"
	assert.Equal(t, "sqlite:///var/lib/siteuser.db", cfg.ToDatabaseURL())
}

func TestSessionConfigValidate(t *testing.T) {
	cfg := SessionConfig{Secret: "short", CookieName: "siteuser_session", TTL: time.Hour}
	assert.ErrorContains(t, cfg.Validate(), "SESSION_SECRET")

	cfg.Secret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}
