package config

import (
	"fmt"
	"net/url"
	"strings"

	dbutils "github.com/tendant/db-utils/db"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	// DefaultDatabaseAlias names the database described by DatabaseConfig itself.
	DefaultDatabaseAlias = "default"
)

// DatabaseConfig selects and describes the local user store.
type DatabaseConfig struct {
	Driver     string `env:"IDM_DB_DRIVER" env-default:"postgres"`
	Host       string `env:"IDM_PG_HOST" env-default:"localhost"`
	Port       uint16 `env:"IDM_PG_PORT" env-default:"5432"`
	Database   string `env:"IDM_PG_DATABASE" env-default:"idm_db"`
	User       string `env:"IDM_PG_USER" env-default:"idm"`
	Password   string `env:"IDM_PG_PASSWORD" env-default:"pwd"`
	Schema     string `env:"IDM_PG_SCHEMA" env-default:"public"`
	SQLitePath string `env:"IDM_SQLITE_PATH" env-default:"siteuser.db"`
}

// ToDatabaseURL converts the config to a connection URL understood by siteuser.Open.
func (d DatabaseConfig) ToDatabaseURL() string {
	if d.Driver == DriverSQLite {
		return "sqlite://" + d.SQLitePath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// DSN resolves a database alias. "default" (or empty) is this config; any other
// alias is read from IDM_DB_URL_<ALIAS>.
func (d DatabaseConfig) DSN(alias string) (string, error) {
	if alias == "" || alias == DefaultDatabaseAlias {
		return d.ToDatabaseURL(), nil
	}
	key := "IDM_DB_URL_" + strings.ToUpper(strings.ReplaceAll(alias, "-", "_"))
	dsn := GetEnv(key)
	if dsn == "" {
		return "", fmt.Errorf("unknown database alias %q (set %s)", alias, key)
	}
	return dsn, nil
}

func (d DatabaseConfig) Validate() error {
	return CollectErrors(RequireOneOf("IDM_DB_DRIVER", d.Driver, []string{DriverPostgres, DriverSQLite}))
}
