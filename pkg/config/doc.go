// Package config provides the environment-driven configuration for siteuser.
//
// Commands load their settings with cleanenv into the structs defined here:
//
//	var cfg struct {
//		Auth0    config.Auth0Config
//		Database config.DatabaseConfig
//		Session  config.SessionConfig
//	}
//	if err := cleanenv.ReadEnv(&cfg); err != nil {
//		slog.Error("failed to read config", "err", err)
//		os.Exit(1)
//	}
//
// Each struct that has hard requirements exposes Validate, which reports every
// failing field at once as ValidationErrors.
//
// The GetEnv* helpers cover optional values that are looked up by computed name,
// such as database aliases (IDM_DB_URL_<ALIAS>).
package config
