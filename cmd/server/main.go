package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	dbutils "github.com/tendant/db-utils/db"

	"github.com/tendant/siteuser/pkg/auth0"
	"github.com/tendant/siteuser/pkg/backends"
	"github.com/tendant/siteuser/pkg/config"
	"github.com/tendant/siteuser/pkg/loginflow"
	"github.com/tendant/siteuser/pkg/mailer"
	"github.com/tendant/siteuser/pkg/profile"
	"github.com/tendant/siteuser/pkg/sessions"
	"github.com/tendant/siteuser/pkg/siteuser"
)

type Config struct {
	AppConfig app.AppConfig
	Auth0     config.Auth0Config
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	Session   config.SessionConfig
	Site      config.SiteConfig
	Login     config.LoginConfig
	Email     config.EmailConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading configuration", "err", err)
		os.Exit(1)
	}
	for _, v := range []interface{ Validate() error }{cfg.Auth0, cfg.Database, cfg.Session} {
		if err := v.Validate(); err != nil {
			slog.Error("Invalid configuration", "err", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()

	client := auth0.NewClient(cfg.Auth0)
	if exp, err := client.ManagementTokenExpiry(); err != nil {
		slog.Warn("Cannot read management token expiry", "err", err)
	} else if expiresWithin(exp, time.Now(), 24*time.Hour) {
		slog.Warn("Management token expires soon", "expires_at", exp)
	}

	repo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed opening user store", "driver", cfg.Database.Driver, "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	var cache profile.Cache = profile.NewMemoryCache()
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Failed connecting to redis", "addr", cfg.Redis.Addr, "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		cache = profile.NewRedisCache(rdb)
	}
	profiles := profile.NewStore(client, cache, cfg.Auth0.ProfileCache)

	opts := []siteuser.Option{
		siteuser.WithDefaultSite(cfg.Site.SiteID),
		siteuser.WithSessionSecret(cfg.Session.Secret),
	}
	if m, err := mailer.New(cfg.Email); err != nil {
		slog.Warn("Email disabled", "host", cfg.Email.Host, "err", err)
	} else {
		opts = append(opts, siteuser.WithMailer(m))
	}
	service := siteuser.NewService(repo, client, profiles, opts...)

	authenticator := backends.NewAuthenticator(backends.NewModelBackend(repo))
	sessionManager := sessions.NewManager(cfg.Session, service, sessions.WithUserValidation(authenticator))

	flow := loginflow.BuildAuthorizationCodeFlow(&loginflow.ServiceDependencies{
		Provider:      client,
		Authenticator: authenticator,
		Sessions:      sessionManager,
		Settings: loginflow.Settings{
			SiteID:            cfg.Site.SiteID,
			LoginPath:         cfg.Login.LoginPath,
			LoginURL:          cfg.Login.LoginURL,
			AdminURL:          cfg.Login.AdminURL,
			RestrictRedirects: cfg.Login.RestrictRedirects,
		},
	})

	server := app.DefaultApp()

	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	server.R.Group(func(r chi.Router) {
		r.Use(sessionManager.Middleware)
		r.Use(auth0.ConnectionMiddleware(cfg.Auth0.ClientID, cfg.Auth0.Domain, sessionManager.IsAuthenticated))

		loginflow.NewHandle(flow, cfg.Login.LoginPath, sessionManager.IsAuthenticated).Routes(r)

		r.With(sessionManager.RequireSession).Get("/me", NewMeHandle(service).ServeHTTP)
	})

	slog.Info("Starting siteuser", "site_id", cfg.Site.SiteID, "login_path", cfg.Login.LoginPath, "redis", cfg.Redis.Enabled())
	server.Run()
}

func openRepository(ctx context.Context, cfg config.DatabaseConfig) (siteuser.Repository, error) {
	if cfg.Driver == config.DriverSQLite {
		return siteuser.OpenSQLite(ctx, cfg.SQLitePath)
	}

	dbConfig := cfg.ToDbConfig()
	pool, err := dbutils.NewDbPool(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed creating dbpool", "db", dbConfig.Database, "host", dbConfig.Host, "port", dbConfig.Port, "user", dbConfig.User)
		return nil, err
	}
	return siteuser.NewPostgresRepository(pool), nil
}

// expiresWithin reports whether exp falls before now+d. The zero time means the
// token never expires.
func expiresWithin(exp, now time.Time, d time.Duration) bool {
	if exp.IsZero() {
		return false
	}
	return exp.Before(now.Add(d))
}
