package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jinzhu/copier"
	dbutils "github.com/tendant/db-utils/db"
	"golang.org/x/term"

	"github.com/tendant/siteuser/pkg/auth0"
	"github.com/tendant/siteuser/pkg/config"
	"github.com/tendant/siteuser/pkg/passwords"
	"github.com/tendant/siteuser/pkg/profile"
	"github.com/tendant/siteuser/pkg/siteuser"
)

type Config struct {
	Auth0          config.Auth0Config
	Database       config.DatabaseConfig
	Site           config.SiteConfig
	PasswordPolicy config.PasswordPolicyConfig
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg := Config{}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed reading configuration", "err", err)
		os.Exit(1)
	}

	email := flag.String("email", "", "Specifies the login (email) for the superuser.")
	siteID := flag.Int64("site", cfg.Site.SiteID, "Specifies site for the superuser.")
	noInput := flag.Bool("noinput", false, "Do not prompt for input. Requires --email; the superuser cannot log in until given a password.")
	flag.BoolVar(noInput, "no-input", false, "Alias of --noinput.")
	database := flag.String("database", config.DefaultDatabaseAlias, `Specifies the database to use. Default is "default".`)
	firstName := flag.String("first_name", "", "Specifies the first name for the superuser.")
	lastName := flag.String("last_name", "", "Specifies the last name for the superuser.")
	flag.Parse()

	if err := cfg.Auth0.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repo, err := openRepository(ctx, cfg.Database, *database)
	if err != nil {
		slog.Error("Failed opening user store", "database", *database, "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	client := auth0.NewClient(cfg.Auth0)
	service := siteuser.NewService(repo, client, profile.NewStore(client, profile.NewMemoryCache(), cfg.Auth0.ProfileCache),
		siteuser.WithDefaultSite(cfg.Site.SiteID))

	var policy passwords.Policy
	copier.Copy(&policy, &cfg.PasswordPolicy)

	fd := int(os.Stdin.Fd())
	cmd := &command{
		users:     service,
		directory: client,
		policy:    passwords.NewPolicyChecker(policy),
		stdin:     bufio.NewReader(os.Stdin),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		isTTY:     term.IsTerminal(fd),
		readPassword: func() (string, error) {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stdout)
			return string(b), err
		},
		newID: uuid.NewString,
	}

	err = cmd.run(ctx, options{
		Email:       *email,
		FirstName:   *firstName,
		LastName:    *lastName,
		SiteID:      *siteID,
		Interactive: !*noInput,
	})
	if errors.Is(err, errCancelled) || errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(os.Stderr, "\nOperation cancelled.")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message(err))
		os.Exit(1)
	}
}

// openRepository connects the default database through a db-utils pool and any
// other alias through its IDM_DB_URL_<ALIAS> url.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, alias string) (siteuser.Repository, error) {
	if alias != config.DefaultDatabaseAlias {
		dsn, err := cfg.DSN(alias)
		if err != nil {
			return nil, err
		}
		return siteuser.Open(ctx, dsn)
	}

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
