package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/tendant/siteuser/pkg/auth0"
	apperrors "github.com/tendant/siteuser/pkg/errors"
	"github.com/tendant/siteuser/pkg/passwords"
	"github.com/tendant/siteuser/pkg/siteuser"
)

// unlinkedPrefix marks the external id of superusers created with --noinput
// when the provider has no user for their email.
const unlinkedPrefix = "unlinked|"

var errCancelled = errors.New("operation cancelled")

// UserCreator is the part of siteuser.Service the command needs.
type UserCreator interface {
	GetByEmail(ctx context.Context, email string, siteID int64) (*siteuser.User, error)
	CreateSuperuser(ctx context.Context, email, password string, f siteuser.Fields) (*siteuser.User, error)
}

// EmailFinder looks up remote users by email without creating them.
type EmailFinder interface {
	FindUserByEmail(ctx context.Context, email string) (*auth0.User, error)
}

type options struct {
	Email       string
	FirstName   string
	LastName    string
	SiteID      int64
	Interactive bool
}

type command struct {
	users     UserCreator
	directory EmailFinder
	policy    *passwords.PolicyChecker

	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	isTTY        bool
	readPassword func() (string, error)
	newID        func() string
}

func (c *command) run(ctx context.Context, opts options) error {
	if !opts.Interactive {
		return c.runNoInput(ctx, opts)
	}

	if !c.isTTY {
		fmt.Fprintln(c.stdout, "Superuser creation skipped due to not running in a TTY. "+
			"You can run `createsuperuser` in a terminal to create one manually.")
		return nil
	}

	email, remote, err := c.promptEmail(ctx, opts)
	if err != nil {
		return err
	}

	password, err := c.promptPassword(email, opts.FirstName, opts.LastName)
	if err != nil {
		return err
	}

	_, err = c.users.CreateSuperuser(ctx, email, password, siteuser.Fields{
		SiteID:     opts.SiteID,
		FirstName:  opts.FirstName,
		LastName:   opts.LastName,
		RemoteUser: remote,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, "Superuser created successfully.")
	return nil
}

// runNoInput creates only the local row. A remote user with the same email is
// linked when one exists; nothing is created remotely.
func (c *command) runNoInput(ctx context.Context, opts options) error {
	email := strings.TrimSpace(opts.Email)
	if email == "" {
		return apperrors.Validation("You must use --email with --noinput.")
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := c.checkAvailable(ctx, email, opts.SiteID); err != nil {
		return err
	}

	remote, err := c.directory.FindUserByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		remote = &auth0.User{UserID: unlinkedPrefix + c.newID(), Email: email}
		slog.Info("No remote user for email, linking placeholder", "email", email, "external_id", remote.UserID)
	} else if err != nil {
		return err
	}

	_, err = c.users.CreateSuperuser(ctx, email, "", siteuser.Fields{
		SiteID:     opts.SiteID,
		FirstName:  opts.FirstName,
		LastName:   opts.LastName,
		RemoteUser: remote,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.stdout, "Superuser created successfully.")
	fmt.Fprintln(c.stdout, "Warning: --noinput does not create an auth0 user")
	return nil
}

func (c *command) promptEmail(ctx context.Context, opts options) (string, *auth0.User, error) {
	email := strings.TrimSpace(opts.Email)
	fromFlag := email != ""

	for {
		if !fromFlag {
			line, err := c.readLine("Email address: ")
			if err != nil {
				return "", nil, err
			}
			email = line
			if email == "" {
				continue
			}
		}

		err := validateEmail(email)
		if err == nil {
			err = c.checkAvailable(ctx, email, opts.SiteID)
		}
		if apperrors.IsValidation(err) && !fromFlag {
			fmt.Fprintf(c.stderr, "Error: %s\n", message(err))
			continue
		}
		if err != nil {
			return "", nil, err
		}

		remote, err := c.directory.FindUserByEmail(ctx, email)
		if apperrors.IsNotFound(err) {
			return email, nil, nil
		}
		if err != nil {
			return "", nil, err
		}
		fmt.Fprintln(c.stderr, "Warning: An Auth0 user with that email address has already been created.")
		return email, remote, nil
	}
}

func (c *command) promptPassword(attrs ...string) (string, error) {
	for {
		fmt.Fprint(c.stdout, "Password: ")
		password, err := c.readPassword()
		if err != nil {
			return "", err
		}
		fmt.Fprint(c.stdout, "Password (again): ")
		again, err := c.readPassword()
		if err != nil {
			return "", err
		}

		if password != again {
			fmt.Fprintln(c.stderr, "Error: Your passwords didn't match.")
			continue
		}
		if strings.TrimSpace(password) == "" {
			fmt.Fprintln(c.stderr, "Error: Blank passwords aren't allowed.")
			continue
		}
		if problems := c.policy.Violations(password, attrs...); len(problems) > 0 {
			fmt.Fprintln(c.stderr, strings.Join(problems, "\n"))
			continue
		}
		return password, nil
	}
}

func (c *command) checkAvailable(ctx context.Context, email string, siteID int64) error {
	_, err := c.users.GetByEmail(ctx, email, siteID)
	if err == nil {
		return apperrors.Validation("That email address is already taken.")
	}
	if apperrors.IsNotFound(err) {
		return nil
	}
	return err
}

func (c *command) readLine(prompt string) (string, error) {
	fmt.Fprint(c.stdout, prompt)
	line, err := c.stdin.ReadString('\n')
	if errors.Is(err, io.EOF) && line == "" {
		return "", errCancelled
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.Validation("Enter a valid email address.")
	}
	return nil
}

func message(err error) string {
	var e *apperrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
