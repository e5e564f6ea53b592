package siteuser

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/siteuser/pkg/auth0"
	apperrors "github.com/tendant/siteuser/pkg/errors"
	"github.com/tendant/siteuser/pkg/passwords"
	"github.com/tendant/siteuser/pkg/profile"
)

// RemoteDirectory creates or finds users at the identity provider.
type RemoteDirectory interface {
	GetOrCreateUser(ctx context.Context, email string, nu auth0.NewUser) (*auth0.User, bool, error)
}

// ProfileStore reads and writes remote profiles.
type ProfileStore interface {
	Get(ctx context.Context, externalID string) *profile.Profile
	Put(ctx context.Context, u *auth0.User)
	Save(ctx context.Context, p *profile.Profile) error
}

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, from string, to []string, subject, body string) error
}

// Service manages site users.
type Service struct {
	repo          Repository
	remote        RemoteDirectory
	profiles      ProfileStore
	passwords     *passwords.Manager
	mailer        Mailer
	sessionSecret []byte
	defaultSite   int64
	now           func() time.Time
}

// Option is a function that configures a Service
type Option func(*Service)

func WithPasswordManager(m *passwords.Manager) Option {
	return func(s *Service) {
		s.passwords = m
	}
}

func WithMailer(m Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

// WithSessionSecret sets the key of SessionAuthHash.
func WithSessionSecret(secret string) Option {
	return func(s *Service) {
		s.sessionSecret = []byte(secret)
	}
}

func WithDefaultSite(siteID int64) Option {
	return func(s *Service) {
		s.defaultSite = siteID
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, remote RemoteDirectory, profiles ProfileStore, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		remote:      remote,
		profiles:    profiles,
		passwords:   passwords.NewManager(),
		defaultSite: 1,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultSite is the site used when none is given.
func (s *Service) DefaultSite() int64 { return s.defaultSite }

func (s *Service) site(siteID int64) int64 {
	if siteID == 0 {
		return s.defaultSite
	}
	return siteID
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// CreateUser creates the remote user if needed and the local row for it.
// A row that already exists for that remote user and site is AlreadyExists.
func (s *Service) CreateUser(ctx context.Context, email, password string, f Fields) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.Validation("email required")
	}

	remote := f.RemoteUser
	if remote == nil {
		var created bool
		var err error
		remote, created, err = s.remote.GetOrCreateUser(ctx, email, auth0.NewUser{
			Password:      password,
			EmailVerified: boolOr(f.EmailVerified, false),
			UserMetadata:  f.metadata(),
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Linked remote user", "external_id", remote.UserID, "email", email, "created", created)
		s.profiles.Put(ctx, remote)
	}

	encoded, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperrors.InternalWrap(err, "failed to hash password")
	}

	now := s.timestamp()
	u := &User{
		ExternalID:  remote.UserID,
		Email:       email,
		Password:    encoded,
		IsStaff:     boolOr(f.IsStaff, false),
		IsSuperuser: boolOr(f.IsSuperuser, false),
		IsActive:    true,
		SiteID:      s.site(f.SiteID),
		DateJoined:  now,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if apperrors.IsAlreadyExists(err) {
			slog.Warn("User already exists on site", "external_id", u.ExternalID, "site_id", u.SiteID)
		}
		return nil, err
	}

	slog.Info("User created", "id", u.ID, "external_id", u.ExternalID, "site_id", u.SiteID, "staff", u.IsStaff, "superuser", u.IsSuperuser)
	return u, nil
}

// CreateSuperuser is CreateUser with staff, superuser and email_verified forced on.
func (s *Service) CreateSuperuser(ctx context.Context, email, password string, f Fields) (*User, error) {
	if f.IsStaff != nil && !*f.IsStaff {
		return nil, apperrors.Validation("superuser must have is_staff=true").WithDetail("flag", "is_staff")
	}
	if f.IsSuperuser != nil && !*f.IsSuperuser {
		return nil, apperrors.Validation("superuser must have is_superuser=true").WithDetail("flag", "is_superuser")
	}

	yes := true
	f.IsStaff = &yes
	f.IsSuperuser = &yes
	f.EmailVerified = &yes
	return s.CreateUser(ctx, email, password, f)
}

// GetByNaturalKey finds the user with exactly this external id on this site.
// Site 0 means the default site.
func (s *Service) GetByNaturalKey(ctx context.Context, externalID string, siteID int64) (*User, error) {
	return s.repo.GetByNaturalKey(ctx, externalID, s.site(siteID))
}

// GetByEmail finds a user on a site by email, ignoring case.
func (s *Service) GetByEmail(ctx context.Context, email string, siteID int64) (*User, error) {
	return s.repo.GetByEmail(ctx, email, s.site(siteID))
}

// Profile returns the remote profile of u, loading it on first use.
func (s *Service) Profile(ctx context.Context, u *User) *profile.Profile {
	if u.profile == nil {
		u.profile = s.profiles.Get(ctx, u.ExternalID)
	}
	return u.profile
}

// Save pushes profile changes to the provider, then writes the row. A remote
// user that has gone away does not stop the local write.
func (s *Service) Save(ctx context.Context, u *User) error {
	if u.profile != nil {
		if err := s.profiles.Save(ctx, u.profile); err != nil {
			if !apperrors.IsNotFound(err) {
				return err
			}
			slog.Warn("Remote user missing while saving profile", "external_id", u.ExternalID)
		}
	}

	u.ModifiedAt = s.timestamp()
	if err := s.repo.Update(ctx, u); err != nil {
		return err
	}

	if u.rawPassword != "" {
		slog.Info("Password changed", "user_id", u.ID, "external_id", u.ExternalID)
		u.rawPassword = ""
	}
	return nil
}

// SetPassword hashes raw into u and queues raw for the provider on the next Save.
// Nothing is persisted until Save.
func (s *Service) SetPassword(ctx context.Context, u *User, raw string) error {
	encoded, err := s.passwords.Hash(raw)
	if err != nil {
		return apperrors.InternalWrap(err, "failed to hash password")
	}
	u.Password = encoded
	u.rawPassword = raw
	s.Profile(ctx, u).SetPassword(raw)
	return nil
}

// SetUnusablePassword makes every password check on u fail.
func (s *Service) SetUnusablePassword(u *User) error {
	encoded, err := s.passwords.Unusable()
	if err != nil {
		return apperrors.InternalWrap(err, "failed to create unusable password")
	}
	u.Password = encoded
	return nil
}

// HasUsablePassword reports whether any password could match u.
func (s *Service) HasUsablePassword(u *User) bool {
	return passwords.IsUsable(u.Password)
}

// CheckPassword verifies raw. A match against a legacy hash is rehashed with the
// current scheme and only the password column is written; the provider is not
// told and no password change is recorded.
func (s *Service) CheckPassword(ctx context.Context, u *User, raw string) (bool, error) {
	ok, needsRehash, err := s.passwords.Verify(raw, u.Password)
	if err != nil {
		return false, apperrors.InternalWrap(err, "failed to verify password")
	}
	if !ok || !needsRehash {
		return ok, nil
	}

	encoded, err := s.passwords.Hash(raw)
	if err != nil {
		slog.Error("Failed to rehash password", "user_id", u.ID, "err", err)
		return true, nil
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, encoded, s.timestamp()); err != nil {
		slog.Error("Failed to store rehashed password", "user_id", u.ID, "err", err)
		return true, nil
	}
	u.Password = encoded
	slog.Info("Password hash upgraded", "user_id", u.ID, "scheme", passwords.CurrentVersion)
	return true, nil
}

// ChangeEmail updates the remote profile and then the local row. A missing remote
// user is ignored; other provider failures abort before the local write.
func (s *Service) ChangeEmail(ctx context.Context, u *User, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.Validation("email required")
	}

	p := s.Profile(ctx, u)
	p.SetEmail(email)
	if err := s.profiles.Save(ctx, p); err != nil {
		if !apperrors.IsNotFound(err) {
			return err
		}
		slog.Warn("Remote user missing while changing email", "external_id", u.ExternalID)
	}

	now := s.timestamp()
	if err := s.repo.UpdateEmail(ctx, u.ID, email, now); err != nil {
		return err
	}
	u.Email = email
	u.ModifiedAt = now
	return nil
}

// SetFirstName sets the given name in the profile metadata; Save persists it.
func (s *Service) SetFirstName(ctx context.Context, u *User, name string) {
	s.Profile(ctx, u).SetGivenName(name)
}

// SetLastName sets the family name in the profile metadata; Save persists it.
func (s *Service) SetLastName(ctx context.Context, u *User, name string) {
	s.Profile(ctx, u).SetFamilyName(name)
}

// FullName is "given family", trimmed.
func (s *Service) FullName(ctx context.Context, u *User) string {
	p := s.Profile(ctx, u)
	return fullName(p.GivenName(), p.FamilyName())
}

// ShortName is the given name.
func (s *Service) ShortName(ctx context.Context, u *User) string {
	return s.Profile(ctx, u).GivenName()
}

// SetActive flips the active flag and saves the row.
func (s *Service) SetActive(ctx context.Context, u *User, active bool) error {
	u.IsActive = active
	u.ModifiedAt = s.timestamp()
	return s.repo.Update(ctx, u)
}

// RecordLogin stamps the last login time.
func (s *Service) RecordLogin(ctx context.Context, u *User) error {
	now := s.timestamp()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		return err
	}
	u.LastLogin = &now
	return nil
}

// SessionAuthHash changes whenever the stored password hash changes, which
// invalidates sessions established before the change.
func (s *Service) SessionAuthHash(u *User) string {
	mac := hmac.New(sha256.New, s.sessionSecret)
	mac.Write([]byte("siteuser.session-auth-hash"))
	mac.Write([]byte(u.Password))
	return hex.EncodeToString(mac.Sum(nil))
}

// EmailUser sends a message to the user's email address.
func (s *Service) EmailUser(ctx context.Context, u *User, subject, body, from string) error {
	if s.mailer == nil {
		return apperrors.New(apperrors.ErrCodeInternal, "no mailer configured")
	}
	if u.Email == "" {
		return apperrors.Validation(fmt.Sprintf("user %d has no email address", u.ID))
	}
	return s.mailer.Send(ctx, from, []string{u.Email}, subject, body)
}
