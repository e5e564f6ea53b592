package siteuser

import (
	"strings"
	"time"

	"github.com/tendant/siteuser/pkg/auth0"
	"github.com/tendant/siteuser/pkg/profile"
)

// User is the local shadow of a remote identity on one site. It is unique on
// (ExternalID, SiteID) and is never deleted here.
type User struct {
	ID          int64
	ExternalID  string
	Email       string
	Password    string
	IsStaff     bool
	IsSuperuser bool
	IsActive    bool
	SiteID      int64
	DateJoined  time.Time
	LastLogin   *time.Time
	CreatedAt   time.Time
	ModifiedAt  time.Time

	profile     *profile.Profile
	rawPassword string
	backend     string
}

// Backend is the name of the strategy that authenticated u, if any.
func (u *User) Backend() string { return u.backend }

func (u *User) SetBackend(name string) { u.backend = name }

func (u *User) clone() *User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	c.profile = nil
	c.rawPassword = ""
	c.backend = ""
	return &c
}

// Fields are the optional attributes of CreateUser and CreateSuperuser.
type Fields struct {
	// SiteID defaults to the configured site.
	SiteID int64
	// FirstName and LastName seed user_metadata when a remote user is created.
	FirstName string
	LastName  string
	// EmailVerified defaults to false for regular users.
	EmailVerified *bool
	IsStaff       *bool
	IsSuperuser   *bool
	// RemoteUser skips the provider lookup and links this record instead.
	RemoteUser *auth0.User
}

func (f Fields) metadata() map[string]any {
	return map[string]any{
		"given_name":  f.FirstName,
		"family_name": f.LastName,
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func fullName(given, family string) string {
	return strings.TrimSpace(given + " " + family)
}
