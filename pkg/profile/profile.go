package profile

import (
	"maps"
	"reflect"

	"github.com/tendant/siteuser/pkg/auth0"
)

const (
	metaGivenName  = "given_name"
	metaFamilyName = "family_name"
)

// Profile is the local view of a remote user. A Profile that was not loaded from
// the provider is an empty default: blank email, empty metadata, Backed false.
//
// A Profile is not safe for concurrent use; each local user owns its own.
type Profile struct {
	backed bool
	loaded auth0.User

	externalID    string
	email         string
	emailVerified bool
	userMetadata  map[string]any
	appMetadata   map[string]any

	// Set when the provider returned a top-level name or when one was assigned
	// with the Set*Override methods. Takes precedence over user_metadata.
	givenName  *string
	familyName *string

	password string
}

// Empty returns the empty default profile.
func Empty() *Profile {
	return &Profile{
		userMetadata: map[string]any{},
		appMetadata:  map[string]any{},
	}
}

func fromUser(u *auth0.User) *Profile {
	p := Empty()
	p.load(u)
	return p
}

func (p *Profile) load(u *auth0.User) {
	p.backed = true
	p.loaded = cloneUser(*u)
	p.externalID = u.UserID
	p.email = u.Email
	p.emailVerified = u.EmailVerified
	p.userMetadata = cloneMap(u.UserMetadata)
	p.appMetadata = cloneMap(u.AppMetadata)
	p.givenName = cloneString(u.GivenName)
	p.familyName = cloneString(u.FamilyName)
}

// Backed reports whether the profile mirrors an existing remote record.
func (p *Profile) Backed() bool          { return p.backed }
func (p *Profile) ExternalID() string    { return p.externalID }
func (p *Profile) Email() string         { return p.email }
func (p *Profile) EmailVerified() bool   { return p.emailVerified }
func (p *Profile) SetEmail(email string) { p.email = email }
func (p *Profile) SetEmailVerified(v bool) {
	p.emailVerified = v
}

// UserMetadata returns the live user_metadata map.
func (p *Profile) UserMetadata() map[string]any { return p.userMetadata }

// AppMetadata returns the live app_metadata map.
func (p *Profile) AppMetadata() map[string]any { return p.appMetadata }

// GivenName returns the top-level name if one is set, else user_metadata.given_name.
func (p *Profile) GivenName() string {
	return p.name(p.givenName, metaGivenName)
}

// SetGivenName stores the name in user_metadata.
func (p *Profile) SetGivenName(name string) {
	p.userMetadata[metaGivenName] = name
}

// SetGivenNameOverride sets the top-level given_name, which then wins over metadata.
func (p *Profile) SetGivenNameOverride(name string) {
	p.givenName = &name
}

func (p *Profile) FamilyName() string {
	return p.name(p.familyName, metaFamilyName)
}

func (p *Profile) SetFamilyName(name string) {
	p.userMetadata[metaFamilyName] = name
}

func (p *Profile) SetFamilyNameOverride(name string) {
	p.familyName = &name
}

func (p *Profile) name(override *string, key string) string {
	if override != nil {
		return *override
	}
	if v, ok := p.userMetadata[key].(string); ok {
		return v
	}
	return ""
}

// SetPassword remembers a raw password to be pushed on the next Save.
func (p *Profile) SetPassword(raw string) {
	p.password = raw
}

// PendingPassword returns the raw password waiting for Save, if any.
func (p *Profile) PendingPassword() string {
	return p.password
}

// Snapshot returns the profile as a provider record, as stored in the cache.
func (p *Profile) Snapshot() auth0.User {
	return auth0.User{
		UserID:        p.externalID,
		Email:         p.email,
		EmailVerified: p.emailVerified,
		GivenName:     cloneString(p.givenName),
		FamilyName:    cloneString(p.familyName),
		UserMetadata:  cloneMap(p.userMetadata),
		AppMetadata:   cloneMap(p.appMetadata),
	}
}

// changes returns the fields that differ from the record last loaded.
func (p *Profile) changes() (auth0.UserUpdate, bool) {
	var upd auth0.UserUpdate
	changed := false

	if p.email != p.loaded.Email {
		email := p.email
		upd.Email = &email
		changed = true
	}
	if p.emailVerified != p.loaded.EmailVerified {
		verified := p.emailVerified
		upd.EmailVerified = &verified
		changed = true
	}
	if p.password != "" {
		password := p.password
		upd.Password = &password
		changed = true
	}
	if !reflect.DeepEqual(nonNil(p.userMetadata), nonNil(p.loaded.UserMetadata)) {
		upd.UserMetadata = cloneMap(p.userMetadata)
		changed = true
	}
	if !reflect.DeepEqual(nonNil(p.appMetadata), nonNil(p.loaded.AppMetadata)) {
		upd.AppMetadata = cloneMap(p.appMetadata)
		changed = true
	}
	if p.givenName != nil && !equalString(p.givenName, p.loaded.GivenName) {
		upd.GivenName = cloneString(p.givenName)
		changed = true
	}
	if p.familyName != nil && !equalString(p.familyName, p.loaded.FamilyName) {
		upd.FamilyName = cloneString(p.familyName)
		changed = true
	}
	return upd, changed
}

func cloneUser(u auth0.User) auth0.User {
	u.GivenName = cloneString(u.GivenName)
	u.FamilyName = cloneString(u.FamilyName)
	u.UserMetadata = cloneMap(u.UserMetadata)
	u.AppMetadata = cloneMap(u.AppMetadata)
	return u
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
