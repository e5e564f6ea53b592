package auth0

// User is a user record as returned by the management API.
//
// GivenName and FamilyName are pointers because the provider only sends them for
// some connections; nil means absent, which is different from an empty name.
type User struct {
	UserID        string         `json:"user_id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	GivenName     *string        `json:"given_name,omitempty"`
	FamilyName    *string        `json:"family_name,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
	AppMetadata   map[string]any `json:"app_metadata,omitempty"`
}

// UserInfo is the subset of the /userinfo response used to find the local user.
type UserInfo struct {
	ExternalID    string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
}

// NewUser carries the attributes used when a user has to be created remotely.
type NewUser struct {
	Password      string
	EmailVerified bool
	UserMetadata  map[string]any
}

// UserUpdate is the PATCH body for a user. Nil fields are left untouched.
type UserUpdate struct {
	Email         *string        `json:"email,omitempty"`
	EmailVerified *bool          `json:"email_verified,omitempty"`
	Password      *string        `json:"password,omitempty"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
	AppMetadata   map[string]any `json:"app_metadata,omitempty"`
	GivenName     *string        `json:"given_name,omitempty"`
	FamilyName    *string        `json:"family_name,omitempty"`
	Connection    string         `json:"connection,omitempty"`
}

type createUserRequest struct {
	Email         string         `json:"email"`
	Password      string         `json:"password,omitempty"`
	Connection    string         `json:"connection"`
	EmailVerified bool           `json:"email_verified"`
	UserMetadata  map[string]any `json:"user_metadata,omitempty"`
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	Code         string `json:"code"`
	GrantType    string `json:"grant_type"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
