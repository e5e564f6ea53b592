package config

// SiteConfig holds the site every user is scoped to unless told otherwise.
type SiteConfig struct {
	SiteID int64 `env:"SITE_ID" env-default:"1"`
}

// LoginConfig holds the paths used by the login flow.
type LoginConfig struct {
	// LoginPath is where the identity provider sends the browser back with a code.
	LoginPath string `env:"LOGIN_PATH" env-default:"/login"`
	// LoginURL is the page unauthenticated visitors are sent to.
	LoginURL string `env:"LOGIN_URL" env-default:"/admin/login/"`
	// AdminURL is the redirect target when no state is given.
	AdminURL string `env:"ADMIN_URL" env-default:"/admin/"`
	// RestrictRedirects rejects absolute state targets pointing off-site.
	RestrictRedirects bool `env:"LOGIN_RESTRICT_REDIRECTS" env-default:"false"`
}
