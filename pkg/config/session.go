package config

import "time"

// SessionConfig holds the signed session cookie settings.
type SessionConfig struct {
	Secret     string        `env:"SESSION_SECRET"`
	CookieName string        `env:"SESSION_COOKIE_NAME" env-default:"siteuser_session"`
	TTL        time.Duration `env:"SESSION_TTL" env-default:"336h"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" env-default:"true"`
	HTTPOnly   bool          `env:"SESSION_COOKIE_HTTP_ONLY" env-default:"true"`
}

func (s SessionConfig) Validate() error {
	return CollectErrors(
		RequireMinLength("SESSION_SECRET", s.Secret, 32),
		RequireNonEmpty("SESSION_COOKIE_NAME", s.CookieName),
		RequirePositiveDuration("SESSION_TTL", s.TTL),
	)
}
