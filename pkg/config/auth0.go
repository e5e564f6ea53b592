package config

import "time"

// Auth0Config holds the identity provider tenant settings.
type Auth0Config struct {
	Domain        string        `env:"AUTH0_DOMAIN"`
	ClientID      string        `env:"AUTH0_CLIENT_ID"`
	ClientSecret  string        `env:"AUTH0_CLIENT_SECRET"`
	ManagementJWT string        `env:"AUTH0_JWT"`
	Connection    string        `env:"AUTH0_CONNECTION" env-default:"Username-Password-Authentication"`
	ProfileCache  time.Duration `env:"AUTH0_PROFILE_CACHE" env-default:"10m"`
	Timeout       time.Duration `env:"AUTH0_TIMEOUT" env-default:"10s"`
}

// Validate checks the settings every outbound call depends on.
func (c Auth0Config) Validate() error {
	return CollectErrors(
		RequireHost("AUTH0_DOMAIN", c.Domain),
		RequireNonEmpty("AUTH0_CLIENT_ID", c.ClientID),
		RequireNonEmpty("AUTH0_CLIENT_SECRET", c.ClientSecret),
		RequireNonEmpty("AUTH0_JWT", c.ManagementJWT),
		RequireNonEmpty("AUTH0_CONNECTION", c.Connection),
		RequirePositiveDuration("AUTH0_PROFILE_CACHE", c.ProfileCache),
		RequirePositiveDuration("AUTH0_TIMEOUT", c.Timeout),
	)
}
