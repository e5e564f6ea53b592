package config

// PasswordPolicyConfig mirrors passwords.Policy field for field so it can be
// copied across with copier.
type PasswordPolicyConfig struct {
	MinLength          int  `env:"PASSWORD_MIN_LENGTH" env-default:"8"`
	RequireUppercase   bool `env:"PASSWORD_REQUIRE_UPPERCASE" env-default:"false"`
	RequireLowercase   bool `env:"PASSWORD_REQUIRE_LOWERCASE" env-default:"false"`
	RequireDigit       bool `env:"PASSWORD_REQUIRE_DIGIT" env-default:"false"`
	RequireSpecialChar bool `env:"PASSWORD_REQUIRE_SPECIAL_CHAR" env-default:"false"`
	DisallowCommonPwds bool `env:"PASSWORD_DISALLOW_COMMON" env-default:"true"`
	MaxRepeatedChars   int  `env:"PASSWORD_MAX_REPEATED_CHARS" env-default:"0"`
}
