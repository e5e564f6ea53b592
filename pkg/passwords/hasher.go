package passwords

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
)

// Version identifies the scheme an encoded password was hashed with.
type Version int

const (
	VersionUnknown Version = iota
	// VersionBcrypt is plain bcrypt ("$2a$...").
	VersionBcrypt
	// VersionSaltedBcrypt is bcrypt over salt+password, stored as "salt:hash".
	VersionSaltedBcrypt
	// VersionArgon2 is argon2id in PHC format.
	VersionArgon2

	CurrentVersion = VersionArgon2
)

func (v Version) String() string {
	switch v {
	case VersionBcrypt:
		return "bcrypt"
	case VersionSaltedBcrypt:
		return "bcrypt-salted"
	case VersionArgon2:
		return "argon2id"
	default:
		return "unknown"
	}
}

// Hasher hashes and verifies passwords for one scheme.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports a mismatch as (false, nil); errors mean the hash is unreadable.
	Verify(password, encoded string) (bool, error)
	Version() Version
}

// Identify guesses the scheme of an encoded password from its shape.
func Identify(encoded string) Version {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return VersionArgon2
	case isBcrypt(encoded):
		return VersionBcrypt
	}
	if salt, hash, ok := strings.Cut(encoded, ":"); ok && salt != "" && isBcrypt(hash) {
		return VersionSaltedBcrypt
	}
	return VersionUnknown
}

func isBcrypt(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}
