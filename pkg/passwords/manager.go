package passwords

import (
	"log/slog"
	"strings"
)

// UnusablePrefix marks a stored password that can never match.
const UnusablePrefix = "!"

// Manager hashes new passwords with the current scheme and verifies passwords
// stored with any known scheme.
type Manager struct {
	current *Argon2Hasher
	hashers map[Version]Hasher
}

type ManagerOption func(*Manager)

// WithArgon2Params overrides the cost of newly hashed passwords.
func WithArgon2Params(params Argon2Params) ManagerOption {
	return func(m *Manager) {
		m.current = NewArgon2Hasher(params)
		m.hashers[VersionArgon2] = m.current
	}
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		current: NewArgon2Hasher(DefaultArgon2Params()),
		hashers: map[Version]Hasher{
			VersionBcrypt:       &BcryptHasher{},
			VersionSaltedBcrypt: &SaltedBcryptHasher{},
		},
	}
	m.hashers[VersionArgon2] = m.current

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hash encodes raw with the current scheme. An empty raw password yields an
// unusable password.
func (m *Manager) Hash(raw string) (string, error) {
	if raw == "" {
		return m.Unusable()
	}
	return m.current.Hash(raw)
}

// Verify checks raw against encoded. needsRehash is true when the password
// matched but encoded uses a legacy scheme or weaker parameters. A hash in an
// unknown format never matches.
func (m *Manager) Verify(raw, encoded string) (ok bool, needsRehash bool, err error) {
	if raw == "" || !IsUsable(encoded) {
		return false, false, nil
	}

	version := Identify(encoded)
	hasher, found := m.hashers[version]
	if !found {
		slog.Warn("Unrecognised password hash format", "version", version)
		return false, false, nil
	}

	ok, err = hasher.Verify(raw, encoded)
	if err != nil || !ok {
		return false, false, err
	}

	if version != CurrentVersion {
		return true, true, nil
	}
	return true, m.current.outdated(encoded), nil
}

// Unusable returns a fresh unusable password.
func (m *Manager) Unusable() (string, error) {
	suffix, err := randomString(40)
	if err != nil {
		return "", err
	}
	return UnusablePrefix + suffix, nil
}

// IsUsable reports whether encoded can ever match a raw password.
func IsUsable(encoded string) bool {
	return encoded != "" && !strings.HasPrefix(encoded, UnusablePrefix)
}
