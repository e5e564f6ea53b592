package passwords

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher is the legacy plain bcrypt scheme. It is only used to verify
// passwords stored before argon2id.
type BcryptHasher struct {
	Cost int
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Verify(password, encoded string) (bool, error) {
	return compareBcrypt(encoded, password)
}

func (h *BcryptHasher) Version() Version { return VersionBcrypt }

func (h *BcryptHasher) cost() int {
	if h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// SaltedBcryptHasher is the legacy "salt:bcrypt(salt+password)" scheme.
type SaltedBcryptHasher struct {
	Cost int
}

func (h *SaltedBcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	salt, err := randomString(16)
	if err != nil {
		return "", err
	}
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost + 2
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(salt+password), cost)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", salt, hashed), nil
}

func (h *SaltedBcryptHasher) Verify(password, encoded string) (bool, error) {
	salt, hash, ok := strings.Cut(encoded, ":")
	if !ok {
		return false, errors.New("invalid password hash format")
	}
	return compareBcrypt(hash, salt+password)
}

func (h *SaltedBcryptHasher) Version() Version { return VersionSaltedBcrypt }

func compareBcrypt(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
