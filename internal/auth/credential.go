package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = fmt.Errorf("password longer than %d bytes", MaxPasswordBytes)

// AdminCredential checks the shared admin password against a bcrypt hash.
type AdminCredential struct {
	hash []byte
}

// NewAdminCredential prefers a stored hash. A plaintext password is hashed
// once here so comparisons still go through bcrypt. With neither set every
// login fails.
func NewAdminCredential(hash, plaintext string, logger *slog.Logger) (*AdminCredential, error) {
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("parse ADMIN_PASSWORD_HASH: %w", err)
		}
		return &AdminCredential{hash: []byte(hash)}, nil
	}
	if plaintext != "" {
		if len(plaintext) > MaxPasswordBytes {
			return nil, fmt.Errorf("ADMIN_PASSWORD: %w", ErrPasswordTooLong)
		}
		logger.Warn("ADMIN_PASSWORD is set in plaintext; prefer ADMIN_PASSWORD_HASH (see `leadportal hash-password`)")
		h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		return &AdminCredential{hash: h}, nil
	}
	logger.Warn("no admin credential configured; admin login is disabled")
	return &AdminCredential{}, nil
}

func (c *AdminCredential) Configured() bool {
	return len(c.hash) > 0
}

func (c *AdminCredential) Verify(password string) bool {
	if !c.Configured() || password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
}

// HashPassword returns a bcrypt hash at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}
