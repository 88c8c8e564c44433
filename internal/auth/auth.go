// Package auth provides the game-master authentication gate: a single
// password compared against a configured SHA-256 digest.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

var (
	// ErrInvalidPassword indicates the supplied GM password is wrong.
	ErrInvalidPassword = errors.New("auth: invalid password")
)

// Validator validates GM credentials.
type Validator interface {
	// Validate returns nil if the password is correct and
	// ErrInvalidPassword otherwise.
	Validate(password string) error
}

// HashValidator compares the SHA-256 hex digest of the supplied password
// against a configured digest in constant time.
type HashValidator struct {
	digest string
}

// NewHashValidator creates a validator from a hex-encoded SHA-256 digest.
func NewHashValidator(digest string) *HashValidator {
	return &HashValidator{digest: digest}
}

// NewPasswordValidator creates a validator from a plaintext password, hashing
// it once at construction.
func NewPasswordValidator(password string) *HashValidator {
	return &HashValidator{digest: HashPassword(password)}
}

// Validate checks the supplied password against the configured digest.
func (v *HashValidator) Validate(password string) error {
	supplied := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(v.digest)) != 1 {
		return ErrInvalidPassword
	}
	return nil
}

// HashPassword returns the hex-encoded SHA-256 digest of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// NoopValidator accepts any password (dev mode).
type NoopValidator struct{}

// NewNoopValidator creates a validator that accepts all passwords.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(password string) error {
	return nil
}
