package auth

import (
	"errors"
	"testing"
)

func TestHashValidator(t *testing.T) {
	t.Parallel()

	v := NewPasswordValidator("hunter2")

	if err := v.Validate("hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}

	if err := v.Validate("hunter3"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("wrong password: got %v, want ErrInvalidPassword", err)
	}

	if err := v.Validate(""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("empty password: got %v, want ErrInvalidPassword", err)
	}
}

func TestHashValidator_FromDigest(t *testing.T) {
	t.Parallel()

	v := NewHashValidator(HashPassword("secret"))

	if err := v.Validate("secret"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := v.Validate("Secret"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("case-variant password accepted")
	}
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	// SHA-256 of the empty string is a well-known constant
	got := HashPassword("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("HashPassword(\"\") = %s, want %s", got, want)
	}

	if HashPassword("a") == HashPassword("b") {
		t.Error("distinct passwords produced identical digests")
	}

	if len(HashPassword("anything")) != 64 {
		t.Errorf("digest should be 64 hex characters, got %d", len(HashPassword("anything")))
	}
}

func TestNoopValidator(t *testing.T) {
	t.Parallel()

	v := NewNoopValidator()
	if err := v.Validate("anything"); err != nil {
		t.Errorf("noop validator rejected a password: %v", err)
	}
	if err := v.Validate(""); err != nil {
		t.Errorf("noop validator rejected empty password: %v", err)
	}
}
