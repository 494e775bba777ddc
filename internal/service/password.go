package service

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/medgraph/patient-portal-go/internal/config"
)

// PasswordHasher wraps bcrypt with the portal work factor. Verification is
// constant-time at the library level and treats a malformed stored hash as a
// plain mismatch, never as an error that aborts the login flow.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: config.BcryptCost}
}

func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
