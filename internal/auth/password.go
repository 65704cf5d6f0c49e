// Package auth — password hashing.
//
// The admin store keeps bcrypt hashes, never fast digests. bcrypt generates a
// random per-password salt, embeds it in the output string, and is tunably
// slow — exactly the properties a fast unsalted hash (MD5, SHA-256) lacks.
// A cost-12 hash takes ~250ms: irrelevant for a login form, ruinous for a
// brute-force run.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for production hashes. Tune so a
// hash takes roughly 200-300ms on the deployment hardware.
const defaultCost = 12

// PasswordService wraps bcrypt so the cost can be injected: tests use the
// minimum cost (4) and stay fast without changing any logic under test.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService at the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a reduced cost.
// Never use outside tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password. The returned string is self-contained
// (version, cost, salt, digest) and is what gets stored in the admins table.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates beyond 72 bytes; reject instead.
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches a stored hash; nil means match.
// The comparison is constant-time inside bcrypt.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return fmt.Errorf("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
