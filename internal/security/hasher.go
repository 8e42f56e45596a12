// Package security provides password hashing and verification.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the interface that wraps password hashing and verification.
type Hasher interface {
	// Method Hash creates a one-way salted digest from a plaintext password.
	//
	// Two calls with the same password produce different digests, so digests
	// must never be compared to each other directly.
	//
	// If some error occurs during hashing, the error will be returned together with an empty string.
	Hash(password string) (string, error)
	// Method Verify checks a plaintext password against a stored digest.
	//
	// Returns false for a wrong password and for any malformed digest;
	// the caller cannot tell the two apart.
	Verify(password, digest string) bool
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new bcrypt hasher.
// A cost outside the valid bcrypt range is clamped to the default cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash creates a bcrypt digest from a password
func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify checks a password against a bcrypt digest
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// Ensure BcryptHasher implements Hasher
var _ Hasher = (*BcryptHasher)(nil)
