// Package hash provides the password hashing boundary. Services depend on
// the Hasher interface so tests can swap in a cheap implementation.
package hash

import "golang.org/x/crypto/bcrypt"

// Hasher hashes and verifies secrets
type Hasher interface {
	// Hash derives a storable digest from a plaintext secret
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches a previously stored digest
	Verify(plaintext, digest string) bool
}

// BcryptHasher implements Hasher using bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcrypt creates a BcryptHasher. A cost of 0 selects bcrypt.DefaultCost.
func NewBcrypt(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

var _ Hasher = (*BcryptHasher)(nil)

// Hash derives a bcrypt digest
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compares plaintext against a bcrypt digest
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
