package mocks

import (
	"errors"
	"strings"

	"github.com/deckmate/deckmate/internal/dependencies/hash"
)

// PlainHasher is a mock Hasher that prefixes instead of hashing.
// It keeps credential tests fast and lets them assert on stored digests.
type PlainHasher struct {
	// FailNext makes the next Hash call return an error
	FailNext bool
}

// Ensure PlainHasher implements Hasher
var _ hash.Hasher = (*PlainHasher)(nil)

// NewPlainHasher creates a PlainHasher
func NewPlainHasher() *PlainHasher {
	return &PlainHasher{}
}

// Hash returns "plain:" + plaintext
func (h *PlainHasher) Hash(plaintext string) (string, error) {
	if h.FailNext {
		h.FailNext = false
		return "", errors.New("mock hashing failure")
	}
	return "plain:" + plaintext, nil
}

// Verify checks the "plain:" prefix scheme
func (h *PlainHasher) Verify(plaintext, digest string) bool {
	return strings.TrimPrefix(digest, "plain:") == plaintext && strings.HasPrefix(digest, "plain:")
}
