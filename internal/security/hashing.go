package security

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies login passwords with bcrypt. Plaintext passwords
// must never be logged or persisted.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher, clamping cost to bcrypt's valid range. A
// non-positive cost selects the bcrypt default.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of password suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash. A mismatch or a
// malformed stored hash both surface as a non-nil error.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}
