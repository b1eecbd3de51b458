// Package security holds password hashing and session token primitives.
package security

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for every stored password.
const PasswordCost = 10

// dummyHash is compared against when a login names an unknown user, so the
// response time matches a wrong-password attempt.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("document-viewer-dummy-password"), PasswordCost)

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher clamped to bcrypt's valid cost range.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = PasswordCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a salted bcrypt hash suitable for storage.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch, not an error.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Burn performs one comparison against a fixed hash and discards the result.
func (h *Hasher) Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
