// Package password wraps bcrypt for credential and refresh-secret hashing.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and verifies adaptive one-way hashes. The same hasher
// covers login passwords and stored refresh-token secrets, so a leaked
// session table never yields usable bearer tokens.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher with the given bcrypt cost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash creates a bcrypt digest of the supplied secret.
func (h *Hasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the secret matches the stored digest.
func (h *Hasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
