// Package identity derives the stable key that shards all per-user storage.
// The key is an irreversible digest of the normalized email, so an account's
// on-disk subtree never exposes the address itself.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrEmptyEmail is returned when a key is requested for a blank email.
var ErrEmptyEmail = errors.New("email cannot be empty")

// Normalize trims surrounding whitespace and lower-cases the email, so
// " A@B.com " and "a@b.com" identify the same user.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Key returns the hex-encoded SHA-256 digest of the normalized email.
// Deterministic: the same email always yields the same key.
func Key(email string) (string, error) {
	norm := Normalize(email)
	if norm == "" {
		return "", ErrEmptyEmail
	}
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:]), nil
}
