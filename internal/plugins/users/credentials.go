package users

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashIterations = 100000
	hashKeyLength  = 64
	tokenBytes     = 16
)

// NormalizeEmail trims surrounding whitespace and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Hasher derives password hashes keyed with the application secret. The
// output is PBKDF2-HMAC-SHA512 in lowercase hex, so hashes stored by earlier
// deployments keep verifying.
type Hasher struct {
	secret []byte
}

// NewHasher creates a hasher keyed with secret.
func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash returns the hex-encoded hash of password.
func (h *Hasher) Hash(password string) string {
	key := pbkdf2.Key([]byte(password), h.secret, hashIterations, hashKeyLength, sha512.New)
	return hex.EncodeToString(key)
}

// Verify reports whether password hashes to stored, in constant time.
func (h *Hasher) Verify(password, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(password)), []byte(stored)) == 1
}

// NewToken returns a random one-time token for activation and password
// reset links.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// tokenMatches compares a submitted token with the stored one. A missing
// stored token never matches.
func tokenMatches(stored *string, submitted string) bool {
	if stored == nil || *stored == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(submitted)) == 1
}
