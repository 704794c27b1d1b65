package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// RandomString creates a random base64url string from n bytes of entropy.
func RandomString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// NewVerifier returns a PKCE code verifier (43 characters).
func NewVerifier() string {
	return RandomString(32)
}

// Challenge derives the S256 code challenge for verifier.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
