package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

const tokenBytes = 32

// NewSessionToken returns 32 random bytes, base64url encoded without padding.
func NewSessionToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokenDigest is the value persisted for a session token.
func TokenDigest(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Tokens adapts the package functions to the session manager.
type Tokens struct{}

func (Tokens) NewToken() (string, error)   { return NewSessionToken() }
func (Tokens) Digest(token string) string { return TokenDigest(token) }
