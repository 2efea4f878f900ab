package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

var errInvalidParams = errors.New("argon2: invalid parameters")

// Argon2Params defines tunable parameters for Argon2id password hashing.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the production hashing parameters.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordHasher hashes passwords with Argon2id. The salt is returned and
// stored separately from the hash.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(p Argon2Params) (*PasswordHasher, error) {
	if p.Memory < 8 || p.Iterations == 0 || p.Parallelism == 0 {
		return nil, errInvalidParams
	}
	if p.SaltLength < 8 || p.KeyLength < 16 {
		return nil, fmt.Errorf("%w: salt must be >= 8 bytes and key >= 16 bytes", errInvalidParams)
	}
	return &PasswordHasher{params: p}, nil
}

// Hash derives a key for password using a fresh random salt.
// Both values are base64 (raw std) encoded.
func (h *PasswordHasher) Hash(password string) (hash, salt string, err error) {
	s := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(s); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	key := h.derive(password, s)
	return b64.EncodeToString(key), b64.EncodeToString(s), nil
}

// Verify recomputes the key and compares it in constant time.
// Malformed stored values never match.
func (h *PasswordHasher) Verify(password, hash, salt string) bool {
	s, err := b64.DecodeString(salt)
	if err != nil {
		return false
	}
	want, err := b64.DecodeString(hash)
	if err != nil || len(want) == 0 {
		return false
	}
	got := h.derive(password, s)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *PasswordHasher) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)
}

var b64 = base64.RawStdEncoding
