package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

const minUsernameLength = 3

// PasswordHasher abstracts the password hashing scheme (Argon2id in production).
type PasswordHasher interface {
	Hash(password string) (hash, salt string, err error)
	Verify(password, hash, salt string) bool
}

// CredentialStore registers users and verifies their passwords.
type CredentialStore struct {
	users  ports.UserRepository
	hasher PasswordHasher

	// hashed once at startup; unknown usernames are checked against it
	dummyHash string
	dummySalt string
}

func NewCredentialStore(users ports.UserRepository, hasher PasswordHasher) (*CredentialStore, error) {
	hash, salt, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}
	return &CredentialStore{users: users, hasher: hasher, dummyHash: hash, dummySalt: salt}, nil
}

// Register creates a user and returns its id.
func (c *CredentialStore) Register(ctx context.Context, username, password, email string) (string, error) {
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) < minUsernameLength || password == "" {
		return "", domain.ErrInvalidInput
	}

	hash, salt, err := c.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Salt:         salt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return "", domain.ErrDuplicateUser
		}
		return "", fmt.Errorf("register: %w", err)
	}
	return user.ID, nil
}

// Verify checks a username/password pair. Unknown usernames and wrong
// passwords both yield domain.ErrInvalidCredentials.
func (c *CredentialStore) Verify(ctx context.Context, username, password string) (string, error) {
	user, err := c.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.hasher.Verify(password, c.dummyHash, c.dummySalt)
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("verify: %w", err)
	}

	if !c.hasher.Verify(password, user.PasswordHash, user.Salt) {
		return "", domain.ErrInvalidCredentials
	}
	return user.ID, nil
}

func (c *CredentialStore) Lookup(ctx context.Context, username string) (*domain.User, error) {
	return c.users.FindByUsername(ctx, strings.TrimSpace(username))
}

func (c *CredentialStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	return c.users.FindByID(ctx, userID)
}

// Contacts lists every other registered user.
func (c *CredentialStore) Contacts(ctx context.Context, userID string) ([]*domain.User, error) {
	return c.users.List(ctx, userID)
}
