package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

const defaultSessionTimeout = time.Hour

// TokenIssuer creates opaque session tokens and the digest stored for them.
type TokenIssuer interface {
	NewToken() (string, error)
	Digest(token string) string
}

// SessionManager issues and validates fixed-window session tokens.
// At most one session per user exists at any time.
type SessionManager struct {
	repo    ports.SessionRepository
	tokens  TokenIssuer
	timeout time.Duration
	now     func() time.Time
	locks   *keyedMutex
	log     zerolog.Logger
}

// SessionOption customises a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

// WithSessionLogger sets the logger used for failed purges of expired sessions.
func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(m *SessionManager) { m.log = log }
}

// NewSessionManager builds a manager. A negative timeout is treated as zero;
// sessions issued with a zero timeout expire on the next instant.
func NewSessionManager(repo ports.SessionRepository, tokens TokenIssuer, timeout time.Duration, opts ...SessionOption) *SessionManager {
	if timeout < 0 {
		timeout = 0
	}
	m := &SessionManager{
		repo:    repo,
		tokens:  tokens,
		timeout: timeout,
		now:     time.Now,
		locks:   newKeyedMutex(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateSession invalidates every session of userID and issues a new token.
func (m *SessionManager) CreateSession(ctx context.Context, userID string) (string, *domain.Session, error) {
	unlock := m.locks.Lock(userID)
	defer unlock()

	token, err := m.tokens.NewToken()
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	issued := m.now().UTC()
	ttl := m.timeout
	if ttl <= 0 {
		ttl = time.Nanosecond
	}
	s := &domain.Session{
		TokenDigest: m.tokens.Digest(token),
		UserID:      userID,
		IssuedAt:    issued,
		ExpiresAt:   issued.Add(ttl),
	}
	if err := m.repo.Replace(ctx, s); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, s, nil
}

// Validate returns the session bound to token. Expired sessions are deleted
// on the first validation that observes them.
func (m *SessionManager) Validate(ctx context.Context, token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}
	digest := m.tokens.Digest(token)
	s, err := m.repo.FindByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("validate session: %w", err)
	}
	if !s.ValidAt(m.now()) {
		// the session is expired either way; a leftover row is replaced on next login
		if err := m.repo.Delete(ctx, digest); err != nil {
			m.log.Warn().Err(err).Str("user_id", s.UserID).Msg("failed to purge expired session")
		}
		return nil, domain.ErrSessionExpired
	}
	return s, nil
}

// Revoke deletes the session if present.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.Delete(ctx, m.tokens.Digest(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// keyedMutex serialises work per key and frees entries once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
