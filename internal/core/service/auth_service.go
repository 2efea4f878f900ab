package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

type authService struct {
	creds    *CredentialStore
	sessions *SessionManager
	limiter  ports.LoginLimiter
	activity ActivityRecorder
	log      zerolog.Logger
}

// NewAuthService returns an AuthService implementation. limiter may be nil,
// in which case logins are not throttled.
func NewAuthService(
	creds *CredentialStore,
	sessions *SessionManager,
	limiter ports.LoginLimiter,
	activity ActivityRecorder,
	log zerolog.Logger,
) ports.AuthService {
	return &authService{
		creds:    creds,
		sessions: sessions,
		limiter:  limiter,
		activity: activity,
		log:      log,
	}
}

func (s *authService) Signup(ctx context.Context, username, password, email string) (string, error) {
	id, err := s.creds.Register(ctx, username, password, email)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			s.activity.Record(ctx, domain.ActivityAuthFailure, "", fmt.Sprintf("signup: username %q taken", username))
		}
		return "", err
	}
	s.activity.Record(ctx, domain.ActivityAuthSuccess, id, "signup")
	return id, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("login limiter unavailable, allowing attempt")
		} else if !ok {
			s.activity.Record(ctx, domain.ActivityAuthFailure, "", fmt.Sprintf("login %q: throttled", username))
			return nil, domain.ErrTooManyAttempts
		}
	}

	userID, err := s.creds.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			s.recordFailure(ctx, username)
		}
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login attempts")
		}
	}

	token, session, err := s.sessions.CreateSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user, err := s.creds.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.activity.Record(ctx, domain.ActivityAuthSuccess, userID, "login")
	return &ports.LoginResult{Token: token, Session: session, User: user}, nil
}

func (s *authService) recordFailure(ctx context.Context, username string) {
	s.activity.Record(ctx, domain.ActivityAuthFailure, "", fmt.Sprintf("login %q: invalid credentials", username))
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.log.Warn().Err(err).Str("username", username).Msg("failed to record login failure")
	}
}

// Logout requires a valid session and revokes it.
func (s *authService) Logout(ctx context.Context, token string) error {
	if _, err := s.validate(ctx, token); err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, token)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	session, err := s.validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.creds.Get(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return user, nil
}

func (s *authService) validate(ctx context.Context, token string) (*domain.Session, error) {
	session, err := s.sessions.Validate(ctx, token)
	if errors.Is(err, domain.ErrSessionExpired) {
		s.activity.Record(ctx, domain.ActivitySessionExpired, "", "token presented after expiry")
	}
	return session, err
}
