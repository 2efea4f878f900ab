package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

type authFixture struct {
	svc      ports.AuthService
	sessions *SessionManager
	clock    *fakeClock
	activity *stubRecorder
	limiter  *stubLimiter
}

func newAuthFixture(timeout time.Duration) *authFixture {
	creds, _, _ := newTestCredentialStore()
	clock := newFakeClock()
	sessions := NewSessionManager(newStubSessionRepo(), &seqTokens{}, timeout, WithClock(clock.Now))
	activity := &stubRecorder{}
	limiter := &stubLimiter{}
	return &authFixture{
		svc:      NewAuthService(creds, sessions, limiter, activity, zerolog.Nop()),
		sessions: sessions,
		clock:    clock,
		activity: activity,
		limiter:  limiter,
	}
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()

	id, err := f.svc.Signup(ctx, "alice", "p1", "")
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	res, err := f.svc.Login(ctx, "alice", "p1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if res.Token == "" || res.User.ID != id || res.User.Username != "alice" {
		t.Fatalf("unexpected login result: %+v", res)
	}

	user, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if user.ID != id {
		t.Fatalf("expected %s, got %s", id, user.ID)
	}

	if got := f.activity.count(domain.ActivityAuthSuccess); got != 2 {
		t.Fatalf("expected 2 auth_success events, got %d", got)
	}
	if f.limiter.resets != 1 {
		t.Fatal("expected limiter reset on success")
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()
	_, _ = f.svc.Signup(ctx, "alice", "p1", "")

	if _, err := f.svc.Login(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody", "p1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if got := f.activity.count(domain.ActivityAuthFailure); got != 2 {
		t.Fatalf("expected 2 auth_failure events, got %d", got)
	}
	if f.limiter.failures["alice"] != 1 || f.limiter.failures["nobody"] != 1 {
		t.Fatalf("expected failures recorded per username, got %v", f.limiter.failures)
	}
}

func TestAuthService_Login_Throttled(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()
	_, _ = f.svc.Signup(ctx, "alice", "p1", "")

	f.limiter.blocked = true
	if _, err := f.svc.Login(ctx, "alice", "p1"); !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestAuthService_SecondLoginInvalidatesFirst(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()
	_, _ = f.svc.Signup(ctx, "alice", "p1", "")

	first, _ := f.svc.Login(ctx, "alice", "p1")
	second, _ := f.svc.Login(ctx, "alice", "p1")

	if _, err := f.svc.Authenticate(ctx, first.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected first token to be rejected, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, second.Token); err != nil {
		t.Fatalf("expected second token to be valid: %v", err)
	}
}

func TestAuthService_ExpiredSessionRecorded(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()
	_, _ = f.svc.Signup(ctx, "alice", "p1", "")
	res, _ := f.svc.Login(ctx, "alice", "p1")

	f.clock.Advance(2 * time.Hour)
	if _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if f.activity.count(domain.ActivitySessionExpired) != 1 {
		t.Fatal("expected session_expired event")
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()
	_, _ = f.svc.Signup(ctx, "alice", "p1", "")
	res, _ := f.svc.Login(ctx, "alice", "p1")

	if err := f.svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
	if err := f.svc.Logout(ctx, res.Token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second logout, got %v", err)
	}
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	f := newAuthFixture(time.Hour)
	ctx := context.Background()

	_, _ = f.svc.Signup(ctx, "alice", "p1", "")
	if _, err := f.svc.Signup(ctx, "alice", "p2", ""); !errors.Is(err, domain.ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
}
