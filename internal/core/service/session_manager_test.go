package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

func newTestSessionManager(timeout time.Duration) (*SessionManager, *stubSessionRepo, *fakeClock) {
	repo := newStubSessionRepo()
	clock := newFakeClock()
	return NewSessionManager(repo, &seqTokens{}, timeout, WithClock(clock.Now)), repo, clock
}

func TestSessionManager_CreateAndValidate(t *testing.T) {
	mgr, _, clock := newTestSessionManager(time.Hour)
	ctx := context.Background()

	token, s, err := mgr.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if !s.ExpiresAt.After(s.IssuedAt) {
		t.Fatal("expires_at must be after issued_at")
	}
	if s.ExpiresAt.Sub(s.IssuedAt) != time.Hour {
		t.Fatalf("unexpected window: %s", s.ExpiresAt.Sub(s.IssuedAt))
	}

	got, err := mgr.Validate(ctx, token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected user: %s", got.UserID)
	}

	clock.Advance(59 * time.Minute)
	if _, err := mgr.Validate(ctx, token); err != nil {
		t.Fatalf("session should still be valid: %v", err)
	}
}

func TestSessionManager_Expiry(t *testing.T) {
	mgr, repo, clock := newTestSessionManager(time.Hour)
	ctx := context.Background()

	token, _, _ := mgr.CreateSession(ctx, "u1")
	clock.Advance(time.Hour)

	if _, err := mgr.Validate(ctx, token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired at expires_at, got %v", err)
	}
	if repo.countFor("u1") != 0 {
		t.Fatal("expected expired session to be purged")
	}
}

type failingDeleteSessionRepo struct {
	*stubSessionRepo
}

func (failingDeleteSessionRepo) Delete(context.Context, string) error {
	return errors.New("store offline")
}

func TestSessionManager_ExpiryPurgeFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	repo := failingDeleteSessionRepo{newStubSessionRepo()}
	clock := newFakeClock()
	mgr := NewSessionManager(repo, &seqTokens{}, time.Hour, WithClock(clock.Now), WithSessionLogger(zerolog.New(&buf)))
	ctx := context.Background()

	token, _, err := mgr.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	clock.Advance(2 * time.Hour)

	if _, err := mgr.Validate(ctx, token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, "store offline") || !strings.Contains(out, `"user_id":"u1"`) {
		t.Fatalf("expected warn log for failed purge, got %q", out)
	}
}

func TestSessionManager_NoSlidingExpiry(t *testing.T) {
	mgr, _, clock := newTestSessionManager(time.Hour)
	ctx := context.Background()

	token, _, _ := mgr.CreateSession(ctx, "u1")
	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Minute)
		if _, err := mgr.Validate(ctx, token); err != nil {
			t.Fatalf("validate %d: %v", i, err)
		}
	}
	clock.Advance(10 * time.Minute)
	if _, err := mgr.Validate(ctx, token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("validation must not extend expiry, got %v", err)
	}
}

func TestSessionManager_ZeroTimeout(t *testing.T) {
	mgr, _, clock := newTestSessionManager(0)
	ctx := context.Background()

	token, s, err := mgr.CreateSession(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	if !s.ExpiresAt.After(s.IssuedAt) {
		t.Fatal("expires_at must be after issued_at even with a zero timeout")
	}

	clock.Advance(time.Nanosecond)
	if _, err := mgr.Validate(ctx, token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionManager_SingleActiveSession(t *testing.T) {
	mgr, repo, _ := newTestSessionManager(time.Hour)
	ctx := context.Background()

	first, _, _ := mgr.CreateSession(ctx, "u1")
	second, _, _ := mgr.CreateSession(ctx, "u1")

	if _, err := mgr.Validate(ctx, first); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected first token to be invalidated, got %v", err)
	}
	if _, err := mgr.Validate(ctx, second); err != nil {
		t.Fatalf("expected second token to be valid: %v", err)
	}
	if n := repo.countFor("u1"); n != 1 {
		t.Fatalf("expected exactly one session, got %d", n)
	}
}

func TestSessionManager_ConcurrentCreate(t *testing.T) {
	mgr, repo, _ := newTestSessionManager(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], _, _ = mgr.CreateSession(ctx, "u1")
		}(i)
	}
	wg.Wait()

	if n := repo.countFor("u1"); n != 1 {
		t.Fatalf("expected exactly one session after concurrent logins, got %d", n)
	}
	valid := 0
	for _, tok := range tokens {
		if _, err := mgr.Validate(ctx, tok); err == nil {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected exactly one valid token, got %d", valid)
	}
}

func TestSessionManager_Revoke(t *testing.T) {
	mgr, _, _ := newTestSessionManager(time.Hour)
	ctx := context.Background()

	token, _, _ := mgr.CreateSession(ctx, "u1")
	if err := mgr.Revoke(ctx, token); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if err := mgr.Revoke(ctx, token); err != nil {
		t.Fatalf("second Revoke must be a no-op, got %v", err)
	}
	if _, err := mgr.Validate(ctx, token); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionManager_UnknownToken(t *testing.T) {
	mgr, _, _ := newTestSessionManager(time.Hour)

	if _, err := mgr.Validate(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := mgr.Validate(context.Background(), ""); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for empty token, got %v", err)
	}
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	if len(k.locks) != 0 {
		t.Fatalf("expected no retained entries, got %d", len(k.locks))
	}
}
