package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

type stubAuthService struct {
	signupFn func(ctx context.Context, username, password, email string) (string, error)
	loginFn  func(ctx context.Context, username, password string) (*ports.LoginResult, error)
	logoutFn func(ctx context.Context, token string) error
}

func (s *stubAuthService) Signup(ctx context.Context, username, password, email string) (string, error) {
	return s.signupFn(ctx, username, password, email)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) Logout(ctx context.Context, token string) error {
	return s.logoutFn(ctx, token)
}

func (s *stubAuthService) Authenticate(context.Context, string) (*domain.User, error) {
	return nil, errors.New("not used")
}

type stubMessageService struct {
	sendFn         func(ctx context.Context, in ports.SendInput) (int64, error)
	pollFn         func(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error)
	consumedFn     func(ctx context.Context, messageID int64, recipientID string) error
	conversationFn func(ctx context.Context, userID, other string, limit, offset int) (*ports.ConversationPage, error)
	profileFn      func(ctx context.Context, userID string) (*domain.User, error)
	contactsFn     func(ctx context.Context, userID string) ([]*domain.User, error)
}

func (s *stubMessageService) Send(ctx context.Context, in ports.SendInput) (int64, error) {
	return s.sendFn(ctx, in)
}

func (s *stubMessageService) Poll(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error) {
	return s.pollFn(ctx, recipientID, since, limit)
}

func (s *stubMessageService) MarkConsumed(ctx context.Context, messageID int64, recipientID string) error {
	return s.consumedFn(ctx, messageID, recipientID)
}

func (s *stubMessageService) Conversation(ctx context.Context, userID, other string, limit, offset int) (*ports.ConversationPage, error) {
	return s.conversationFn(ctx, userID, other, limit, offset)
}

func (s *stubMessageService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.profileFn(ctx, userID)
}

func (s *stubMessageService) Contacts(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.contactsFn(ctx, userID)
}

// newTestContext builds an echo context with the validator registered and,
// when user is non-nil, an authenticated session.
func newTestContext(method, target string, body io.Reader, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(ContextUserKey, user)
		c.Set(ContextTokenKey, "tok-"+user.ID)
	}
	return c, rec
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError %d, got %v", code, err)
	}
	if he.Code != code {
		t.Fatalf("expected status %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected %d, got %d: %s", code, rec.Code, rec.Body.String())
	}
}

