package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

func TestUserHandler_Me(t *testing.T) {
	stub := &stubMessageService{
		profileFn: func(_ context.Context, userID string) (*domain.User, error) {
			return &domain.User{ID: userID, Username: "alice", Email: "a@example.com", PasswordHash: "secret-hash"}, nil
		},
	}
	c, rec := newTestContext(http.MethodGet, "/v1/me", nil, alice)

	if err := NewUserHandler(stub).Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assertStatus(t, rec, http.StatusOK)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["username"] != "alice" || resp["user_id"] != alice.ID {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	for _, k := range []string{"password_hash", "PasswordHash", "salt"} {
		if _, ok := resp[k]; ok {
			t.Fatalf("credential field %s leaked", k)
		}
	}
}

func TestUserHandler_List(t *testing.T) {
	stub := &stubMessageService{
		contactsFn: func(_ context.Context, userID string) ([]*domain.User, error) {
			if userID != alice.ID {
				t.Fatalf("unexpected user %s", userID)
			}
			return []*domain.User{{ID: "u-bob", Username: "bob"}}, nil
		},
	}
	c, rec := newTestContext(http.MethodGet, "/v1/users", nil, alice)

	if err := NewUserHandler(stub).List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assertStatus(t, rec, http.StatusOK)

	var resp usersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].Username != "bob" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestUserHandler_Conversation(t *testing.T) {
	stub := &stubMessageService{
		conversationFn: func(_ context.Context, userID, other string, limit, offset int) (*ports.ConversationPage, error) {
			if userID != alice.ID || other != "bob" || limit != 2 || offset != 4 {
				t.Fatalf("unexpected args: %s %s %d %d", userID, other, limit, offset)
			}
			return &ports.ConversationPage{
				Messages: []*domain.Message{{ID: 9, SenderID: alice.ID, Status: domain.StatusPending}},
				Total:    7,
				Limit:    2,
				Offset:   4,
				HasMore:  true,
			}, nil
		},
	}
	c, rec := newTestContext(http.MethodGet, "/v1/conversations/bob?limit=2&offset=4", nil, alice)
	c.SetParamNames("username")
	c.SetParamValues("bob")

	if err := NewUserHandler(stub).Conversation(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assertStatus(t, rec, http.StatusOK)

	var resp conversationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.With != "bob" || len(resp.Messages) != 1 || !resp.Pagination.HasMore || resp.Pagination.Total != 7 {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestUserHandler_Conversation_UnknownUser(t *testing.T) {
	stub := &stubMessageService{
		conversationFn: func(context.Context, string, string, int, int) (*ports.ConversationPage, error) {
			return nil, domain.ErrUserNotFound
		},
	}
	c, _ := newTestContext(http.MethodGet, "/v1/conversations/ghost", nil, alice)
	c.SetParamNames("username")
	c.SetParamValues("ghost")

	if err := NewUserHandler(stub).Conversation(c); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserHandler_Conversation_LimitTooLarge(t *testing.T) {
	stub := &stubMessageService{}
	c, _ := newTestContext(http.MethodGet, "/v1/conversations/bob?limit=1000", nil, alice)
	c.SetParamNames("username")
	c.SetParamValues("bob")

	assertHTTPError(t, NewUserHandler(stub).Conversation(c), http.StatusUnprocessableEntity)
}
