package ports

import (
	"context"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token   string
	Session *domain.Session
	User    *domain.User
}

// AuthService covers the unauthenticated and session-level operations.
type AuthService interface {
	Signup(ctx context.Context, username, password, email string) (string, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
	// Authenticate resolves a bearer token to its user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// SendInput is the DTO passed from the transport layer to MessageService.
type SendInput struct {
	SenderID  string
	Recipient string // username; empty means the sender
	Body      string
}

// ConversationPage is one page of a two-party conversation.
type ConversationPage struct {
	Messages []*domain.Message
	Total    int64
	Limit    int
	Offset   int
	HasMore  bool
}

// MessageService exposes the ledger to authenticated users.
type MessageService interface {
	Send(ctx context.Context, in SendInput) (int64, error)
	Poll(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error)
	MarkConsumed(ctx context.Context, messageID int64, recipientID string) error
	Conversation(ctx context.Context, userID, otherUsername string, limit, offset int) (*ConversationPage, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	Contacts(ctx context.Context, userID string) ([]*domain.User, error)
}
