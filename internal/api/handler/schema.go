package handler

import (
	"strings"
	"time"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type signupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email"    validate:"omitempty,email"`
}

func (r *signupRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type signupResponse struct {
	UserID string `json:"user_id"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// --- Messages ---

type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Body      string `json:"body" validate:"required,max=8000"`
}

type sendMessageResponse struct {
	MessageID int64  `json:"message_id"`
	Status    string `json:"status"`
}

type pollQuery struct {
	Since int64 `query:"since" validate:"gte=0"`
	Limit int   `query:"limit" validate:"gte=0,lte=500"`
}

type messageResponse struct {
	MessageID   int64      `json:"message_id"`
	SenderID    string     `json:"sender_user_id"`
	RecipientID string     `json:"recipient_user_id"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	ReplyBody   *string    `json:"reply_body"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	Consumed    bool       `json:"consumed"`
}

type pollResponse struct {
	Messages []messageResponse `json:"messages"`
}

// --- Users ---

type userResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
}

type conversationQuery struct {
	Limit  int `query:"limit"  validate:"gte=0,lte=100"`
	Offset int `query:"offset" validate:"gte=0"`
}

type paginationResponse struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

type conversationResponse struct {
	With       string             `json:"with"`
	Messages   []messageResponse  `json:"messages"`
	Pagination paginationResponse `json:"pagination"`
}

// --- Mappers ---

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		MessageID:   m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		Status:      string(m.Status),
		ReplyBody:   m.ReplyBody,
		CreatedAt:   m.CreatedAt,
		ResolvedAt:  m.ResolvedAt,
		Consumed:    m.Consumed,
	}
}

func toMessageResponses(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
