// Package client is a typed HTTP client for the AI messenger relay API.
// Every authenticated call takes the session token explicitly; the client
// keeps no session state of its own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay api: %d %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the API, i.e. the
// session is unknown or expired and the caller must log in again.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
}

// Message is a ledger entry as seen by its recipient.
type Message struct {
	ID          int64      `json:"message_id"`
	SenderID    string     `json:"sender_user_id"`
	RecipientID string     `json:"recipient_user_id"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	ReplyBody   *string    `json:"reply_body"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
	Consumed    bool       `json:"consumed"`
}

// Resolved reports whether the relay has finished with the message.
func (m Message) Resolved() bool {
	return m.Status == "delivered" || m.Status == "failed"
}

// User is a public user profile.
type User struct {
	ID        string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is one page of messages exchanged with another user.
type Conversation struct {
	With       string    `json:"with"`
	Messages   []Message `json:"messages"`
	Pagination struct {
		Total   int64 `json:"total"`
		Limit   int   `json:"limit"`
		Offset  int   `json:"offset"`
		HasMore bool  `json:"has_more"`
	} `json:"pagination"`
}

// Client talks to one relay server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for baseURL. A nil httpClient uses a client with a
// 30 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Signup registers a user and returns its id.
func (c *Client) Signup(ctx context.Context, username, password, email string) (string, error) {
	req := map[string]string{"username": username, "password": password}
	if email != "" {
		req["email"] = email
	}
	var resp struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", "", req, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

// Login opens a session.
func (c *Client) Login(ctx context.Context, username, password string) (*Session, error) {
	var s Session
	req := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", "", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Logout revokes the session.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", token, nil, nil)
}

// Send submits body for relay to recipient (a username; empty means the
// caller) and returns the new message id.
func (c *Client) Send(ctx context.Context, token, recipient, body string) (int64, error) {
	req := map[string]string{"recipient": recipient, "body": body}
	var resp struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/messages", token, req, &resp); err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// Poll returns messages addressed to the caller with id greater than since.
func (c *Client) Poll(ctx context.Context, token string, since int64, limit int) ([]Message, error) {
	q := url.Values{}
	q.Set("since", strconv.FormatInt(since, 10))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/messages?"+q.Encode(), token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Ack marks a message as consumed.
func (c *Client) Ack(ctx context.Context, token string, messageID int64) error {
	path := "/v1/messages/" + strconv.FormatInt(messageID, 10) + "/consumed"
	return c.do(ctx, http.MethodPost, path, token, nil, nil)
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/v1/me", token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Users lists every other user.
func (c *Client) Users(ctx context.Context, token string) ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/users", token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Conversation returns a page of messages exchanged with username.
func (c *Client) Conversation(ctx context.Context, token, username string, limit, offset int) (*Conversation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	path := "/v1/conversations/" + url.PathEscape(username)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, path, token, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var envelope struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
