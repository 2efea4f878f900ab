package domain

import (
	"context"
	"time"
)

// ActivityKind classifies an operator-facing activity event.
type ActivityKind string

const (
	ActivityAuthSuccess      ActivityKind = "auth_success"
	ActivityAuthFailure      ActivityKind = "auth_failure"
	ActivityMessageSent      ActivityKind = "message_sent"
	ActivityMessageDelivered ActivityKind = "message_delivered"
	ActivityMessageFailed    ActivityKind = "message_failed"
	ActivitySessionExpired   ActivityKind = "session_expired"
)

// ActivityEvent is a write-once entry of the activity stream.
type ActivityEvent struct {
	ID        string       `json:"event_id"`
	Timestamp time.Time    `json:"timestamp"`
	Kind      ActivityKind `json:"kind"`
	UserID    string       `json:"user_id,omitempty"`
	ClientIP  string       `json:"client_ip,omitempty"`
	Detail    string       `json:"detail,omitempty"`
}

type clientIPKey struct{}

// WithClientIP attaches the caller's address to ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFrom returns the address stored by WithClientIP, or "".
func ClientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
