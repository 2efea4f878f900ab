package domain

import "time"

// MessageStatus represents the lifecycle state of a relayed message.
type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusDelivered MessageStatus = "delivered"
	StatusFailed    MessageStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s MessageStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// Message is a ledger entry: the sender's prompt and the provider's reply.
type Message struct {
	ID          int64         `json:"message_id"`
	SenderID    string        `json:"sender_user_id"`
	RecipientID string        `json:"recipient_user_id"`
	Body        string        `json:"body"`
	Status      MessageStatus `json:"status"`
	ReplyBody   *string       `json:"reply_body"`
	CreatedAt   time.Time     `json:"created_at"`
	ResolvedAt  *time.Time    `json:"resolved_at"`
	Consumed    bool          `json:"consumed"`
	ConsumedAt  *time.Time    `json:"consumed_at,omitempty"`
}

// Outcome is the single resolution applied to a pending message.
type Outcome struct {
	Status MessageStatus
	Reply  string
}

// Delivered builds a successful outcome carrying the provider reply.
func Delivered(reply string) Outcome {
	return Outcome{Status: StatusDelivered, Reply: reply}
}

// Failed builds a failed outcome; failed messages never carry a reply.
func Failed() Outcome {
	return Outcome{Status: StatusFailed}
}
