package ports

import (
	"context"
	"time"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// MessageRepository defines persistence operations for the message ledger.
type MessageRepository interface {
	// Insert assigns m.ID and stores the message.
	Insert(ctx context.Context, m *domain.Message) error
	FindByID(ctx context.Context, id int64) (*domain.Message, error)
	// Resolve moves a pending message to a terminal status. Only the first call
	// succeeds; later calls return domain.ErrAlreadyResolved.
	Resolve(ctx context.Context, id int64, out domain.Outcome, at time.Time) error
	// ListForRecipient returns messages with id > since in ascending id order.
	// limit <= 0 returns all of them.
	ListForRecipient(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error)
	// MarkConsumed sets the consumed flag once; repeated calls keep the first timestamp.
	MarkConsumed(ctx context.Context, id int64, at time.Time) error
	ListPending(ctx context.Context) ([]*domain.Message, error)
	// ListConversation returns a page of messages exchanged between a and b,
	// newest first, with the total count.
	ListConversation(ctx context.Context, a, b string, limit, offset int) ([]*domain.Message, int64, error)
}
