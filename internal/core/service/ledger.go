package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

const (
	defaultConversationLimit = 50
	maxConversationLimit     = 100
)

// Ledger is the durable record of messages and their resolution.
type Ledger struct {
	repo ports.MessageRepository
	now  func() time.Time
}

func NewLedger(repo ports.MessageRepository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// Submit stores a pending message and returns its id.
func (l *Ledger) Submit(ctx context.Context, senderID, recipientID, body string) (int64, error) {
	if senderID == "" || recipientID == "" || strings.TrimSpace(body) == "" {
		return 0, domain.ErrInvalidInput
	}
	m := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
		Status:      domain.StatusPending,
		CreatedAt:   l.now().UTC(),
	}
	if err := l.repo.Insert(ctx, m); err != nil {
		return 0, fmt.Errorf("submit: %w", err)
	}
	return m.ID, nil
}

// Resolve applies the single terminal outcome of a pending message.
func (l *Ledger) Resolve(ctx context.Context, id int64, out domain.Outcome) error {
	if !out.Status.Terminal() {
		return fmt.Errorf("resolve %d: %w: status %q", id, domain.ErrInvalidInput, out.Status)
	}
	if out.Status == domain.StatusDelivered && out.Reply == "" {
		return fmt.Errorf("resolve %d: %w: delivered without reply", id, domain.ErrInvalidInput)
	}
	if out.Status == domain.StatusFailed {
		out.Reply = ""
	}
	if err := l.repo.Resolve(ctx, id, out, l.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) || errors.Is(err, domain.ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("resolve %d: %w", id, err)
	}
	return nil
}

// Poll returns the recipient's messages newer than since, in id order,
// regardless of status.
func (l *Ledger) Poll(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error) {
	if since < 0 {
		since = 0
	}
	msgs, err := l.repo.ListForRecipient(ctx, recipientID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("poll: %w", err)
	}
	return msgs, nil
}

// MarkConsumed flags a message as read by its recipient. Repeated calls succeed.
func (l *Ledger) MarkConsumed(ctx context.Context, id int64, recipientID string) error {
	m, err := l.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if m.RecipientID != recipientID {
		return domain.ErrNotRecipient
	}
	if m.Consumed {
		return nil
	}
	if err := l.repo.MarkConsumed(ctx, id, l.now().UTC()); err != nil {
		return fmt.Errorf("mark consumed %d: %w", id, err)
	}
	return nil
}

func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Message, error) {
	return l.repo.FindByID(ctx, id)
}

// Pending lists every unresolved message, oldest first.
func (l *Ledger) Pending(ctx context.Context) ([]*domain.Message, error) {
	return l.repo.ListPending(ctx)
}

// Conversation returns one page of messages exchanged between a and b,
// newest first. limit defaults to 50 and is capped at 100.
func (l *Ledger) Conversation(ctx context.Context, a, b string, limit, offset int) (*ports.ConversationPage, error) {
	if limit <= 0 {
		limit = defaultConversationLimit
	}
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}
	if offset < 0 {
		offset = 0
	}
	msgs, total, err := l.repo.ListConversation(ctx, a, b, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	return &ports.ConversationPage{
		Messages: msgs,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
		HasMore:  int64(offset+len(msgs)) < total,
	}, nil
}
