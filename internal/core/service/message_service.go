package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/ai-messenger/internal/core/domain"
	"github.com/99minutos/ai-messenger/internal/core/ports"
)

type messageService struct {
	ledger   *Ledger
	creds    *CredentialStore
	queue    ports.Enqueuer
	activity ActivityRecorder
	log      zerolog.Logger
}

// NewMessageService returns a MessageService implementation.
func NewMessageService(
	ledger *Ledger,
	creds *CredentialStore,
	queue ports.Enqueuer,
	activity ActivityRecorder,
	log zerolog.Logger,
) ports.MessageService {
	return &messageService{
		ledger:   ledger,
		creds:    creds,
		queue:    queue,
		activity: activity,
		log:      log,
	}
}

// Send records the message as pending and hands it to the relay.
// The relay outcome is observed later through Poll.
func (s *messageService) Send(ctx context.Context, in ports.SendInput) (int64, error) {
	recipientID := in.SenderID
	if in.Recipient != "" {
		u, err := s.creds.Lookup(ctx, in.Recipient)
		if err != nil {
			return 0, err
		}
		recipientID = u.ID
	}

	id, err := s.ledger.Submit(ctx, in.SenderID, recipientID, in.Body)
	if err != nil {
		return 0, err
	}
	s.activity.Record(ctx, domain.ActivityMessageSent, in.SenderID, fmt.Sprintf("message %d to %s", id, recipientID))

	if err := s.queue.Enqueue(ctx, id, in.SenderID); err != nil {
		// still pending in the ledger, the recovery sweep picks it up
		s.log.Warn().Err(err).Int64("message_id", id).Msg("failed to enqueue message")
	}
	return id, nil
}

func (s *messageService) Poll(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error) {
	return s.ledger.Poll(ctx, recipientID, since, limit)
}

func (s *messageService) MarkConsumed(ctx context.Context, messageID int64, recipientID string) error {
	return s.ledger.MarkConsumed(ctx, messageID, recipientID)
}

func (s *messageService) Conversation(ctx context.Context, userID, otherUsername string, limit, offset int) (*ports.ConversationPage, error) {
	other, err := s.creds.Lookup(ctx, otherUsername)
	if err != nil {
		return nil, err
	}
	return s.ledger.Conversation(ctx, userID, other.ID, limit, offset)
}

func (s *messageService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.creds.Get(ctx, userID)
}

func (s *messageService) Contacts(ctx context.Context, userID string) ([]*domain.User, error) {
	return s.creds.Contacts(ctx, userID)
}
