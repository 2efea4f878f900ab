package ports

import (
	"context"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// SessionRepository persists sessions keyed by token digest.
type SessionRepository interface {
	// Replace deletes every session of s.UserID and stores s in one step.
	Replace(ctx context.Context, s *domain.Session) error
	FindByDigest(ctx context.Context, digest string) (*domain.Session, error)
	// Delete is a no-op when the digest is unknown.
	Delete(ctx context.Context, digest string) error
}
