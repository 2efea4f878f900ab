package ports

import (
	"context"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// UserRepository defines the interface for account persistence.
type UserRepository interface {
	// Create stores a new user. Returns domain.ErrDuplicateUser when the username is taken.
	Create(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// List returns every user except excludeID, ordered by username.
	List(ctx context.Context, excludeID string) ([]*domain.User, error)
}
