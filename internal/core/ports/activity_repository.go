package ports

import (
	"context"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// ActivityRepository is the durable sink of the activity stream.
type ActivityRepository interface {
	Insert(ctx context.Context, e *domain.ActivityEvent) error
}
