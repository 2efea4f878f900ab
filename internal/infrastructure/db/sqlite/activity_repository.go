package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// ActivityRepository appends activity events to the activity_events table.
type ActivityRepository struct {
	db DBTX
}

func NewActivityRepository(db DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Insert(ctx context.Context, e *domain.ActivityEvent) error {
	userID := sql.NullString{String: e.UserID, Valid: e.UserID != ""}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO activity_events (id, ts, kind, user_id, client_ip, detail) VALUES (?, ?, ?, ?, ?, ?)",
		e.ID, toUnix(e.Timestamp), string(e.Kind), userID, e.ClientIP, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
