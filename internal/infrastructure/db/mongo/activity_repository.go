package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// ActivityRepository persists activity events to the activity_events collection.
type ActivityRepository struct {
	coll *mongo.Collection
}

func NewActivityRepository(db *mongo.Database) *ActivityRepository {
	return &ActivityRepository{coll: db.Collection(collectionActivity)}
}

func (r *ActivityRepository) Insert(ctx context.Context, e *domain.ActivityEvent) error {
	doc := bson.M{
		"_id":    e.ID,
		"ts":     e.Timestamp.UTC(),
		"kind":   string(e.Kind),
		"detail": e.Detail,
	}
	if e.UserID != "" {
		doc["user_id"] = e.UserID
	}
	if e.ClientIP != "" {
		doc["client_ip"] = e.ClientIP
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
