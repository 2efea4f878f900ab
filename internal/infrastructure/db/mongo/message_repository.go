package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

const messageCounter = "message_id"

// MessageRepository implements ports.MessageRepository using MongoDB.
// Message ids come from a counters document incremented atomically.
type MessageRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{
		coll:     db.Collection(collectionMessages),
		counters: db.Collection(collectionCounters),
	}
}

type mongoMessage struct {
	ID          int64      `bson:"_id"`
	SenderID    string     `bson:"sender_user_id"`
	RecipientID string     `bson:"recipient_user_id"`
	Body        string     `bson:"body"`
	Status      string     `bson:"status"`
	ReplyBody   *string    `bson:"reply_body"`
	CreatedAt   time.Time  `bson:"created_at"`
	ResolvedAt  *time.Time `bson:"resolved_at"`
	Consumed    bool       `bson:"consumed"`
	ConsumedAt  *time.Time `bson:"consumed_at"`
}

func (m mongoMessage) toDomain() *domain.Message {
	out := &domain.Message{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		Status:      domain.MessageStatus(m.Status),
		ReplyBody:   m.ReplyBody,
		CreatedAt:   m.CreatedAt.UTC(),
		Consumed:    m.Consumed,
	}
	if m.ResolvedAt != nil {
		t := m.ResolvedAt.UTC()
		out.ResolvedAt = &t
	}
	if m.ConsumedAt != nil {
		t := m.ConsumedAt.UTC()
		out.ConsumedAt = &t
	}
	return out
}

func (r *MessageRepository) nextID(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messageCounter},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next message id: %w", err)
	}
	return doc.Seq, nil
}

func (r *MessageRepository) Insert(ctx context.Context, m *domain.Message) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	doc := mongoMessage{
		ID:          id,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mm mongoMessage
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&mm); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return mm.toDomain(), nil
}

// Resolve filters on status=pending so only one caller can match.
func (r *MessageRepository) Resolve(ctx context.Context, id int64, out domain.Outcome, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"status": string(out.Status), "resolved_at": at.UTC(), "reply_body": nil}
	if out.Status == domain.StatusDelivered {
		set["reply_body"] = out.Reply
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(domain.StatusPending)},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("resolve message: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

func (r *MessageRepository) ListForRecipient(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"recipient_user_id": recipientID, "_id": bson.M{"$gt": since}}, opts)
}

func (r *MessageRepository) MarkConsumed(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "consumed": false},
		bson.M{"$set": bson.M{"consumed": true, "consumed_at": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *MessageRepository) ListPending(ctx context.Context) ([]*domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	return r.find(ctx, bson.M{"status": string(domain.StatusPending)}, opts)
}

func (r *MessageRepository) ListConversation(ctx context.Context, a, b string, limit, offset int) ([]*domain.Message, int64, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"sender_user_id": a, "recipient_user_id": b},
		bson.M{"sender_user_id": b, "recipient_user_id": a},
	}}

	countCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	total, err := r.coll.CountDocuments(countCtx, filter)
	cancel()
	if err != nil {
		return nil, 0, fmt.Errorf("count conversation: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	msgs, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *MessageRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoMessage
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	out := make([]*domain.Message, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
