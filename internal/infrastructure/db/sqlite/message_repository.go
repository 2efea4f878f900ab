package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// MessageRepository implements ports.MessageRepository for SQLite.
type MessageRepository struct {
	db      DBTX
	builder squirrel.StatementBuilderType
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

var messageColumns = []string{
	"id", "sender_user_id", "recipient_user_id", "body", "status",
	"reply_body", "created_at", "resolved_at", "consumed", "consumed_at",
}

func (r *MessageRepository) Insert(ctx context.Context, m *domain.Message) error {
	query, args, err := r.builder.Insert("messages").
		Columns("sender_user_id", "recipient_user_id", "body", "status", "created_at").
		Values(m.SenderID, m.RecipientID, m.Body, string(m.Status), toUnix(m.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert message sql: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id int64) (*domain.Message, error) {
	query, args, err := r.builder.Select(messageColumns...).From("messages").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find message sql: %w", err)
	}
	return scanMessage(r.db.QueryRowContext(ctx, query, args...))
}

// Resolve is a single conditional update; the status filter makes it the
// compare-and-set that picks exactly one winner.
func (r *MessageRepository) Resolve(ctx context.Context, id int64, out domain.Outcome, at time.Time) error {
	reply := sql.NullString{String: out.Reply, Valid: out.Status == domain.StatusDelivered}
	query, args, err := r.builder.Update("messages").
		Set("status", string(out.Status)).
		Set("reply_body", reply).
		Set("resolved_at", toUnix(at)).
		Where(squirrel.Eq{"id": id, "status": string(domain.StatusPending)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resolve sql: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("resolve message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve message: %w", err)
	}
	if n == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrAlreadyResolved
	}
	return nil
}

func (r *MessageRepository) ListForRecipient(ctx context.Context, recipientID string, since int64, limit int) ([]*domain.Message, error) {
	q := r.builder.Select(messageColumns...).From("messages").
		Where(squirrel.Eq{"recipient_user_id": recipientID}).
		Where(squirrel.Gt{"id": since}).
		OrderBy("id ASC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return r.list(ctx, q)
}

func (r *MessageRepository) MarkConsumed(ctx context.Context, id int64, at time.Time) error {
	query, args, err := r.builder.Update("messages").
		Set("consumed", 1).
		Set("consumed_at", toUnix(at)).
		Where(squirrel.Eq{"id": id, "consumed": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark consumed sql: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *MessageRepository) ListPending(ctx context.Context) ([]*domain.Message, error) {
	q := r.builder.Select(messageColumns...).From("messages").
		Where(squirrel.Eq{"status": string(domain.StatusPending)}).
		OrderBy("id ASC")
	return r.list(ctx, q)
}

func (r *MessageRepository) ListConversation(ctx context.Context, a, b string, limit, offset int) ([]*domain.Message, int64, error) {
	between := squirrel.Or{
		squirrel.Eq{"sender_user_id": a, "recipient_user_id": b},
		squirrel.Eq{"sender_user_id": b, "recipient_user_id": a},
	}

	countSQL, countArgs, err := r.builder.Select("COUNT(*)").From("messages").Where(between).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count sql: %w", err)
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversation: %w", err)
	}

	q := r.builder.Select(messageColumns...).From("messages").
		Where(between).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	msgs, err := r.list(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return msgs, total, nil
}

func (r *MessageRepository) list(ctx context.Context, q squirrel.SelectBuilder) ([]*domain.Message, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sql: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMessage(s rowScanner) (*domain.Message, error) {
	var (
		m                    domain.Message
		status               string
		reply                sql.NullString
		created              int64
		resolved, consumedAt sql.NullInt64
	)
	err := s.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Body, &status,
		&reply, &created, &resolved, &m.Consumed, &consumedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.Status = domain.MessageStatus(status)
	m.ReplyBody = nullString(reply)
	m.CreatedAt = fromUnix(created)
	m.ResolvedAt = nullTime(resolved)
	m.ConsumedAt = nullTime(consumedAt)
	return &m, nil
}
