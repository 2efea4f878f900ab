package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

// SessionRepository implements ports.SessionRepository for SQLite.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Replace removes every session of the user and inserts s in one transaction.
func (r *SessionRepository) Replace(ctx context.Context, s *domain.Session) error {
	return withTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", s.UserID); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (token_digest, user_id, issued_at, expires_at) VALUES (?, ?, ?, ?)",
			s.TokenDigest, s.UserID, toUnix(s.IssuedAt), toUnix(s.ExpiresAt),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
}

func (r *SessionRepository) FindByDigest(ctx context.Context, digest string) (*domain.Session, error) {
	var (
		s               domain.Session
		issued, expires int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT token_digest, user_id, issued_at, expires_at FROM sessions WHERE token_digest = ?", digest,
	).Scan(&s.TokenDigest, &s.UserID, &issued, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	s.IssuedAt = fromUnix(issued)
	s.ExpiresAt = fromUnix(expires)
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, digest string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_digest = ?", digest); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
