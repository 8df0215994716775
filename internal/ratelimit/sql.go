package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore держит счетчики в таблице rate_limits, общей для всех реплик.
// Время хранится в миллисекундах Unix.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Increment(ctx context.Context, key string, window time.Duration) (Window, error) {
	now := s.now().UnixMilli()

	query := s.db.Rebind(`
        INSERT INTO rate_limits (bucket_key, hits, reset_at_ms)
        VALUES (?, 1, ?)
        ON CONFLICT (bucket_key) DO UPDATE SET
            hits = CASE WHEN rate_limits.reset_at_ms < ? THEN 1 ELSE rate_limits.hits + 1 END,
            reset_at_ms = CASE WHEN rate_limits.reset_at_ms < ? THEN excluded.reset_at_ms ELSE rate_limits.reset_at_ms END
        RETURNING hits, reset_at_ms`)

	var row struct {
		Hits      int64 `db:"hits"`
		ResetAtMs int64 `db:"reset_at_ms"`
	}
	err := s.db.GetContext(ctx, &row, query, key, now+window.Milliseconds(), now, now)
	if err != nil {
		return Window{}, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	return Window{Count: row.Hits, ResetAt: time.UnixMilli(row.ResetAtMs)}, nil
}

func (s *SQLStore) Reset(ctx context.Context, key string) error {
	query := s.db.Rebind(`DELETE FROM rate_limits WHERE bucket_key = ?`)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to reset rate limit: %w", err)
	}
	return nil
}

func (s *SQLStore) Cleanup(ctx context.Context) error {
	query := s.db.Rebind(`DELETE FROM rate_limits WHERE reset_at_ms < ?`)
	if _, err := s.db.ExecContext(ctx, query, s.now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to clean up rate limits: %w", err)
	}
	return nil
}
