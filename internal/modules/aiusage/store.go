package aiusage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles briefing_usage persistence.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Use atomically checks the monthly allowance and deducts one briefing,
// resetting the counter when last_reset_month is behind month.
// Returns ErrQuotaExceeded when no row is updated (exhausted or caller absent).
func (s *Store) Use(ctx context.Context, uid string, month time.Time, allowance int) error {
	now := month.Format(monthKey)
	tag, err := s.db.Exec(ctx, `
		UPDATE briefing_usage SET
			briefings_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE briefings_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR briefings_remaining > 0)
	`, now, allowance, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrQuotaExceeded
	}
	return nil
}

// Refund returns one briefing to uid for month. Rows of an older month are
// left alone; their counter resets on the next Use anyway.
func (s *Store) Refund(ctx context.Context, uid string, month time.Time, allowance int) error {
	_, err := s.db.Exec(ctx, `
		UPDATE briefing_usage SET
			briefings_remaining = LEAST(briefings_remaining + 1, $2)
		WHERE uid = $3 AND last_reset_month = $1
	`, month.Format(monthKey), allowance, uid)
	return err
}

// Ensure inserts a fresh row for uid; an existing row is left untouched.
func (s *Store) Ensure(ctx context.Context, uid string, month time.Time, allowance int) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO briefing_usage (uid, briefings_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, allowance, month.Format(monthKey))
	return err
}
