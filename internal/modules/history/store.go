// README: Route history store backed by PostgreSQL; the route itself is kept as JSONB.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shiftroute/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Save(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e.Route)
	if err != nil {
		return fmt.Errorf("encode route: %w", err)
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO route_history (
            id, owner_id, algorithm, trip_count, total_revenue, payload, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.ID),
		string(e.Owner),
		e.Route.Algorithm,
		e.Route.TripCount,
		e.Route.TotalRevenue,
		payload,
		e.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, owner_id, payload, created_at
        FROM route_history
        WHERE id = $1`, string(id),
	)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) ListByOwner(ctx context.Context, owner types.ID, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, owner_id, payload, created_at
        FROM route_history
        WHERE owner_id = $1
        ORDER BY created_at DESC
        LIMIT $2`, string(owner), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM route_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var id, owner string
	var payload []byte
	if err := row.Scan(&id, &owner, &payload, &e.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &e.Route); err != nil {
		return nil, fmt.Errorf("decode route %s: %w", id, err)
	}
	e.ID = types.ID(id)
	e.Owner = types.ID(owner)
	return &e, nil
}
