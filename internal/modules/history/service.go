// README: Route history service: per-caller storage, lookup and retention pruning.
package history

import (
	"context"
	"fmt"
	"time"

	"shiftroute/internal/modules/route"
	"shiftroute/internal/types"
)

type Repository interface {
	Save(ctx context.Context, e Entry) error
	Get(ctx context.Context, id types.ID) (*Entry, error)
	ListByOwner(ctx context.Context, owner types.ID, limit int) ([]Entry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Service struct {
	repo  Repository
	nowFn func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, nowFn: time.Now}
}

// Record stores an assembled route for owner.
func (s *Service) Record(ctx context.Context, owner types.ID, r route.Route) error {
	if owner == "" || r.ID == "" {
		return ErrBadRequest
	}
	return s.repo.Save(ctx, Entry{ID: r.ID, Owner: owner, Route: r, CreatedAt: s.nowFn().UTC()})
}

// Get returns a stored route. Routes of other callers are reported as missing.
func (s *Service) Get(ctx context.Context, owner, id types.ID) (*Entry, error) {
	if id == "" {
		return nil, ErrBadRequest
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Owner != owner {
		return nil, ErrNotFound
	}
	return e, nil
}

// List returns the most recent routes of owner, newest first.
func (s *Service) List(ctx context.Context, owner types.ID, limit int) ([]Summary, error) {
	if owner == "" {
		return nil, ErrBadRequest
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	entries, err := s.repo.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Summary())
	}
	return out, nil
}

// Prune deletes routes older than the retention period.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", ErrBadRequest)
	}
	return s.repo.DeleteOlderThan(ctx, s.nowFn().Add(-retention))
}
