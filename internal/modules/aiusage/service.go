package aiusage

import (
	"context"
	"errors"
	"time"
)

// Ledger persists per-caller briefing counters.
type Ledger interface {
	Use(ctx context.Context, uid string, month time.Time, allowance int) error
	Ensure(ctx context.Context, uid string, month time.Time, allowance int) error
	Refund(ctx context.Context, uid string, month time.Time, allowance int) error
}

// Service enforces the monthly briefing allowance.
type Service struct {
	ledger    Ledger
	allowance int
	nowFn     func() time.Time
}

// NewService creates a Service; allowance <= 0 uses DefaultMonthlyBriefings.
func NewService(ledger Ledger, allowance int) *Service {
	if allowance <= 0 {
		allowance = DefaultMonthlyBriefings
	}
	return &Service{ledger: ledger, allowance: allowance, nowFn: time.Now}
}

// UseBriefing deducts one briefing from the caller's allowance. A caller
// seen for the first time is initialised and charged immediately.
func (s *Service) UseBriefing(ctx context.Context, uid string) error {
	now := s.nowFn().UTC()
	err := s.ledger.Use(ctx, uid, now, s.allowance)
	if !errors.Is(err, ErrQuotaExceeded) {
		return err
	}

	// Row may be missing: create it, then retry the deduction once.
	if initErr := s.ledger.Ensure(ctx, uid, now, s.allowance); initErr != nil {
		return initErr
	}
	return s.ledger.Use(ctx, uid, now, s.allowance)
}

// RefundBriefing gives back a briefing charged this month whose generation
// failed. The balance never rises above the allowance.
func (s *Service) RefundBriefing(ctx context.Context, uid string) error {
	return s.ledger.Refund(ctx, uid, s.nowFn().UTC(), s.allowance)
}
