// README: Briefing allowance tests (lazy reset and quota boundary logic).
package aiusage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shiftroute/internal/infra"
)

// memoryLedger mirrors the SQL of Store.Use, Store.Ensure and Store.Refund.
type memoryLedger struct {
	rows map[string]*usageRow
}

type usageRow struct {
	remaining int
	month     string
}

func (m *memoryLedger) Use(_ context.Context, uid string, month time.Time, allowance int) error {
	now := month.Format(monthKey)
	r, ok := m.rows[uid]
	if !ok || (r.month >= now && r.remaining <= 0) {
		return ErrQuotaExceeded
	}
	if r.month != now {
		r.remaining = allowance
	}
	r.remaining--
	r.month = now
	return nil
}

func (m *memoryLedger) Ensure(_ context.Context, uid string, month time.Time, allowance int) error {
	if _, ok := m.rows[uid]; !ok {
		m.rows[uid] = &usageRow{remaining: allowance, month: month.Format(monthKey)}
	}
	return nil
}

func (m *memoryLedger) Refund(_ context.Context, uid string, month time.Time, allowance int) error {
	if r, ok := m.rows[uid]; ok && r.month == month.Format(monthKey) && r.remaining < allowance {
		r.remaining++
	}
	return nil
}

func newMemoryService(rows map[string]*usageRow) *Service {
	svc := NewService(&memoryLedger{rows: rows}, 3)
	svc.nowFn = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestUseBriefingNewCaller(t *testing.T) {
	rows := map[string]*usageRow{}
	svc := newMemoryService(rows)

	if err := svc.UseBriefing(context.Background(), "driver_new"); err != nil {
		t.Fatalf("UseBriefing for new caller: %v", err)
	}
	if got := rows["driver_new"].remaining; got != 2 {
		t.Fatalf("expected 2 briefings remaining, got %d", got)
	}
}

func TestUseBriefingQuotaBoundary(t *testing.T) {
	svc := newMemoryService(map[string]*usageRow{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.UseBriefing(ctx, "driver_busy"); err != nil {
			t.Fatalf("briefing %d: %v", i+1, err)
		}
	}
	if err := svc.UseBriefing(ctx, "driver_busy"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestUseBriefingCrossMonthReset(t *testing.T) {
	rows := map[string]*usageRow{"driver_reset": {remaining: 0, month: "2024-02"}}
	svc := newMemoryService(rows)

	if err := svc.UseBriefing(context.Background(), "driver_reset"); err != nil {
		t.Fatalf("UseBriefing after cross-month reset: %v", err)
	}
	if r := rows["driver_reset"]; r.remaining != 2 || r.month != "2024-03" {
		t.Fatalf("expected 2 remaining in 2024-03, got %d in %s", r.remaining, r.month)
	}
}

func TestRefundBriefing(t *testing.T) {
	rows := map[string]*usageRow{}
	svc := newMemoryService(rows)
	ctx := context.Background()

	if err := svc.UseBriefing(ctx, "driver_refund"); err != nil {
		t.Fatalf("UseBriefing: %v", err)
	}
	if err := svc.RefundBriefing(ctx, "driver_refund"); err != nil {
		t.Fatalf("RefundBriefing: %v", err)
	}
	if got := rows["driver_refund"].remaining; got != 3 {
		t.Fatalf("expected full allowance after refund, got %d", got)
	}

	// never above the allowance
	if err := svc.RefundBriefing(ctx, "driver_refund"); err != nil {
		t.Fatalf("second RefundBriefing: %v", err)
	}
	if got := rows["driver_refund"].remaining; got != 3 {
		t.Fatalf("expected refund capped at 3, got %d", got)
	}

	// a stale month is not topped up
	rows["driver_stale"] = &usageRow{remaining: 0, month: "2024-02"}
	if err := svc.RefundBriefing(ctx, "driver_stale"); err != nil {
		t.Fatalf("RefundBriefing stale: %v", err)
	}
	if got := rows["driver_stale"].remaining; got != 0 {
		t.Fatalf("expected stale row untouched, got %d", got)
	}
}

func TestDefaultAllowance(t *testing.T) {
	if got := NewService(&memoryLedger{}, 0).allowance; got != DefaultMonthlyBriefings {
		t.Fatalf("expected default allowance %d, got %d", DefaultMonthlyBriefings, got)
	}
}

// TestStorePostgres runs the same boundary checks against a real database.
func TestStorePostgres(t *testing.T) {
	dsn := os.Getenv("SHIFT_DB_DSN")
	if dsn == "" {
		t.Skip("SHIFT_DB_DSN not set; skipping DB-backed tests")
	}
	ctx := context.Background()
	if err := infra.RunMigrations("file://../../../db/migration", dsn); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(db.Close)
	if _, err := db.Exec(ctx, "TRUNCATE TABLE briefing_usage"); err != nil {
		t.Fatalf("truncate briefing_usage: %v", err)
	}

	if _, err := db.Exec(ctx, "INSERT INTO briefing_usage VALUES ('driver_reset', 0, '2000-01')"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(NewStore(db), 2)
	if err := svc.UseBriefing(ctx, "driver_reset"); err != nil {
		t.Fatalf("UseBriefing after cross-month reset: %v", err)
	}
	if err := svc.UseBriefing(ctx, "driver_new"); err != nil {
		t.Fatalf("UseBriefing for new caller: %v", err)
	}
	if err := svc.UseBriefing(ctx, "driver_new"); err != nil {
		t.Fatalf("second briefing: %v", err)
	}
	if err := svc.UseBriefing(ctx, "driver_new"); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	if err := svc.RefundBriefing(ctx, "driver_new"); err != nil {
		t.Fatalf("RefundBriefing: %v", err)
	}
	if err := svc.UseBriefing(ctx, "driver_new"); err != nil {
		t.Fatalf("briefing after refund: %v", err)
	}
}
