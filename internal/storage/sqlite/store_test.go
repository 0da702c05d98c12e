package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hetulpatel/arbscan/internal/markets"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "arb.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.CreateTables(context.Background()); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	return s
}

func TestInsertAndListRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 500, time.UTC)

	older := markets.Opportunity{
		ID: "p1-K1", RunID: "run-a", MarketName: "Older", PolymarketPrice: 0.45, KalshiPrice: 0.5,
		Spread: 0.05, ProfitPercentage: 11.11, PolymarketTokenID: "tok", KalshiTicker: "K1",
		Direction: markets.DirectionBuyPolymarketSellKalshi, DetectedAt: base, Confidence: 0.9, Reasoning: "r",
	}
	newer := markets.Opportunity{
		ID: "p2-K2", MarketName: "Newer", PolymarketPrice: 0.2, KalshiPrice: 0.3,
		Spread: 0.1, ProfitPercentage: 50, KalshiTicker: "K2", DetectedAt: base.Add(time.Second),
	}
	if err := s.InsertOpportunities(ctx, []markets.Opportunity{older}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.InsertOpportunities(ctx, []markets.Opportunity{newer}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "p2-K2" || got[1].ID != "p1-K1" {
		t.Fatalf("order = %s, %s", got[0].ID, got[1].ID)
	}
	if !got[1].DetectedAt.Equal(older.DetectedAt) {
		t.Errorf("detected_at = %v, want %v", got[1].DetectedAt, older.DetectedAt)
	}
	got[1].DetectedAt = older.DetectedAt
	if got[1] != older {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[1], older)
	}

	limited, err := s.ListRecent(ctx, 1)
	if err != nil || len(limited) != 1 || limited[0].ID != "p2-K2" {
		t.Fatalf("limit 1 = %+v, %v", limited, err)
	}
}

func TestInsertIsAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	op := markets.Opportunity{ID: "p-k", MarketName: "m", KalshiTicker: "k", DetectedAt: time.Now()}

	for i := 0; i < 2; i++ {
		if err := s.InsertOpportunities(ctx, []markets.Opportunity{op}); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	got, _ := s.ListRecent(ctx, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 rows for repeated sightings", len(got))
	}
}

func TestInsertEmptyIsNoop(t *testing.T) {
	s := openTestStore(t)
	if err := s.InsertOpportunities(context.Background(), nil); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestConcurrentInsertsAllLand(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const (
		writers = 8
		rounds  = 3
		batch   = 50
	)
	now := time.Now()
	var wg sync.WaitGroup
	errs := make(chan error, writers*rounds)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				opps := make([]markets.Opportunity, batch)
				for i := range opps {
					opps[i] = markets.Opportunity{
						ID:           fmt.Sprintf("p%d-k%d", w, i),
						RunID:        fmt.Sprintf("run-%d-%d", w, r),
						MarketName:   "m",
						KalshiTicker: "k",
						DetectedAt:   now,
					}
				}
				if err := s.InsertOpportunities(ctx, opps); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("insert: %v", err)
	}

	got, err := s.ListRecent(ctx, writers*rounds*batch+1)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != writers*rounds*batch {
		t.Fatalf("rows = %d, want %d", len(got), writers*rounds*batch)
	}
}

func TestDSNKeepsExistingQuery(t *testing.T) {
	if got := dsn("data/arb.db"); got != "data/arb.db?"+connParams {
		t.Errorf("dsn = %q", got)
	}
	if got := dsn("file:arb.db?mode=rwc"); got != "file:arb.db?mode=rwc&"+connParams {
		t.Errorf("dsn = %q", got)
	}
}
