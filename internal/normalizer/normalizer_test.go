package normalizer

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hetulpatel/arbscan/internal/kalshi"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/polymarket"
)

func pmTokens(yes, no float64) []polymarket.Token {
	return []polymarket.Token{
		{TokenID: "y", Outcome: "YES", Price: polymarket.Price(yes)},
		{TokenID: "n", Outcome: "no", Price: polymarket.Price(no)},
	}
}

func TestPolymarketDropsMalformedAndKeepsOrder(t *testing.T) {
	raw := []polymarket.Market{
		{ConditionID: "a", Question: "First?", Tokens: pmTokens(0.45, 0.55), EndDateISO: "2024-11-05T00:00:00Z"},
		{ConditionID: "b", Question: "Broken?", Tokens: []polymarket.Token{
			{TokenID: "y", Outcome: "Yes", Price: 0.3},
			{TokenID: "x", Outcome: "Maybe", Price: 0.7},
		}},
		{ConditionID: "c", Question: "Third?", Tokens: pmTokens(0.2, 0.8), EndDateISO: "not a date"},
	}

	got := Polymarket(raw)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("order = %s,%s", got[0].ID, got[1].ID)
	}
	if got[0].YesPrice != 0.45 || got[0].NoPrice != 0.55 {
		t.Errorf("prices = %v/%v", got[0].YesPrice, got[0].NoPrice)
	}
	if got[0].Venue != markets.VenuePolymarket {
		t.Errorf("venue = %s", got[0].Venue)
	}
	if want := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC); !got[0].CloseTime.Equal(want) {
		t.Errorf("close = %v", got[0].CloseTime)
	}
	if !got[1].CloseTime.IsZero() {
		t.Errorf("unparsable close should be zero, got %v", got[1].CloseTime)
	}
	if got[0].YesTokenID() != "y" {
		t.Errorf("yes token = %q", got[0].YesTokenID())
	}
}

func TestPolymarketSingleToken(t *testing.T) {
	raw := []polymarket.Market{{ConditionID: "a", Tokens: []polymarket.Token{{Outcome: "Yes"}}}}
	if got := Polymarket(raw); len(got) != 0 {
		t.Fatalf("expected drop, got %+v", got)
	}
}

func TestKalshiMidpoint(t *testing.T) {
	raw := []kalshi.Market{
		{Ticker: "K1", Title: "Will K?", YesBid: 40, YesAsk: 60, NoBid: 40, NoAsk: 60, CloseTime: "2024-12-31T23:59:59Z"},
		{Ticker: "", YesBid: 1, YesAsk: 2},
		{Ticker: "K2", YesBid: 10, YesAsk: 14, NoBid: 86, NoAsk: 90},
	}
	got := Kalshi(raw)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].YesPrice != 0.5 || got[0].NoPrice != 0.5 {
		t.Errorf("K1 prices = %v/%v, want 0.5/0.5", got[0].YesPrice, got[0].NoPrice)
	}
	if math.Abs(got[1].YesPrice-0.12) > 1e-9 || math.Abs(got[1].NoPrice-0.88) > 1e-9 {
		t.Errorf("K2 prices = %v/%v", got[1].YesPrice, got[1].NoPrice)
	}
	if got[0].Question != "Will K?" || got[0].Venue != markets.VenueKalshi {
		t.Errorf("unexpected market %+v", got[0])
	}
}

type stubPoly struct {
	out []polymarket.Market
	err error
}

func (s stubPoly) FetchMarkets(context.Context) ([]polymarket.Market, error) { return s.out, s.err }

type stubKalshi struct {
	out []kalshi.Market
	err error
}

func (s stubKalshi) FetchMarkets(context.Context) ([]kalshi.Market, error) { return s.out, s.err }

func TestFetchAllIsolatesVenueFailures(t *testing.T) {
	f := NewFetcher(
		stubPoly{err: errors.New("boom")},
		stubKalshi{out: []kalshi.Market{{Ticker: "K1", YesBid: 40, YesAsk: 60}}},
	)
	snap := f.FetchAll(context.Background())
	if snap.Polymarket == nil || len(snap.Polymarket) != 0 {
		t.Fatalf("polymarket = %#v, want empty non-nil", snap.Polymarket)
	}
	if len(snap.Kalshi) != 1 {
		t.Fatalf("kalshi len = %d", len(snap.Kalshi))
	}
}

func TestFetchAllNilSources(t *testing.T) {
	snap := NewFetcher(nil, nil).FetchAll(context.Background())
	if len(snap.Polymarket) != 0 || len(snap.Kalshi) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
}

type panickingKalshi struct{}

func (panickingKalshi) FetchMarkets(context.Context) ([]kalshi.Market, error) { panic("boom") }

func TestFetchAllRecoversVenuePanic(t *testing.T) {
	f := NewFetcher(
		stubPoly{out: []polymarket.Market{{ConditionID: "c1", Question: "q", Tokens: pmTokens(0.4, 0.6)}}},
		panickingKalshi{},
	)
	snap := f.FetchAll(context.Background())
	if snap.Kalshi == nil || len(snap.Kalshi) != 0 {
		t.Fatalf("kalshi = %#v, want empty non-nil", snap.Kalshi)
	}
	if len(snap.Polymarket) != 1 {
		t.Fatalf("polymarket len = %d, want 1", len(snap.Polymarket))
	}
}
