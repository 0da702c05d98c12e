package arb

import (
	"math"
	"testing"
	"time"

	"github.com/hetulpatel/arbscan/internal/markets"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func pair(pm, kx float64) markets.Match {
	return markets.Match{
		Polymarket: markets.Market{ID: "0xabc", Question: "Will X happen?", YesPrice: pm,
			Raw: markets.PolymarketRef{YesTokenID: "tok-yes"}},
		Kalshi:     markets.Market{ID: "KX-1", YesPrice: kx},
		Confidence: 0.8,
		Reasoning:  "same event",
	}
}

func TestCalculateArbitrage(t *testing.T) {
	tests := []struct {
		p1, p2     float64
		wantSpread float64
		wantPct    float64
	}{
		{0.45, 0.50, 0.05, 11.111111},
		{0.50, 0.45, 0.05, 11.111111},
		{0.30, 0.30, 0, 0},
		{0.10, 0.90, 0.80, 800},
		{0, 0.5, 0.5, 0},
	}
	for _, tt := range tests {
		got := CalculateArbitrage(tt.p1, tt.p2)
		if !almostEqual(got.Spread, tt.wantSpread) || !almostEqual(got.ProfitPercentage, tt.wantPct) {
			t.Errorf("CalculateArbitrage(%v, %v) = %+v, want spread %v pct %v",
				tt.p1, tt.p2, got, tt.wantSpread, tt.wantPct)
		}
	}
}

func TestCalculateArbitrageSymmetric(t *testing.T) {
	prices := []float64{0.01, 0.2, 0.33, 0.5, 0.77, 1}
	for _, a := range prices {
		for _, b := range prices {
			if CalculateArbitrage(a, b) != CalculateArbitrage(b, a) {
				t.Errorf("asymmetric for %v, %v", a, b)
			}
		}
	}
}

func TestIsSignificant(t *testing.T) {
	if !IsSignificant(2.0, 2.0) {
		t.Error("equal to threshold must be significant")
	}
	if IsSignificant(1.9999, 2.0) {
		t.Error("below threshold must not be significant")
	}
}

func TestScoreThreshold(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	matches := []markets.Match{pair(0.45, 0.50)}

	got := Score(matches, Config{MinProfitPct: 2}, now)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	op := got[0]
	if op.ID != "0xabc-KX-1" || op.KalshiTicker != "KX-1" || op.PolymarketTokenID != "tok-yes" {
		t.Errorf("identity fields = %+v", op)
	}
	if !almostEqual(op.ProfitPercentage, 11.111111) || !almostEqual(op.Spread, 0.05) {
		t.Errorf("profit = %v spread = %v", op.ProfitPercentage, op.Spread)
	}
	if op.Direction != markets.DirectionBuyPolymarketSellKalshi {
		t.Errorf("direction = %s", op.Direction)
	}
	if !op.DetectedAt.Equal(now) || op.Confidence != 0.8 || op.MarketName != "Will X happen?" {
		t.Errorf("metadata = %+v", op)
	}

	if got := Score(matches, Config{MinProfitPct: 15}, now); len(got) != 0 {
		t.Fatalf("threshold 15 should reject, got %+v", got)
	}
}

func TestScoreDefaultThreshold(t *testing.T) {
	// 0.50 vs 0.51 is 2%: kept at the default. 0.50 vs 0.505 is 1%: dropped.
	got := Score([]markets.Match{pair(0.50, 0.51), pair(0.50, 0.505)}, Config{}, time.Now())
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestScoreSkipsZeroPrice(t *testing.T) {
	got := Score([]markets.Match{pair(0, 0.5), pair(0.5, 0), pair(0.2, 0.4)}, Config{MinProfitPct: 1}, time.Now())
	if len(got) != 1 || got[0].PolymarketPrice != 0.2 {
		t.Fatalf("got %+v", got)
	}
}

func TestScorePreservesOrder(t *testing.T) {
	a, b := pair(0.2, 0.4), pair(0.6, 0.3)
	a.Polymarket.ID, b.Polymarket.ID = "a", "b"
	got := Score([]markets.Match{a, b}, Config{MinProfitPct: 1}, time.Now())
	if len(got) != 2 || got[0].ID != "a-KX-1" || got[1].ID != "b-KX-1" {
		t.Fatalf("got %+v", got)
	}
	if got[1].Direction != markets.DirectionBuyKalshiSellPolymarket {
		t.Errorf("cheaper kalshi leg should be bought, got %s", got[1].Direction)
	}
}

func TestEvaluateFees(t *testing.T) {
	m := pair(0.45, 0.50)
	res := Evaluate(&m, Config{Fees: Fees{Polymarket: 0.02, Kalshi: 0}})
	if res.Untradable || res.Best == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	// Buying Polymarket costs 0.02: 0.03/0.45. Buying Kalshi is free: 0.05/0.45.
	if res.Best.Direction != markets.DirectionBuyKalshiSellPolymarket {
		t.Errorf("best = %s", res.Best.Direction)
	}
	if c := res.Candidates[markets.DirectionBuyPolymarketSellKalshi]; !almostEqual(c.Spread, 0.03) {
		t.Errorf("polymarket spread = %v", c.Spread)
	}

	big := Evaluate(&m, Config{Fees: Fees{Polymarket: 1, Kalshi: 1}})
	if big.Best.Spread != 0 || big.Best.ProfitPercentage != 0 {
		t.Errorf("fees larger than spread must clamp to zero: %+v", big.Best)
	}
}

func TestCalcKalshiTakerFee(t *testing.T) {
	// 0.07 * 0.5 * 0.5 = 0.0175 -> rounds up to 0.02
	if got := calcKalshiTakerFee(1, 0.5); !almostEqual(got, 0.02) {
		t.Fatalf("fee = %v", got)
	}
}
