package arb

import (
	"math"
	"time"

	"github.com/hetulpatel/arbscan/internal/markets"
)

// Fees are taker costs charged on the buy leg, in probability units.
type Fees struct {
	Polymarket float64
	Kalshi     float64
	// KalshiTaker adds Kalshi's per-contract taker fee when buying there.
	KalshiTaker bool
}

type Config struct {
	MinProfitPct float64
	Fees         Fees
}

type Candidate struct {
	Direction        markets.Direction
	BuyPrice         float64
	SellPrice        float64
	Cost             float64
	Spread           float64
	ProfitPercentage float64
}

type Result struct {
	Candidates map[markets.Direction]Candidate
	Best       *Candidate
	Untradable bool
	Reason     string
}

const epsilon = 1e-9

// Evaluate computes both trade directions for a matched pair and keeps the
// more profitable one. Ties go to buying the cheaper leg.
func Evaluate(match *markets.Match, cfg Config) Result {
	res := Result{Candidates: make(map[markets.Direction]Candidate, 2)}

	pm, kx := match.Polymarket.YesPrice, match.Kalshi.YesPrice
	if reason, bad := untradable(pm, kx); bad {
		res.Untradable = true
		res.Reason = reason
		return res
	}

	a := candidate(markets.DirectionBuyPolymarketSellKalshi, pm, kx, cfg.Fees.Polymarket)
	b := candidate(markets.DirectionBuyKalshiSellPolymarket, kx, pm, kalshiBuyCost(kx, cfg.Fees))
	res.Candidates[a.Direction] = a
	res.Candidates[b.Direction] = b

	best := a
	switch {
	case b.ProfitPercentage > a.ProfitPercentage:
		best = b
	case b.ProfitPercentage == a.ProfitPercentage && kx < pm:
		best = b
	}
	res.Best = &best
	return res
}

func untradable(pm, kx float64) (string, bool) {
	switch {
	case math.IsNaN(pm) || math.IsNaN(kx):
		return "price is NaN", true
	case pm <= epsilon:
		return "zero polymarket price", true
	case kx <= epsilon:
		return "zero kalshi price", true
	}
	return "", false
}

func candidate(dir markets.Direction, buy, sell, cost float64) Candidate {
	base := CalculateArbitrage(buy, sell)
	c := Candidate{
		Direction: dir,
		BuyPrice:  buy,
		SellPrice: sell,
		Cost:      cost,
		Spread:    base.Spread,
	}
	if cost <= 0 {
		c.ProfitPercentage = base.ProfitPercentage
		return c
	}
	c.Spread = math.Max(base.Spread-cost, 0)
	c.ProfitPercentage = c.Spread / math.Min(buy, sell) * 100
	return c
}

func kalshiBuyCost(price float64, fees Fees) float64 {
	cost := fees.Kalshi
	if fees.KalshiTaker {
		cost += calcKalshiTakerFee(1, price)
	}
	return cost
}

func calcKalshiTakerFee(quantity, price float64) float64 {
	raw := 0.07 * quantity * price * (1 - price)
	return math.Ceil(raw*100) / 100
}

// Score turns matches into opportunities at or above the profit threshold.
// A threshold <= 0 uses DefaultMinProfitPct. Output keeps input order.
func Score(matches []markets.Match, cfg Config, now time.Time) []markets.Opportunity {
	threshold := cfg.MinProfitPct
	if threshold <= 0 {
		threshold = DefaultMinProfitPct
	}

	var out []markets.Opportunity
	for i := range matches {
		m := &matches[i]
		res := Evaluate(m, cfg)
		if res.Untradable || res.Best == nil {
			continue
		}
		if !IsSignificant(res.Best.ProfitPercentage, threshold) {
			continue
		}
		out = append(out, markets.Opportunity{
			ID:                markets.OpportunityID(m.Polymarket.ID, m.Kalshi.ID),
			MarketName:        m.Polymarket.Question,
			PolymarketPrice:   m.Polymarket.YesPrice,
			KalshiPrice:       m.Kalshi.YesPrice,
			Spread:            res.Best.Spread,
			ProfitPercentage:  res.Best.ProfitPercentage,
			PolymarketTokenID: m.Polymarket.YesTokenID(),
			KalshiTicker:      m.Kalshi.ID,
			Direction:         res.Best.Direction,
			DetectedAt:        now,
			Confidence:        m.Confidence,
			Reasoning:         m.Reasoning,
		})
	}
	return out
}
