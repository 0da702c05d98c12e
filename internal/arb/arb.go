package arb

import "math"

const DefaultMinProfitPct = 2.0

// Spread is the raw price gap between two legs and that gap as a percentage
// of the cheaper leg.
type Spread struct {
	Spread           float64 `json:"spread"`
	ProfitPercentage float64 `json:"profit_percentage"`
}

// CalculateArbitrage is symmetric in its arguments. When either price is not
// positive the percentage is reported as zero.
func CalculateArbitrage(p1, p2 float64) Spread {
	s := Spread{Spread: math.Abs(p1 - p2)}
	if low := math.Min(p1, p2); low > 0 {
		s.ProfitPercentage = s.Spread / low * 100
	}
	return s
}

func IsSignificant(profitPct, threshold float64) bool {
	return profitPct >= threshold
}
