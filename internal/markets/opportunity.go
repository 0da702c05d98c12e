package markets

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

type Direction string

const (
	DirectionBuyPolymarketSellKalshi Direction = "BUY_POLYMARKET_SELL_KALSHI"
	DirectionBuyKalshiSellPolymarket Direction = "BUY_KALSHI_SELL_POLYMARKET"
)

// Opportunity is a scored match whose profit cleared the pass threshold.
type Opportunity struct {
	ID                string    `json:"id"`
	RunID             string    `json:"run_id,omitempty"`
	MarketName        string    `json:"market_name"`
	PolymarketPrice   float64   `json:"polymarket_price"`
	KalshiPrice       float64   `json:"kalshi_price"`
	Spread            float64   `json:"spread"`
	ProfitPercentage  float64   `json:"profit_percentage"`
	PolymarketTokenID string    `json:"polymarket_token_id,omitempty"`
	KalshiTicker      string    `json:"kalshi_ticker"`
	Direction         Direction `json:"direction,omitempty"`
	DetectedAt        time.Time `json:"detected_at"`
	Confidence        float64   `json:"confidence_score"`
	Reasoning         string    `json:"reasoning,omitempty"`
}

// OpportunityID composes the pair identifier "<polymarketID>-<kalshiTicker>".
func OpportunityID(polymarketID, kalshiTicker string) string {
	return polymarketID + "-" + kalshiTicker
}

// EntryKey identifies one sighting of an opportunity. The same pair seen in
// two passes yields two keys.
func (o Opportunity) EntryKey() string {
	h := sha256.New()
	for _, part := range []string{o.ID, o.RunID, strconv.FormatInt(o.DetectedAt.UnixNano(), 10)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
