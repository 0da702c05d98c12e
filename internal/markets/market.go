// Package markets holds the venue-neutral types shared by the detection pipeline.
package markets

import "time"

type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenueKalshi     Venue = "kalshi"
)

// Market is a binary-outcome listing with prices rescaled to [0,1].
type Market struct {
	Venue       Venue     `json:"venue"`
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Description string    `json:"description,omitempty"`
	YesPrice    float64   `json:"yes_price"`
	NoPrice     float64   `json:"no_price"`
	CloseTime   time.Time `json:"close_time"`
	Raw         any       `json:"raw,omitempty"`
}

// Token is one outcome token on a Polymarket listing.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
}

// PolymarketRef is attached as Raw on normalized Polymarket markets.
type PolymarketRef struct {
	Tokens     []Token `json:"tokens"`
	YesTokenID string  `json:"yes_token_id"`
	NoTokenID  string  `json:"no_token_id"`
}

// KalshiRef is attached as Raw on normalized Kalshi markets.
type KalshiRef struct {
	EventTicker string  `json:"event_ticker,omitempty"`
	YesBid      float64 `json:"yes_bid"`
	YesAsk      float64 `json:"yes_ask"`
	NoBid       float64 `json:"no_bid"`
	NoAsk       float64 `json:"no_ask"`
}

// YesTokenID returns the YES token of a Polymarket market, or "" when unknown.
func (m Market) YesTokenID() string {
	switch ref := m.Raw.(type) {
	case PolymarketRef:
		return ref.YesTokenID
	case *PolymarketRef:
		if ref != nil {
			return ref.YesTokenID
		}
	}
	return ""
}
