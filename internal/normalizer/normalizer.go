// Package normalizer maps venue listings onto markets.Market.
package normalizer

import (
	"errors"
	"strings"
	"time"

	"github.com/hetulpatel/arbscan/internal/kalshi"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/polymarket"
)

var (
	errMissingID      = errors.New("missing identifier")
	errMissingOutcome = errors.New("missing yes or no token")
)

// Polymarket normalizes CLOB listings, preserving input order. Listings that
// do not carry both a YES and a NO token are dropped.
func Polymarket(raw []polymarket.Market) []markets.Market {
	out := make([]markets.Market, 0, len(raw))
	for i := range raw {
		m, err := polymarketMarket(&raw[i])
		if err != nil {
			logging.Debugf("[normalizer] drop polymarket %q: %v", raw[i].ConditionID, err)
			continue
		}
		out = append(out, m)
	}
	return out
}

func polymarketMarket(m *polymarket.Market) (markets.Market, error) {
	if strings.TrimSpace(m.ConditionID) == "" {
		return markets.Market{}, errMissingID
	}
	if len(m.Tokens) < 2 {
		return markets.Market{}, errMissingOutcome
	}
	yes, okYes := findOutcome(m.Tokens, "yes")
	no, okNo := findOutcome(m.Tokens, "no")
	if !okYes || !okNo {
		return markets.Market{}, errMissingOutcome
	}
	yesPrice, noPrice := float64(yes.Price), float64(no.Price)

	ref := markets.PolymarketRef{
		Tokens:     make([]markets.Token, 0, len(m.Tokens)),
		YesTokenID: yes.TokenID,
		NoTokenID:  no.TokenID,
	}
	for _, t := range m.Tokens {
		ref.Tokens = append(ref.Tokens, markets.Token{TokenID: t.TokenID, Outcome: t.Outcome, Price: float64(t.Price)})
	}

	return markets.Market{
		Venue:       markets.VenuePolymarket,
		ID:          m.ConditionID,
		Question:    m.Question,
		Description: m.Description,
		YesPrice:    yesPrice,
		NoPrice:     noPrice,
		CloseTime:   parseTime(m.EndDateISO),
		Raw:         ref,
	}, nil
}

func findOutcome(tokens []polymarket.Token, label string) (polymarket.Token, bool) {
	for _, t := range tokens {
		if strings.EqualFold(strings.TrimSpace(t.Outcome), label) {
			return t, true
		}
	}
	return polymarket.Token{}, false
}

// Kalshi normalizes trade-API listings. Prices are bid/ask midpoints
// converted from cents.
func Kalshi(raw []kalshi.Market) []markets.Market {
	out := make([]markets.Market, 0, len(raw))
	for i := range raw {
		m := &raw[i]
		if strings.TrimSpace(m.Ticker) == "" {
			logging.Debugf("[normalizer] drop kalshi record %d: %v", i, errMissingID)
			continue
		}
		yes := kalshi.MidPrice(*m, kalshi.SideYes) / 100
		no := kalshi.MidPrice(*m, kalshi.SideNo) / 100
		out = append(out, markets.Market{
			Venue:       markets.VenueKalshi,
			ID:          m.Ticker,
			Question:    m.Title,
			Description: m.Subtitle,
			YesPrice:    yes,
			NoPrice:     no,
			CloseTime:   parseTime(m.CloseTime),
			Raw: markets.KalshiRef{
				EventTicker: m.EventTicker,
				YesBid:      m.YesBid,
				YesAsk:      m.YesAsk,
				NoBid:       m.NoBid,
				NoAsk:       m.NoAsk,
			},
		})
	}
	return out
}

// parseTime returns the zero time for empty or unparsable input.
func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
