package matcher

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hetulpatel/arbscan/internal/markets"
)

const (
	DefaultLexicalMinConfidence = 0.6

	lexicalMinWordLen    = 4
	lexicalMinCommon     = 3
	lexicalFullMatchAt   = 5
	lexicalMaxConfidence = 0.9
)

// Lexical matches questions by shared words. Every Polymarket word of four or
// more characters that also appears in the Kalshi question counts once per
// occurrence.
type Lexical struct {
	minConfidence float64
}

func NewLexical(minConfidence float64) *Lexical {
	return &Lexical{minConfidence: minConfidence}
}

func (l *Lexical) FindMatches(_ context.Context, poly, kalshi []markets.Market) ([]markets.Match, error) {
	kalshiWords := make([]map[string]struct{}, len(kalshi))
	for j := range kalshi {
		set := make(map[string]struct{})
		for _, w := range words(kalshi[j].Question) {
			set[w] = struct{}{}
		}
		kalshiWords[j] = set
	}

	var out []markets.Match
	for i := range poly {
		polyWords := words(poly[i].Question)
		for j := range kalshi {
			common := 0
			for _, w := range polyWords {
				if utf8.RuneCountInString(w) < lexicalMinWordLen {
					continue
				}
				if _, ok := kalshiWords[j][w]; ok {
					common++
				}
			}
			if common < lexicalMinCommon {
				continue
			}
			confidence := math.Min(float64(common)/lexicalFullMatchAt, lexicalMaxConfidence)
			if confidence < l.minConfidence {
				continue
			}
			out = append(out, markets.Match{
				Polymarket: poly[i],
				Kalshi:     kalshi[j],
				Confidence: confidence,
				Reasoning:  fmt.Sprintf("Simple match: %d common words", common),
				Strategy:   markets.StrategyLexical,
			})
		}
	}
	return out, nil
}

func words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}
