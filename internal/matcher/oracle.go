package matcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
)

const (
	DefaultOracleMinConfidence = 0.7

	oracleSystemPrompt = "You are a prediction market analyst. Respond only with valid JSON."
)

var (
	ErrEmptyResponse = errors.New("matcher: empty oracle response")
	ErrNoCompleter   = errors.New("matcher: completer is required")
)

// Oracle asks a language model which listings describe the same event.
type Oracle struct {
	llm           Completer
	minConfidence float64
}

func NewOracle(llm Completer, minConfidence float64) (*Oracle, error) {
	if llm == nil {
		return nil, ErrNoCompleter
	}
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = DefaultOracleMinConfidence
	}
	return &Oracle{llm: llm, minConfidence: minConfidence}, nil
}

func (o *Oracle) FindMatches(ctx context.Context, poly, kalshi []markets.Market) ([]markets.Match, error) {
	if len(poly) == 0 || len(kalshi) == 0 {
		return nil, nil
	}
	raw, err := o.llm.Complete(ctx, oracleSystemPrompt, buildPrompt(poly, kalshi, o.minConfidence))
	if err != nil {
		return nil, fmt.Errorf("matcher: oracle call: %w", err)
	}
	entries, err := parseEntries(raw)
	if err != nil {
		return nil, err
	}

	type pair struct{ p, k int }
	seen := make(map[pair]struct{}, len(entries))
	var out []markets.Match
	for _, e := range entries {
		if e.confidence < o.minConfidence {
			continue
		}
		if e.polyIndex < 1 || e.polyIndex > len(poly) || e.kalshiIndex < 1 || e.kalshiIndex > len(kalshi) {
			logging.Debugf("[matcher] oracle index out of range: %d/%d", e.polyIndex, e.kalshiIndex)
			continue
		}
		key := pair{e.polyIndex, e.kalshiIndex}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, markets.Match{
			Polymarket: poly[e.polyIndex-1],
			Kalshi:     kalshi[e.kalshiIndex-1],
			Confidence: math.Min(e.confidence, 1),
			Reasoning:  e.reasoning,
			Strategy:   markets.StrategyOracle,
		})
	}
	return out, nil
}

func buildPrompt(poly, kalshi []markets.Market, minConfidence float64) string {
	var b strings.Builder
	b.WriteString("You are an expert at matching prediction market questions across different platforms.\n\n")
	b.WriteString("Polymarket Markets:\n")
	writeListing(&b, poly)
	b.WriteString("\nKalshi Markets:\n")
	writeListing(&b, kalshi)
	b.WriteString(`
Find all markets that are asking about the SAME EVENT or outcome. Markets match if they're asking about the same real-world event, even if worded differently.

For each match, respond with a JSON array of objects with this format:
{
  "polymarketIndex": <index from 1>,
  "kalshiIndex": <index from 1>,
  "confidence": <0.0 to 1.0>,
  "reasoning": "<why these match>"
}

`)
	fmt.Fprintf(&b, "Only include matches with confidence >= %s. Return ONLY the JSON array, no other text.",
		strconv.FormatFloat(minConfidence, 'f', -1, 64))
	return b.String()
}

func writeListing(b *strings.Builder, ms []markets.Market) {
	for i, m := range ms {
		fmt.Fprintf(b, "%d. %q", i+1, m.Question)
		if m.Description != "" {
			b.WriteString(" - ")
			b.WriteString(m.Description)
		}
		b.WriteByte('\n')
	}
}

type oracleEntry struct {
	polyIndex   int
	kalshiIndex int
	confidence  float64
	reasoning   string
}

// parseEntries reads the JSON array out of a model reply. Surrounding prose or
// code fences are tolerated; numeric fields that do not parse become zero.
func parseEntries(raw string) ([]oracleEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}
	if start, end := strings.Index(raw, "["), strings.LastIndex(raw, "]"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("matcher: parse oracle response: %w", err)
	}

	out := make([]oracleEntry, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil {
			continue
		}
		e := oracleEntry{
			polyIndex:   index(number(fields["polymarketIndex"])),
			kalshiIndex: index(number(fields["kalshiIndex"])),
			confidence:  number(fields["confidence"]),
		}
		if r, ok := fields["reasoning"]; ok {
			_ = json.Unmarshal(r, &e.reasoning)
		}
		out = append(out, e)
	}
	return out, nil
}

func number(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

func index(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}
