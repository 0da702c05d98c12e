package matcher

import (
	"context"
	"fmt"

	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/metrics"
)

const (
	DefaultBatchSize  = 20
	DefaultMaxBatches = 1
)

// Finder pairs Polymarket markets with Kalshi markets on the same event.
type Finder interface {
	FindMatches(ctx context.Context, poly, kalshi []markets.Market) ([]markets.Match, error)
}

// Completer is a single-shot text completion backend.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Config struct {
	// Primary is tried first for every batch. Nil means lexical only.
	Primary    Finder
	Fallback   Finder
	BatchSize  int
	MaxBatches int
}

// Matcher windows the inputs into batches, runs the primary finder per batch
// and falls back for any batch where the primary fails.
type Matcher struct {
	primary    Finder
	fallback   Finder
	batchSize  int
	maxBatches int
}

func New(cfg Config) *Matcher {
	m := &Matcher{
		primary:    cfg.Primary,
		fallback:   cfg.Fallback,
		batchSize:  cfg.BatchSize,
		maxBatches: cfg.MaxBatches,
	}
	if m.fallback == nil {
		m.fallback = NewLexical(DefaultLexicalMinConfidence)
	}
	if m.batchSize <= 0 {
		m.batchSize = DefaultBatchSize
	}
	if m.maxBatches <= 0 {
		m.maxBatches = DefaultMaxBatches
	}
	return m
}

type batch struct {
	polyStart, polyEnd     int
	kalshiStart, kalshiEnd int
}

func (m *Matcher) FindMatches(ctx context.Context, poly, kalshi []markets.Market) ([]markets.Match, error) {
	if len(poly) == 0 || len(kalshi) == 0 {
		return nil, nil
	}

	batches := m.plan(len(poly), len(kalshi))

	var out []markets.Match
	for _, b := range batches {
		p := poly[b.polyStart:b.polyEnd]
		k := kalshi[b.kalshiStart:b.kalshiEnd]

		found, err := m.findBatch(ctx, p, k)
		if err != nil {
			return out, err
		}
		for _, match := range found {
			metrics.MatchesFound.WithLabelValues(string(match.Strategy)).Inc()
		}
		out = append(out, found...)
	}
	return out, nil
}

func (m *Matcher) findBatch(ctx context.Context, poly, kalshi []markets.Market) ([]markets.Match, error) {
	if m.primary != nil {
		found, err := m.primary.FindMatches(ctx, poly, kalshi)
		if err == nil {
			return found, nil
		}
		logging.Errorf("[matcher] primary failed on %dx%d batch, using fallback: %v", len(poly), len(kalshi), err)
		metrics.MatcherFallbacks.Inc()
	}
	found, err := m.fallback.FindMatches(ctx, poly, kalshi)
	if err != nil {
		return nil, fmt.Errorf("matcher: fallback: %w", err)
	}
	return found, nil
}

// plan lists batch windows row-major over the chunk grid, capped at maxBatches.
func (m *Matcher) plan(nPoly, nKalshi int) []batch {
	polyChunks := (nPoly + m.batchSize - 1) / m.batchSize
	kalshiChunks := (nKalshi + m.batchSize - 1) / m.batchSize

	var (
		out                      []batch
		maxPolyEnd, maxKalshiEnd int
	)
	for i := 0; i < polyChunks && len(out) < m.maxBatches; i++ {
		for j := 0; j < kalshiChunks && len(out) < m.maxBatches; j++ {
			b := batch{
				polyStart:   i * m.batchSize,
				polyEnd:     min((i+1)*m.batchSize, nPoly),
				kalshiStart: j * m.batchSize,
				kalshiEnd:   min((j+1)*m.batchSize, nKalshi),
			}
			maxPolyEnd = max(maxPolyEnd, b.polyEnd)
			maxKalshiEnd = max(maxKalshiEnd, b.kalshiEnd)
			out = append(out, b)
		}
	}

	if len(out) < polyChunks*kalshiChunks {
		logging.Infof("[matcher] considering %d/%d polymarket and %d/%d kalshi markets (%d of %d batches)",
			maxPolyEnd, nPoly, maxKalshiEnd, nKalshi, len(out), polyChunks*kalshiChunks)
	}
	return out
}
