// Package pipeline runs one arbitrage detection pass: fetch, match, score, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/hetulpatel/arbscan/internal/arb"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/matcher"
	"github.com/hetulpatel/arbscan/internal/metrics"
	"github.com/hetulpatel/arbscan/internal/normalizer"
)

type Status string

const (
	StatusCompleted        Status = "completed"
	StatusInsufficientData Status = "insufficient_data"
	StatusNoMatches        Status = "no_matches"
	StatusFailed           Status = "failed"
)

const (
	DefaultListLimit = 50
	previewLimit     = 10
)

type MarketFetcher interface {
	FetchAll(ctx context.Context) normalizer.Snapshot
}

type Sink interface {
	Persist(ctx context.Context, opps []markets.Opportunity) error
	ListRecent(ctx context.Context, limit int) ([]markets.Opportunity, error)
}

type Config struct {
	Fetcher MarketFetcher
	Matcher matcher.Finder
	Sink    Sink
	Fees    arb.Fees
	// PassTimeout bounds a whole pass. Zero means no bound beyond the caller's ctx.
	PassTimeout time.Duration
	// Debug attaches stack traces to failed results.
	Debug bool

	Now      func() time.Time
	NewRunID func() string
}

type Stats struct {
	PolymarketMarkets int `json:"polymarketMarkets"`
	KalshiMarkets     int `json:"kalshiMarkets"`
	Matches           int `json:"matches"`
	Opportunities     int `json:"opportunities"`
}

// Result is the outcome of one pass. Run never returns an error; faults are
// reported through Status and Error.
type Result struct {
	Success       bool                  `json:"success"`
	Status        Status                `json:"status"`
	RunID         string                `json:"runId"`
	Message       string                `json:"message"`
	Stats         Stats                 `json:"stats"`
	Opportunities []markets.Opportunity `json:"opportunities,omitempty"`
	Error         string                `json:"error,omitempty"`
	Details       string                `json:"details,omitempty"`
}

type Detector struct {
	fetcher     MarketFetcher
	matcher     matcher.Finder
	sink        Sink
	fees        arb.Fees
	passTimeout time.Duration
	debug       bool
	now         func() time.Time
	newRunID    func() string
}

func New(cfg Config) (*Detector, error) {
	switch {
	case cfg.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case cfg.Matcher == nil:
		return nil, errors.New("pipeline: matcher is required")
	case cfg.Sink == nil:
		return nil, errors.New("pipeline: sink is required")
	}
	d := &Detector{
		fetcher:     cfg.Fetcher,
		matcher:     cfg.Matcher,
		sink:        cfg.Sink,
		fees:        cfg.Fees,
		passTimeout: cfg.PassTimeout,
		debug:       cfg.Debug,
		now:         cfg.Now,
		newRunID:    cfg.NewRunID,
	}
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}
	if d.newRunID == nil {
		d.newRunID = uuid.NewString
	}
	return d, nil
}

// Run executes one detection pass. minProfit <= 0 uses arb.DefaultMinProfitPct.
func (d *Detector) Run(ctx context.Context, minProfit float64) (res Result) {
	started := time.Now()
	runID := d.newRunID()

	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("[pipeline] run=%s panic: %v", runID, r)
			res = d.failure(runID, res.Stats, fmt.Errorf("panic: %v", r), debug.Stack())
		}
		metrics.ObservePass(string(res.Status), started)
		logging.Infof("[pipeline] run=%s status=%s took=%s", runID, res.Status, time.Since(started).Round(time.Millisecond))
	}()

	if d.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.passTimeout)
		defer cancel()
	}

	res = Result{RunID: runID}
	if err := d.run(ctx, minProfit, &res); err != nil {
		logging.Errorf("[pipeline] run=%s failed: %v", runID, err)
		return d.failure(runID, res.Stats, err, nil)
	}
	return res
}

func (d *Detector) run(ctx context.Context, minProfit float64, res *Result) error {
	logging.Infof("[pipeline] run=%s fetching markets", res.RunID)
	snap := d.fetcher.FetchAll(ctx)
	res.Stats.PolymarketMarkets = len(snap.Polymarket)
	res.Stats.KalshiMarkets = len(snap.Kalshi)
	logging.Infof("[pipeline] run=%s found %d polymarket and %d kalshi markets",
		res.RunID, res.Stats.PolymarketMarkets, res.Stats.KalshiMarkets)

	if len(snap.Polymarket) == 0 || len(snap.Kalshi) == 0 {
		res.Status = StatusInsufficientData
		res.Message = "No markets found on one or both platforms"
		return nil
	}

	found, err := d.matcher.FindMatches(ctx, snap.Polymarket, snap.Kalshi)
	if err != nil {
		return fmt.Errorf("match markets: %w", err)
	}
	res.Stats.Matches = len(found)
	logging.Infof("[pipeline] run=%s found %d matching pairs", res.RunID, len(found))

	if len(found) == 0 {
		res.Success = true
		res.Status = StatusNoMatches
		res.Message = "No matching markets found"
		return nil
	}

	opps := arb.Score(found, arb.Config{MinProfitPct: minProfit, Fees: d.fees}, d.now())
	for i := range opps {
		opps[i].RunID = res.RunID
	}
	res.Stats.Opportunities = len(opps)
	metrics.OpportunitiesDetected.Add(float64(len(opps)))

	if len(opps) > 0 {
		if err := d.sink.Persist(ctx, opps); err != nil {
			return fmt.Errorf("persist opportunities: %w", err)
		}
	}

	res.Success = true
	res.Status = StatusCompleted
	res.Message = fmt.Sprintf("Detection complete. Found %d arbitrage opportunities", len(opps))
	res.Opportunities = opps[:min(len(opps), previewLimit)]
	return nil
}

func (d *Detector) failure(runID string, stats Stats, err error, stack []byte) Result {
	res := Result{
		Success: false,
		Status:  StatusFailed,
		RunID:   runID,
		Message: "Failed to detect arbitrage opportunities",
		Stats:   stats,
		Error:   err.Error(),
	}
	if d.debug {
		if stack == nil {
			stack = debug.Stack()
		}
		res.Details = string(stack)
	}
	return res
}

// ListRecent returns stored opportunities newest first. Read failures are
// logged and yield an empty list.
func (d *Detector) ListRecent(ctx context.Context, limit int) []markets.Opportunity {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opps, err := d.sink.ListRecent(ctx, limit)
	if err != nil {
		logging.Errorf("[pipeline] list recent opportunities: %v", err)
		return []markets.Opportunity{}
	}
	if opps == nil {
		opps = []markets.Opportunity{}
	}
	return opps
}
