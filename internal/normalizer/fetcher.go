package normalizer

import (
	"context"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/hetulpatel/arbscan/internal/kalshi"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/markets"
	"github.com/hetulpatel/arbscan/internal/metrics"
	"github.com/hetulpatel/arbscan/internal/polymarket"
)

type PolymarketSource interface {
	FetchMarkets(ctx context.Context) ([]polymarket.Market, error)
}

type KalshiSource interface {
	FetchMarkets(ctx context.Context) ([]kalshi.Market, error)
}

// Snapshot is the normalized market list of both venues for one pass.
type Snapshot struct {
	Polymarket []markets.Market
	Kalshi     []markets.Market
}

// Fetcher pulls and normalizes both venues. A failing venue yields an empty
// list; it never fails the caller. A nil source counts as a disabled venue.
type Fetcher struct {
	poly   PolymarketSource
	kalshi KalshiSource
}

func NewFetcher(poly PolymarketSource, kx KalshiSource) *Fetcher {
	return &Fetcher{poly: poly, kalshi: kx}
}

func (f *Fetcher) FetchPolymarket(ctx context.Context) []markets.Market {
	if f.poly == nil {
		return []markets.Market{}
	}
	raw, err := f.poly.FetchMarkets(ctx)
	if err != nil {
		logging.Errorf("[fetcher] polymarket fetch failed: %v", err)
		metrics.VenueFetchErrors.WithLabelValues(string(markets.VenuePolymarket)).Inc()
		return []markets.Market{}
	}
	out := Polymarket(raw)
	metrics.MarketsFetched.WithLabelValues(string(markets.VenuePolymarket)).Add(float64(len(out)))
	return out
}

func (f *Fetcher) FetchKalshi(ctx context.Context) []markets.Market {
	if f.kalshi == nil {
		return []markets.Market{}
	}
	raw, err := f.kalshi.FetchMarkets(ctx)
	if err != nil {
		logging.Errorf("[fetcher] kalshi fetch failed: %v", err)
		metrics.VenueFetchErrors.WithLabelValues(string(markets.VenueKalshi)).Inc()
		return []markets.Market{}
	}
	out := Kalshi(raw)
	metrics.MarketsFetched.WithLabelValues(string(markets.VenueKalshi)).Add(float64(len(out)))
	return out
}

// FetchAll fetches both venues concurrently. A panic in either venue is
// recovered and treated like a failed fetch.
func (f *Fetcher) FetchAll(ctx context.Context) Snapshot {
	var (
		snap Snapshot
		g    errgroup.Group
	)
	g.Go(func() error {
		snap.Polymarket = guarded(markets.VenuePolymarket, func() []markets.Market { return f.FetchPolymarket(ctx) })
		return nil
	})
	g.Go(func() error {
		snap.Kalshi = guarded(markets.VenueKalshi, func() []markets.Market { return f.FetchKalshi(ctx) })
		return nil
	})
	_ = g.Wait()
	return snap
}

func guarded(venue markets.Venue, fetch func() []markets.Market) (out []markets.Market) {
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("[fetcher] %s fetch panicked: %v\n%s", venue, r, debug.Stack())
			metrics.VenueFetchErrors.WithLabelValues(string(venue)).Inc()
			out = []markets.Market{}
		}
	}()
	return fetch()
}
