package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Venue ingestion
	MarketsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_markets_fetched_total",
			Help: "Normalized markets fetched per venue",
		},
		[]string{"venue"},
	)

	VenueFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_venue_fetch_errors_total",
			Help: "Venue fetches that failed and were treated as empty",
		},
		[]string{"venue"},
	)

	// Matching
	MatchesFound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_matches_found_total",
			Help: "Market pairs accepted by a matching strategy",
		},
		[]string{"strategy"}, // oracle, lexical
	)

	MatcherFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arbscan_matcher_fallbacks_total",
			Help: "Batches where the oracle failed and lexical matching was used",
		},
	)

	// Scoring and persistence
	OpportunitiesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arbscan_opportunities_detected_total",
			Help: "Opportunities that cleared the profit threshold",
		},
	)

	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_sink_writes_total",
			Help: "Opportunity sink writes",
		},
		[]string{"sink", "status"}, // sqlite/redis/kafka, success/error
	)

	// Passes
	Passes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_passes_total",
			Help: "Detection passes by final status",
		},
		[]string{"status"},
	)

	PassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbscan_pass_duration_seconds",
			Help:    "Duration of a detection pass",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// ObservePass records a finished pass.
func ObservePass(status string, started time.Time) {
	Passes.WithLabelValues(status).Inc()
	PassDuration.Observe(time.Since(started).Seconds())
}

// SinkResult records the outcome of one sink write.
func SinkResult(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	SinkWrites.WithLabelValues(sink, status).Inc()
}
