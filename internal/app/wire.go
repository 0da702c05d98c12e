package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hetulpatel/arbscan/internal/arb"
	"github.com/hetulpatel/arbscan/internal/cache"
	"github.com/hetulpatel/arbscan/internal/config"
	"github.com/hetulpatel/arbscan/internal/kafka"
	"github.com/hetulpatel/arbscan/internal/kalshi"
	"github.com/hetulpatel/arbscan/internal/llm"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/matcher"
	"github.com/hetulpatel/arbscan/internal/normalizer"
	"github.com/hetulpatel/arbscan/internal/pipeline"
	"github.com/hetulpatel/arbscan/internal/polymarket"
	"github.com/hetulpatel/arbscan/internal/queue"
	"github.com/hetulpatel/arbscan/internal/sink"
	"github.com/hetulpatel/arbscan/internal/storage/sqlite"
)

type Options struct {
	// DryRun keeps opportunities in memory and skips every external sink.
	DryRun bool
}

// App owns the detector and everything it holds open.
type App struct {
	Detector *pipeline.Detector
	closers  []func() error
}

// Wire builds a Detector from cfg. Optional backends (LLM, redis, kafka) are
// enabled only when configured; a redis or kafka that cannot be reached is
// logged and left out.
func Wire(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	a := &App{}

	fetcher := normalizer.NewFetcher(
		polymarket.NewClient(polymarket.Config{
			BaseURL: cfg.Polymarket.BaseURL,
			Timeout: cfg.Polymarket.Timeout.Duration,
			Pages:   cfg.Polymarket.Pages,
		}),
		kalshi.NewClient(kalshi.Config{
			BaseURL:  cfg.Kalshi.BaseURL,
			Timeout:  cfg.Kalshi.Timeout.Duration,
			Pages:    cfg.Kalshi.Pages,
			PageSize: cfg.Kalshi.PageSize,
			Status:   cfg.Kalshi.Status,
		}),
	)

	finder, err := wireMatcher(cfg)
	if err != nil {
		return nil, err
	}

	out, err := a.wireSink(ctx, cfg, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	det, err := pipeline.New(pipeline.Config{
		Fetcher: fetcher,
		Matcher: finder,
		Sink:    out,
		Fees: arb.Fees{
			Polymarket:  cfg.Arbitrage.PolymarketFee,
			Kalshi:      cfg.Arbitrage.KalshiFee,
			KalshiTaker: cfg.Arbitrage.KalshiTakerFee,
		},
		PassTimeout: cfg.Pipeline.PassTimeout.Duration,
		Debug:       cfg.Pipeline.Debug,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Detector = det
	return a, nil
}

func wireMatcher(cfg config.Config) (*matcher.Matcher, error) {
	mc := matcher.Config{
		Fallback:   matcher.NewLexical(cfg.Matcher.LexicalMinConfidence),
		BatchSize:  cfg.Matcher.BatchSize,
		MaxBatches: cfg.Matcher.MaxBatches,
	}
	if cfg.LLM.APIKey == "" {
		logging.Infof("[app] OPENAI_API_KEY not set, using lexical matching only")
		return matcher.New(mc), nil
	}

	temp := cfg.LLM.Temperature
	client, err := llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Timeout:     cfg.LLM.Timeout.Duration,
		Temperature: &temp,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	oracle, err := matcher.NewOracle(client, cfg.Matcher.OracleMinConfidence)
	if err != nil {
		return nil, err
	}
	mc.Primary = oracle
	logging.Infof("[app] semantic matching via %s", client.Model())
	return matcher.New(mc), nil
}

func (a *App) wireSink(ctx context.Context, cfg config.Config, opts Options) (*sink.Multi, error) {
	if opts.DryRun {
		return sink.New("memory", sink.NewMemory())
	}

	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)
	if err := store.CreateTables(ctx); err != nil {
		return nil, err
	}

	var sinkOpts []sink.Option
	if cfg.Redis.Addr != "" {
		feed, err := cache.NewRedisOpportunityFeed(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.FeedKey, cfg.Redis.FeedMaxLen)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err = feed.Ping(pingCtx)
			cancel()
			if err != nil {
				feed.Close()
			}
		}
		if err != nil {
			logging.Errorf("[app] redis feed disabled: %v", err)
		} else {
			a.closers = append(a.closers, feed.Close)
			sinkOpts = append(sinkOpts,
				sink.WithMirror("redis", feed.Push),
				sink.WithRecentCache("redis", feed),
			)
		}
	}

	if brokers := kafka.ParseBrokers(cfg.Kafka.Brokers); len(brokers) > 0 {
		if cfg.Kafka.EnsureTopic {
			ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := kafka.WaitForBroker(ensureCtx, brokers); err != nil {
				logging.Errorf("[app] kafka broker not ready: %v", err)
			} else if err := kafka.EnsureTopic(ensureCtx, brokers, cfg.Kafka.Topic, 3); err != nil {
				logging.Errorf("[app] ensure topic %s: %v", cfg.Kafka.Topic, err)
			}
			cancel()
		}
		pub := queue.NewPublisher(kafka.NewWriter(brokers, cfg.Kafka.Topic))
		a.closers = append(a.closers, pub.Close)
		sinkOpts = append(sinkOpts, sink.WithMirror("kafka", pub.PublishOpportunities))
	}

	return sink.New("sqlite", store, sinkOpts...)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("app: close: %w", errors.Join(errs...))
	}
	return nil
}
