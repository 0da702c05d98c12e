package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	LogLevel   string           `toml:"log_level"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Kalshi     KalshiConfig     `toml:"kalshi"`
	LLM        LLMConfig        `toml:"llm"`
	Matcher    MatcherConfig    `toml:"matcher"`
	Arbitrage  ArbitrageConfig  `toml:"arbitrage"`
	SQLite     SQLiteConfig     `toml:"sqlite"`
	Redis      RedisConfig      `toml:"redis"`
	Kafka      KafkaConfig      `toml:"kafka"`
	Server     ServerConfig     `toml:"server"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
}

type PolymarketConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
	Pages   int      `toml:"pages"`
}

type KalshiConfig struct {
	BaseURL  string   `toml:"base_url"`
	Timeout  Duration `toml:"timeout"`
	Pages    int      `toml:"pages"`
	PageSize int      `toml:"page_size"`
	Status   string   `toml:"status"`
}

// LLMConfig configures the semantic matcher. An empty APIKey disables it.
type LLMConfig struct {
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url"`
	Model       string   `toml:"model"`
	Temperature float32  `toml:"temperature"`
	MaxTokens   int      `toml:"max_tokens"`
	Timeout     Duration `toml:"timeout"`
}

type MatcherConfig struct {
	BatchSize            int     `toml:"batch_size"`
	MaxBatches           int     `toml:"max_batches"`
	OracleMinConfidence  float64 `toml:"oracle_min_confidence"`
	LexicalMinConfidence float64 `toml:"lexical_min_confidence"`
}

type ArbitrageConfig struct {
	MinProfitPct   float64 `toml:"min_profit_pct"`
	PolymarketFee  float64 `toml:"polymarket_fee"`
	KalshiFee      float64 `toml:"kalshi_fee"`
	KalshiTakerFee bool    `toml:"kalshi_taker_fee"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

// RedisConfig enables the recent-opportunity feed when Addr is set.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	FeedKey    string `toml:"feed_key"`
	FeedMaxLen int    `toml:"feed_max_len"`
}

// KafkaConfig enables opportunity publishing when Brokers is set.
type KafkaConfig struct {
	Brokers     string `toml:"brokers"`
	Topic       string `toml:"topic"`
	EnsureTopic bool   `toml:"ensure_topic"`
}

type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RequestTimeout bounds HTTP handlers, including a triggered detection pass.
	RequestTimeout Duration `toml:"request_timeout"`
}

type PipelineConfig struct {
	PassTimeout Duration `toml:"pass_timeout"`
	Debug       bool     `toml:"debug"`
}

// Duration decodes TOML strings like "30s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

func Defaults() Config {
	return Config{
		LogLevel: "info",
		Polymarket: PolymarketConfig{
			BaseURL: "https://clob.polymarket.com/simplified-markets",
			Timeout: Duration{20 * time.Second},
			Pages:   1,
		},
		Kalshi: KalshiConfig{
			BaseURL:  "https://api.elections.kalshi.com/trade-api/v2/markets",
			Timeout:  Duration{20 * time.Second},
			Pages:    1,
			PageSize: 100,
			Status:   "open",
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   2000,
			Timeout:     Duration{60 * time.Second},
		},
		Matcher: MatcherConfig{
			BatchSize:            20,
			MaxBatches:           1,
			OracleMinConfidence:  0.7,
			LexicalMinConfidence: 0.6,
		},
		Arbitrage: ArbitrageConfig{
			MinProfitPct: 2.0,
		},
		SQLite: SQLiteConfig{
			Path: "data/arb.db",
		},
		Redis: RedisConfig{
			FeedKey:    "arb:opportunities:recent",
			FeedMaxLen: 500,
		},
		Kafka: KafkaConfig{
			Topic: "arbitrage.opportunities",
		},
		Server: ServerConfig{
			Port:           8080,
			CORSOrigins:    []string{"*"},
			RequestTimeout: Duration{2 * time.Minute},
		},
	}
}

// Validate reports every out-of-range field at once.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Polymarket.Pages > 0, "polymarket.pages must be positive, got %d", c.Polymarket.Pages)
	check(c.Kalshi.Pages > 0, "kalshi.pages must be positive, got %d", c.Kalshi.Pages)
	check(c.Kalshi.PageSize > 0 && c.Kalshi.PageSize <= 1000, "kalshi.page_size must be in 1..1000, got %d", c.Kalshi.PageSize)
	check(c.LLM.Temperature >= 0 && c.LLM.Temperature <= 2, "llm.temperature must be in 0..2, got %v", c.LLM.Temperature)
	check(c.Matcher.BatchSize > 0, "matcher.batch_size must be positive, got %d", c.Matcher.BatchSize)
	check(c.Matcher.MaxBatches > 0, "matcher.max_batches must be positive, got %d", c.Matcher.MaxBatches)
	check(inUnit(c.Matcher.OracleMinConfidence), "matcher.oracle_min_confidence must be in 0..1, got %v", c.Matcher.OracleMinConfidence)
	check(inUnit(c.Matcher.LexicalMinConfidence), "matcher.lexical_min_confidence must be in 0..1, got %v", c.Matcher.LexicalMinConfidence)
	check(c.Arbitrage.MinProfitPct >= 0, "arbitrage.min_profit_pct must not be negative, got %v", c.Arbitrage.MinProfitPct)
	check(inUnit(c.Arbitrage.PolymarketFee), "arbitrage.polymarket_fee must be in 0..1, got %v", c.Arbitrage.PolymarketFee)
	check(inUnit(c.Arbitrage.KalshiFee), "arbitrage.kalshi_fee must be in 0..1, got %v", c.Arbitrage.KalshiFee)
	check(c.SQLite.Path != "", "sqlite.path is required")
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port out of range: %d", c.Server.Port)
	check(c.Pipeline.PassTimeout.Duration >= 0, "pipeline.pass_timeout must not be negative")
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
