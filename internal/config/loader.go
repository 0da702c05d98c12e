package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load merges defaults, an optional TOML file, .env and environment variables,
// then validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "LOG_LEVEL")

	setStr(&cfg.Polymarket.BaseURL, "POLYMARKET_BASE_URL")
	setInt(&cfg.Polymarket.Pages, "POLYMARKET_PAGES")

	setStr(&cfg.Kalshi.BaseURL, "KALSHI_BASE_URL")
	setInt(&cfg.Kalshi.Pages, "KALSHI_PAGES")
	setInt(&cfg.Kalshi.PageSize, "KALSHI_PAGE_SIZE")

	setStr(&cfg.LLM.APIKey, "OPENAI_API_KEY")
	setStr(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setStr(&cfg.LLM.Model, "LLM_MODEL")
	setInt(&cfg.LLM.MaxTokens, "LLM_MAX_TOKENS")
	setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT")

	setInt(&cfg.Matcher.BatchSize, "MATCHER_BATCH_SIZE")
	setInt(&cfg.Matcher.MaxBatches, "MATCHER_MAX_BATCHES")

	setFloat(&cfg.Arbitrage.MinProfitPct, "ARB_MIN_PROFIT_PCT")
	setFloat(&cfg.Arbitrage.PolymarketFee, "ARB_POLYMARKET_FEE")
	setFloat(&cfg.Arbitrage.KalshiFee, "ARB_KALSHI_FEE")
	setBool(&cfg.Arbitrage.KalshiTakerFee, "ARB_KALSHI_TAKER_FEE")

	setStr(&cfg.SQLite.Path, "SQLITE_PATH")

	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setStr(&cfg.Kafka.Brokers, "KAFKA_BROKERS")
	setStr(&cfg.Kafka.Topic, "OPPORTUNITIES_KAFKA_TOPIC")

	setInt(&cfg.Server.Port, "HTTP_PORT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	setDuration(&cfg.Pipeline.PassTimeout, "PASS_TIMEOUT")
	setBool(&cfg.Pipeline.Debug, "PIPELINE_DEBUG")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
