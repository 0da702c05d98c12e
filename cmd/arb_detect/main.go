package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hetulpatel/arbscan/internal/app"
	"github.com/hetulpatel/arbscan/internal/config"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	minProfit := flag.Float64("min-profit", 0, "minimum profit percentage (default from config)")
	dryRun := flag.Bool("dry-run", false, "keep opportunities in memory instead of sqlite/redis/kafka")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logging.InitFromEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[arb-detect] load config: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	a, err := app.Wire(ctx, cfg, app.Options{DryRun: *dryRun})
	if err != nil {
		logging.Fatalf("[arb-detect] wire: %v", err)
	}

	threshold := *minProfit
	if threshold <= 0 {
		threshold = cfg.Arbitrage.MinProfitPct
	}
	res := a.Detector.Run(ctx, threshold)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logging.Errorf("[arb-detect] encode result: %v", err)
	}

	if err := a.Close(); err != nil {
		logging.Errorf("[arb-detect] close: %v", err)
	}
	logging.Sync()
	if res.Status == pipeline.StatusFailed {
		os.Exit(1)
	}
}
