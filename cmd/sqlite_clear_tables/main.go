package main

import (
	"context"
	"flag"

	"github.com/hetulpatel/arbscan/internal/config"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	flag.Parse()
	logging.InitFromEnv()
	defer logging.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[sqlite] load config: %v", err)
	}
	store, err := sqlite.Open(cfg.SQLite.Path)
	if err != nil {
		logging.Fatalf("[sqlite] open: %v", err)
	}
	defer store.Close()

	if err := store.ClearTables(context.Background()); err != nil {
		logging.Fatalf("[sqlite] clear tables: %v", err)
	}
	logging.Infof("[sqlite] tables cleared at %s", store.Path())
}
