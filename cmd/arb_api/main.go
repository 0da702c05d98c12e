package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hetulpatel/arbscan/internal/app"
	"github.com/hetulpatel/arbscan/internal/config"
	"github.com/hetulpatel/arbscan/internal/logging"
	"github.com/hetulpatel/arbscan/internal/server"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logging.InitFromEnv()
	defer logging.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[arb-api] load config: %v", err)
	}
	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))

	a, err := app.Wire(ctx, cfg, app.Options{})
	if err != nil {
		logging.Fatalf("[arb-api] wire: %v", err)
	}
	defer a.Close()

	router := server.NewRouter(server.NewHandler(a.Detector, cfg.Arbitrage.MinProfitPct), server.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout.Duration + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("[arb-api] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logging.Errorf("[arb-api] server error: %v", err)
	}

	logging.Infof("[arb-api] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("[arb-api] shutdown: %v", err)
	}
}
