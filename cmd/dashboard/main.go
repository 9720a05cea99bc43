// Command dashboard serves the analytics JSON API, health endpoints,
// and Prometheus metrics over the covid_stats and vaccination_data
// tables.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/covid-stats-etl/internal/adapter/http"
	"github.com/couchcryptid/covid-stats-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/covid-stats-etl/internal/config"
	"github.com/couchcryptid/covid-stats-etl/internal/geo"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"
	"github.com/couchcryptid/covid-stats-etl/internal/query"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := sqlstore.Open(cfg, metrics, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	geoTable, err := geo.NewTable()
	if err != nil {
		logger.Error("failed to load country coordinates", "error", err)
		os.Exit(1)
	}

	engine := query.NewEngine(store)
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, engine, geoTable,
		cfg.CacheTTL, clockwork.NewRealClock(), metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
