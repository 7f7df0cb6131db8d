package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbakke/nudge/internal/config"
	"github.com/mbakke/nudge/internal/core"
	"github.com/mbakke/nudge/internal/crypto"
	"github.com/mbakke/nudge/internal/db"
	"github.com/mbakke/nudge/internal/logging"
	"github.com/mbakke/nudge/internal/metrics"
	"github.com/mbakke/nudge/internal/provider"
	"github.com/mbakke/nudge/internal/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("sweeper"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	sealer, err := crypto.NewSealer(cfg.TokenSealKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token seal key")
	}

	providers := provider.NewRegistry(cfg)
	services := core.NewServices(corePool, providers, sealer, cfg, logger)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	sweeper := sweep.NewSweeper(services.Entries, services.Dispatcher,
		cfg.SweepInterval, cfg.SweepConcurrency, logger)

	logger.Info().
		Dur("interval", cfg.SweepInterval).
		Int("concurrency", cfg.SweepConcurrency).
		Msg("starting sweeper")

	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("sweeper stopped")
	}

	logger.Info().Msg("shutting down sweeper")
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsServer.Shutdown(shutdownCtx)
	}
}
