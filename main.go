package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoForecast/config"
	"cryptoForecast/internal/adapters/logger"
	"cryptoForecast/internal/api"
	"cryptoForecast/internal/app"
	"cryptoForecast/internal/metrics"
	"cryptoForecast/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger and Metrics
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})
	recorder := metrics.New(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire models, dataset and forecast service
	components, err := app.Bootstrap(ctx, cfg, appLogger, recorder)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize application")
		log.Fatalf("FATAL: Failed to initialize application: %v", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Optional history sync into SQLite
	var sched *scheduler.Scheduler
	if components.Repo != nil && cfg.SyncCron != "" {
		syncer, err := scheduler.NewSyncer(scheduler.SyncerConfig{HistoryDays: cfg.BinanceHistoryDays},
			components.Exchange, components.Repo, appLogger, recorder)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize history syncer: %v", err)
		}
		sched, err = scheduler.New(ctx, scheduler.Config{Spec: cfg.SyncCron, Symbols: cfg.SyncSymbols},
			syncer, components.Models, appLogger, nil)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize scheduler")
			log.Fatalf("FATAL: Failed to initialize scheduler: %v", err)
		}
		if cfg.SyncOnStart {
			// Skipped by the job wrapper if the first scheduled run is already going.
			go sched.RunNow()
		}
		sched.Start()
	}

	// 5. Start the HTTP API
	router := api.NewRouter(api.Config{Env: cfg.APIEnv, AllowedOrigins: cfg.CORSOrigins},
		components.Service, appLogger, recorder, promhttp.Handler())
	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			appLogger.Error(context.Background(), err, "HTTP server exited with error")
		}
	}

	if sched != nil {
		sched.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "HTTP server shutdown failed")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
