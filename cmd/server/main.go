// Package main is the entry point for the Tradewinds trade-intelligence
// engine. It harvests customs shipment records from the upstream provider
// under a strict API budget, normalizes them into a commodity taxonomy,
// and serves pricing, flow and counterparty analytics over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/avramidis/tradewinds/internal/config"
	"github.com/avramidis/tradewinds/internal/di"
	"github.com/avramidis/tradewinds/internal/harvest"
	"github.com/avramidis/tradewinds/internal/scheduler"
	"github.com/avramidis/tradewinds/internal/server"
	"github.com/avramidis/tradewinds/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger with config level
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Tradewinds")

	// Wire all dependencies using DI container
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Bootstrap harvest runs in the background so the server can start
	// answering immediately; analytics fill in as records land.
	bootstrapCtx, cancelBootstrap := context.WithCancel(context.Background())
	defer cancelBootstrap()
	go func() {
		summaries := container.Harvester.Bootstrap(bootstrapCtx)
		succeeded := 0
		for _, s := range summaries {
			if s.Status == harvest.StatusSuccess {
				succeeded++
			}
		}
		log.Info().
			Int("jobs", len(summaries)).
			Int("succeeded", succeeded).
			Int("total_records", container.Records.TotalRecords()).
			Msg("Bootstrap harvest completed")
	}()

	// Initialize scheduler and register the daily refresh
	sched := scheduler.New(log)
	refresh := scheduler.NewRefreshJob(container.Harvester, log)
	if err := sched.AddJob(scheduler.DailyRefreshSpec, refresh); err != nil {
		log.Fatal().Err(err).Msg("Failed to register refresh job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelBootstrap()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
