package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DashNode-Org/slot-sentinel/config"
	"github.com/DashNode-Org/slot-sentinel/pkg/blockprod"
	"github.com/DashNode-Org/slot-sentinel/pkg/health"
	"github.com/DashNode-Org/slot-sentinel/pkg/server"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	client, err := blockprod.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().Str("endpoint", cfg.RPCEndpoint).Str("preset", cfg.Preset).
		Dur("timeout", cfg.RequestTimeout).Int("retry_attempts", cfg.RetryAttempts).
		Float64("rate_limit", cfg.RateLimit).Msg("Block production client ready")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hc := health.NewChecker(client, cfg.HealthCheckInterval, cfg.CallBudget())
	go hc.Start(ctx)

	collector := health.NewCollector(client, cfg.CollectInterval)
	go collector.Start(ctx)

	srv := server.NewServer(cfg, client, collector, hc)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
