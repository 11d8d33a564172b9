package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/analysis"
	"github.com/letieu/goldmines/internal/database"
	"github.com/letieu/goldmines/internal/logging"
	"github.com/letieu/goldmines/internal/metrics"
	"github.com/letieu/goldmines/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)

	if err := config.ValidateLLM(cfg); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	anl, err := analysis.NewFromConfig(ctx, *cfg, logger)
	if err != nil {
		logger.Error("failed to create analyzer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, err := server.New(cfg, db, anl, metrics.New(), logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
