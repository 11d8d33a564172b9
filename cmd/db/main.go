package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/database"
	"github.com/letieu/goldmines/internal/logging"
)

// Applies the embedded schema to the configured database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.Init(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	// Open migrates; the explicit call makes a re-run visible in the logs.
	db, err := database.Open(ctx, cfg)
	if err != nil {
		logger.Error("open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("schema applied",
		slog.String("type", cfg.Database.Type),
		slog.Int("statements", len(database.SchemaStatements())),
	)
}
