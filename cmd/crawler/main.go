package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/analysis"
	"github.com/letieu/goldmines/internal/database"
	"github.com/letieu/goldmines/internal/filter"
	"github.com/letieu/goldmines/internal/logging"
	"github.com/letieu/goldmines/internal/metrics"
	"github.com/letieu/goldmines/internal/pipeline"
	"github.com/letieu/goldmines/internal/reddit"
)

func main() {
	once := flag.Bool("once", false, "run the pipeline once even when crawler.schedule is set")
	flag.Parse()

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

	if err := run(ctx, cfg, logger, *once); err != nil {
		logger.Error("crawler failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, once bool) error {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	transport, err := reddit.NewTLSTransport(30 * time.Second)
	if err != nil {
		return err
	}
	client := reddit.NewClient(transport, cfg.Crawler, logger)

	anl, err := analysis.NewFromConfig(ctx, *cfg, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return err
		}
		go func() {
			if err := m.Serve(ctx, ln, logger); err != nil {
				logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	p := pipeline.New(
		cfg.Crawler,
		client,
		filter.NewKeywordFilter(cfg.Crawler.Keywords),
		anl,
		db,
		logger,
		pipeline.WithMetrics(m),
		pipeline.WithCommentExpansion(client),
	)

	if cfg.Crawler.Schedule == "" || once {
		_, err := p.Run(ctx)
		return err
	}
	return p.Schedule(ctx, cfg.Crawler.Schedule)
}
