package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/analysis"
	"github.com/letieu/goldmines/internal/logging"
	"github.com/letieu/goldmines/internal/model"
)

// Analyzes one description without touching the database, reading it from
// the arguments or, when there are none, from stdin.
//
//	go run ./cmd/analyze "A marketplace for used lab equipment"
//	cat post.txt | go run ./cmd/analyze -title "I built a no BS LinkedIn"
func main() {
	title := flag.String("title", "", "optional post title")
	feed := flag.String("feed", model.FeedUserSubmitted, "feed the text came from")
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

	text := strings.Join(flag.Args(), " ")
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("failed to read stdin", slog.String("error", err.Error()))
			os.Exit(1)
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		logger.Error("nothing to analyze")
		os.Exit(2)
	}

	ctx := context.Background()
	anl, err := analysis.NewFromConfig(ctx, *cfg, logger)
	if err != nil {
		logger.Error("failed to create analyzer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	draft, err := anl.AnalyzePost(ctx, model.SourcePost{
		ExternalID: "cli",
		Feed:       *feed,
		Title:      *title,
		Body:       text,
	})
	if err != nil {
		logger.Error("analysis failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	pp.Print(draft.IdeaFields)
	if err := model.ValidateDraft(draft); err != nil {
		logger.Warn("draft would be rejected", slog.String("reason", err.Error()))
	}
}
