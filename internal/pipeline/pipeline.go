// Package pipeline wires the ingestion stages together:
// fetch, screen, analyze, persist.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/filter"
	"github.com/letieu/goldmines/internal/metrics"
	"github.com/letieu/goldmines/internal/model"
)

type Fetcher interface {
	Fetch(ctx context.Context, feeds []string, limitPerFeed int) ([]model.SourcePost, error)
}

type CommentFetcher interface {
	FetchComments(ctx context.Context, feed, postID string) ([]model.SourcePost, error)
}

type Screener interface {
	Filter(posts []model.SourcePost) []model.SourcePost
}

type Analyzer interface {
	Analyze(ctx context.Context, posts []model.SourcePost) []model.Draft
}

// Store persists drafts. SaveDraft writes the source post and its idea
// atomically, so PostExists never reports a post whose idea was lost.
type Store interface {
	PostExists(ctx context.Context, externalID, feed string) (bool, error)
	SaveDraft(ctx context.Context, draft model.Draft) (*model.BusinessIdea, error)
}

// Report counts what happened to the posts of one run.
type Report struct {
	Fetched         int
	MetaExpanded    int
	Screened        int
	SkippedExisting int
	Drafts          int
	Rejected        int
	Saved           int
	Failed          int
	Duration        time.Duration
}

type Pipeline struct {
	cfg      config.Crawler
	fetcher  Fetcher
	comments CommentFetcher
	screener Screener
	analyzer Analyzer
	store    Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Pipeline)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCommentExpansion replaces meta posts ("share what you're building")
// by their top-level comments. Without it meta posts are dropped.
func WithCommentExpansion(c CommentFetcher) Option {
	return func(p *Pipeline) { p.comments = c }
}

func New(cfg config.Crawler, fetcher Fetcher, screener Screener, analyzer Analyzer, store Store, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		screener: screener,
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage once, strictly in order. Item-level failures are
// logged and counted; only a fetch-stage error or cancellation ends the run
// early.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report, err := p.run(ctx)
	report.Duration = time.Since(start)

	if p.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		p.metrics.PipelineRuns.WithLabelValues(result).Inc()
		p.metrics.RunDuration.Observe(report.Duration.Seconds())
		p.observe(report)
	}

	p.logger.Info("pipeline finished",
		slog.Int("fetched", report.Fetched),
		slog.Int("screened", report.Screened),
		slog.Int("skipped_existing", report.SkippedExisting),
		slog.Int("drafts", report.Drafts),
		slog.Int("rejected", report.Rejected),
		slog.Int("saved", report.Saved),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", report.Duration),
	)
	return report, err
}

func (p *Pipeline) run(ctx context.Context) (Report, error) {
	var report Report

	posts, err := p.fetcher.Fetch(ctx, p.cfg.Feeds, p.cfg.LimitPerFeed)
	if err != nil {
		return report, err
	}
	posts = filter.Dedupe(posts)
	report.Fetched = len(posts)

	posts = p.expandMeta(ctx, posts, &report)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	posts = p.screener.Filter(posts)
	report.Screened = len(posts)
	if len(posts) == 0 {
		p.logger.Info("no posts survived the keyword screen")
		return report, nil
	}

	fresh := make([]model.SourcePost, 0, len(posts))
	for _, post := range posts {
		exists, err := p.store.PostExists(ctx, post.ExternalID, post.Feed)
		if err != nil {
			p.logger.Warn("existence check failed",
				slog.String("feed", post.Feed),
				slog.String("external_id", post.ExternalID),
				slog.String("error", err.Error()),
			)
			report.Failed++
			continue
		}
		if exists {
			p.logger.Debug("post already stored, skipping", slog.String("title", post.Title))
			report.SkippedExisting++
			continue
		}
		fresh = append(fresh, post)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	drafts := p.analyzer.Analyze(ctx, fresh)
	report.Drafts = len(drafts)
	report.Failed += len(fresh) - len(drafts)
	if err := ctx.Err(); err != nil {
		return report, err
	}

	for _, draft := range drafts {
		_, err := Persist(ctx, p.store, draft)
		switch {
		case err == nil:
			report.Saved++
		case errors.Is(err, apperror.ErrValidation):
			p.logger.Info("draft rejected",
				slog.String("external_id", draft.Post.ExternalID),
				slog.String("reason", err.Error()),
			)
			report.Rejected++
		default:
			p.logger.Warn("failed to persist idea",
				slog.String("external_id", draft.Post.ExternalID),
				slog.String("error", err.Error()),
			)
			report.Failed++
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}
	}

	return report, nil
}

// Persist validates a draft, then stores its source post and the idea that
// references it together. Nothing is written for an invalid draft.
func Persist(ctx context.Context, store Store, draft model.Draft) (*model.BusinessIdea, error) {
	if err := model.ValidateDraft(draft); err != nil {
		return nil, err
	}
	return store.SaveDraft(ctx, draft)
}

func (p *Pipeline) expandMeta(ctx context.Context, posts []model.SourcePost, report *Report) []model.SourcePost {
	if len(p.cfg.MetaKeywords) == 0 {
		return posts
	}

	out := make([]model.SourcePost, 0, len(posts))
	for _, post := range posts {
		if !filter.IsMetaPost(post, p.cfg.MetaKeywords) {
			out = append(out, post)
			continue
		}
		if p.comments == nil || !p.cfg.ExpandMetaPosts {
			p.logger.Debug("meta post dropped", slog.String("title", post.Title))
			continue
		}

		comments, err := p.comments.FetchComments(ctx, post.Feed, post.ExternalID)
		if err != nil {
			p.logger.Warn("failed to expand meta post",
				slog.String("feed", post.Feed),
				slog.String("external_id", post.ExternalID),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.MetaExpanded += len(comments)
		out = append(out, comments...)
	}
	return filter.Dedupe(out)
}

func (p *Pipeline) observe(r Report) {
	for stage, n := range map[string]int{
		"fetched":  r.Fetched,
		"screened": r.Screened,
		"skipped":  r.SkippedExisting,
		"drafted":  r.Drafts,
		"rejected": r.Rejected,
		"saved":    r.Saved,
		"failed":   r.Failed,
	} {
		p.metrics.PipelinePosts.WithLabelValues(stage).Add(float64(n))
	}
}
