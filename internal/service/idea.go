package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"github.com/rs/xid"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/database"
	"github.com/letieu/goldmines/internal/model"
	"github.com/letieu/goldmines/internal/pipeline"
)

const (
	MaxDescriptionLength = 20000
	DefaultListLimit     = 20
	MaxListLimit         = 100

	maxTitleLength = 120
)

type PostAnalyzer interface {
	AnalyzePost(ctx context.Context, post model.SourcePost) (model.Draft, error)
}

type IdeaStore interface {
	pipeline.Store
	GetBusinessIdea(ctx context.Context, id int64) (*model.BusinessIdea, error)
	ListBusinessIdeas(ctx context.Context, opts database.ListOptions) ([]model.BusinessIdea, error)
}

type IdeaService struct {
	analyzer PostAnalyzer
	store    IdeaStore
	// ideas are immutable once stored, so entries never go stale
	cache  *cache.Cache
	logger *slog.Logger
}

func NewIdeaService(analyzer PostAnalyzer, store IdeaStore, logger *slog.Logger) *IdeaService {
	return &IdeaService{
		analyzer: analyzer,
		store:    store,
		cache:    cache.New(30*time.Minute, 10*time.Minute),
		logger:   logger,
	}
}

// Generate turns a user-written description into a stored business idea.
// Analysis and persistence failures are returned to the caller as is.
func (s *IdeaService) Generate(ctx context.Context, description string) (*model.BusinessIdea, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperror.ValidationFailed("idea_description", "Business idea description is required")
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("idea_description",
			fmt.Sprintf("Business idea description must be at most %d characters", MaxDescriptionLength))
	}

	post := model.SourcePost{
		ExternalID: xid.New().String(),
		Feed:       model.FeedUserSubmitted,
		Title:      titleOf(description),
		Body:       description,
		CreatedUTC: time.Now().Unix(),
	}

	draft, err := s.analyzer.AnalyzePost(ctx, post)
	if err != nil {
		s.logger.Error("idea generation failed",
			slog.String("external_id", post.ExternalID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	idea, err := pipeline.Persist(ctx, s.store, draft)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey(idea.ID), idea, cache.DefaultExpiration)
	s.logger.Info("idea generated",
		slog.Int64("id", idea.ID),
		slog.String("name", idea.IdeaName),
	)
	return idea, nil
}

func (s *IdeaService) Get(ctx context.Context, id int64) (*model.BusinessIdea, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", "id must be a positive integer")
	}
	if cached, ok := s.cache.Get(cacheKey(id)); ok {
		return cached.(*model.BusinessIdea), nil
	}

	idea, err := s.store.GetBusinessIdea(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey(id), idea, cache.DefaultExpiration)
	return idea, nil
}

func (s *IdeaService) List(ctx context.Context, limit, offset int, category string) ([]model.BusinessIdea, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListBusinessIdeas(ctx, database.ListOptions{
		Limit:    limit,
		Offset:   offset,
		Category: strings.TrimSpace(category),
	})
}

func cacheKey(id int64) string {
	return fmt.Sprintf("idea:%d", id)
}

// titleOf uses the first line of a description, cut to maxTitleLength runes.
func titleOf(description string) string {
	line, _, _ := strings.Cut(description, "\n")
	line = strings.TrimSpace(line)
	if utf8.RuneCountInString(line) > maxTitleLength {
		line = string([]rune(line)[:maxTitleLength])
	}
	return line
}
