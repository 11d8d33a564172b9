package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/model"
)

type BookmarkStore interface {
	ToggleBookmark(ctx context.Context, userID string, itemType model.ItemType, itemID int64) (model.ToggleResult, error)
	ListSavedItems(ctx context.Context, userID string) ([]model.SavedItem, error)
}

type ToggleRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	ItemType string `json:"item_type" validate:"required,oneof=business marketing"`
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
}

type BookmarkService struct {
	store  BookmarkStore
	logger *slog.Logger
}

func NewBookmarkService(store BookmarkStore, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{store: store, logger: logger}
}

func (s *BookmarkService) Toggle(ctx context.Context, req ToggleRequest) (model.ToggleResult, error) {
	if err := validateStruct(req); err != nil {
		return model.ToggleResult{}, err
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return model.ToggleResult{}, apperror.ValidationFailed("user_id", "user_id must be a valid UUID")
	}

	res, err := s.store.ToggleBookmark(ctx, userID.String(), model.ItemType(req.ItemType), req.ItemID)
	if err != nil {
		return model.ToggleResult{}, err
	}

	s.logger.Info("bookmark toggled",
		slog.String("user_id", userID.String()),
		slog.String("item_type", req.ItemType),
		slog.Int64("item_id", req.ItemID),
		slog.String("action", string(res.Action)),
	)
	return res, nil
}

func (s *BookmarkService) List(ctx context.Context, userID string) ([]model.SavedItem, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperror.ValidationFailed("user_id", "user_id must be a valid UUID")
	}
	return s.store.ListSavedItems(ctx, id.String())
}
