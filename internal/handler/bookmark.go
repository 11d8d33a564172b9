package handler

import (
	"log/slog"
	"net/http"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/auth"
	"github.com/letieu/goldmines/internal/service"
)

type BookmarkHandler struct {
	bookmarks *service.BookmarkService
	logger    *slog.Logger
}

func NewBookmarkHandler(bookmarks *service.BookmarkService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, logger: logger}
}

// HandleToggle serves POST /bookmark.
func (h *BookmarkHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	var req service.ToggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	res, err := h.bookmarks.Toggle(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"action":  res.Action,
	})
}

// HandleList serves GET /bookmarks for the authenticated user.
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("valid authentication required"))
		return
	}

	items, err := h.bookmarks.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"items":   items,
	})
}
