package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/letieu/goldmines/internal/apperror"
	"github.com/letieu/goldmines/internal/service"
)

type IdeaHandler struct {
	ideas  *service.IdeaService
	logger *slog.Logger
}

func NewIdeaHandler(ideas *service.IdeaService, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, logger: logger}
}

type generateRequest struct {
	IdeaDescription string `json:"idea_description"`
}

// HandleGenerate serves POST /generate-idea.
func (h *IdeaHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	idea, err := h.ideas.Generate(r.Context(), req.IdeaDescription)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"business_idea": idea,
	})
}

// HandleList serves GET /ideas?limit=&offset=&category=.
func (h *IdeaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := optionalInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	offset, err := optionalInt(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ideas, err := h.ideas.List(r.Context(), limit, offset, q.Get("category"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ideas":   ideas,
		"count":   len(ideas),
	})
}

// HandleGet serves GET /ideas/{id}.
func (h *IdeaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, apperror.ValidationFailed("id", "id must be a positive integer"))
		return
	}

	idea, err := h.ideas.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"business_idea": idea,
	})
}

func optionalInt(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(field, field+" must be an integer")
	}
	return n, nil
}
