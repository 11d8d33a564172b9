package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/letieu/goldmines/internal/apperror"
)

// ErrorResponse is the failure envelope. Error is a machine-readable kind,
// Message is safe to show to users.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error kind to its status code. Unknown and internal
// errors never leak their text.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Message: "An internal error occurred",
			Error:   "internal_error",
		})
		return
	}

	status := http.StatusInternalServerError
	kind := "internal_error"
	message := "An internal error occurred"

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind, message = http.StatusBadRequest, "validation_error", appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		status, kind, message = http.StatusNotFound, "not_found", appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		status, kind, message = http.StatusConflict, "conflict", appErr.Message
	case errors.Is(err, apperror.ErrUnauthorized):
		status, kind, message = http.StatusUnauthorized, "unauthorized", appErr.Message
	case errors.Is(err, apperror.ErrAnalysisService):
		kind, message = "analysis_service_error", appErr.Message
	case errors.Is(err, apperror.ErrPersistence):
		kind = "persistence_error"
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}

	writeJSON(w, status, ErrorResponse{
		Message: message,
		Error:   kind,
		Field:   appErr.Field,
	})
}

// decodeJSON rejects bodies that are not a single JSON object.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("", "request body must be valid JSON")
	}
	return nil
}
