package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("business_ideas", "7"), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("item_type", "bad"), ErrValidation, true},
		{"Conflict wraps ErrConflict", Conflict("user", "a@b.c"), ErrConflict, true},
		{"AnalysisService wraps kind", AnalysisService("llm call failed", cause), ErrAnalysisService, true},
		{"AnalysisService wraps cause", AnalysisService("llm call failed", cause), cause, true},
		{"Persistence wraps kind", Persistence("saving post", cause), ErrPersistence, true},
		{"RateLimited wraps kind", RateLimited("reddit"), ErrRateLimited, true},
		{"wrapped with fmt.Errorf", fmt.Errorf("outer: %w", NotFound("x", "1")), ErrNotFound, true},
		{"NotFound does not match ErrValidation", NotFound("x", "1"), ErrValidation, false},
		{"AnalysisService does not match ErrValidation", AnalysisService("m", nil), ErrValidation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"NotFound", NotFound("snippet", "abc123"), "snippet not found with id abc123"},
		{"ValidationFailed", ValidationFailed("name", "name is required"), "name is required"},
		{"Persistence includes cause", Persistence("saving post", errors.New("disk full")), "saving post: disk full"},
		{"RateLimited", RateLimited("r/startups"), "r/startups rate limited the request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestErrorsAs(t *testing.T) {
	err := fmt.Errorf("handler: %w", ValidationFailed("email", "invalid email format"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As did not find *AppError")
	}
	if appErr.Field != "email" {
		t.Errorf("Field = %q, want %q", appErr.Field, "email")
	}
}
