package handler

import (
	"log/slog"
	"net/http"

	"github.com/letieu/goldmines/internal/service"
)

type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleSignup serves POST /auth/signup.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, h.logger, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), creds)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}

// HandleLogin serves POST /auth/login.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds service.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, h.logger, err)
		return
	}

	token, user, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"access_token": token,
		"token_type":   "Bearer",
		"user":         user,
	})
}
