package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/letieu/goldmines/config"
	"github.com/letieu/goldmines/internal/auth"
	"github.com/letieu/goldmines/internal/database"
	"github.com/letieu/goldmines/internal/handler"
	"github.com/letieu/goldmines/internal/metrics"
	"github.com/letieu/goldmines/internal/middleware"
	"github.com/letieu/goldmines/internal/service"
)

type Server struct {
	router  *chi.Mux
	port    int
	db      *database.DB
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds the router and its services. The caller keeps ownership of db.
func New(cfg *config.Config, db *database.DB, analyzer service.PostAnalyzer, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth.jwt_secret: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		port:    cfg.Server.Port,
		db:      db,
		metrics: m,
		logger:  logger,
	}

	ideas := service.NewIdeaService(analyzer, db, logger)
	bookmarks := service.NewBookmarkService(db, logger)
	users := service.NewAuthService(db, auth.NewPasswordService(0), tokens, logger)

	s.routes(
		handler.NewIdeaHandler(ideas, logger),
		handler.NewBookmarkHandler(bookmarks, logger),
		handler.NewAuthHandler(users, logger),
		tokens,
	)
	return s, nil
}

func (s *Server) routes(ideas *handler.IdeaHandler, bookmarks *handler.BookmarkHandler, users *handler.AuthHandler, tokens *auth.TokenService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger, s.metrics))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", handler.Health(s.db, s.logger))
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Post("/generate-idea", ideas.HandleGenerate)
	s.router.Post("/bookmark", bookmarks.HandleToggle)

	s.router.Get("/ideas", ideas.HandleList)
	s.router.Get("/ideas/{id}", ideas.HandleGet)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", users.HandleSignup)
		r.Post("/login", users.HandleLogin)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))
		r.Get("/bookmarks", bookmarks.HandleList)
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// generate-idea waits on the language model
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
