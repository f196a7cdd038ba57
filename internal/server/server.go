// Package server wires the application together: it owns the router, the
// dependency graph, and the server lifecycle. main.go hands it a Config and
// calls Start; everything else is assembled here, in one place.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/gitscope/internal/auth"
	"github.com/sakif/gitscope/internal/github"
	"github.com/sakif/gitscope/internal/handler"
	"github.com/sakif/gitscope/internal/middleware"
	sqliteRepo "github.com/sakif/gitscope/internal/repository/sqlite"
	"github.com/sakif/gitscope/internal/service"
	"github.com/sakif/gitscope/internal/store"
)

// sessionRetention is how long server-side session rows are kept after their
// last use before startup cleanup reclaims them. Browsers drop the matching
// session cookie on their own, so stale rows are unreachable anyway.
const sessionRetention = 7 * 24 * time.Hour

// Config holds server configuration, loaded from the environment by main.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	SessionSecret string

	GitHubClientID     string
	GitHubClientSecret string // server-side only, never sent to the client
	GitHubCallbackURL  string
}

// Server is the HTTP server and its dependency graph. It owns the database
// connection and the session store, and closes/drains them on shutdown.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *store.SessionStore
}

// New assembles the full dependency chain:
//
//	sqlite.DB → stores (session/search/theme) → services → handlers → routes
//
// The GitHub client and OAuth helper are shared by the session store (profile
// refresh), the search service, and the auth handlers.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PurgeStaleSessions(time.Now().Add(-sessionRetention)); err != nil {
		logger.Warn("failed to purge stale sessions", slog.String("error", err.Error()))
	}

	githubClient := github.NewClient(github.ClientConfig{}, logger)
	oauth := github.NewOAuth(github.OAuthConfig{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		CallbackURL:  cfg.GitHubCallbackURL,
	}, logger)

	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	sessions := store.NewSessionStore(db, githubClient, logger)
	searches := store.NewSearchStore(db, logger)
	themes := store.NewThemeStore(db, logger)

	searchService := service.NewSearchService(githubClient, searches, logger)

	renderer, err := handler.NewRenderer(cfg.TemplateDir, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	authHandler := handler.NewAuthHandler(oauth, sessions, themes, renderer, logger)
	pageHandler := handler.NewPageHandler(renderer, sessions, themes, searchService, githubClient, logger)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		sessions: sessions,
	}
	s.setupRoutes(tokens, authHandler, pageHandler)

	return s, nil
}

// setupRoutes configures the middleware chain and all routes.
//
// Route map:
//
//	GET  /                    home / search page
//	GET  /dashboard           authenticated dashboard (redirects home otherwise)
//	GET  /callback            browser OAuth callback page
//	GET  /auth/github/login   redirect to GitHub authorization
//	POST /auth/logout         clear the session
//	POST /theme/toggle        flip light/dark
//	GET  /api/callback        JSON code-for-token exchange
//	GET  /api/me              JSON signed-in profile
//	GET  /api/users/{name}    JSON profile lookup
//	GET  /metrics             Prometheus
//	GET  /static/*            assets
func (s *Server) setupRoutes(tokens *auth.TokenService, authHandler *handler.AuthHandler, pageHandler *handler.PageHandler) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The exchange endpoint is cookie-free: it serves any caller holding an
	// authorization code, per its CORS allow-all contract.
	s.router.Get("/api/callback", authHandler.HandleExchange)

	// Everything below runs with a session and visitor identity attached.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.EnsureVisitor)
		r.Use(auth.EnsureSession(tokens, s.logger))

		r.Get("/", pageHandler.HandleHome)
		r.Get("/dashboard", pageHandler.HandleDashboard)
		r.Get("/callback", authHandler.HandleCallback)
		r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Post("/theme/toggle", pageHandler.HandleThemeToggle)
		r.Get("/api/me", authHandler.HandleMe)
		r.Get("/api/users/{username}", pageHandler.HandleUserAPI)
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, wait for
// background profile refreshes, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		// Let in-flight session refreshes finish before the DB goes away.
		s.sessions.Wait()

		s.logger.Info("server stopped gracefully")
	}

	return nil
}
