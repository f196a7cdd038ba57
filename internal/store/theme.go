package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/repository"
)

// ThemeStore holds each visitor's light/dark preference. The preference
// persists indefinitely; everything here defaults to light when the
// persistence layer is unavailable or holds an unknown value.
type ThemeStore struct {
	mu       sync.Mutex
	themes   map[string]model.Theme
	hydrated map[string]bool

	repo   repository.PreferenceRepository
	logger *slog.Logger
}

// NewThemeStore creates a ThemeStore backed by the given repository.
func NewThemeStore(repo repository.PreferenceRepository, logger *slog.Logger) *ThemeStore {
	return &ThemeStore{
		themes:   make(map[string]model.Theme),
		hydrated: make(map[string]bool),
		repo:     repo,
		logger:   logger,
	}
}

// Get returns the visitor's theme, defaulting to light when unset, unknown,
// or unreadable.
func (s *ThemeStore) Get(ctx context.Context, visitorID string) model.Theme {
	s.mu.Lock()
	if s.hydrated[visitorID] {
		theme := s.themes[visitorID]
		s.mu.Unlock()
		return theme
	}
	s.mu.Unlock()

	theme, err := s.repo.Theme(ctx, visitorID)
	if err != nil {
		s.logger.Warn("failed to read theme preference",
			slog.String("visitorID", visitorID),
			slog.String("error", err.Error()),
		)
		theme = ""
	}
	if !theme.Valid() {
		theme = model.ThemeLight
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated[visitorID] {
		s.hydrated[visitorID] = true
		s.themes[visitorID] = theme
	}
	return s.themes[visitorID]
}

// Toggle flips the visitor's theme and returns the new value. The flip always
// takes effect in memory; persistence is best-effort.
func (s *ThemeStore) Toggle(ctx context.Context, visitorID string) model.Theme {
	current := s.Get(ctx, visitorID)
	next := current.Flip()

	s.mu.Lock()
	s.hydrated[visitorID] = true
	s.themes[visitorID] = next
	s.mu.Unlock()

	if err := s.repo.SaveTheme(ctx, visitorID, next); err != nil {
		s.logger.Warn("failed to persist theme preference",
			slog.String("visitorID", visitorID),
			slog.String("error", err.Error()),
		)
	}
	return next
}
