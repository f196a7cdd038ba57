package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/repository"
)

// SearchStore holds the last successfully searched profile per session,
// independent of authentication. The snapshot survives reloads via the
// repository until explicitly cleared or replaced by a new search.
type SearchStore struct {
	mu        sync.Mutex
	snapshots map[string]*model.GitHubUser
	hydrated  map[string]bool

	repo   repository.SearchRepository
	logger *slog.Logger
}

// NewSearchStore creates a SearchStore backed by the given repository.
func NewSearchStore(repo repository.SearchRepository, logger *slog.Logger) *SearchStore {
	return &SearchStore{
		snapshots: make(map[string]*model.GitHubUser),
		hydrated:  make(map[string]bool),
		repo:      repo,
		logger:    logger,
	}
}

// Get returns the session's searched-user snapshot, or nil when there is
// none. The first lookup for a session reads through to the repository; an
// unreadable repository just means no snapshot.
func (s *SearchStore) Get(ctx context.Context, sessionID string) *model.GitHubUser {
	s.mu.Lock()
	if s.hydrated[sessionID] {
		user := s.snapshots[sessionID]
		s.mu.Unlock()
		return user
	}
	s.mu.Unlock()

	user, err := s.repo.Snapshot(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to read searched-user snapshot",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
		user = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hydrated[sessionID] {
		s.hydrated[sessionID] = true
		s.snapshots[sessionID] = user
	}
	return s.snapshots[sessionID]
}

// Set replaces the session's snapshot. Persistence is write-through and
// best-effort: a storage failure keeps the in-memory snapshot and is only
// logged.
func (s *SearchStore) Set(ctx context.Context, sessionID string, user *model.GitHubUser) {
	s.mu.Lock()
	s.hydrated[sessionID] = true
	s.snapshots[sessionID] = user
	s.mu.Unlock()

	if err := s.repo.SaveSnapshot(ctx, sessionID, user); err != nil {
		s.logger.Warn("failed to persist searched-user snapshot",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// Clear removes the session's snapshot, in memory and (best-effort) from the
// repository.
func (s *SearchStore) Clear(ctx context.Context, sessionID string) {
	s.mu.Lock()
	s.hydrated[sessionID] = true
	s.snapshots[sessionID] = nil
	s.mu.Unlock()

	if err := s.repo.ClearSnapshot(ctx, sessionID); err != nil {
		s.logger.Warn("failed to clear searched-user snapshot",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
	}
}
