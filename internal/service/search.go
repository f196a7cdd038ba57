// Package service contains the business logic layer: the rules between the
// HTTP handlers and the GitHub client / stores. Handlers parse requests and
// render responses; services validate input, call GitHub, and keep the stores
// consistent. Neither layer knows about the other's concerns.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/gitscope/internal/apperror"
	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/store"
)

// UserSearcher looks up a public profile by username. Satisfied by
// *github.Client; tests substitute fakes.
type UserSearcher interface {
	User(ctx context.Context, username string) (*model.GitHubUser, error)
}

// SearchService runs ad-hoc profile searches and keeps the per-session
// searched-user snapshot in sync with their results.
type SearchService struct {
	github UserSearcher
	store  *store.SearchStore
	logger *slog.Logger
}

// NewSearchService creates a SearchService.
func NewSearchService(github UserSearcher, searches *store.SearchStore, logger *slog.Logger) *SearchService {
	return &SearchService{
		github: github,
		store:  searches,
		logger: logger,
	}
}

// Search looks up the given username and updates the session's snapshot.
//
// Rules, in order:
//   - A blank (empty or whitespace-only) username fails with a validation
//     error — "Please enter a username" — and no network call is made. The
//     existing snapshot is left alone.
//   - Any fetch failure (not found, rate limited, upstream) clears the
//     snapshot and propagates the error for inline display.
//   - Success replaces the snapshot wholesale and clears any prior error
//     state by virtue of returning nil.
func (s *SearchService) Search(ctx context.Context, sessionID, rawUsername string) (*model.GitHubUser, error) {
	username := strings.TrimSpace(rawUsername)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Please enter a username")
	}

	user, err := s.github.User(ctx, username)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			// "No results" is a normal outcome, everything else is worth a log line.
			s.logger.Warn("user search failed",
				slog.String("username", username),
				slog.String("error", err.Error()),
			)
		}
		s.store.Clear(ctx, sessionID)
		return nil, err
	}

	s.store.Set(ctx, sessionID, user)

	s.logger.Info("user search succeeded",
		slog.String("username", username),
		slog.Int64("githubID", user.ID),
	)
	return user, nil
}

// LastResult returns the session's current searched-user snapshot, or nil.
func (s *SearchService) LastResult(ctx context.Context, sessionID string) *model.GitHubUser {
	return s.store.Get(ctx, sessionID)
}
