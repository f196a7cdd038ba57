// Package store holds the in-memory session, search and theme state.
//
// Each store follows the same pattern: the in-memory map is the source of
// truth, and a repository (sqlite) is written through on every change so
// state survives a server restart the way browser storage survives a page
// reload. Writes are best-effort — a failed write never blocks the in-memory
// update — with one exception: SessionStore.Login propagates its persistence
// error so the caller can warn that the sign-in won't survive a reload.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/repository"
)

// UserFetcher fetches the profile a bearer token belongs to. Satisfied by
// *github.Client; tests substitute fakes.
type UserFetcher interface {
	AuthenticatedUser(ctx context.Context, token string) (*model.GitHubUser, error)
}

// refreshTimeout bounds the background profile fetch that follows a token
// change, so a hung upstream call cannot leave a session loading forever.
const refreshTimeout = 30 * time.Second

// Session is a read-only snapshot of one browser session's auth state.
//
// Invariant: User is non-nil only if Token is non-empty and the most recent
// fetch with it succeeded. Loading is true while that fetch is in flight.
type Session struct {
	Token   string
	User    *model.GitHubUser
	Loading bool
}

// Authenticated reports whether the session has a verified signed-in user.
func (s Session) Authenticated() bool {
	return s.User != nil
}

type sessionState struct {
	token   string
	user    *model.GitHubUser
	loading bool

	// gen increases on every token change. A refresh records the gen it was
	// started for and discards its result if the session has moved on —
	// the latest initiated fetch always wins.
	gen uint64

	// hydrated marks that the persisted token (if any) has been loaded, so
	// we only hit the repository once per session after a restart.
	hydrated bool
}

// SessionStore owns the authenticated-identity lifecycle for every browser
// session.
//
// Whenever a session's token changes — login, logout, or rehydration from
// persistence — the store asynchronously re-derives the user by fetching the
// profile with the token. A failed fetch means the token is stale or revoked:
// the session silently tears itself down (token and user cleared) and the
// visitor reverts to anonymous. The user is never persisted, only the token.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionState

	repo    repository.SessionRepository
	fetcher UserFetcher
	logger  *slog.Logger

	refreshes sync.WaitGroup
}

// NewSessionStore creates a SessionStore backed by the given repository and
// profile fetcher.
func NewSessionStore(repo repository.SessionRepository, fetcher UserFetcher, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionState),
		repo:     repo,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Login associates an access token with the session and starts the profile
// fetch.
//
// The token is persisted first. If persistence fails the in-memory token is
// still set — the visitor is signed in for now — but the error is returned so
// the caller can react (the sign-in won't survive a reload).
func (s *SessionStore) Login(ctx context.Context, sessionID, token string) error {
	persistErr := s.repo.SaveToken(ctx, sessionID, token)

	s.mu.Lock()
	st := s.state(sessionID)
	st.hydrated = true
	s.setTokenLocked(sessionID, st, token)
	s.mu.Unlock()

	if persistErr != nil {
		s.logger.Warn("failed to persist session token",
			slog.String("sessionID", sessionID),
			slog.String("error", persistErr.Error()),
		)
		return persistErr
	}
	return nil
}

// Logout clears the session's token and user. The persisted token is removed
// best-effort — a storage failure is logged and swallowed. Calling Logout on
// an already-anonymous session is a no-op.
func (s *SessionStore) Logout(ctx context.Context, sessionID string) {
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete persisted session",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
	}

	s.mu.Lock()
	st := s.state(sessionID)
	st.hydrated = true
	st.gen++ // supersede any in-flight refresh
	st.token = ""
	st.user = nil
	st.loading = false
	s.mu.Unlock()
}

// Snapshot returns the session's current auth state, rehydrating from
// persistence on first sight of a session ID.
//
// Rehydration behaves exactly like a login with the stored token: the user is
// re-derived by fetching, never read from storage, and the snapshot returned
// here reports Loading=true while that first fetch is in flight. An
// unreadable repository just yields an anonymous session.
func (s *SessionStore) Snapshot(ctx context.Context, sessionID string) Session {
	s.mu.Lock()
	if st, ok := s.sessions[sessionID]; ok && st.hydrated {
		snap := snapshotLocked(st)
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()

	token, err := s.repo.Token(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to read persisted session",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
		token = ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(sessionID)
	if !st.hydrated {
		st.hydrated = true
		s.setTokenLocked(sessionID, st, token)
	}
	return snapshotLocked(st)
}

// Wait blocks until all in-flight profile refreshes have completed. Used by
// tests and during graceful shutdown.
func (s *SessionStore) Wait() {
	s.refreshes.Wait()
}

// state returns the tracked state for sessionID, creating it if needed.
// Callers must hold s.mu.
func (s *SessionStore) state(sessionID string) *sessionState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		s.sessions[sessionID] = st
	}
	return st
}

// setTokenLocked installs a token and starts the derived profile fetch.
// An empty token means anonymous: user nil, not loading, no fetch.
// Callers must hold s.mu.
func (s *SessionStore) setTokenLocked(sessionID string, st *sessionState, token string) {
	st.gen++
	st.token = token
	st.user = nil

	if token == "" {
		st.loading = false
		return
	}

	st.loading = true
	gen := st.gen
	s.refreshes.Add(1)
	go s.refresh(sessionID, token, gen)
}

// refresh fetches the profile for a token and applies the result, unless the
// session has moved on to a newer token (or logged out) in the meantime.
func (s *SessionStore) refresh(sessionID, token string, gen uint64) {
	defer s.refreshes.Done()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	user, err := s.fetcher.AuthenticatedUser(ctx, token)

	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if !ok || st.gen != gen {
		// Superseded: a newer login/logout won. Discard this result.
		s.mu.Unlock()
		return
	}

	if err != nil {
		// The token is stale or revoked. Self-heal: tear the session down
		// silently and let the visitor revert to anonymous.
		st.token = ""
		st.user = nil
		st.loading = false
		s.mu.Unlock()

		s.logger.Info("session token rejected, clearing session",
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()),
		)
		if derr := s.repo.Delete(context.Background(), sessionID); derr != nil {
			s.logger.Warn("failed to delete persisted session",
				slog.String("sessionID", sessionID),
				slog.String("error", derr.Error()),
			)
		}
		return
	}

	st.user = user
	st.loading = false
	s.mu.Unlock()

	s.logger.Debug("session user refreshed",
		slog.String("sessionID", sessionID),
		slog.String("login", user.Login),
	)
}

// snapshotLocked copies the state into a Session. The user pointer is shared
// but treated as immutable: every fetch produces a fresh struct, snapshots
// are replaced wholesale, never mutated.
func snapshotLocked(st *sessionState) Session {
	return Session{
		Token:   st.token,
		User:    st.user,
		Loading: st.loading,
	}
}
