// Package repository defines the persistence interfaces the stores depend on.
// The concrete implementation lives in repository/sqlite; tests use in-memory
// fakes. Stores treat all persistence as best-effort except sessionRepo
// writes performed during login, which propagate their error.
package repository

import (
	"context"

	"github.com/sakif/gitscope/internal/model"
)

// SessionRepository persists the access token of each browser session.
type SessionRepository interface {
	// SaveToken stores (or replaces) the access token for a session.
	SaveToken(ctx context.Context, sessionID, token string) error
	// Token returns the stored token, or "" when the session is unknown.
	Token(ctx context.Context, sessionID string) (string, error)
	// Delete removes the session row. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, sessionID string) error
}

// SearchRepository persists the last successfully searched profile per
// session, as a JSON snapshot.
type SearchRepository interface {
	// SaveSnapshot stores (or replaces) the searched-user snapshot.
	SaveSnapshot(ctx context.Context, sessionID string, user *model.GitHubUser) error
	// Snapshot returns the stored snapshot, or nil when absent or
	// undecodable. Decode failures are not errors — the snapshot is simply
	// treated as missing.
	Snapshot(ctx context.Context, sessionID string) (*model.GitHubUser, error)
	// ClearSnapshot removes the snapshot. Clearing an absent one is fine.
	ClearSnapshot(ctx context.Context, sessionID string) error
}

// PreferenceRepository persists per-visitor preferences indefinitely.
type PreferenceRepository interface {
	// SaveTheme stores (or replaces) the visitor's theme.
	SaveTheme(ctx context.Context, visitorID string, theme model.Theme) error
	// Theme returns the stored theme, or "" when the visitor is unknown.
	Theme(ctx context.Context, visitorID string) (model.Theme, error)
}
