package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/repository"
)

// compile-time check that *DB implements repository.SearchRepository
var _ repository.SearchRepository = (*DB)(nil)

// SaveSnapshot stores or replaces the searched-user snapshot for a session.
// The snapshot is stored as JSON: its shape tracks the GitHub payload and we
// never query inside it.
func (db *DB) SaveSnapshot(ctx context.Context, sessionID string, user *model.GitHubUser) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("sqlite: encoding searched user: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO searches (session_id, user_json, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET user_json  = excluded.user_json,
		                                       updated_at = excluded.updated_at`,
		sessionID, string(payload), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving searched user: %w", err)
	}
	return nil
}

// Snapshot returns the stored snapshot, or nil when absent. A snapshot that
// no longer decodes (e.g. written by an older build) is treated as absent,
// not as an error.
func (db *DB) Snapshot(ctx context.Context, sessionID string) (*model.GitHubUser, error) {
	var payload string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_json FROM searches WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading searched user: %w", err)
	}

	var user model.GitHubUser
	if err := json.Unmarshal([]byte(payload), &user); err != nil {
		return nil, nil
	}
	return &user, nil
}

// ClearSnapshot removes the snapshot row. Absent rows are not an error.
func (db *DB) ClearSnapshot(ctx context.Context, sessionID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM searches WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing searched user: %w", err)
	}
	return nil
}
