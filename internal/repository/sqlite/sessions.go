package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/gitscope/internal/repository"
)

// compile-time check that *DB implements repository.SessionRepository
var _ repository.SessionRepository = (*DB)(nil)

// SaveToken stores or replaces the access token for a session.
func (db *DB) SaveToken(ctx context.Context, sessionID, token string) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, access_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET access_token = excluded.access_token,
		                               updated_at   = excluded.updated_at`,
		sessionID, token, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving session token: %w", err)
	}
	return nil
}

// Token returns the stored access token, or "" for an unknown session.
func (db *DB) Token(ctx context.Context, sessionID string) (string, error) {
	var token string
	err := db.conn.QueryRowContext(ctx,
		`SELECT access_token FROM sessions WHERE id = ?`, sessionID,
	).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: reading session token: %w", err)
	}
	return token, nil
}

// Delete removes the session row. Absent rows are not an error.
func (db *DB) Delete(ctx context.Context, sessionID string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("sqlite: deleting session: %w", err)
	}
	return nil
}
