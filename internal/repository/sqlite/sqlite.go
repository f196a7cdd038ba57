// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// SQLite is embedded — no separate database server to run — which fits this
// app: the only persisted state is per-session tokens, searched-profile
// snapshots, and theme preferences. We use modernc.org/sqlite rather than
// mattn/go-sqlite3 so no C compiler is needed and cross-compilation stays
// painless.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements the repository interfaces.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" in tests for a throwaway in-memory database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in progress — a web
	// server serves many sessions at once.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the tables. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every startup.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id           TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);

		CREATE TABLE IF NOT EXISTS searches (
			session_id TEXT PRIMARY KEY,
			user_json  TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS prefs (
			visitor_id TEXT PRIMARY KEY,
			theme      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	return nil
}

// PurgeStaleSessions removes session and search rows not touched since
// cutoff. Browsers drop session cookies on their own; the matching server
// rows are orphaned and this reclaims them. Called once at startup.
func (db *DB) PurgeStaleSessions(cutoff time.Time) error {
	if _, err := db.conn.Exec(
		`DELETE FROM searches WHERE session_id IN
		   (SELECT id FROM sessions WHERE updated_at < ?)`, cutoff,
	); err != nil {
		return fmt.Errorf("sqlite: purging stale searches: %w", err)
	}
	if _, err := db.conn.Exec(
		`DELETE FROM sessions WHERE updated_at < ?`, cutoff,
	); err != nil {
		return fmt.Errorf("sqlite: purging stale sessions: %w", err)
	}
	return nil
}
