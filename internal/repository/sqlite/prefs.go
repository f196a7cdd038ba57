package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/gitscope/internal/model"
	"github.com/sakif/gitscope/internal/repository"
)

// compile-time check that *DB implements repository.PreferenceRepository
var _ repository.PreferenceRepository = (*DB)(nil)

// SaveTheme stores or replaces the visitor's theme preference.
func (db *DB) SaveTheme(ctx context.Context, visitorID string, theme model.Theme) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO prefs (visitor_id, theme, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(visitor_id) DO UPDATE SET theme      = excluded.theme,
		                                       updated_at = excluded.updated_at`,
		visitorID, string(theme), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving theme: %w", err)
	}
	return nil
}

// Theme returns the stored theme, or "" for an unknown visitor.
func (db *DB) Theme(ctx context.Context, visitorID string) (model.Theme, error) {
	var theme string
	err := db.conn.QueryRowContext(ctx,
		`SELECT theme FROM prefs WHERE visitor_id = ?`, visitorID,
	).Scan(&theme)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: reading theme: %w", err)
	}
	return model.Theme(theme), nil
}
