//go:build !sqlite_fts5

package project

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on projects.name.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _ string) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) {}

// Search performs a case-insensitive substring match on project names
// (fallback when FTS5 is not compiled in).
func (db *DB) Search(ctx context.Context, query string, limit int) ([]Meta, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+metaColumns+`
		FROM projects
		WHERE name LIKE ?
		ORDER BY modified_at DESC, rowid DESC
		LIMIT ?
	`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("project: search: %w", err)
	}
	return collectMeta(rows)
}
