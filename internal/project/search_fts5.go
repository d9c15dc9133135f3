//go:build sqlite_fts5

package project

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS projects_fts USING fts5(
			id UNINDEXED,
			name,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, id, name string) error {
	_, _ = tx.ExecContext(ctx, `DELETE FROM projects_fts WHERE id = ?`, id)
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects_fts (id, name) VALUES (?, ?)`, id, name); err != nil {
		return fmt.Errorf("project: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, id string) {
	_, _ = tx.ExecContext(ctx, `DELETE FROM projects_fts WHERE id = ?`, id)
}

// Search matches project names with FTS5 prefix queries.
func (db *DB) Search(ctx context.Context, query string, limit int) ([]Meta, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.id, p.name, p.thumbnail, p.checksum, p.size, p.created_at, p.modified_at
		FROM projects_fts f
		JOIN projects p ON p.id = f.id
		WHERE projects_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("project: search: %w", err)
	}
	return collectMeta(rows)
}

// ftsQuery quotes each term and makes it a prefix match.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(terms, " ")
}
