package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/checksum"
	"github.com/starford/lumina/internal/models"
)

// DefaultName is used when a project is saved without a name.
const DefaultName = "Untitled"

const metaColumns = `id, name, thumbnail, checksum, size, created_at, modified_at`

func newID(now time.Time) string {
	return fmt.Sprintf("proj_%d_%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:9])
}

func encodeState(doc models.Document) ([]byte, string, error) {
	if err := doc.Validate(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", apperr.ErrInvalidProjectData, err)
	}
	state, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("project: encode state: %w", err)
	}
	return state, checksum.Sum(state), nil
}

// Save stores a new project.
func (db *DB) Save(ctx context.Context, in SaveInput) (Project, error) {
	state, cs, err := encodeState(in.Document)
	if err != nil {
		return Project{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = DefaultName
	}
	now := db.now().UTC()
	p := Project{
		Meta: Meta{
			ID:         newID(now),
			Name:       name,
			Thumbnail:  in.Thumbnail,
			Checksum:   cs,
			Size:       len(state),
			CreatedAt:  now,
			ModifiedAt: now,
		},
		Document: in.Document.Clone(),
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, fmt.Errorf("project: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, name, thumbnail, state, checksum, size, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Thumbnail, string(state), cs, len(state), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return Project{}, fmt.Errorf("project: insert: %w", err)
	}
	if err := ftsUpsert(ctx, tx, p.ID, p.Name); err != nil {
		return Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return Project{}, fmt.Errorf("project: commit: %w", err)
	}
	return p, nil
}

// Update replaces the document of an existing project. A non-empty ifMatch
// must equal the stored checksum, otherwise ErrConflict is returned.
func (db *DB) Update(ctx context.Context, id string, in SaveInput, ifMatch string) (Project, error) {
	state, cs, err := encodeState(in.Document)
	if err != nil {
		return Project{}, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return Project{}, fmt.Errorf("project: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	m, err := scanMeta(tx.QueryRowContext(ctx, `SELECT `+metaColumns+` FROM projects WHERE id = ?`, id))
	if err != nil {
		return Project{}, err
	}
	if ifMatch != "" && ifMatch != m.Checksum {
		return Project{}, fmt.Errorf("project %s: checksum %s: %w", id, m.Checksum, apperr.ErrConflict)
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		m.Name = name
	}
	if in.Thumbnail != "" {
		m.Thumbnail = in.Thumbnail
	}
	now := db.now().UTC()
	m.Checksum, m.Size, m.ModifiedAt = cs, len(state), now

	_, err = tx.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, thumbnail = ?, state = ?, checksum = ?, size = ?, modified_at = ?
		WHERE id = ?
	`, m.Name, m.Thumbnail, string(state), cs, len(state), now.UnixMilli(), id)
	if err != nil {
		return Project{}, fmt.Errorf("project: update: %w", err)
	}
	if err := ftsUpsert(ctx, tx, id, m.Name); err != nil {
		return Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return Project{}, fmt.Errorf("project: commit: %w", err)
	}
	return Project{Meta: m, Document: in.Document.Clone()}, nil
}

// Load returns a project with its decoded document.
func (db *DB) Load(ctx context.Context, id string) (Project, error) {
	var (
		p     Project
		state string
		c, m  int64
	)
	err := db.conn.QueryRowContext(ctx, `SELECT `+metaColumns+`, state FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Thumbnail, &p.Checksum, &p.Size, &c, &m, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, fmt.Errorf("project %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return Project{}, fmt.Errorf("project: load: %w", err)
	}
	p.CreatedAt, p.ModifiedAt = time.UnixMilli(c).UTC(), time.UnixMilli(m).UTC()
	doc, err := models.DecodeDocument([]byte(state))
	if err != nil {
		return Project{}, fmt.Errorf("project %s: %w", id, err)
	}
	p.Document = doc
	return p, nil
}

// List returns up to limit projects, most recently modified first. limit <= 0
// returns all.
func (db *DB) List(ctx context.Context, limit int) ([]Meta, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+metaColumns+`
		FROM projects
		ORDER BY modified_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	return collectMeta(rows)
}

// Delete removes a project.
func (db *DB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("project: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("project: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, apperr.ErrNotFound)
	}
	ftsDelete(ctx, tx, id)
	return tx.Commit()
}

// Duplicate stores a copy named "<name> Copy".
func (db *DB) Duplicate(ctx context.Context, id string) (Project, error) {
	p, err := db.Load(ctx, id)
	if err != nil {
		return Project{}, err
	}
	return db.Save(ctx, SaveInput{Name: p.Name + " Copy", Thumbnail: p.Thumbnail, Document: p.Document})
}

// Stats reports the project count and the total stored state size.
func (db *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := db.conn.QueryRowContext(ctx, `SELECT count(*), coalesce(sum(size), 0) FROM projects`).Scan(&s.Count, &s.TotalBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("project: stats: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeta(r rowScanner) (Meta, error) {
	var (
		m    Meta
		c, u int64
	)
	err := r.Scan(&m.ID, &m.Name, &m.Thumbnail, &m.Checksum, &m.Size, &c, &u)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, fmt.Errorf("project: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return Meta{}, fmt.Errorf("project: scan: %w", err)
	}
	m.CreatedAt, m.ModifiedAt = time.UnixMilli(c).UTC(), time.UnixMilli(u).UTC()
	return m, nil
}

func collectMeta(rows *sql.Rows) ([]Meta, error) {
	defer rows.Close()
	out := []Meta{}
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
