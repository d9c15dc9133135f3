package project

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/models"
)

// exchange is the backup file layout. Times are Unix milliseconds.
type exchange struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	CreatedAt   int64           `json:"createdAt"`
	ModifiedAt  int64           `json:"modifiedAt"`
	Thumbnail   string          `json:"thumbnail,omitempty"`
	EditorState json.RawMessage `json:"editorState"`
}

// ExportJSON returns an indented backup of a project.
func (db *DB) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	p, err := db.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := json.Marshal(p.Document)
	if err != nil {
		return nil, fmt.Errorf("project: encode state: %w", err)
	}
	return json.MarshalIndent(exchange{
		ID:          p.ID,
		Name:        p.Name,
		CreatedAt:   p.CreatedAt.UnixMilli(),
		ModifiedAt:  p.ModifiedAt.UnixMilli(),
		Thumbnail:   p.Thumbnail,
		EditorState: state,
	}, "", "  ")
}

// Import stores a backup as a new project named "<name> (Imported)".
// Malformed payloads are rejected whole with ErrInvalidProjectData.
func (db *DB) Import(ctx context.Context, data []byte) (Project, error) {
	var x exchange
	if err := json.Unmarshal(data, &x); err != nil {
		return Project{}, fmt.Errorf("%w: %v", apperr.ErrInvalidProjectData, err)
	}
	if len(x.EditorState) == 0 {
		return Project{}, fmt.Errorf("%w: missing editorState", apperr.ErrInvalidProjectData)
	}
	doc, err := models.DecodeDocument(x.EditorState)
	if err != nil {
		return Project{}, err
	}
	name := strings.TrimSpace(x.Name)
	if name == "" {
		name = DefaultName
	}
	return db.Save(ctx, SaveInput{Name: name + " (Imported)", Thumbnail: x.Thumbnail, Document: doc})
}
