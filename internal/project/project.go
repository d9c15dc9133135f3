package project

import (
	"context"
	"time"

	"github.com/starford/lumina/internal/models"
)

// Meta is a project listing entry.
type Meta struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Thumbnail  string    `json:"thumbnail,omitempty"`
	Checksum   string    `json:"checksum"`
	Size       int       `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Project is a stored document with its metadata.
type Project struct {
	Meta
	Document models.Document `json:"editorState"`
}

// Stats summarizes the repository.
type Stats struct {
	Count      int   `json:"projectCount"`
	TotalBytes int64 `json:"totalBytes"`
}

// SaveInput is a new or updated project. An empty Name on update keeps the
// stored name; an empty Thumbnail keeps the stored thumbnail.
type SaveInput struct {
	Name      string
	Thumbnail string
	Document  models.Document
}

// Repository defines project persistence. Consumers should depend on this
// interface rather than *DB.
type Repository interface {
	Save(ctx context.Context, in SaveInput) (Project, error)
	Update(ctx context.Context, id string, in SaveInput, ifMatch string) (Project, error)
	Load(ctx context.Context, id string) (Project, error)
	List(ctx context.Context, limit int) ([]Meta, error)
	Search(ctx context.Context, query string, limit int) ([]Meta, error)
	Delete(ctx context.Context, id string) error
	Duplicate(ctx context.Context, id string) (Project, error)
	ExportJSON(ctx context.Context, id string) ([]byte, error)
	Import(ctx context.Context, data []byte) (Project, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

var _ Repository = (*DB)(nil)
