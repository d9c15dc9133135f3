// Package storage keeps source photos and exported renders on disk.
package storage

import "time"

// AssetInfo describes one stored file.
type AssetInfo struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is a flat file store. Paths are relative to its root; missing
// files are reported as apperr.ErrNotFound.
type Provider interface {
	// List returns metadata for every file under dir, newest first.
	List(dir string) ([]AssetInfo, error)
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path.
	Write(path string, content []byte) error
	Delete(path string) error
	// Root returns the absolute asset root.
	Root() string
}
