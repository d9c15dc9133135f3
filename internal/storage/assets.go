package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lumina/internal/apperr"
)

// Asset directories under the storage root.
const (
	ImagesDir  = "images"
	ExportsDir = "exports"
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Assets stores source photos and exported renders on top of a Provider.
type Assets struct {
	fs  Provider
	now func() time.Time
}

// NewAssets wraps p.
func NewAssets(p Provider) *Assets {
	return &Assets{fs: p, now: time.Now}
}

// Root returns the absolute directory assets live in.
func (a *Assets) Root() string { return a.fs.Root() }

// Save writes an exported render and returns its location relative to the
// asset root.
func (a *Assets) Save(ctx context.Context, data []byte, format string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(strings.ToLower(format), ".")
	if ext == "" {
		return "", fmt.Errorf("storage: save: empty format: %w", apperr.ErrInvalidInput)
	}
	name := fmt.Sprintf("lumina_export_%d_%s.%s", a.now().UnixMilli(), uuid.NewString()[:8], ext)
	loc := path.Join(ExportsDir, name)
	if err := a.fs.Write(loc, data); err != nil {
		return "", fmt.Errorf("storage: save export: %w", err)
	}
	return loc, nil
}

// PutImage stores an uploaded source photo. Unsafe characters in name are
// replaced and an existing file is never overwritten.
func (a *Assets) PutImage(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = SanitizeName(name)
	loc := path.Join(ImagesDir, name)
	if _, err := a.fs.Read(loc); err == nil {
		loc = path.Join(ImagesDir, uuid.NewString()[:8]+"_"+name)
	}
	if err := a.fs.Write(loc, data); err != nil {
		return "", fmt.Errorf("storage: put image: %w", err)
	}
	return loc, nil
}

// Read returns the bytes stored at loc. Missing files map to apperr.ErrNotFound.
func (a *Assets) Read(_ context.Context, loc string) ([]byte, error) {
	return a.fs.Read(loc)
}

// List describes the assets in dir, which must be ImagesDir or ExportsDir.
func (a *Assets) List(_ context.Context, dir string) ([]AssetInfo, error) {
	if dir != ImagesDir && dir != ExportsDir {
		return nil, fmt.Errorf("asset dir %q: %w", dir, apperr.ErrInvalidInput)
	}
	return a.fs.List(dir)
}

// Delete removes one file directly inside ImagesDir or ExportsDir.
func (a *Assets) Delete(_ context.Context, loc string) error {
	dir, name := path.Split(loc)
	if (dir != ImagesDir+"/" && dir != ExportsDir+"/") || name != SanitizeName(name) {
		return fmt.Errorf("asset %q: %w", loc, apperr.ErrInvalidInput)
	}
	return a.fs.Delete(loc)
}

// SanitizeName strips directories and unsafe characters from a file name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		name = uuid.NewString() + strings.TrimLeft(name, ".")
	}
	return name
}
