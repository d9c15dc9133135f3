package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/checksum"
)

// tempPattern names in-flight writes. The leading dot hides them from List
// and from the asset watcher.
const tempPattern = ".lumina-tmp-*"

// FS stores assets under one directory. Paths are slash separated and
// relative to that directory.
type FS struct {
	root string
}

// NewFS opens an existing directory as an asset root.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	switch info, err := os.Stat(abs); {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute asset root.
func (f *FS) Root() string { return f.root }

// resolve maps rel into the root. Absolute paths and paths climbing out of
// the root are invalid input.
func (f *FS) resolve(rel string) (string, error) {
	if strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute path %q: %w", rel, apperr.ErrInvalidInput)
	}
	p := filepath.Join(f.root, filepath.FromSlash(rel))
	r, err := filepath.Rel(f.root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path %q escapes asset root: %w", rel, apperr.ErrInvalidInput)
	}
	return p, nil
}

func notFound(rel string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("asset %s: %w", rel, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s: %w", rel, err)
}

// List describes every visible file under dir, newest first. A missing dir
// is empty.
func (f *FS) List(dir string) ([]AssetInfo, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	out := []AssetInfo{}
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist) && p == base:
			return filepath.SkipAll
		case err != nil:
			return err
		case d.IsDir() || strings.HasPrefix(d.Name(), "."):
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sum, err := checksum.File(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, AssetInfo{
			Path:      filepath.ToSlash(rel),
			Size:      info.Size(),
			Checksum:  sum,
			UpdatedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	slices.SortFunc(out, func(a, b AssetInfo) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return out, nil
}

// Read returns the file at rel.
func (f *FS) Read(rel string) ([]byte, error) {
	p, err := f.resolve(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, notFound(rel, err)
	}
	return data, nil
}

// Write replaces the file at rel atomically: the bytes go to a synced temp
// file in the same directory which is then renamed over the target.
func (f *FS) Write(rel string, content []byte) error {
	p, err := f.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", rel, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), tempPattern)
	if err != nil {
		return fmt.Errorf("storage: stage %s: %w", rel, err)
	}
	if err := commit(tmp, content, p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("storage: write %s: %w", rel, err)
	}
	return nil
}

func commit(tmp *os.File, content []byte, dst string) error {
	_, err := tmp.Write(content)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Delete removes the file at rel.
func (f *FS) Delete(rel string) error {
	p, err := f.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return notFound(rel, err)
	}
	return nil
}
