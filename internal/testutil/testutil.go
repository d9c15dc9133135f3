// Package testutil provides shared test helpers for setting up asset roots,
// project databases and a wired editor service.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"testing"

	"github.com/starford/lumina/internal/editorservice"
	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/imagecache"
	"github.com/starford/lumina/internal/project"
	"github.com/starford/lumina/internal/render"
	"github.com/starford/lumina/internal/storage"
)

// TestDB creates a temporary project database that is automatically cleaned up.
func TestDB(t *testing.T) *project.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "lumina-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := project.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAssets creates a temporary asset root.
func TestAssets(t *testing.T) (string, *storage.Assets) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, storage.NewAssets(fs)
}

// TestService wires an editor service over temporary storage.
func TestService(t *testing.T, opts ...editorservice.Option) (*editorservice.Service, *storage.Assets) {
	t.Helper()
	_, assets := TestAssets(t)
	filters := filter.NewEngine()
	comp := render.NewCompositor(imagecache.New(imagecache.NewStoreLoader(assets)), filters, nil, nil)
	pipe := export.New(comp, assets, export.WithTempDir(t.TempDir()))
	opts = append([]editorservice.Option{editorservice.WithFilters(filters)}, opts...)
	return editorservice.New(TestDB(t), assets, comp, pipe, opts...), assets
}

// PNG encodes a solid w×h image.
func PNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
