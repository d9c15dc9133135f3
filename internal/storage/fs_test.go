package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/lumina/internal/apperr"
)

func tempAssets(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempAssets(t)
	content := []byte("\x89PNG fake")
	if err := s.Write("photo.png", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("photo.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempAssets(t)
	if err := s.Write("a/b/c.jpg", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("a/b/c.jpg")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempAssets(t)
	_ = s.Write("del.png", []byte("bye"))
	if err := s.Delete("del.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("read deleted err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("del.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	s := tempAssets(t)
	_ = s.Write("images/a.png", []byte("a"))
	_ = s.Write("images/sub/b.jpg", []byte("bb"))
	_ = s.Write("exports/c.png", []byte("c"))

	items, err := s.List("images")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	for _, it := range items {
		if !strings.HasPrefix(it.Path, "images/") {
			t.Errorf("path = %q, want images/ prefix", it.Path)
		}
		if it.Checksum == "" || it.Size == 0 {
			t.Errorf("missing metadata: %+v", it)
		}
	}

	empty, err := s.List("missing")
	if err != nil || len(empty) != 0 {
		t.Errorf("missing dir = %v, %v; want empty", empty, err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempAssets(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.png",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("read %q err = %v, want ErrInvalidInput", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempAssets(t)
	_ = s.Write("atomic.png", []byte("original"))
	if err := s.Write("atomic.png", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.png")
	if string(got) != "updated" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".lumina-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/lumina-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "lumina-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestAssetsSaveExport(t *testing.T) {
	a := NewAssets(tempAssets(t))
	loc, err := a.Save(context.Background(), []byte("jpegdata"), "jpg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(loc, "exports/lumina_export_") || !strings.HasSuffix(loc, ".jpg") {
		t.Errorf("location = %q", loc)
	}
	got, err := a.Read(context.Background(), loc)
	if err != nil || string(got) != "jpegdata" {
		t.Errorf("Read = %q, %v", got, err)
	}
	list, err := a.List(context.Background(), ExportsDir)
	if err != nil || len(list) != 1 || list[0].Path != loc {
		t.Errorf("exports = %+v, %v", list, err)
	}
	if _, err := a.List(context.Background(), ".."); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("list outside asset dirs err = %v", err)
	}
}

func TestAssetsDelete(t *testing.T) {
	a := NewAssets(tempAssets(t))
	ctx := context.Background()
	loc, err := a.Save(ctx, []byte("png"), "png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, bad := range []string{"config.yaml", "exports/../lumina.db", "exports/sub/x.png", "exports/.hidden"} {
		if err := a.Delete(ctx, bad); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Delete(%q) err = %v, want ErrInvalidInput", bad, err)
		}
	}
	if err := a.Delete(ctx, loc); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := a.Delete(ctx, loc); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestAssetsSaveCancelled(t *testing.T) {
	a := NewAssets(tempAssets(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Save(ctx, []byte("x"), "png"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestAssetsPutImageNoOverwrite(t *testing.T) {
	a := NewAssets(tempAssets(t))
	ctx := context.Background()
	first, err := a.PutImage(ctx, "../My Photo.png", []byte("one"))
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if first != "images/My_Photo.png" {
		t.Errorf("first = %q", first)
	}
	second, err := a.PutImage(ctx, "My Photo.png", []byte("two"))
	if err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if second == first {
		t.Error("second upload overwrote the first")
	}
	if _, err := a.Read(ctx, "images/none.png"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing read err = %v", err)
	}
}
