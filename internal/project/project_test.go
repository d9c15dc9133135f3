package project

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

type tick struct{ t time.Time }

func (c *tick) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func testDB(t *testing.T) *DB {
	t.Helper()
	clk := &tick{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	db, err := Open(filepath.Join(t.TempDir(), "projects.db"), WithClock(clk.now))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleDoc() models.Document {
	doc := models.NewDocument(geom.Size{Width: 1080, Height: 1080})
	doc.Layers = []models.Layer{{
		ID:        "img_1",
		Visible:   true,
		Opacity:   0.8,
		BlendMode: models.BlendMultiply,
		Transform: geom.Identity(),
		Data:      &models.ImageData{Path: "images/a.png", Width: 1080, Height: 1080},
	}}
	doc.ActiveLayerID = "img_1"
	doc.Filters = []models.AppliedFilter{{ID: "f1", Name: "warm", Intensity: 0.4}}
	doc.Adjustments.Brightness = 12
	return doc
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM projects`).Scan(&count); err != nil {
		t.Fatalf("projects table missing: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	p, err := db.Save(ctx, SaveInput{Name: "Beach", Document: sampleDoc()})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(p.ID, "proj_") || p.Checksum == "" || p.Size == 0 {
		t.Errorf("meta = %+v", p.Meta)
	}

	got, err := db.Load(ctx, p.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "Beach" || got.Checksum != p.Checksum {
		t.Errorf("loaded meta = %+v", got.Meta)
	}
	l := got.Document.Layers[0]
	if l.Opacity != 0.8 || l.BlendMode != models.BlendMultiply || got.Document.Filters[0].Name != "warm" {
		t.Errorf("document = %+v", got.Document)
	}
	if got.Document.Adjustments.Brightness != 12 || got.Document.ActiveLayerID != "img_1" {
		t.Errorf("document = %+v", got.Document)
	}

	if _, err := db.Load(ctx, "proj_missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestSaveRejectsInvalidDocument(t *testing.T) {
	db := testDB(t)
	doc := sampleDoc()
	doc.ActiveLayerID = "ghost"
	if _, err := db.Save(context.Background(), SaveInput{Name: "x", Document: doc}); !errors.Is(err, apperr.ErrInvalidProjectData) {
		t.Errorf("err = %v", err)
	}
}

func TestUpdateIfMatch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	p, _ := db.Save(ctx, SaveInput{Name: "v1", Document: sampleDoc()})

	doc := sampleDoc()
	doc.Zoom = 2
	up, err := db.Update(ctx, p.ID, SaveInput{Document: doc}, p.Checksum)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if up.Name != "v1" || up.Checksum == p.Checksum || !up.ModifiedAt.After(p.ModifiedAt) {
		t.Errorf("updated meta = %+v", up.Meta)
	}

	if _, err := db.Update(ctx, p.ID, SaveInput{Document: doc}, p.Checksum); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v, want ErrConflict", err)
	}
	if _, err := db.Update(ctx, "proj_missing", SaveInput{Document: doc}, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing update err = %v", err)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.Save(ctx, SaveInput{Name: "a", Document: sampleDoc()})
	b, _ := db.Save(ctx, SaveInput{Name: "b", Document: sampleDoc()})
	c, _ := db.Save(ctx, SaveInput{Name: "c", Document: sampleDoc()})
	if _, err := db.Update(ctx, a.ID, SaveInput{Document: sampleDoc()}, ""); err != nil {
		t.Fatal(err)
	}

	list, err := db.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{a.ID, c.ID, b.ID}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, m := range list {
		if m.ID != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, m.Name, want[i])
		}
	}
	top, _ := db.List(ctx, 2)
	if len(top) != 2 {
		t.Errorf("limited len = %d, want 2", len(top))
	}
}

func TestSearchByName(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_, _ = db.Save(ctx, SaveInput{Name: "Summer Beach", Document: sampleDoc()})
	_, _ = db.Save(ctx, SaveInput{Name: "Winter Forest", Document: sampleDoc()})

	res, err := db.Search(ctx, "beach", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Name != "Summer Beach" {
		t.Errorf("results = %+v", res)
	}
}

func TestDeleteAndStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	p, _ := db.Save(ctx, SaveInput{Name: "a", Document: sampleDoc()})
	q, _ := db.Save(ctx, SaveInput{Name: "b", Document: sampleDoc()})

	st, err := db.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Count != 2 || st.TotalBytes != int64(p.Size+q.Size) {
		t.Errorf("stats = %+v", st)
	}

	if err := db.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Delete(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
	st, _ = db.Stats(ctx)
	if st.Count != 1 {
		t.Errorf("count = %d, want 1", st.Count)
	}
}

func TestDuplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	p, _ := db.Save(ctx, SaveInput{Name: "Beach", Document: sampleDoc()})
	d, err := db.Duplicate(ctx, p.ID)
	if err != nil {
		t.Fatalf("Duplicate: %v", err)
	}
	if d.ID == p.ID || d.Name != "Beach Copy" || d.Checksum != p.Checksum {
		t.Errorf("duplicate = %+v", d.Meta)
	}
}

func TestExportImport(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	p, _ := db.Save(ctx, SaveInput{Name: "Beach", Document: sampleDoc()})

	data, err := db.ExportJSON(ctx, p.ID)
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	var x map[string]any
	if err := json.Unmarshal(data, &x); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if x["name"] != "Beach" || x["editorState"] == nil {
		t.Errorf("export = %v", x)
	}

	imp, err := db.Import(ctx, data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imp.ID == p.ID || imp.Name != "Beach (Imported)" {
		t.Errorf("imported = %+v", imp.Meta)
	}
	if len(imp.Document.Layers) != 1 || imp.Document.Layers[0].ID != "img_1" {
		t.Errorf("imported document = %+v", imp.Document)
	}
}

func TestImportRejectsMalformed(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cases := map[string]string{
		"not json":      `{`,
		"no state":      `{"name":"x"}`,
		"bad layer":     `{"name":"x","editorState":{"canvasSize":{"width":10,"height":10},"layers":[{"id":"a","type":"hologram","data":{}}]}}`,
		"empty canvas":  `{"name":"x","editorState":{"layers":[]}}`,
		"state not obj": `{"name":"x","editorState":"nope"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := db.Import(ctx, []byte(payload)); !errors.Is(err, apperr.ErrInvalidProjectData) {
				t.Errorf("err = %v, want ErrInvalidProjectData", err)
			}
		})
	}
	st, _ := db.Stats(ctx)
	if st.Count != 0 {
		t.Errorf("partial import stored %d projects", st.Count)
	}
}
