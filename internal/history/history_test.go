package history

import (
	"testing"

	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

func docWithZoom(z float64) models.Document {
	d := models.NewDocument(geom.Size{Width: 100, Height: 100})
	d.Zoom = z
	return d
}

func TestCommitUndoRoundTrip(t *testing.T) {
	m := New(0)
	m.Commit("open", docWithZoom(1))
	m.Commit("zoom", docWithZoom(2))

	got, ok := m.Undo()
	if !ok {
		t.Fatal("Undo returned false")
	}
	if got.Zoom != 1 {
		t.Errorf("zoom = %v, want 1", got.Zoom)
	}
	got, ok = m.Redo()
	if !ok || got.Zoom != 2 {
		t.Errorf("redo zoom = %v, %v; want 2, true", got.Zoom, ok)
	}
}

func TestUndoRedoAtBounds(t *testing.T) {
	m := New(0)
	if _, ok := m.Undo(); ok {
		t.Error("undo on empty history succeeded")
	}
	m.Commit("open", docWithZoom(1))
	if _, ok := m.Undo(); ok {
		t.Error("undo past first entry succeeded")
	}
	if _, ok := m.Redo(); ok {
		t.Error("redo at newest entry succeeded")
	}
	if m.Index() != 0 {
		t.Errorf("index = %d, want 0", m.Index())
	}
}

func TestNCommitsUndosRedos(t *testing.T) {
	m := New(0)
	for i := 1; i <= 5; i++ {
		m.Commit("step", docWithZoom(float64(i)))
	}
	for i := 0; i < 3; i++ {
		m.Undo()
	}
	if m.Index() != 1 {
		t.Fatalf("index = %d, want 1", m.Index())
	}
	for i := 0; i < 3; i++ {
		m.Redo()
	}
	cur, _ := m.Current()
	if cur.State.Zoom != 5 {
		t.Errorf("zoom = %v, want 5", cur.State.Zoom)
	}
}

func TestCommitDropsRedoBranch(t *testing.T) {
	m := New(0)
	m.Commit("a", docWithZoom(1))
	m.Commit("b", docWithZoom(2))
	m.Commit("c", docWithZoom(3))
	m.Undo()
	m.Undo()
	m.Commit("d", docWithZoom(4))

	if m.Len() != 2 {
		t.Errorf("len = %d, want 2", m.Len())
	}
	if m.CanRedo() {
		t.Error("redo available after new commit")
	}
}

func TestLimitEvictsOldest(t *testing.T) {
	m := New(3)
	for i := 1; i <= 5; i++ {
		m.Commit("step", docWithZoom(float64(i)))
	}
	if m.Len() != 3 {
		t.Fatalf("len = %d, want 3", m.Len())
	}
	if m.Index() != 2 {
		t.Errorf("index = %d, want 2", m.Index())
	}
	first := m.Entries()[0]
	if first.State.Zoom != 3 {
		t.Errorf("oldest zoom = %v, want 3", first.State.Zoom)
	}

	m.SetLimit(1)
	if m.Len() != 1 || m.CanUndo() {
		t.Errorf("after SetLimit(1): len = %d, canUndo = %v", m.Len(), m.CanUndo())
	}
}

func TestShrinkKeepsCursorEntry(t *testing.T) {
	m := New(0)
	for i := 1; i <= 5; i++ {
		m.Commit("step", docWithZoom(float64(i)))
	}
	for range 3 {
		m.Undo()
	}

	m.SetLimit(2)
	if m.Len() != 2 || m.Index() != 0 {
		t.Fatalf("len, index = %d, %d, want 2, 0", m.Len(), m.Index())
	}
	cur, _ := m.Current()
	if cur.State.Zoom != 2 {
		t.Errorf("current zoom = %v, want 2", cur.State.Zoom)
	}
	got, ok := m.Redo()
	if !ok || got.Zoom != 3 {
		t.Errorf("redo zoom = %v, %v; want 3, true", got.Zoom, ok)
	}
	if m.CanRedo() {
		t.Error("CanRedo after last kept entry")
	}
}

func TestSnapshotsAreIsolated(t *testing.T) {
	m := New(0)
	d := docWithZoom(1)
	d.Filters = []models.AppliedFilter{{ID: "f", Name: "bw", Intensity: 1}}
	m.Commit("open", d)
	d.Filters[0].Intensity = 0.2

	cur, _ := m.Current()
	if cur.State.Filters[0].Intensity != 1 {
		t.Errorf("snapshot mutated through caller: %v", cur.State.Filters[0].Intensity)
	}

	entries := m.Entries()
	entries[0].State.Filters[0].Intensity = 0.5
	cur, _ = m.Current()
	if cur.State.Filters[0].Intensity != 1 {
		t.Error("Entries leaked internal state")
	}
}

func TestReset(t *testing.T) {
	m := New(0)
	m.Commit("a", docWithZoom(1))
	m.Reset()
	if m.Len() != 0 || m.Index() != -1 {
		t.Errorf("len, index = %d, %d", m.Len(), m.Index())
	}
}
