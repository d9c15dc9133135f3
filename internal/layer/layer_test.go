package layer

import (
	"strings"
	"testing"

	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

var canvas = geom.Size{Width: 1080, Height: 1080}

func TestNewDefaults(t *testing.T) {
	l, err := NewImage("images/a.png", 200, 100)
	if err != nil {
		t.Fatalf("NewImage: %v", err)
	}
	if !strings.HasPrefix(l.ID, "image_") {
		t.Errorf("id = %q, want image_ prefix", l.ID)
	}
	if !l.Visible || l.Locked || l.Opacity != 1 || l.BlendMode != models.BlendNormal {
		t.Errorf("unexpected envelope: %+v", l)
	}
	if l.Transform != geom.Identity() {
		t.Errorf("transform = %+v, want identity", l.Transform)
	}
}

func TestNewIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewID("sticker")
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestStickerCentered(t *testing.T) {
	l, err := NewSticker(models.StickerData{AssetID: "emoji_star", Emoji: "⭐", Width: 60, Height: 60}, canvas)
	if err != nil {
		t.Fatalf("NewSticker: %v", err)
	}
	if l.Transform.X != 510 || l.Transform.Y != 510 {
		t.Errorf("position = (%v,%v), want (510,510)", l.Transform.X, l.Transform.Y)
	}
	if l.Transform.Scale != 1 || l.Transform.Rotation != 0 {
		t.Errorf("transform = %+v", l.Transform)
	}
	s, ok := Bounds(&l)
	if !ok || s.Width != 60 || s.Height != 60 {
		t.Errorf("bounds = %+v, %v", s, ok)
	}
}

func TestTextEstimate(t *testing.T) {
	l, err := NewText(models.TextData{Text: "Hello", FontSize: 20}, canvas)
	if err != nil {
		t.Fatalf("NewText: %v", err)
	}
	td := l.Data.(*models.TextData)
	if td.TextWidth != 60 || td.TextHeight != 24 {
		t.Errorf("size = %vx%v, want 60x24", td.TextWidth, td.TextHeight)
	}
	if l.Transform.X != (1080-60)/2.0 {
		t.Errorf("x = %v", l.Transform.X)
	}
}

func TestBoundsScaled(t *testing.T) {
	l, _ := NewImage("a.png", 100, 50, WithTransform(geom.Transform{Scale: 2}))
	s, ok := Bounds(&l)
	if !ok || s.Width != 200 || s.Height != 100 {
		t.Errorf("bounds = %+v", s)
	}
	d, _ := NewDrawing(nil)
	if _, ok := Bounds(&d); ok {
		t.Error("drawing should have no bounds")
	}
}

func TestHitTest(t *testing.T) {
	l, _ := NewImage("a.png", 100, 50, WithTransform(geom.Transform{X: 10, Y: 10, Scale: 2}))
	if !HitTest(&l, geom.Point{X: 150, Y: 90}) {
		t.Error("point inside scaled box should hit")
	}
	if HitTest(&l, geom.Point{X: 215, Y: 50}) {
		t.Error("point right of box should miss")
	}
	d, _ := NewDrawing(nil)
	if HitTest(&d, geom.Point{}) {
		t.Error("drawing should never hit")
	}
}

func TestTopmostAt(t *testing.T) {
	a, _ := NewImage("a.png", 100, 100)
	b, _ := NewImage("b.png", 50, 50)
	hidden, _ := NewImage("c.png", 100, 100)
	hidden.Visible = false
	id, ok := TopmostAt([]models.Layer{a, b, hidden}, geom.Point{X: 10, Y: 10})
	if !ok || id != b.ID {
		t.Errorf("topmost = %q, want %q", id, b.ID)
	}
}
