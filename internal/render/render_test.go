package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

type mapLoader map[string]image.Image

func (m mapLoader) Load(_ context.Context, id string) (image.Image, error) {
	img, ok := m[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return img, nil
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func newLayer(id string, data models.LayerData, x, y float64) models.Layer {
	return models.Layer{
		ID:        id,
		Visible:   true,
		Opacity:   1,
		BlendMode: models.BlendNormal,
		Transform: geom.Transform{X: x, Y: y, Scale: 1},
		Data:      data,
	}
}

func newCompositor(images mapLoader) *Compositor {
	return NewCompositor(images, filter.NewEngine(), nil, nil)
}

func pixel(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -1 && d <= 1
}

func TestRenderBackgroundOnly(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 40, Height: 20})
	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("bounds = %v", b)
	}
	if got := pixel(res.Image, 10, 10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixel = %v, want white", got)
	}
}

func TestRenderOutputSizeKeepsAspect(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 100, Height: 200})
	res, err := c.Render(context.Background(), doc, Options{Width: 50})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 50 || b.Dy() != 100 {
		t.Errorf("bounds = %v, want 50x100", b)
	}
}

func TestRenderSurfaceTooLarge(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 5000, Height: 10})
	_, err := c.Render(context.Background(), doc, Options{})
	if !errors.Is(err, apperr.ErrSurfaceAllocation) {
		t.Errorf("err = %v, want ErrSurfaceAllocation", err)
	}
}

func TestRenderMissingImagePlaceholder(t *testing.T) {
	c := newCompositor(mapLoader{})
	doc := models.NewDocument(geom.Size{Width: 50, Height: 50})
	doc.Layers = []models.Layer{newLayer("img", &models.ImageData{Path: "images/none.png", Width: 20, Height: 20}, 10, 10)}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixel(res.Image, 20, 20); got != (color.RGBA{0x4B, 0x55, 0x63, 0xff}) {
		t.Errorf("inside = %v, want image placeholder", got)
	}
	if got := pixel(res.Image, 5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("outside = %v, want white", got)
	}
	if len(res.Placeholders) != 1 || res.Placeholders[0].LayerID != "img" {
		t.Errorf("placeholders = %+v", res.Placeholders)
	}
}

func TestRenderStickerPlaceholder(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 60, Height: 60})
	doc.Layers = []models.Layer{newLayer("st", &models.StickerData{AssetID: "custom", Width: 40, Height: 40}, 0, 0)}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixel(res.Image, 5, 30); got != (color.RGBA{0xEC, 0x48, 0x99, 0xff}) {
		t.Errorf("body = %v, want sticker placeholder", got)
	}
	if got := pixel(res.Image, 30, 10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("marker = %v, want white", got)
	}
	if len(res.Placeholders) != 1 {
		t.Errorf("placeholders = %d, want 1", len(res.Placeholders))
	}
}

func TestRenderFiltersOnlyBaseImage(t *testing.T) {
	src := color.NRGBA{R: 200, G: 100, B: 50, A: 255}
	c := newCompositor(mapLoader{"a.png": uniform(10, 10, src), "b.png": uniform(10, 10, src)})
	doc := models.NewDocument(geom.Size{Width: 40, Height: 20})
	doc.Layers = []models.Layer{
		newLayer("base", &models.ImageData{Path: "a.png", Width: 20, Height: 20}, 0, 0),
		newLayer("top", &models.ImageData{Path: "b.png", Width: 20, Height: 20}, 20, 0),
	}
	doc.Filters = []models.AppliedFilter{{ID: "f1", Name: "bw", Intensity: 1}}

	res, err := c.Render(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	base := pixel(res.Image, 10, 10)
	if !near(base.R, 124) || !near(base.G, 124) || !near(base.B, 124) {
		t.Errorf("base = %v, want gray 124", base)
	}
	top := pixel(res.Image, 30, 10)
	if !near(top.R, 200) || !near(top.G, 100) || !near(top.B, 50) {
		t.Errorf("top = %v, want unfiltered", top)
	}
}

func TestRenderUnknownFilterNoted(t *testing.T) {
	c := newCompositor(mapLoader{"a.png": uniform(4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})})
	doc := models.NewDocument(geom.Size{Width: 4, Height: 4})
	doc.Layers = []models.Layer{newLayer("base", &models.ImageData{Path: "a.png", Width: 4, Height: 4}, 0, 0)}
	doc.Filters = []models.AppliedFilter{{ID: "f1", Name: "nope", Intensity: 1}}

	res, err := c.Render(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixel(res.Image, 2, 2); !near(got.R, 10) || !near(got.B, 30) {
		t.Errorf("pixel = %v, want passthrough", got)
	}
	if len(res.Placeholders) != 1 {
		t.Errorf("placeholders = %+v, want one note", res.Placeholders)
	}
}

func TestRenderMultiplyBlend(t *testing.T) {
	c := newCompositor(mapLoader{
		"a.png": uniform(2, 2, color.NRGBA{R: 200, G: 200, B: 200, A: 255}),
		"b.png": uniform(2, 2, color.NRGBA{R: 100, G: 100, B: 100, A: 255}),
	})
	doc := models.NewDocument(geom.Size{Width: 10, Height: 10})
	top := newLayer("top", &models.ImageData{Path: "b.png", Width: 10, Height: 10}, 0, 0)
	top.BlendMode = models.BlendMultiply
	doc.Layers = []models.Layer{
		newLayer("base", &models.ImageData{Path: "a.png", Width: 10, Height: 10}, 0, 0),
		top,
	}

	res, err := c.Render(context.Background(), doc, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// 200*100/255
	if got := pixel(res.Image, 5, 5); !near(got.R, 78) {
		t.Errorf("multiply = %v, want 78", got)
	}
}

func TestRenderLayerOpacity(t *testing.T) {
	c := newCompositor(mapLoader{"a.png": uniform(2, 2, color.NRGBA{A: 255})})
	doc := models.NewDocument(geom.Size{Width: 10, Height: 10})
	l := newLayer("a", &models.ImageData{Path: "a.png", Width: 10, Height: 10}, 0, 0)
	l.Opacity = 0.5
	doc.Layers = []models.Layer{l}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixel(res.Image, 5, 5); got.R < 126 || got.R > 129 {
		t.Errorf("half black over white = %v", got)
	}
}

func TestRenderCancelled(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 10, Height: 10})
	doc.Layers = []models.Layer{newLayer("d", &models.DrawingData{}, 0, 0)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Render(ctx, doc, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRenderProgressSkipsHidden(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 10, Height: 10})
	hidden := newLayer("h", &models.DrawingData{}, 0, 0)
	hidden.Visible = false
	doc.Layers = []models.Layer{newLayer("a", &models.DrawingData{}, 0, 0), hidden, newLayer("b", &models.DrawingData{}, 0, 0)}

	var calls [][2]int
	_, err := c.Render(context.Background(), doc, Options{Progress: func(done, total int) {
		calls = append(calls, [2]int{done, total})
	}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(calls) != 2 || calls[0] != [2]int{1, 2} || calls[1] != [2]int{2, 2} {
		t.Errorf("progress = %v", calls)
	}
}

func TestRenderStrokesAndEraser(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 40, Height: 40})
	strokes := []models.Stroke{
		{ID: "s1", BrushType: models.BrushPen, Color: "#FF0000", Size: 6, Opacity: 100,
			Points: []models.StrokePoint{{X: 2, Y: 20}, {X: 38, Y: 20}}},
		{ID: "s2", BrushType: models.BrushEraser, Size: 10, Opacity: 100,
			Points: []models.StrokePoint{{X: 30, Y: 10}, {X: 30, Y: 30}}},
	}
	doc.Layers = []models.Layer{newLayer("d", &models.DrawingData{Strokes: strokes}, 0, 0)}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixel(res.Image, 10, 20); got.R != 255 || got.G > 10 {
		t.Errorf("stroke = %v, want red", got)
	}
	if got := pixel(res.Image, 30, 20); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("erased = %v, want white", got)
	}
	if got := pixel(res.Image, 10, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("off stroke = %v, want white", got)
	}
}

func TestRenderTextDrawsGlyphs(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 100, Height: 60})
	doc.Layers = []models.Layer{newLayer("t", &models.TextData{
		Text: "Hi", FontSize: 40, Color: "#000000", TextWidth: 100, TextHeight: 60,
	}, 0, 0)}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	dark := 0
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			if pixel(res.Image, x, y).R < 64 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("no glyph pixels rendered")
	}
	if len(res.Placeholders) != 0 {
		t.Errorf("placeholders = %+v", res.Placeholders)
	}
}

func TestRenderTextSolidBackground(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 100, Height: 60})
	doc.Layers = []models.Layer{newLayer("t", &models.TextData{
		Text: "", FontSize: 20, TextWidth: 80, TextHeight: 40,
		Background: &models.TextBackground{Type: models.BackgroundSolid, Color: "#00FF00"},
	}, 10, 10)}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := pixel(res.Image, 50, 30); got.G < 250 || got.R > 5 {
		t.Errorf("background = %v, want green", got)
	}
}

func TestRenderOversizedPayloadStaysBounded(t *testing.T) {
	c := newCompositor(nil)
	doc := models.NewDocument(geom.Size{Width: 200, Height: 200})
	doc.Layers = []models.Layer{
		newLayer("t", &models.TextData{
			Text: "Hi", FontSize: 1e9, Color: "#000000", TextWidth: 1e9, TextHeight: 1e9,
			Shadow: &models.TextShadow{Color: "#000000", Blur: 1e9, Opacity: 1},
		}, 0, 0),
		newLayer("s", &models.StickerData{AssetID: "big", Emoji: "A", Width: 1e9, Height: 1e9}, 0, 0),
	}

	res, err := c.Render(context.Background(), doc, Options{Background: color.White, MaxSize: 256})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if b := res.Image.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("bounds = %v, want 200x200", b)
	}
}
