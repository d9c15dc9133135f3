package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
	"github.com/starford/lumina/internal/render"
)

type stubLoader struct{ img image.Image }

func (s stubLoader) Load(context.Context, string) (image.Image, error) { return s.img, nil }

type memStore struct {
	data   []byte
	format string
	err    error
}

func (m *memStore) Save(_ context.Context, data []byte, format string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.data, m.format = data, format
	return "exports/test." + format, nil
}

func photo(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{R: 30, G: 120, B: 200, A: 255}), image.Point{}, draw.Src)
	return img
}

func squareDoc() models.Document {
	doc := models.NewDocument(geom.Size{Width: 1080, Height: 1080})
	doc.Layers = []models.Layer{{
		ID:        "img_1",
		Visible:   true,
		Opacity:   1,
		BlendMode: models.BlendNormal,
		Transform: geom.Identity(),
		Data:      &models.ImageData{Path: "images/p.png", Width: 1080, Height: 1080},
	}}
	return doc
}

func newPipeline(t *testing.T, store *memStore) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	c := render.NewCompositor(stubLoader{img: photo(64, 64)}, filter.NewEngine(), nil, nil)
	return New(c, store, WithTempDir(dir)), dir
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %d", len(entries))
	}
}

func TestExportPNGPhasesInOrder(t *testing.T) {
	store := &memStore{}
	p, dir := newPipeline(t, store)

	var events []Progress
	res, err := p.Export(context.Background(), squareDoc(), Options{Format: FormatPNG, Quality: 100}, func(pr Progress) {
		events = append(events, pr)
	})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Width != 1080 || res.Height != 1080 || res.Location == "" {
		t.Errorf("result = %+v", res)
	}
	img, err := png.Decode(bytes.NewReader(store.data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1080 || b.Dy() != 1080 {
		t.Errorf("bounds = %v", b)
	}

	order := []Phase{PhaseRendering, PhaseEncoding, PhaseSaving}
	phase := 0
	lastOverall := -1.0
	completed := map[Phase]bool{}
	for _, e := range events {
		for phase < len(order) && order[phase] != e.Phase {
			if !completed[order[phase]] {
				t.Fatalf("phase %s left before reaching 1.0", order[phase])
			}
			phase++
		}
		if phase == len(order) {
			t.Fatalf("event out of order: %+v", e)
		}
		if e.Overall < lastOverall {
			t.Errorf("overall went backwards: %v after %v", e.Overall, lastOverall)
		}
		lastOverall = e.Overall
		if e.Progress == 1 {
			completed[e.Phase] = true
		}
	}
	for _, ph := range order {
		if !completed[ph] {
			t.Errorf("phase %s never reached 1.0", ph)
		}
	}
	if lastOverall != 1 {
		t.Errorf("final overall = %v, want 1", lastOverall)
	}
	assertNoTempFiles(t, dir)
}

func TestExportHEICFallsBackToJPEG(t *testing.T) {
	store := &memStore{}
	p, _ := newPipeline(t, store)
	res, err := p.Export(context.Background(), squareDoc(), Options{Format: FormatHEIC, Quality: 85, Width: 200}, nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Format != FormatJPG || res.Requested != FormatHEIC || store.format != "jpg" {
		t.Errorf("formats = %s/%s/%s", res.Requested, res.Format, store.format)
	}
	img, err := jpeg.Decode(bytes.NewReader(store.data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 200 {
		t.Errorf("bounds = %v, want 200x200", b)
	}
}

func TestExportOtherFormats(t *testing.T) {
	decoders := map[Format]func([]byte) (image.Image, error){
		FormatTIFF: func(b []byte) (image.Image, error) { return tiff.Decode(bytes.NewReader(b)) },
		FormatBMP:  func(b []byte) (image.Image, error) { return bmp.Decode(bytes.NewReader(b)) },
	}
	for f, dec := range decoders {
		t.Run(string(f), func(t *testing.T) {
			store := &memStore{}
			p, _ := newPipeline(t, store)
			if _, err := p.Export(context.Background(), squareDoc(), Options{Format: f, Width: 32}, nil); err != nil {
				t.Fatalf("Export: %v", err)
			}
			if _, err := dec(store.data); err != nil {
				t.Errorf("decode %s: %v", f, err)
			}
		})
	}
}

func TestExportSaveFailureIsTransient(t *testing.T) {
	store := &memStore{err: errors.New("disk full")}
	p, dir := newPipeline(t, store)
	_, err := p.Export(context.Background(), squareDoc(), Options{Format: FormatPNG, Width: 100}, nil)

	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if e.Phase != PhaseSaving || e.Kind != KindTransient {
		t.Errorf("phase, kind = %s, %s", e.Phase, e.Kind)
	}
	if !errors.Is(err, apperr.ErrPersist) {
		t.Error("error does not wrap ErrPersist")
	}
	if e.UserMessage() != "Export failed while saving. Please try again." {
		t.Errorf("message = %q", e.UserMessage())
	}
	assertNoTempFiles(t, dir)
}

func TestExportCancelled(t *testing.T) {
	store := &memStore{}
	p, dir := newPipeline(t, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Export(ctx, squareDoc(), Options{Format: FormatPNG}, nil)

	var e *Error
	if !errors.As(err, &e) || e.Kind != KindCancelled {
		t.Fatalf("err = %v, want cancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("error does not wrap context.Canceled")
	}
	if store.data != nil {
		t.Error("cancelled export was saved")
	}
	assertNoTempFiles(t, dir)
}

func TestExportConfigurationErrors(t *testing.T) {
	p, _ := newPipeline(t, &memStore{})
	cases := map[string]Options{
		"quality":  {Format: FormatJPG, Quality: 150},
		"negative": {Format: FormatJPG, Width: -1},
		"too big":  {Format: FormatJPG, Width: 5000},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := p.Export(context.Background(), squareDoc(), opts, nil)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("err = %v", err)
			}
			if e.Kind != KindConfiguration || e.Phase != PhaseRendering {
				t.Errorf("kind, phase = %s, %s", e.Kind, e.Phase)
			}
			if e.UserMessage() != "This export format or size is not supported." {
				t.Errorf("message = %q", e.UserMessage())
			}
		})
	}
}

func TestTaskEventsAndWait(t *testing.T) {
	store := &memStore{}
	p, _ := newPipeline(t, store)
	task := p.Start(context.Background(), squareDoc(), Options{Format: FormatPNG, Width: 108})

	var last Progress
	n := 0
	for ev := range task.Events() {
		last = ev
		n++
	}
	res, err := task.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n == 0 || last.Phase != PhaseSaving || last.Overall != 1 {
		t.Errorf("events = %d, last = %+v", n, last)
	}
	if res.Width != 108 {
		t.Errorf("width = %d", res.Width)
	}
	select {
	case <-task.Done():
	default:
		t.Error("Done not closed after Wait")
	}
}

type panicRenderer struct{}

func (panicRenderer) Render(context.Context, models.Document, render.Options) (*render.Result, error) {
	panic("boom")
}

func TestTaskRecoversRendererPanic(t *testing.T) {
	p := New(panicRenderer{}, &memStore{}, WithTempDir(t.TempDir()))
	task := p.Start(context.Background(), squareDoc(), Options{Format: FormatPNG})
	for range task.Events() {
	}
	_, err := task.Wait()
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindInternal || e.Phase != PhaseRendering {
		t.Fatalf("err = %v, want internal rendering error", err)
	}
}

func TestFormatsAndPresets(t *testing.T) {
	if len(QualityPresets()) != 4 || QualityPresets()[1].Quality != 85 {
		t.Errorf("presets = %+v", QualityPresets())
	}
	for _, f := range Formats() {
		if f.ID.encodable() != f.Encodes {
			t.Errorf("%s encodes %s, listed %s", f.ID, f.ID.encodable(), f.Encodes)
		}
	}
	if Format("webp").encodable() != FormatJPG {
		t.Error("unknown format did not fall back to jpg")
	}
}
