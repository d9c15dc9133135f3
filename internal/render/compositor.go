// Package render flattens a document into a raster image. Preview and export
// both go through Compositor.Render so they produce identical pixels.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"golang.org/x/image/math/f64"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/imagecache"
	"github.com/starford/lumina/internal/models"
)

// DefaultMaxSize is the largest surface edge allowed when Options.MaxSize is unset.
const DefaultMaxSize = 4096

// Options control one render.
type Options struct {
	// Width and Height set the output size; zero uses the canvas size.
	Width, Height int
	// Background fills the surface before layers are drawn. Nil leaves it
	// transparent.
	Background color.Color
	// MaxSize bounds each output edge.
	MaxSize int
	// Progress is called after each visible layer is drawn.
	Progress func(done, total int)
}

// Placeholder records content that could not be drawn faithfully.
type Placeholder struct {
	LayerID string `json:"layerId,omitempty"`
	Reason  string `json:"reason"`
}

// Result is a flattened document.
type Result struct {
	Image        *image.RGBA
	Placeholders []Placeholder
}

// Compositor draws documents. Its caches are owned by the caller and shared
// between renders.
type Compositor struct {
	images  imagecache.Loader
	filters *filter.Engine
	fonts   *Fonts
	logger  *slog.Logger
}

// NewCompositor wires a compositor. fonts may be nil, in which case the
// bundled Go fonts are used.
func NewCompositor(images imagecache.Loader, filters *filter.Engine, fonts *Fonts, logger *slog.Logger) *Compositor {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{images: images, filters: filters, fonts: fonts, logger: logger}
}

// Filters returns the filter engine used for base image layers.
func (c *Compositor) Filters() *filter.Engine { return c.filters }

// frame is the per-render state handed to layer renderers.
type frame struct {
	ctx     context.Context
	doc     *models.Document
	global  f64.Aff3
	scale   float64
	baseID  string
	scratch *image.RGBA
	maxSize int
	faces   faceCache
	notes   []Placeholder
}

func (f *frame) note(layerID, format string, args ...any) {
	f.notes = append(f.notes, Placeholder{LayerID: layerID, Reason: fmt.Sprintf(format, args...)})
}

// Render flattens doc. It checks ctx between layers; content failures become
// placeholders while surface and cancellation failures abort.
func (c *Compositor) Render(ctx context.Context, doc models.Document, opts Options) (*Result, error) {
	if doc.CanvasSize.Empty() {
		return nil, fmt.Errorf("render: canvas %vx%v: %w", doc.CanvasSize.Width, doc.CanvasSize.Height, apperr.ErrInvalidInput)
	}
	w, h := opts.Width, opts.Height
	if w <= 0 && h <= 0 {
		w, h = int(doc.CanvasSize.Width+0.5), int(doc.CanvasSize.Height+0.5)
	} else if w <= 0 {
		w = int(float64(h)*doc.CanvasSize.Width/doc.CanvasSize.Height + 0.5)
	} else if h <= 0 {
		h = int(float64(w)*doc.CanvasSize.Height/doc.CanvasSize.Width + 0.5)
	}

	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	dst, err := allocate(w, h, maxSize)
	if err != nil {
		return nil, err
	}
	scratch, _ := allocate(w, h, maxSize)
	if opts.Background != nil {
		fill(dst, opts.Background)
	}

	sx := float64(w) / doc.CanvasSize.Width
	sy := float64(h) / doc.CanvasSize.Height
	f := &frame{
		ctx:     ctx,
		doc:     &doc,
		global:  geom.ScaleXY(sx, sy),
		scale:   (sx + sy) / 2,
		baseID:  baseImageLayer(doc.Layers),
		scratch: scratch,
		maxSize: maxSize,
		faces:   faceCache{},
	}
	defer f.faces.close()
	if f.baseID == "" && len(doc.Filters) > 0 {
		f.note("", "filters skipped: no visible image layer")
	}

	total := 0
	for i := range doc.Layers {
		if doc.Layers[i].Visible {
			total++
		}
	}

	done := 0
	for i := range doc.Layers {
		l := &doc.Layers[i]
		if !l.Visible {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		clear(scratch.Pix)
		c.drawLayer(f, l)

		mode := l.BlendMode
		if !mode.Valid() {
			f.note(l.ID, "unknown blend mode %q, using normal", mode)
			mode = models.BlendNormal
		}
		composite(dst, scratch, clampUnit(l.Opacity), mode)

		done++
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, n := range f.notes {
		c.logger.Debug("render placeholder", slog.String("layer_id", n.LayerID), slog.String("reason", n.Reason))
	}
	return &Result{Image: dst, Placeholders: f.notes}, nil
}

// drawLayer dispatches on the payload type and paints into f.scratch.
func (c *Compositor) drawLayer(f *frame, l *models.Layer) {
	m := geom.Mul(f.global, l.Transform.Matrix())
	switch d := l.Data.(type) {
	case *models.ImageData:
		c.drawImage(f, l, d, m)
	case *models.StickerData:
		c.drawSticker(f, l, d, m)
	case *models.TextData:
		c.drawText(f, l, d, m)
	case *models.DrawingData:
		drawStrokes(f.scratch, d, m)
	default:
		f.note(l.ID, "unsupported layer payload %T", l.Data)
	}
}

// baseImageLayer returns the id of the bottom-most visible image layer,
// which receives the document filters and adjustments.
func baseImageLayer(layers []models.Layer) string {
	for i := range layers {
		if layers[i].Visible && layers[i].Type() == models.LayerImage {
			return layers[i].ID
		}
	}
	return ""
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
