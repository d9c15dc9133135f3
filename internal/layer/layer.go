// Package layer constructs layers and answers geometric questions about them.
package layer

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

// Text size estimate factors used until a text block is measured.
const (
	textWidthFactor  = 0.6
	textHeightFactor = 1.2
)

// Option configures a new layer.
type Option func(*models.Layer)

// WithTransform sets the initial transform.
func WithTransform(t geom.Transform) Option {
	return func(l *models.Layer) { l.Transform = t.Normalize() }
}

// WithOpacity sets the initial opacity, clamped to [0,1].
func WithOpacity(o float64) Option {
	return func(l *models.Layer) { l.Opacity = math.Max(0, math.Min(1, o)) }
}

// WithBlendMode sets the blend mode.
func WithBlendMode(b models.BlendMode) Option {
	return func(l *models.Layer) { l.BlendMode = b }
}

// Centered places the layer so its content box is centered on the canvas.
func Centered(canvas geom.Size) Option {
	return func(l *models.Layer) {
		s := l.Data.Size()
		l.Transform.X = (canvas.Width - s.Width) / 2
		l.Transform.Y = (canvas.Height - s.Height) / 2
	}
}

// NewID returns a fresh identifier with the given prefix.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// New wraps data in a layer with default envelope values.
func New(data models.LayerData, opts ...Option) (models.Layer, error) {
	if data == nil {
		return models.Layer{}, fmt.Errorf("layer: data is required")
	}
	l := models.Layer{
		ID:        NewID(string(data.Type())),
		Visible:   true,
		Opacity:   1,
		BlendMode: models.BlendNormal,
		Transform: geom.Identity(),
		Data:      data,
	}
	for _, opt := range opts {
		opt(&l)
	}
	if err := l.Validate(); err != nil {
		return models.Layer{}, err
	}
	return l, nil
}

// NewImage returns an image layer at the canvas origin.
func NewImage(path string, width, height float64, opts ...Option) (models.Layer, error) {
	return New(&models.ImageData{Path: path, Width: width, Height: height}, opts...)
}

// NewSticker returns a sticker layer centered on canvas.
func NewSticker(data models.StickerData, canvas geom.Size, opts ...Option) (models.Layer, error) {
	if data.SourceType == "" {
		data.SourceType = models.StickerSourceEmoji
	}
	return New(&data, append([]Option{Centered(canvas)}, opts...)...)
}

// NewText returns a text layer centered on canvas. Unmeasured blocks get an
// estimated size from the glyph count and font size.
func NewText(data models.TextData, canvas geom.Size, opts ...Option) (models.Layer, error) {
	if data.TextWidth <= 0 || data.TextHeight <= 0 {
		w, h := EstimateTextSize(data.Text, data.FontSize)
		if data.TextWidth <= 0 {
			data.TextWidth = w
		}
		if data.TextHeight <= 0 {
			data.TextHeight = h
		}
	}
	return New(&data, append([]Option{Centered(canvas)}, opts...)...)
}

// NewDrawing returns a drawing layer holding strokes.
func NewDrawing(strokes []models.Stroke, opts ...Option) (models.Layer, error) {
	if strokes == nil {
		strokes = []models.Stroke{}
	}
	return New(&models.DrawingData{Strokes: strokes}, opts...)
}

// EstimateTextSize approximates a single-line text block.
func EstimateTextSize(text string, fontSize float64) (w, h float64) {
	return float64(utf8.RuneCountInString(text)) * fontSize * textWidthFactor, fontSize * textHeightFactor
}

// Bounds returns the scaled size of l. Drawings have no bounds.
func Bounds(l *models.Layer) (geom.Size, bool) {
	if l.Data == nil || l.Type() == models.LayerDrawing {
		return geom.Size{}, false
	}
	s := l.Data.Size()
	scale := l.Transform.Normalize().Scale
	return geom.Size{Width: s.Width * scale, Height: s.Height * scale}, true
}

// HitTest reports whether canvas point p falls inside l's content box.
// Rotation is ignored and drawings never hit.
func HitTest(l *models.Layer, p geom.Point) bool {
	if l.Data == nil || l.Type() == models.LayerDrawing {
		return false
	}
	t := l.Transform.Normalize()
	x := (p.X - t.X) / t.Scale
	y := (p.Y - t.Y) / t.Scale
	s := l.Data.Size()
	return x >= 0 && x <= s.Width && y >= 0 && y <= s.Height
}

// TopmostAt returns the id of the top-most visible layer under p.
func TopmostAt(layers []models.Layer, p geom.Point) (string, bool) {
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i].Visible && HitTest(&layers[i], p) {
			return layers[i].ID, true
		}
	}
	return "", false
}
