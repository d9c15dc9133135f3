// Package models defines the editor document: layers, filters, adjustments
// and history snapshots.
package models

import "github.com/starford/lumina/internal/geom"

// LayerType identifies the payload carried by a layer.
type LayerType string

const (
	LayerImage   LayerType = "image"
	LayerSticker LayerType = "sticker"
	LayerText    LayerType = "text"
	LayerDrawing LayerType = "drawing"
)

// BlendMode controls how a layer combines with what is painted below it.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
	BlendOverlay  BlendMode = "overlay"
	BlendDarken   BlendMode = "darken"
	BlendLighten  BlendMode = "lighten"
)

// BlendModes lists every supported blend mode.
var BlendModes = []BlendMode{BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, BlendDarken, BlendLighten}

// Valid reports whether b is a known blend mode.
func (b BlendMode) Valid() bool {
	for _, m := range BlendModes {
		if m == b {
			return true
		}
	}
	return false
}

// LayerData is the closed set of layer payloads. Only types in this package
// implement it.
type LayerData interface {
	Type() LayerType
	// Size is the unscaled content size; drawings report zero.
	Size() geom.Size
	clone() LayerData
	sealed()
}

// Layer is one entry of the document stack. Index 0 paints first.
type Layer struct {
	ID        string
	Visible   bool
	Locked    bool
	Opacity   float64
	BlendMode BlendMode
	Transform geom.Transform
	Data      LayerData
}

// Type returns the payload type, or "" when the layer carries no data.
func (l *Layer) Type() LayerType {
	if l.Data == nil {
		return ""
	}
	return l.Data.Type()
}

// Clone returns a deep copy of l.
func (l Layer) Clone() Layer {
	if l.Data != nil {
		l.Data = l.Data.clone()
	}
	return l
}

// ImageData is a bitmap referenced by path. Width and Height are the
// unscaled content bounds.
type ImageData struct {
	Path   string  `json:"path"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (d *ImageData) Type() LayerType  { return LayerImage }
func (d *ImageData) Size() geom.Size  { return geom.Size{Width: d.Width, Height: d.Height} }
func (d *ImageData) clone() LayerData { c := *d; return &c }
func (d *ImageData) sealed()          {}

// StickerData is a catalog asset rendered from an emoji glyph.
type StickerData struct {
	AssetID    string  `json:"assetId"`
	SourceType string  `json:"sourceType"`
	Emoji      string  `json:"emoji,omitempty"`
	Tint       string  `json:"tint,omitempty"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// StickerSourceEmoji is the only sticker source type.
const StickerSourceEmoji = "emoji"

func (d *StickerData) Type() LayerType  { return LayerSticker }
func (d *StickerData) Size() geom.Size  { return geom.Size{Width: d.Width, Height: d.Height} }
func (d *StickerData) clone() LayerData { c := *d; return &c }
func (d *StickerData) sealed()          {}

// TextStyle toggles font decorations.
type TextStyle struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Underline     bool `json:"underline"`
	Strikethrough bool `json:"strikethrough"`
}

// Text background kinds.
const (
	BackgroundNone     = "none"
	BackgroundSolid    = "solid"
	BackgroundGradient = "gradient"
)

type TextBackground struct {
	Type     string   `json:"type"`
	Color    string   `json:"color,omitempty"`
	Gradient []string `json:"gradient,omitempty"`
}

type TextShadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

type TextOutline struct {
	Width float64 `json:"width"`
	Color string  `json:"color"`
}

// TextData is a styled text block. TextWidth and TextHeight hold the
// measured (or estimated) block size.
type TextData struct {
	Text         string          `json:"text"`
	Font         string          `json:"font"`
	FontSize     float64         `json:"fontSize"`
	Color        string          `json:"color"`
	Style        TextStyle       `json:"style"`
	Background   *TextBackground `json:"background,omitempty"`
	Shadow       *TextShadow     `json:"shadow,omitempty"`
	Outline      *TextOutline    `json:"outline,omitempty"`
	Padding      float64         `json:"padding,omitempty"`
	BorderRadius float64         `json:"borderRadius,omitempty"`
	TextWidth    float64         `json:"textWidth,omitempty"`
	TextHeight   float64         `json:"textHeight,omitempty"`
}

// Fallback text block size used when nothing was measured.
const (
	DefaultTextWidth  = 120
	DefaultTextHeight = 40
)

func (d *TextData) Type() LayerType { return LayerText }

func (d *TextData) Size() geom.Size {
	s := geom.Size{Width: d.TextWidth, Height: d.TextHeight}
	if s.Width <= 0 {
		s.Width = DefaultTextWidth
	}
	if s.Height <= 0 {
		s.Height = DefaultTextHeight
	}
	return s
}

func (d *TextData) clone() LayerData {
	c := *d
	if d.Background != nil {
		bg := *d.Background
		bg.Gradient = append([]string(nil), d.Background.Gradient...)
		c.Background = &bg
	}
	if d.Shadow != nil {
		sh := *d.Shadow
		c.Shadow = &sh
	}
	if d.Outline != nil {
		o := *d.Outline
		c.Outline = &o
	}
	return &c
}

func (d *TextData) sealed() {}

// BrushType selects how a stroke is painted.
type BrushType string

const (
	BrushPen    BrushType = "pen"
	BrushMarker BrushType = "marker"
	BrushPencil BrushType = "pencil"
	BrushEraser BrushType = "eraser"
)

type StrokePoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"pressure,omitempty"`
}

// Stroke is a polyline in layer-local coordinates. Opacity is 0..100.
type Stroke struct {
	ID        string        `json:"id"`
	Points    []StrokePoint `json:"points"`
	BrushType BrushType     `json:"brushType"`
	Color     string        `json:"color"`
	Size      float64       `json:"size"`
	Opacity   float64       `json:"opacity"`
	Timestamp int64         `json:"timestamp"`
}

// DrawingData holds freehand strokes. It has no intrinsic bounds.
type DrawingData struct {
	Strokes []Stroke `json:"strokes"`
}

func (d *DrawingData) Type() LayerType { return LayerDrawing }
func (d *DrawingData) Size() geom.Size { return geom.Size{} }

func (d *DrawingData) clone() LayerData {
	c := &DrawingData{Strokes: make([]Stroke, len(d.Strokes))}
	for i, s := range d.Strokes {
		s.Points = append([]StrokePoint(nil), s.Points...)
		c.Strokes[i] = s
	}
	return c
}

func (d *DrawingData) sealed() {}
