package export

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lumina/internal/apperr"
)

// Format is a requested output encoding.
type Format string

const (
	FormatJPG  Format = "jpg"
	FormatPNG  Format = "png"
	FormatHEIC Format = "heic"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// encodable reports the format actually written for f. HEIC and unknown
// formats fall back to JPEG.
func (f Format) encodable() Format {
	switch f {
	case FormatPNG, FormatTIFF, FormatBMP:
		return f
	}
	return FormatJPG
}

// Options describe one export request.
type Options struct {
	Format  Format `json:"format" yaml:"format"`
	Quality int    `json:"quality" yaml:"quality"`
	// Width and Height override the canvas size; a single one keeps the
	// aspect ratio.
	Width  int `json:"width,omitempty" yaml:"width"`
	Height int `json:"height,omitempty" yaml:"height"`
}

// Validate checks ranges. Format is not checked since unknown formats fall
// back to JPEG.
func (o Options) Validate() error {
	err := validation.ValidateStruct(&o,
		validation.Field(&o.Quality, validation.Min(0), validation.Max(100)),
		validation.Field(&o.Width, validation.Min(0)),
		validation.Field(&o.Height, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// FormatInfo describes a selectable export format.
type FormatInfo struct {
	ID        Format `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Encodes   Format `json:"encodes"`
}

// Formats lists the formats a client may request.
func Formats() []FormatInfo {
	return []FormatInfo{
		{ID: FormatJPG, Name: "JPEG", Extension: "jpg", Encodes: FormatJPG},
		{ID: FormatPNG, Name: "PNG", Extension: "png", Encodes: FormatPNG},
		{ID: FormatHEIC, Name: "HEIC", Extension: "heic", Encodes: FormatJPG},
		{ID: FormatTIFF, Name: "TIFF", Extension: "tiff", Encodes: FormatTIFF},
		{ID: FormatBMP, Name: "BMP", Extension: "bmp", Encodes: FormatBMP},
	}
}

// QualityPreset is a named quality level.
type QualityPreset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Quality int    `json:"quality"`
}

// QualityPresets lists the standard quality levels.
func QualityPresets() []QualityPreset {
	return []QualityPreset{
		{ID: "low", Name: "Low (70%)", Quality: 70},
		{ID: "medium", Name: "Medium (85%)", Quality: 85},
		{ID: "high", Name: "High (95%)", Quality: 95},
		{ID: "maximum", Name: "Maximum (100%)", Quality: 100},
	}
}
