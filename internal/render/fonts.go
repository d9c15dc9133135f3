package render

import (
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

type faceKey struct {
	font *opentype.Font
	size float64
}

// Fonts holds parsed fonts. An emoji font is optional; without one stickers
// fall back to the text fonts and then to placeholders. Parsed fonts are
// shared, while faces are per render since font.Face is not safe for
// concurrent use.
type Fonts struct {
	regular, bold, italic, boldItalic *opentype.Font
	emoji                             *opentype.Font
}

var (
	defaultFontsOnce sync.Once
	defaultFonts     *Fonts
)

// DefaultFonts returns a shared set of the bundled Go fonts.
func DefaultFonts() *Fonts {
	defaultFontsOnce.Do(func() {
		f, err := NewFonts("")
		if err != nil {
			panic(fmt.Sprintf("render: bundled fonts: %v", err))
		}
		defaultFonts = f
	})
	return defaultFonts
}

// NewFonts parses the bundled Go fonts and, when emojiPath is set, an
// additional emoji font file.
func NewFonts(emojiPath string) (*Fonts, error) {
	fs := &Fonts{}
	for _, src := range []struct {
		dst  **opentype.Font
		data []byte
	}{
		{&fs.regular, goregular.TTF},
		{&fs.bold, gobold.TTF},
		{&fs.italic, goitalic.TTF},
		{&fs.boldItalic, gobolditalic.TTF},
	} {
		f, err := opentype.Parse(src.data)
		if err != nil {
			return nil, fmt.Errorf("parse bundled font: %w", err)
		}
		*src.dst = f
	}
	if emojiPath != "" {
		data, err := os.ReadFile(emojiPath)
		if err != nil {
			return nil, fmt.Errorf("read emoji font: %w", err)
		}
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse emoji font %s: %w", emojiPath, err)
		}
		fs.emoji = f
	}
	return fs, nil
}

func (fs *Fonts) textFont(bold, italic bool) *opentype.Font {
	switch {
	case bold && italic:
		return fs.boldItalic
	case bold:
		return fs.bold
	case italic:
		return fs.italic
	}
	return fs.regular
}

// faceCache builds faces for one render.
type faceCache map[faceKey]font.Face

// maxFaceSize bounds the pixel size glyphs are rasterized at.
const maxFaceSize = DefaultMaxSize

func (fc faceCache) face(f *opentype.Font, size float64) (font.Face, error) {
	size = math.Min(maxFaceSize, math.Max(1, math.Round(size*4)/4))
	key := faceKey{font: f, size: size}
	if face, ok := fc[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	fc[key] = face
	return face, nil
}

func (fc faceCache) close() {
	for _, face := range fc {
		_ = face.Close()
	}
}

// covers reports whether f has a glyph for every visible rune of s.
func covers(f *opentype.Font, s string) bool {
	if f == nil {
		return false
	}
	var buf sfnt.Buffer
	found := false
	for _, r := range s {
		if ignorable(r) {
			continue
		}
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return false
		}
		found = true
	}
	return found
}

// coversAny reports whether f has a glyph for at least one visible rune of s.
func coversAny(f *opentype.Font, s string) bool {
	var buf sfnt.Buffer
	for _, r := range s {
		if ignorable(r) {
			continue
		}
		if idx, err := f.GlyphIndex(&buf, r); err == nil && idx != 0 {
			return true
		}
	}
	return false
}

// ignorable covers whitespace, joiners and variation selectors.
func ignorable(r rune) bool {
	switch {
	case r == ' ', r == '\t', r == '\n', r == '\r':
		return true
	case r == 0x200D, r >= 0xFE00 && r <= 0xFE0F:
		return true
	}
	return false
}
