package render

import (
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

const (
	defaultFontSize = 24
	lineSpacing     = 1.2
	stickerGlyph    = 0.85
)

// supersample returns the local-to-output pixel ratio for l, so glyph
// surfaces are rasterized at output resolution.
func supersample(f *frame, l *models.Layer) float64 {
	ss := f.scale * l.Transform.Normalize().Scale
	return math.Max(0.25, math.Min(ss, 8))
}

// glyphSurface allocates the local surface for a layer of size. The
// supersample ratio is lowered so that neither edge exceeds the render's
// surface limit; the returned ratio is the one to rasterize at.
func glyphSurface(f *frame, l *models.Layer, size geom.Size) (*image.RGBA, float64, error) {
	ss := supersample(f, l)
	if edge := math.Max(size.Width, size.Height) * ss; edge > float64(f.maxSize) {
		ss = float64(f.maxSize) / math.Max(size.Width, size.Height)
	}
	w := min(f.maxSize, max(1, int(math.Ceil(size.Width*ss))))
	h := min(f.maxSize, max(1, int(math.Ceil(size.Height*ss))))
	surf, err := allocate(w, h, f.maxSize)
	return surf, ss, err
}

// place draws a supersampled local surface through m.
func place(dst draw.Image, m f64.Aff3, src *image.RGBA, ss float64) {
	s2d := geom.Mul(m, geom.ScaleXY(1/ss, 1/ss))
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
}

func stripIgnorable(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0x200D || (r >= 0xFE00 && r <= 0xFE0F) {
			return -1
		}
		return r
	}, s)
}

func (c *Compositor) drawSticker(f *frame, l *models.Layer, d *models.StickerData, m f64.Aff3) {
	size := d.Size()
	if size.Empty() {
		f.note(l.ID, "sticker %q has no size", d.AssetID)
		return
	}

	fnt := c.fonts.emoji
	if !covers(fnt, d.Emoji) {
		fnt = c.fonts.regular
		if !covers(fnt, d.Emoji) {
			drawPlaceholder(f.scratch, m, size, models.LayerSticker)
			f.note(l.ID, "sticker %q glyph unavailable", d.AssetID)
			return
		}
	}

	surf, ss, err := glyphSurface(f, l, size)
	if err != nil {
		drawPlaceholder(f.scratch, m, size, models.LayerSticker)
		f.note(l.ID, "sticker surface: %v", err)
		return
	}
	face, err := f.faces.face(fnt, math.Min(size.Width, size.Height)*stickerGlyph*ss)
	if err != nil {
		drawPlaceholder(f.scratch, m, size, models.LayerSticker)
		f.note(l.ID, "sticker face: %v", err)
		return
	}

	glyph := stripIgnorable(d.Emoji)
	col := models.ColorOr(d.Tint, color.NRGBA{A: 0xff})
	dr := &font.Drawer{Dst: surf, Src: image.NewUniform(col), Face: face}
	met := face.Metrics()
	b := surf.Bounds()
	adv := dr.MeasureString(glyph)
	dr.Dot = fixed.Point26_6{
		X: (fixed.I(b.Dx()) - adv) / 2,
		Y: (fixed.I(b.Dy())-(met.Ascent+met.Descent))/2 + met.Ascent,
	}
	dr.DrawString(glyph)
	place(f.scratch, m, surf, ss)
}

func (c *Compositor) drawText(f *frame, l *models.Layer, d *models.TextData, m f64.Aff3) {
	size := d.Size()
	fnt := c.fonts.textFont(d.Style.Bold, d.Style.Italic)
	if strings.TrimSpace(d.Text) != "" && !coversAny(fnt, d.Text) {
		drawPlaceholder(f.scratch, m, size, models.LayerText)
		f.note(l.ID, "text has no renderable glyphs")
		return
	}

	surf, ss, err := glyphSurface(f, l, size)
	if err != nil {
		drawPlaceholder(f.scratch, m, size, models.LayerText)
		f.note(l.ID, "text surface: %v", err)
		return
	}
	b := surf.Bounds()

	if bg := d.Background; bg != nil {
		radius := d.BorderRadius * ss
		switch bg.Type {
		case models.BackgroundSolid:
			c0 := models.ColorOr(bg.Color, color.NRGBA{})
			fillRounded(surf, radius, func(float64) color.NRGBA { return c0 })
		case models.BackgroundGradient:
			if len(bg.Gradient) > 0 {
				top := models.ColorOr(bg.Gradient[0], color.NRGBA{})
				bottom := models.ColorOr(bg.Gradient[len(bg.Gradient)-1], top)
				fillRounded(surf, radius, func(t float64) color.NRGBA { return lerpColor(top, bottom, t) })
			}
		}
	}

	if strings.TrimSpace(d.Text) == "" {
		place(f.scratch, m, surf, ss)
		return
	}

	fontSize := d.FontSize
	if fontSize <= 0 {
		fontSize = defaultFontSize
	}
	face, err := f.faces.face(fnt, fontSize*ss)
	if err != nil {
		drawPlaceholder(f.scratch, m, size, models.LayerText)
		f.note(l.ID, "text face: %v", err)
		return
	}

	mask := textMask(b, face, d, fontSize*ss)

	if sh := d.Shadow; sh != nil && sh.Opacity > 0 {
		blurred := blurAlpha(mask, int(math.Round(sh.Blur*ss)))
		sc := models.ColorOr(sh.Color, color.NRGBA{A: 0xff})
		sc.A = uint8(math.Round(float64(sc.A) * clampUnit(sh.Opacity)))
		off := image.Pt(int(math.Round(sh.OffsetX*ss)), int(math.Round(sh.OffsetY*ss)))
		draw.DrawMask(surf, b.Add(off), image.NewUniform(sc), image.Point{}, blurred, image.Point{}, draw.Over)
	}

	if o := d.Outline; o != nil && o.Width > 0 {
		oc := models.ColorOr(o.Color, color.NRGBA{A: 0xff})
		r := o.Width * ss
		for _, rad := range []float64{r / 2, r} {
			for i := 0; i < 16; i++ {
				a := float64(i) * math.Pi / 8
				off := image.Pt(int(math.Round(rad*math.Cos(a))), int(math.Round(rad*math.Sin(a))))
				draw.DrawMask(surf, b.Add(off), image.NewUniform(oc), image.Point{}, mask, image.Point{}, draw.Over)
			}
		}
	}

	fc := models.ColorOr(d.Color, color.NRGBA{A: 0xff})
	draw.DrawMask(surf, b, image.NewUniform(fc), image.Point{}, mask, image.Point{}, draw.Over)
	place(f.scratch, m, surf, ss)
}

// textMask rasterizes the lines of d, centered in b, with decorations.
func textMask(b image.Rectangle, face font.Face, d *models.TextData, px float64) *image.Alpha {
	mask := image.NewAlpha(b)
	dr := &font.Drawer{Dst: mask, Src: image.Opaque, Face: face}
	met := face.Metrics()
	asc, desc := float64(met.Ascent)/64, float64(met.Descent)/64

	lines := strings.Split(stripIgnorable(d.Text), "\n")
	lineH := px * lineSpacing
	top := (float64(b.Dy()) - lineH*float64(len(lines))) / 2
	thick := max(1, int(math.Round(px/15)))

	for i, line := range lines {
		baseline := top + float64(i)*lineH + (lineH-(asc+desc))/2 + asc
		adv := dr.MeasureString(line)
		x := (fixed.I(b.Dx()) - adv) / 2
		dr.Dot = fixed.Point26_6{X: x, Y: fixed.Int26_6(baseline * 64)}
		dr.DrawString(line)

		x0, x1 := x.Round(), (x + adv).Round()
		if d.Style.Underline {
			y := int(math.Round(baseline + desc/2))
			draw.Draw(mask, image.Rect(x0, y, x1, y+thick), image.Opaque, image.Point{}, draw.Src)
		}
		if d.Style.Strikethrough {
			y := int(math.Round(baseline - asc*0.3))
			draw.Draw(mask, image.Rect(x0, y, x1, y+thick), image.Opaque, image.Point{}, draw.Src)
		}
	}
	return mask
}

// fillRounded fills dst with a rounded rectangle; shade receives the
// vertical position in [0,1].
func fillRounded(dst *image.RGBA, radius float64, shade func(t float64) color.NRGBA) {
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	radius = math.Min(radius, math.Min(w, h)/2)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		t := 0.0
		if h > 1 {
			t = float64(y-b.Min.Y) / (h - 1)
		}
		c := shade(t)
		for x := b.Min.X; x < b.Max.X; x++ {
			cov := cornerCoverage(float64(x-b.Min.X)+0.5, float64(y-b.Min.Y)+0.5, w, h, radius)
			if cov <= 0 {
				continue
			}
			pc := c
			pc.A = uint8(math.Round(float64(c.A) * cov))
			dst.Set(x, y, pc)
		}
	}
}

// cornerCoverage is 1 inside the rounded box, 0 outside, with a one pixel
// ramp at the corner arcs.
func cornerCoverage(x, y, w, h, r float64) float64 {
	if r <= 0 {
		return 1
	}
	cx := math.Max(r, math.Min(x, w-r))
	cy := math.Max(r, math.Min(y, h-r))
	d := math.Hypot(x-cx, y-cy)
	return clampUnit(r - d + 0.5)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	l := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return color.NRGBA{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}

// blurAlpha returns a box-blurred copy of m.
func blurAlpha(m *image.Alpha, radius int) *image.Alpha {
	if radius <= 0 {
		return m
	}
	b := m.Bounds()
	w, h := b.Dx(), b.Dy()
	radius = min(radius, max(w, h))
	tmp := make([]float64, w*h)
	out := image.NewAlpha(b)
	win := float64(2*radius + 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				xx := max(0, min(w-1, x+k))
				sum += float64(m.Pix[y*m.Stride+xx])
			}
			tmp[y*w+x] = sum / win
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -radius; k <= radius; k++ {
				yy := max(0, min(h-1, y+k))
				sum += tmp[yy*w+x]
			}
			out.Pix[y*out.Stride+x] = uint8(math.Round(sum / win))
		}
	}
	return out
}
