package render

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

func (c *Compositor) drawImage(f *frame, l *models.Layer, d *models.ImageData, m f64.Aff3) {
	size := d.Size()
	if c.images == nil {
		drawPlaceholder(f.scratch, m, size, models.LayerImage)
		f.note(l.ID, "no image loader configured")
		return
	}
	img, err := c.images.Load(f.ctx, d.Path)
	if err != nil {
		drawPlaceholder(f.scratch, m, size, models.LayerImage)
		f.note(l.ID, "image %q unavailable: %v", d.Path, err)
		return
	}
	b := img.Bounds()
	if b.Empty() {
		drawPlaceholder(f.scratch, m, size, models.LayerImage)
		f.note(l.ID, "image %q is empty", d.Path)
		return
	}
	if size.Empty() {
		size = geom.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}

	if l.ID == f.baseID {
		img = c.develop(f, img)
		b = img.Bounds()
	}

	s2d := geom.Mul(m, geom.Mul(
		geom.ScaleXY(size.Width/float64(b.Dx()), size.Height/float64(b.Dy())),
		geom.Translate(-float64(b.Min.X), -float64(b.Min.Y)),
	))
	draw.BiLinear.Transform(f.scratch, s2d, img, b, draw.Over, nil)
}

// develop applies the document filters, then the adjustments.
func (c *Compositor) develop(f *frame, img image.Image) image.Image {
	out := img
	if len(f.doc.Filters) > 0 && c.filters != nil {
		filtered, skipped := c.filters.ApplyChain(out, f.doc.Filters)
		for _, name := range skipped {
			f.note("", "unknown filter %q skipped", name)
		}
		out = filtered
	}
	if !f.doc.Adjustments.IsZero() {
		out = filter.ApplyAdjustments(out, f.doc.Adjustments)
	}
	return out
}
