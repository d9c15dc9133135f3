package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

// Placeholder fills for content that cannot be drawn.
var (
	placeholderImage   = color.NRGBA{R: 0x4B, G: 0x55, B: 0x63, A: 0xff}
	placeholderSticker = color.NRGBA{R: 0xEC, G: 0x48, B: 0x99, A: 0xff}
	placeholderText    = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xff}
)

func allocate(w, h, maxSize int) (*image.RGBA, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if w <= 0 || h <= 0 || w > maxSize || h > maxSize {
		return nil, fmt.Errorf("surface %dx%d (max %d): %w", w, h, maxSize, apperr.ErrSurfaceAllocation)
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

func fill(dst *image.RGBA, c color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// fillBox paints a w×h box given in layer-local units through m.
func fillBox(dst draw.Image, m f64.Aff3, w, h float64, c color.Color) {
	if w <= 0 || h <= 0 {
		return
	}
	sw, sh := max(1, int(math.Ceil(w))), max(1, int(math.Ceil(h)))
	s2d := geom.Mul(m, geom.ScaleXY(w/float64(sw), h/float64(sh)))
	draw.NearestNeighbor.Transform(dst, s2d, image.NewUniform(c), image.Rect(0, 0, sw, sh), draw.Over, nil)
}

// drawPlaceholder paints a solid box. Stickers also get a white corner marker.
func drawPlaceholder(dst draw.Image, m f64.Aff3, size geom.Size, kind models.LayerType) {
	switch kind {
	case models.LayerImage:
		fillBox(dst, m, size.Width, size.Height, placeholderImage)
	case models.LayerSticker:
		fillBox(dst, m, size.Width, size.Height, placeholderSticker)
		if size.Width >= 16 && size.Height >= 16 {
			fillBox(dst, geom.Mul(m, geom.Translate(size.Width-16, 4)), 12, 12, color.White)
		}
	default:
		fillBox(dst, m, size.Width, size.Height, placeholderText)
	}
}

// composite draws src over dst with opacity using mode.
func composite(dst, src *image.RGBA, opacity float64, mode models.BlendMode) {
	if opacity <= 0 {
		return
	}
	if mode == models.BlendNormal {
		mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
		draw.DrawMask(dst, dst.Bounds(), src, image.Point{}, mask, image.Point{}, draw.Over)
		return
	}
	blendInto(dst, src, opacity, blendFunc(mode))
}

func blendFunc(mode models.BlendMode) func(cb, cs float64) float64 {
	switch mode {
	case models.BlendMultiply:
		return func(cb, cs float64) float64 { return cb * cs }
	case models.BlendScreen:
		return func(cb, cs float64) float64 { return 1 - (1-cb)*(1-cs) }
	case models.BlendOverlay:
		return func(cb, cs float64) float64 {
			if cb < 0.5 {
				return 2 * cb * cs
			}
			return 1 - 2*(1-cb)*(1-cs)
		}
	case models.BlendDarken:
		return math.Min
	case models.BlendLighten:
		return math.Max
	}
	return func(_, cs float64) float64 { return cs }
}

// blendInto applies a separable blend per pixel. Inputs are premultiplied;
// the mixed color is (1-ab)*cs + ab*B(cb, cs) before source-over.
func blendInto(dst, src *image.RGBA, opacity float64, b func(cb, cs float64) float64) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for y := 0; y < h; y++ {
		drow := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		srow := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for i := 0; i < len(drow); i += 4 {
			sa := float64(srow[i+3]) / 255
			if sa == 0 {
				continue
			}
			da := float64(drow[i+3]) / 255
			as := sa * opacity
			ao := as + da*(1-as)
			for c := 0; c < 3; c++ {
				cs := float64(srow[i+c]) / 255 / sa
				cb := 0.0
				if da > 0 {
					cb = float64(drow[i+c]) / 255 / da
				}
				mixed := (1-da)*cs + da*b(cb, cs)
				co := as*mixed + (1-as)*da*cb
				drow[i+c] = uint8(math.Round(clampUnit(co) * 255))
			}
			drow[i+3] = uint8(math.Round(clampUnit(ao) * 255))
		}
	}
}
