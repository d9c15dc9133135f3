package render

import (
	"image"
	"image/color"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
)

// drawStrokes replays freehand strokes in order. Drawing layers have no
// intrinsic size, so points go straight through m into output space. Eraser
// strokes clear what earlier strokes of the same layer painted.
func drawStrokes(dst *image.RGBA, d *models.DrawingData, m f64.Aff3) {
	if len(d.Strokes) == 0 {
		return
	}
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := math.Sqrt(math.Abs(m[0]*m[4] - m[1]*m[3]))

	paint := rasterx.NewDasher(w, h, rasterx.NewScannerGV(w, h, dst, b))
	var (
		mask  *image.Alpha
		erase *rasterx.Dasher
	)

	for i := range d.Strokes {
		s := &d.Strokes[i]
		if len(s.Points) < 2 || s.Size <= 0 {
			continue
		}
		r := paint
		if s.BrushType == models.BrushEraser {
			if mask == nil {
				mask = image.NewAlpha(b)
				erase = rasterx.NewDasher(w, h, rasterx.NewScannerGV(w, h, mask, b))
			}
			clear(mask.Pix)
			r = erase
		}

		r.SetStroke(fixed.Int26_6(s.Size*scale*64), 4<<6,
			rasterx.RoundCap, rasterx.RoundCap, rasterx.RoundGap, rasterx.Round, nil, 0)
		for j, p := range s.Points {
			q := geom.Apply(m, geom.Point{X: p.X, Y: p.Y})
			if j == 0 {
				r.Start(rasterx.ToFixedP(q.X, q.Y))
				continue
			}
			r.Line(rasterx.ToFixedP(q.X, q.Y))
		}
		r.Stop(false)

		alpha := uint8(math.Round(clampUnit(s.Opacity/100) * 255))
		if s.BrushType == models.BrushEraser {
			r.SetColor(color.Alpha{A: alpha})
			r.Draw()
			r.Clear()
			draw.DrawMask(dst, b, image.Transparent, image.Point{}, mask, b.Min, draw.Src)
			continue
		}
		c := models.ColorOr(s.Color, color.NRGBA{A: 0xff})
		c.A = uint8(math.Round(float64(c.A) * float64(alpha) / 255))
		r.SetColor(c)
		r.Draw()
		r.Clear()
	}
}
