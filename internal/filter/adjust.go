package filter

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/starford/lumina/internal/models"
)

// ApplyAdjustments applies the tonal adjustment vector to img. The zero
// vector returns an unmodified copy.
func ApplyAdjustments(img image.Image, adj models.Adjustments) *image.NRGBA {
	out := Clone(img)
	adj = adj.Clamped()
	if adj.IsZero() {
		return out
	}

	if hasPointOps(adj) {
		pointOps(out, adj)
	}
	if adj.Clarity != 0 {
		localContrast(out, 8, adj.Clarity/100*0.5, true)
	}
	if adj.Sharpness != 0 {
		localContrast(out, 1, adj.Sharpness/100, false)
	}
	if adj.Vignette != 0 {
		vignette(out, adj.Vignette/100)
	}
	if adj.Grain != 0 {
		grain(out, adj.Grain/100)
	}
	return out
}

func hasPointOps(a models.Adjustments) bool {
	return a.Exposure != 0 || a.Brightness != 0 || a.Contrast != 0 ||
		a.Highlights != 0 || a.Shadows != 0 || a.Whites != 0 || a.Blacks != 0 ||
		a.Temperature != 0 || a.Tint != 0 || a.Saturation != 0 || a.Vibrance != 0
}

func smoothstep(e0, e1, x float64) float64 {
	t := clamp01((x - e0) / (e1 - e0))
	return t * t * (3 - 2*t)
}

func pointOps(img *image.NRGBA, a models.Adjustments) {
	exposure := math.Pow(2, a.Exposure/100)
	brightness := a.Brightness / 200
	contrast := 1 + a.Contrast/100
	highlights := a.Highlights / 100 * 0.25
	shadows := a.Shadows / 100 * 0.25
	whites := 1 + a.Whites/100*0.15
	blacks := a.Blacks / 100 * 0.15
	temp := a.Temperature / 100 * 0.1
	tint := a.Tint / 100 * 0.1
	sat := 1 + a.Saturation/100
	vib := a.Vibrance / 100

	tone := func(v, l float64) float64 {
		v *= exposure
		v += brightness
		v = (v-0.5)*contrast + 0.5
		v += highlights * smoothstep(0.5, 1, l)
		v += shadows * (1 - smoothstep(0, 0.5, l))
		v *= whites
		v += blacks * (1 - v)
		return v
	}

	parallelRows(img.Bounds().Dy(), func(y0, y1 int) {
		w := img.Bounds().Dx()
		for y := y0; y < y1; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				if row[i+3] == 0 {
					continue
				}
				r, g, b := float64(row[i])/255, float64(row[i+1])/255, float64(row[i+2])/255
				l := luma(r, g, b)
				r, g, b = tone(r, l), tone(g, l), tone(b, l)

				r += temp + tint*0.5
				g -= tint
				b += -temp + tint*0.5

				if sat != 1 || vib != 0 {
					gray := luma(r, g, b)
					k := sat
					if vib != 0 {
						spread := math.Max(r, math.Max(g, b)) - math.Min(r, math.Min(g, b))
						k *= 1 + vib*(1-clamp01(spread))
					}
					r, g, b = mix(gray, r, k), mix(gray, g, k), mix(gray, b, k)
				}

				row[i], row[i+1], row[i+2] = to8(r), to8(g), to8(b)
			}
		}
	})
}

// localContrast adds amount*(v - blur(v)) per channel. With midtones set the
// boost fades out toward black and white.
func localContrast(img *image.NRGBA, radius int, amount float64, midtones bool) {
	blurred := boxBlur(img, radius)
	w := img.Bounds().Dx()
	parallelRows(img.Bounds().Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			brow := blurred.Pix[y*blurred.Stride : y*blurred.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				if row[i+3] == 0 {
					continue
				}
				k := amount
				if midtones {
					l := luma(float64(row[i])/255, float64(row[i+1])/255, float64(row[i+2])/255)
					k *= 1 - math.Abs(2*l-1)
				}
				for c := 0; c < 3; c++ {
					v := float64(row[i+c]) / 255
					bv := float64(brow[i+c]) / 255
					row[i+c] = to8(v + k*(v-bv))
				}
			}
		}
	})
}

// boxBlur returns a separable box blur of img with the given radius.
func boxBlur(img *image.NRGBA, radius int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	tmp := image.NewNRGBA(image.Rect(0, 0, w, h))
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	blur1D(img.Pix, tmp.Pix, w, h, img.Stride, 4, radius)
	blur1D(tmp.Pix, out.Pix, h, w, 4, tmp.Stride, radius)
	return out
}

// blur1D blurs n lines of length size, where step moves along a line and
// lineStride moves between lines.
func blur1D(src, dst []uint8, size, n, lineStride, step, radius int) {
	window := float64(2*radius + 1)
	for line := 0; line < n; line++ {
		base := line * lineStride
		for c := 0; c < 4; c++ {
			var sum float64
			at := func(i int) float64 {
				i = max(0, min(size-1, i))
				return float64(src[base+i*step+c])
			}
			for i := -radius; i <= radius; i++ {
				sum += at(i)
			}
			for i := 0; i < size; i++ {
				dst[base+i*step+c] = uint8(math.Round(sum / window))
				sum += at(i+radius+1) - at(i-radius)
			}
		}
	}
}

func vignette(img *image.NRGBA, strength float64) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cx, cy := float64(w)/2, float64(h)/2
	maxDist := math.Hypot(cx, cy)
	parallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) / maxDist
				f := 1 - strength*0.8*smoothstep(0.3, 1, d)
				i := y*img.Stride + x*4
				for c := 0; c < 3; c++ {
					img.Pix[i+c] = to8(float64(img.Pix[i+c]) / 255 * f)
				}
			}
		}
	})
}

// grain adds deterministic noise keyed by pixel position so preview and
// export match.
func grain(img *image.NRGBA, strength float64) {
	w := img.Bounds().Dx()
	parallelRows(img.Bounds().Dy(), func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				i := y*img.Stride + x*4
				if img.Pix[i+3] == 0 {
					continue
				}
				n := noise(x, y) * strength * 0.15
				for c := 0; c < 3; c++ {
					img.Pix[i+c] = to8(float64(img.Pix[i+c])/255 + n)
				}
			}
		}
	})
}

// noise hashes (x, y) to [-1, 1].
func noise(x, y int) float64 {
	h := uint32(x)*374761393 + uint32(y)*668265263
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h)/float64(math.MaxUint32)*2 - 1
}

// Thumbnail scales img to fit inside a size×size box.
func Thumbnail(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	if size <= 0 || b.Empty() {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
