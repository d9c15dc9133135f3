package filter

import (
	"image/color"
	"testing"

	"github.com/starford/lumina/internal/models"
)

func TestZeroAdjustmentsIdentity(t *testing.T) {
	src := solid(10, 10, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
	out := ApplyAdjustments(src, models.Adjustments{})
	if string(out.Pix) != string(src.Pix) {
		t.Error("zero adjustments changed pixels")
	}
}

func TestBrightnessRaisesValues(t *testing.T) {
	src := solid(4, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	out := ApplyAdjustments(src, models.Adjustments{Brightness: 50})
	if c := out.NRGBAAt(0, 0); c.R <= 100 {
		t.Errorf("brightened = %v, want R > 100", c)
	}
	dark := ApplyAdjustments(src, models.Adjustments{Exposure: -100})
	if c := dark.NRGBAAt(0, 0); c.R != 50 {
		t.Errorf("exposure -1 stop = %v, want R 50", c)
	}
}

func TestSaturationMinusHundredIsGray(t *testing.T) {
	src := solid(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	out := ApplyAdjustments(src, models.Adjustments{Saturation: -100})
	c := out.NRGBAAt(0, 0)
	if c.R != c.G || c.G != c.B {
		t.Errorf("desaturated = %v, want gray", c)
	}
}

func TestVignetteDarkensCorners(t *testing.T) {
	src := solid(64, 64, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	out := ApplyAdjustments(src, models.Adjustments{Vignette: 100})
	center := out.NRGBAAt(32, 32)
	corner := out.NRGBAAt(0, 0)
	if corner.R >= center.R {
		t.Errorf("corner %v should be darker than center %v", corner, center)
	}
}

func TestGrainDeterministic(t *testing.T) {
	src := solid(16, 16, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	a := ApplyAdjustments(src, models.Adjustments{Grain: 80})
	b := ApplyAdjustments(src, models.Adjustments{Grain: 80})
	if string(a.Pix) != string(b.Pix) {
		t.Error("grain should be deterministic")
	}
}

func TestSharpnessKeepsFlatImage(t *testing.T) {
	src := solid(8, 8, color.NRGBA{R: 77, G: 88, B: 99, A: 255})
	out := ApplyAdjustments(src, models.Adjustments{Sharpness: 100, Clarity: 100})
	if string(out.Pix) != string(src.Pix) {
		t.Error("flat image should be unchanged by local contrast")
	}
}

func TestThumbnailFits(t *testing.T) {
	src := solid(200, 100, color.NRGBA{R: 1, A: 255})
	th := Thumbnail(src, 50)
	if th.Bounds().Dx() != 50 || th.Bounds().Dy() != 25 {
		t.Errorf("thumbnail = %v, want 50x25", th.Bounds())
	}
}
