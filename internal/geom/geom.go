// Package geom holds the 2D primitives shared by layers and the compositor.
package geom

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Point is a position in canvas units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair in canvas units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the size covers no area.
func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0
}

// Transform places a layer on the canvas: translate, then uniform scale,
// then rotation (radians) around the layer origin.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
}

// Identity returns the neutral transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// Normalize replaces a non-positive scale with 1.
func (t Transform) Normalize() Transform {
	if t.Scale <= 0 || math.IsNaN(t.Scale) {
		t.Scale = 1
	}
	return t
}

// Matrix returns T·S·R as an affine matrix mapping layer-local
// coordinates to canvas coordinates.
func (t Transform) Matrix() f64.Aff3 {
	t = t.Normalize()
	return Mul(Mul(Translate(t.X, t.Y), ScaleXY(t.Scale, t.Scale)), Rotate(t.Rotation))
}

// Translate returns a translation matrix.
func Translate(x, y float64) f64.Aff3 {
	return f64.Aff3{1, 0, x, 0, 1, y}
}

// ScaleXY returns a scaling matrix.
func ScaleXY(sx, sy float64) f64.Aff3 {
	return f64.Aff3{sx, 0, 0, 0, sy, 0}
}

// Rotate returns a rotation matrix. In a y-down space positive angles turn
// clockwise on screen: +x rotates toward +y.
func Rotate(rad float64) f64.Aff3 {
	s, c := math.Sincos(rad)
	return f64.Aff3{c, -s, 0, s, c, 0}
}

// Mul composes two matrices; the result applies b first, then a.
func Mul(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

// Apply maps p through m.
func Apply(m f64.Aff3, p Point) Point {
	return Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

// Invert returns the inverse of m. ok is false for singular matrices.
func Invert(m f64.Aff3) (inv f64.Aff3, ok bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || math.IsNaN(det) {
		return f64.Aff3{}, false
	}
	id := 1 / det
	inv[0] = m[4] * id
	inv[1] = -m[1] * id
	inv[3] = -m[3] * id
	inv[4] = m[0] * id
	inv[2] = -(inv[0]*m[2] + inv[1]*m[5])
	inv[5] = -(inv[3]*m[2] + inv[4]*m[5])
	return inv, true
}
