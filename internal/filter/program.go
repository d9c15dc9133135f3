package filter

import "fmt"

// OpKind selects a per-pixel color operation.
type OpKind int

const (
	// OpContrast scales distance from mid-gray: (c-0.5)*Amount+0.5.
	OpContrast OpKind = iota
	// OpGain multiplies each channel by R, G, B.
	OpGain
	// OpSaturate mixes from luma toward the color: mix(gray, c, Amount).
	// Amount above 1 oversaturates, 0 yields grayscale.
	OpSaturate
	// OpSepia mixes toward the sepia matrix result by Amount.
	OpSepia
)

// Op is one step of a filter program.
type Op struct {
	Kind    OpKind
	Amount  float64
	R, G, B float64
}

// Contrast, Gain, Saturate and Sepia build program steps.
func Contrast(amount float64) Op { return Op{Kind: OpContrast, Amount: amount} }
func Gain(r, g, b float64) Op    { return Op{Kind: OpGain, R: r, G: g, B: b} }
func Saturate(amount float64) Op { return Op{Kind: OpSaturate, Amount: amount} }
func Sepia(amount float64) Op    { return Op{Kind: OpSepia, Amount: amount} }

// Program is a named list of color operations applied in order.
type Program struct {
	Name string
	Ops  []Op
}

// None is the identity filter name.
const None = "none"

var builtins = []Program{
	{Name: None},
	{Name: "vintage", Ops: []Op{Contrast(1.15), Gain(1.1, 1.05, 0.9), Saturate(0.7), Sepia(0.3)}},
	{Name: "bw", Ops: []Op{Saturate(0)}},
	{Name: "vibrant", Ops: []Op{Saturate(1.5), Contrast(1.2)}},
	{Name: "cool", Ops: []Op{Gain(0.9, 0.95, 1.1)}},
	{Name: "warm", Ops: []Op{Gain(1.1, 1.05, 0.9)}},
	{Name: "dramatic", Ops: []Op{Contrast(1.8), Saturate(0.8)}},
}

// kernel maps a straight-alpha color in [0,1] to its fully filtered value.
// Results may leave [0,1]; callers clamp once after blending.
type kernel func(r, g, b float64) (float64, float64, float64)

func luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

func mix(a, b, t float64) float64 {
	return a + (b-a)*t
}

func compileOp(op Op) (kernel, error) {
	switch op.Kind {
	case OpContrast:
		k := op.Amount
		return func(r, g, b float64) (float64, float64, float64) {
			return (r-0.5)*k + 0.5, (g-0.5)*k + 0.5, (b-0.5)*k + 0.5
		}, nil
	case OpGain:
		gr, gg, gb := op.R, op.G, op.B
		return func(r, g, b float64) (float64, float64, float64) {
			return r * gr, g * gg, b * gb
		}, nil
	case OpSaturate:
		k := op.Amount
		return func(r, g, b float64) (float64, float64, float64) {
			y := luma(r, g, b)
			return mix(y, r, k), mix(y, g, k), mix(y, b, k)
		}, nil
	case OpSepia:
		k := op.Amount
		return func(r, g, b float64) (float64, float64, float64) {
			sr := 0.393*r + 0.769*g + 0.189*b
			sg := 0.349*r + 0.686*g + 0.168*b
			sb := 0.272*r + 0.534*g + 0.131*b
			return mix(r, sr, k), mix(g, sg, k), mix(b, sb, k)
		}, nil
	}
	return nil, fmt.Errorf("filter: unknown op kind %d", op.Kind)
}

// compile chains the program's ops into one kernel.
func compile(p Program) (kernel, error) {
	steps := make([]kernel, 0, len(p.Ops))
	for _, op := range p.Ops {
		k, err := compileOp(op)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", p.Name, err)
		}
		steps = append(steps, k)
	}
	return func(r, g, b float64) (float64, float64, float64) {
		for _, k := range steps {
			r, g, b = k(r, g, b)
		}
		return r, g, b
	}, nil
}
