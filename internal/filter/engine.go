// Package filter applies named color filters and tonal adjustments to bitmaps.
//
// Every operation returns a new *image.NRGBA and never mutates its input.
// Filters blend as mix(orig, filtered, intensity) per pixel, leaving alpha
// untouched.
package filter

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/models"
)

// Engine owns the filter registry and the compiled-program cache.
type Engine struct {
	mu       sync.RWMutex
	programs map[string]Program
	compiled map[string]kernel

	group    singleflight.Group
	compiles atomic.Int64
}

// NewEngine returns an engine with the built-in filters registered.
func NewEngine() *Engine {
	e := &Engine{
		programs: make(map[string]Program, len(builtins)),
		compiled: make(map[string]kernel),
	}
	for _, p := range builtins {
		e.programs[p.Name] = p
	}
	return e
}

// Register adds or replaces a program and drops its cached kernel.
func (e *Engine) Register(p Program) error {
	if p.Name == "" {
		return fmt.Errorf("filter: program name is required: %w", apperr.ErrInvalidInput)
	}
	if _, err := compile(p); err != nil {
		return err
	}
	e.mu.Lock()
	e.programs[p.Name] = p
	delete(e.compiled, p.Name)
	e.mu.Unlock()
	return nil
}

// Available returns the registered filter names, sorted.
func (e *Engine) Available() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.programs))
	for name := range e.programs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Has reports whether name is registered.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.programs[name]
	return ok
}

// ClearCache drops every compiled kernel.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.compiled = make(map[string]kernel)
	e.mu.Unlock()
}

// CacheSize returns the number of compiled kernels held.
func (e *Engine) CacheSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

func (e *Engine) kernel(name string) (kernel, error) {
	e.mu.RLock()
	k, ok := e.compiled[name]
	p, known := e.programs[name]
	e.mu.RUnlock()
	if ok {
		return k, nil
	}
	if !known {
		return nil, fmt.Errorf("filter %q: %w", name, apperr.ErrFilterNotFound)
	}

	v, err, _ := e.group.Do(name, func() (interface{}, error) {
		k, err := compile(p)
		if err != nil {
			return nil, err
		}
		e.compiles.Add(1)
		e.mu.Lock()
		e.compiled[name] = k
		e.mu.Unlock()
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(kernel), nil
}

// Apply filters img by name at intensity (clamped to [0,1]). An unknown name
// returns an unmodified copy together with apperr.ErrFilterNotFound.
func (e *Engine) Apply(img image.Image, name string, intensity float64) (*image.NRGBA, error) {
	out := Clone(img)
	if name == None {
		return out, nil
	}
	k, err := e.kernel(name)
	if err != nil {
		return out, err
	}
	t := clamp01(intensity)
	if t == 0 {
		return out, nil
	}
	applyKernel(out, k, t)
	return out, nil
}

// ApplyChain applies filters in slice order. Unknown names are skipped and
// reported in skipped.
func (e *Engine) ApplyChain(img image.Image, filters []models.AppliedFilter) (out *image.NRGBA, skipped []string) {
	out = Clone(img)
	for _, f := range filters {
		if f.Name == None {
			continue
		}
		k, err := e.kernel(f.Name)
		if err != nil {
			skipped = append(skipped, f.Name)
			continue
		}
		if t := clamp01(f.Intensity); t > 0 {
			applyKernel(out, k, t)
		}
	}
	return out, skipped
}

// Clone copies img into a new NRGBA with bounds starting at the origin.
func Clone(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[i:i+b.Dx()*4])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func applyKernel(img *image.NRGBA, k kernel, t float64) {
	parallelRows(img.Bounds().Dy(), func(y0, y1 int) {
		w := img.Bounds().Dx()
		for y := y0; y < y1; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w*4]
			for i := 0; i < len(row); i += 4 {
				if row[i+3] == 0 {
					continue
				}
				r, g, b := float64(row[i])/255, float64(row[i+1])/255, float64(row[i+2])/255
				fr, fg, fb := k(r, g, b)
				row[i] = to8(mix(r, fr, t))
				row[i+1] = to8(mix(g, fg, t))
				row[i+2] = to8(mix(b, fb, t))
			}
		}
	})
}

// parallelRows splits [0,h) into bands processed concurrently.
func parallelRows(h int, fn func(y0, y1 int)) {
	workers := runtime.GOMAXPROCS(0)
	if h < 64 || workers == 1 {
		fn(0, h)
		return
	}
	band := (h + workers - 1) / workers
	var g errgroup.Group
	for y0 := 0; y0 < h; y0 += band {
		y1 := min(y0+band, h)
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
