// Package export flattens a document and hands the encoded image to asset
// storage. An export runs in three phases (render, encode, save) and reports
// progress for each.
package export

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/models"
	"github.com/starford/lumina/internal/render"
)

// Share of overall progress at the end of each phase.
const (
	renderShare = 0.7
	encodeShare = 0.9
)

// Renderer flattens a document.
type Renderer interface {
	Render(ctx context.Context, doc models.Document, opts render.Options) (*render.Result, error)
}

// AssetStore persists encoded bytes and returns their location.
type AssetStore interface {
	Save(ctx context.Context, data []byte, format string) (string, error)
}

// Progress is one step of an export. Progress is local to Phase and reaches
// 1 at the end of every phase; Overall covers the whole export.
type Progress struct {
	Phase    Phase   `json:"phase"`
	Progress float64 `json:"progress"`
	Overall  float64 `json:"overall"`
	Message  string  `json:"message"`
}

// Result describes a stored export.
type Result struct {
	Location     string               `json:"location"`
	Requested    Format               `json:"requestedFormat"`
	Format       Format               `json:"format"`
	Width        int                  `json:"width"`
	Height       int                  `json:"height"`
	Bytes        int                  `json:"bytes"`
	Placeholders []render.Placeholder `json:"placeholders,omitempty"`
}

// Pipeline runs exports.
type Pipeline struct {
	renderer Renderer
	assets   AssetStore
	tempDir  string
	maxSize  int
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTempDir sets where encoded files are staged. Empty uses os.TempDir.
func WithTempDir(dir string) Option {
	return func(p *Pipeline) { p.tempDir = dir }
}

// WithMaxSize bounds the output edge length.
func WithMaxSize(n int) Option {
	return func(p *Pipeline) { p.maxSize = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline.
func New(r Renderer, assets AssetStore, opts ...Option) *Pipeline {
	p := &Pipeline{renderer: r, assets: assets, logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Export runs an export to completion. onProgress may be nil; it is called
// synchronously and in order. Every failure is an *Error.
func (p *Pipeline) Export(ctx context.Context, doc models.Document, opts Options, onProgress func(Progress)) (Result, error) {
	emit := func(phase Phase, local, overall float64, msg string) {
		if onProgress != nil {
			onProgress(Progress{Phase: phase, Progress: local, Overall: overall, Message: msg})
		}
	}
	res := Result{Requested: opts.Format, Format: opts.Format.encodable()}

	if err := opts.Validate(); err != nil {
		return res, p.failed(fail(PhaseRendering, err))
	}

	emit(PhaseRendering, 0, 0, "Starting export...")
	out, err := p.renderer.Render(ctx, doc, render.Options{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: color.White,
		MaxSize:    p.maxSize,
		Progress: func(done, total int) {
			f := float64(done) / float64(total)
			emit(PhaseRendering, f, f*renderShare, "Rendering layers...")
		},
	})
	if err != nil {
		return res, p.failed(fail(PhaseRendering, err))
	}
	emit(PhaseRendering, 1, renderShare, "Rendering complete")
	b := out.Image.Bounds()
	res.Width, res.Height, res.Placeholders = b.Dx(), b.Dy(), out.Placeholders

	if err := ctx.Err(); err != nil {
		return res, p.failed(fail(PhaseEncoding, err))
	}
	emit(PhaseEncoding, 0, renderShare, "Encoding image...")
	tmp, err := encodeToTemp(p.tempDir, out.Image, res.Format, opts.Quality)
	if tmp != "" {
		defer os.Remove(tmp)
	}
	out = nil
	if err != nil {
		e := fail(PhaseEncoding, err)
		if e.Kind == KindInternal && !errors.Is(err, apperr.ErrEncode) {
			e.Kind = KindTransient
		}
		return res, p.failed(e)
	}
	emit(PhaseEncoding, 1, encodeShare, "Encoding complete")

	if err := ctx.Err(); err != nil {
		return res, p.failed(fail(PhaseSaving, err))
	}
	emit(PhaseSaving, 0, encodeShare, "Saving export...")
	data, err := os.ReadFile(tmp)
	if err != nil {
		return res, p.failed(fail(PhaseSaving, fmt.Errorf("read staged export: %v: %w", err, apperr.ErrPersist)))
	}
	loc, err := p.assets.Save(ctx, data, string(res.Format))
	if err != nil {
		if ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", apperr.ErrPersist, err)
		}
		return res, p.failed(fail(PhaseSaving, err))
	}
	res.Location, res.Bytes = loc, len(data)
	emit(PhaseSaving, 1, 1, "Export complete!")

	p.logger.Info("export completed",
		slog.String("location", loc),
		slog.String("format", string(res.Format)),
		slog.Int("width", res.Width),
		slog.Int("height", res.Height),
		slog.Int("bytes", res.Bytes),
	)
	return res, nil
}

func (p *Pipeline) failed(e *Error) *Error {
	p.logger.Warn("export failed",
		slog.String("phase", string(e.Phase)),
		slog.String("kind", e.Kind.String()),
		slog.String("error", e.Err.Error()),
	)
	return e
}

// Task is an export running in the background on a copy of the document
// taken when it started.
type Task struct {
	events chan Progress
	done   chan struct{}
	cancel context.CancelFunc
	res    Result
	err    error
}

// Start runs Export on its own goroutine.
func (p *Pipeline) Start(ctx context.Context, doc models.Document, opts Options) *Task {
	ctx, cancel := context.WithCancel(ctx)
	doc = doc.Clone()

	// Room for every event an export can emit, so a slow reader never
	// stalls the pipeline.
	n := 8
	for i := range doc.Layers {
		if doc.Layers[i].Visible {
			n++
		}
	}
	t := &Task{
		events: make(chan Progress, n),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	go func() {
		defer cancel()
		defer close(t.done)
		defer close(t.events)
		defer func() {
			if r := recover(); r != nil {
				t.err = p.failed(&Error{Phase: PhaseRendering, Kind: KindInternal, Err: fmt.Errorf("export panicked: %v", r)})
			}
		}()
		t.res, t.err = p.Export(ctx, doc, opts, func(pr Progress) { t.events <- pr })
	}()
	return t
}

// Events delivers progress in order and is closed when the export ends.
func (t *Task) Events() <-chan Progress { return t.events }

// Done is closed when the export ends.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel asks the export to stop at the next check point.
func (t *Task) Cancel() { t.cancel() }

// Wait blocks until the export ends.
func (t *Task) Wait() (Result, error) {
	<-t.done
	return t.res, t.err
}
