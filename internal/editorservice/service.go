// Package editorservice coordinates editor sessions, project persistence,
// previews and exports for the HTTP and MCP surfaces.
package editorservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/catalog"
	"github.com/starford/lumina/internal/editor"
	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/layer"
	"github.com/starford/lumina/internal/models"
	"github.com/starford/lumina/internal/project"
	"github.com/starford/lumina/internal/render"
	"github.com/starford/lumina/internal/sse"
	"github.com/starford/lumina/internal/storage"
)

const thumbnailSize = 200

// Publisher receives session and export events.
type Publisher interface {
	Publish(e sse.Event)
	PublishChange(session, action string)
}

// ImageStore holds uploaded source photos and finished exports.
type ImageStore interface {
	PutImage(ctx context.Context, name string, data []byte) (string, error)
	Read(ctx context.Context, loc string) ([]byte, error)
	List(ctx context.Context, dir string) ([]storage.AssetInfo, error)
	Delete(ctx context.Context, loc string) error
}

// Renderer flattens documents for previews and thumbnails.
type Renderer interface {
	Render(ctx context.Context, doc models.Document, opts render.Options) (*render.Result, error)
}

// Session is one open editor.
type Session struct {
	ID        string
	ProjectID string
	Name      string
	ETag      string
	CreatedAt time.Time
	Store     *editor.Store
}

// SessionInfo is the listing form of a session.
type SessionInfo struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId,omitempty"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Layers    int       `json:"layers"`
	CanUndo   bool      `json:"canUndo"`
	CanRedo   bool      `json:"canRedo"`
}

// Service coordinates sessions, storage and rendering.
type Service struct {
	projects project.Repository
	images   ImageStore
	renderer Renderer
	pipeline *export.Pipeline
	filters  *filter.Engine
	events   Publisher
	limits   editor.Limits
	defaults export.Options
	logger   *slog.Logger

	jobTTL  time.Duration
	maxJobs int

	mu       sync.RWMutex
	sessions map[string]*Session
	jobs     map[string]*Job
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where events go.
func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

// WithLimits sets the limits of new sessions.
func WithLimits(l editor.Limits) Option { return func(s *Service) { s.limits = l } }

// WithFilters sets the filter engine sessions validate against.
func WithFilters(f *filter.Engine) Option { return func(s *Service) { s.filters = f } }

// WithExportDefaults sets the format and quality used when a request omits them.
func WithExportDefaults(o export.Options) Option { return func(s *Service) { s.defaults = o } }

// WithJobRetention sets how long finished export jobs stay queryable and
// how many of them are kept.
func WithJobRetention(ttl time.Duration, maxFinished int) Option {
	return func(s *Service) { s.jobTTL, s.maxJobs = ttl, maxFinished }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// New creates a service.
func New(projects project.Repository, images ImageStore, renderer Renderer, pipeline *export.Pipeline, opts ...Option) *Service {
	s := &Service{
		projects: projects,
		images:   images,
		renderer: renderer,
		pipeline: pipeline,
		limits:   editor.DefaultLimits(),
		defaults: export.Options{Format: export.FormatJPG, Quality: 85},
		logger:   slog.Default(),
		jobTTL:   DefaultJobTTL,
		maxJobs:  DefaultMaxFinishedJobs,
		sessions: make(map[string]*Session),
		jobs:     make(map[string]*Job),
	}
	for _, o := range opts {
		o(s)
	}
	if s.filters == nil {
		s.filters = filter.NewEngine()
	}
	return s
}

// Limits returns the session limits.
func (s *Service) Limits() editor.Limits { return s.limits }

// Filters returns the filter engine.
func (s *Service) Filters() *filter.Engine { return s.filters }

func (s *Service) storeOptions() []editor.Option {
	return []editor.Option{editor.WithLimits(s.limits), editor.WithFilters(s.filters)}
}

func (s *Service) register(sess *Session) *Session {
	sess.Store.OnChange(func(action string) {
		if s.events != nil {
			s.events.PublishChange(sess.ID, action)
		}
	})
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	s.logger.Info("session opened", slog.String("session", sess.ID), slog.String("project", sess.ProjectID))
	return sess
}

// NewSession opens an empty canvas.
func (s *Service) NewSession(canvas geom.Size) (*Session, error) {
	st, err := editor.New(canvas, s.storeOptions()...)
	if err != nil {
		return nil, err
	}
	return s.register(&Session{
		ID:        layer.NewID("sess"),
		Name:      project.DefaultName,
		CreatedAt: time.Now(),
		Store:     st,
	}), nil
}

// Open loads a saved project into a new session.
func (s *Service) Open(ctx context.Context, projectID string) (*Session, error) {
	p, err := s.projects.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	st, err := editor.Open(p.Document, s.storeOptions()...)
	if err != nil {
		return nil, err
	}
	return s.register(&Session{
		ID:        layer.NewID("sess"),
		ProjectID: p.ID,
		Name:      p.Name,
		ETag:      p.Checksum,
		CreatedAt: time.Now(),
		Store:     st,
	}), nil
}

// Get returns an open session.
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	return sess, nil
}

// Close forgets a session. Unsaved changes are lost.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// Sessions lists open sessions, oldest first.
func (s *Service) Sessions() []SessionInfo {
	s.mu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	out := make([]SessionInfo, len(list))
	for i, sess := range list {
		out[i] = s.Info(sess)
	}
	return out
}

// Info summarizes a session.
func (s *Service) Info(sess *Session) SessionInfo {
	s.mu.RLock()
	info := SessionInfo{ID: sess.ID, ProjectID: sess.ProjectID, Name: sess.Name, CreatedAt: sess.CreatedAt}
	s.mu.RUnlock()
	info.Layers = len(sess.Store.Document().Layers)
	info.CanUndo, info.CanRedo = sess.Store.CanUndo(), sess.Store.CanRedo()
	return info
}

// Save stores the session document. The first save creates a project; later
// saves update it guarded by the checksum seen at open or last save.
func (s *Service) Save(ctx context.Context, sessionID, name string) (project.Meta, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return project.Meta{}, err
	}
	doc := sess.Store.Document()
	in := project.SaveInput{Name: name, Thumbnail: s.thumbnail(ctx, doc), Document: doc}

	s.mu.RLock()
	projectID, etag := sess.ProjectID, sess.ETag
	s.mu.RUnlock()

	var p project.Project
	if projectID == "" {
		p, err = s.projects.Save(ctx, in)
	} else {
		p, err = s.projects.Update(ctx, projectID, in, etag)
	}
	if err != nil {
		return project.Meta{}, err
	}

	s.mu.Lock()
	sess.ProjectID, sess.ETag, sess.Name = p.ID, p.Checksum, p.Name
	s.mu.Unlock()
	s.logger.Info("project saved", slog.String("session", sessionID), slog.String("project", p.ID))
	return p.Meta, nil
}

// thumbnail renders a small PNG data URI. Failures only cost the thumbnail.
func (s *Service) thumbnail(ctx context.Context, doc models.Document) string {
	w, h := thumbnailSize, 0
	if doc.CanvasSize.Height > doc.CanvasSize.Width {
		w, h = 0, thumbnailSize
	}
	res, err := s.renderer.Render(ctx, doc, render.Options{Width: w, Height: h, Background: color.White})
	if err != nil {
		s.logger.Warn("thumbnail render failed", slog.String("error", err.Error()))
		return ""
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// Preview renders the session at width pixels wide (canvas width when 0).
func (s *Service) Preview(ctx context.Context, sessionID string, width int) (*render.Result, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ctx, sess.Store.Document(), render.Options{Width: width})
}

// Upload describes a stored source photo.
type Upload struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// UploadImage stores a source photo after checking that it decodes.
func (s *Service) UploadImage(ctx context.Context, name string, data []byte) (Upload, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Upload{}, fmt.Errorf("%w: not a supported image: %v", apperr.ErrInvalidInput, err)
	}
	loc, err := s.images.PutImage(ctx, name, data)
	if err != nil {
		return Upload{}, err
	}
	s.logger.Info("image uploaded", slog.String("path", loc), slog.String("format", format))
	return Upload{Path: loc, Format: format, Width: cfg.Width, Height: cfg.Height, Size: len(data)}, nil
}

// AddImage adds a stored photo to a session, fitted and centered on the
// canvas.
func (s *Service) AddImage(ctx context.Context, sessionID, path string) (models.Layer, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return models.Layer{}, err
	}
	data, err := s.images.Read(ctx, path)
	if err != nil {
		return models.Layer{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.Layer{}, fmt.Errorf("%w: %s: %v", apperr.ErrImageLoad, path, err)
	}
	canvas := sess.Store.Document().CanvasSize
	w, h := fit(float64(cfg.Width), float64(cfg.Height), canvas)
	return sess.Store.AddImage(path, w, h, layer.Centered(canvas))
}

// fit scales w×h down to fit inside canvas, keeping the aspect ratio.
func fit(w, h float64, canvas geom.Size) (float64, float64) {
	if w <= 0 || h <= 0 {
		return canvas.Width, canvas.Height
	}
	k := math.Min(1, math.Min(canvas.Width/w, canvas.Height/h))
	return w * k, h * k
}

// AddCatalogSticker adds a sticker from the built-in catalog.
func (s *Service) AddCatalogSticker(sessionID, stickerID string) (models.Layer, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return models.Layer{}, err
	}
	st, ok := catalog.ByID(stickerID)
	if !ok {
		return models.Layer{}, fmt.Errorf("sticker %s: %w", stickerID, apperr.ErrNotFound)
	}
	if st.Premium && !sess.Store.Limits().Premium {
		return models.Layer{}, fmt.Errorf("sticker %s requires premium: %w", stickerID, apperr.ErrLimitExceeded)
	}
	return sess.Store.AddSticker(st.LayerData())
}

// Projects exposes the project repository.
func (s *Service) Projects() project.Repository { return s.projects }

// ReadAsset returns stored bytes, e.g. a finished export.
func (s *Service) ReadAsset(ctx context.Context, loc string) ([]byte, error) {
	return s.images.Read(ctx, loc)
}

// ListAssets describes the stored files in dir (storage.ImagesDir or
// storage.ExportsDir), newest first.
func (s *Service) ListAssets(ctx context.Context, dir string) ([]storage.AssetInfo, error) {
	return s.images.List(ctx, dir)
}

// DeleteAsset removes an uploaded photo or a finished export. Layers that
// still reference a deleted photo render as placeholders.
func (s *Service) DeleteAsset(ctx context.Context, loc string) error {
	if err := s.images.Delete(ctx, loc); err != nil {
		return err
	}
	s.logger.Info("asset deleted", slog.String("path", loc))
	return nil
}

// FilterThumbnailSize is the edge of filter preview tiles.
const FilterThumbnailSize = 80

// FilterThumbnail previews filter name on the session's base photo: the
// photo is scaled to fit a size×size tile first and then filtered.
func (s *Service) FilterThumbnail(ctx context.Context, sessionID, name string, intensity float64, size int) (*image.NRGBA, error) {
	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if !s.filters.Has(name) {
		return nil, fmt.Errorf("filter %q: %w", name, apperr.ErrFilterNotFound)
	}
	if size <= 0 {
		size = FilterThumbnailSize
	}
	doc := sess.Store.Document()
	var base *models.ImageData
	for i := range doc.Layers {
		if d, ok := doc.Layers[i].Data.(*models.ImageData); ok && doc.Layers[i].Visible {
			base = d
			break
		}
	}
	if base == nil {
		return nil, fmt.Errorf("session %s has no photo: %w", sessionID, apperr.ErrNotFound)
	}
	data, err := s.images.Read(ctx, base.Path)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrImageLoad, base.Path, err)
	}
	return s.filters.Apply(filter.Thumbnail(img, min(size, 512)), name, intensity)
}
