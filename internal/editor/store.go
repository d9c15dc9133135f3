// Package editor owns the mutable editor state. Every mutation goes through a
// Store method, which serializes writers and records undo history.
package editor

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/filter"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/history"
	"github.com/starford/lumina/internal/layer"
	"github.com/starford/lumina/internal/models"
)

// Action labels recorded in history for non-layer operations.
const (
	ActionOpenCanvas  = "Open canvas"
	ActionOpenProject = "Open project"
	ActionMoveLayer   = "Move layer"
	ActionDragLayer   = "Drag layer"
)

// Limits bound what a single editor may hold.
type Limits struct {
	MaxLayers    int
	MaxStrokes   int
	HistoryLimit int
	Premium      bool
	MaxCanvas    float64
	DragInterval time.Duration
}

// DefaultLimits returns the free tier limits.
func DefaultLimits() Limits {
	return Limits{
		MaxLayers:    20,
		MaxStrokes:   1000,
		HistoryLimit: 50,
		MaxCanvas:    4096,
		DragInterval: 16 * time.Millisecond,
	}
}

func (l Limits) historyLimit() int {
	if l.Premium {
		return 0
	}
	return l.HistoryLimit
}

// FilterSet answers whether a filter name is known.
type FilterSet interface {
	Has(name string) bool
}

// Option configures a Store.
type Option func(*Store)

// WithLimits overrides DefaultLimits.
func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l }
}

// WithFilters sets the filters ApplyFilter accepts.
func WithFilters(f FilterSet) Option {
	return func(s *Store) { s.filters = f }
}

// WithClock replaces time.Now for drag throttling.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the single writer for one document.
type Store struct {
	mu       sync.Mutex
	limits   Limits
	filters  FilterSet
	now      func() time.Time
	doc      models.Document
	hist     *history.Manager
	onChange func(action string)
	drag     *dragState
}

// New opens an empty canvas and records it as the first history entry.
func New(canvas geom.Size, opts ...Option) (*Store, error) {
	s := newStore(opts)
	if err := s.checkCanvas(canvas); err != nil {
		return nil, err
	}
	s.doc = models.NewDocument(canvas)
	s.hist.Commit(ActionOpenCanvas, s.doc)
	return s, nil
}

// Open starts a store from an existing document, such as a loaded project.
func Open(doc models.Document, opts ...Option) (*Store, error) {
	s := newStore(opts)
	if err := s.checkDocument(doc); err != nil {
		return nil, err
	}
	s.doc = doc.Clone()
	s.hist.Commit(ActionOpenProject, s.doc)
	return s, nil
}

func newStore(opts []Option) *Store {
	s := &Store{limits: DefaultLimits(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.filters == nil {
		s.filters = filter.NewEngine()
	}
	s.hist = history.New(s.limits.historyLimit())
	return s
}

// OnChange registers fn to be called after every state change with its
// action label. fn runs outside the store lock.
func (s *Store) OnChange(fn func(action string)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Limits returns the active limits.
func (s *Store) Limits() Limits {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limits
}

// SetPremium toggles unlimited history.
func (s *Store) SetPremium(premium bool) {
	s.mu.Lock()
	s.limits.Premium = premium
	s.hist.SetLimit(s.limits.historyLimit())
	s.mu.Unlock()
}

// update applies fn to a copy of the document. On success the copy replaces
// the document and, when commit is set, a snapshot is recorded.
func (s *Store) update(action string, commit bool, fn func(d *models.Document) error) error {
	s.mu.Lock()
	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.doc = next
	if commit {
		s.hist.Commit(action, s.doc)
	}
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(action)
	}
	return nil
}

func (s *Store) notify(action string) {
	s.mu.Lock()
	hook := s.onChange
	s.mu.Unlock()
	if hook != nil {
		hook(action)
	}
}

// Document returns a deep copy of the current document.
func (s *Store) Document() models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// State returns the document together with its history.
func (s *Store) State() models.EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.EditorState{
		Document:     s.doc.Clone(),
		History:      s.hist.Entries(),
		HistoryIndex: s.hist.Index(),
	}
}

// Replace swaps in doc and commits it under action.
func (s *Store) Replace(doc models.Document, action string) error {
	if err := s.checkDocument(doc); err != nil {
		return err
	}
	return s.update(action, true, func(d *models.Document) error {
		*d = doc.Clone()
		return nil
	})
}

// Undo restores the previous snapshot. It reports false at the oldest entry.
func (s *Store) Undo() bool {
	return s.step("Undo", s.hist.Undo)
}

// Redo re-applies the next snapshot. It reports false at the newest entry.
func (s *Store) Redo() bool {
	return s.step("Redo", s.hist.Redo)
}

func (s *Store) step(action string, move func() (models.Document, bool)) bool {
	s.mu.Lock()
	doc, ok := move()
	if ok {
		s.doc = doc
		s.drag = nil
	}
	hook := s.onChange
	s.mu.Unlock()
	if ok && hook != nil {
		hook(action)
	}
	return ok
}

func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanUndo()
}

func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist.CanRedo()
}

// AddLayer appends l on top of the stack and makes it active.
func (s *Store) AddLayer(l models.Layer) (models.Layer, error) {
	if err := l.Validate(); err != nil {
		return models.Layer{}, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if d, ok := l.Data.(*models.DrawingData); ok && s.Limits().MaxStrokes > 0 && len(d.Strokes) > s.Limits().MaxStrokes {
		return models.Layer{}, fmt.Errorf("drawing has %d strokes: %w", len(d.Strokes), apperr.ErrLimitExceeded)
	}
	err := s.update("Add "+string(l.Type()), true, func(d *models.Document) error {
		if s.limits.MaxLayers > 0 && len(d.Layers) >= s.limits.MaxLayers {
			return fmt.Errorf("max %d layers: %w", s.limits.MaxLayers, apperr.ErrLimitExceeded)
		}
		if d.LayerIndex(l.ID) >= 0 {
			return fmt.Errorf("layer %s: %w", l.ID, apperr.ErrAlreadyExists)
		}
		d.Layers = append(d.Layers, l.Clone())
		d.ActiveLayerID = l.ID
		return nil
	})
	if err != nil {
		return models.Layer{}, err
	}
	return l.Clone(), nil
}

// AddImage adds a photo layer.
func (s *Store) AddImage(path string, width, height float64, opts ...layer.Option) (models.Layer, error) {
	l, err := layer.NewImage(path, width, height, opts...)
	if err != nil {
		return models.Layer{}, err
	}
	return s.AddLayer(l)
}

// AddSticker adds a sticker centered on the canvas.
func (s *Store) AddSticker(data models.StickerData, opts ...layer.Option) (models.Layer, error) {
	l, err := layer.NewSticker(data, s.canvas(), opts...)
	if err != nil {
		return models.Layer{}, err
	}
	return s.AddLayer(l)
}

// AddText adds a text block centered on the canvas.
func (s *Store) AddText(data models.TextData, opts ...layer.Option) (models.Layer, error) {
	l, err := layer.NewText(data, s.canvas(), opts...)
	if err != nil {
		return models.Layer{}, err
	}
	return s.AddLayer(l)
}

// AddDrawing adds a freehand layer.
func (s *Store) AddDrawing(strokes []models.Stroke, opts ...layer.Option) (models.Layer, error) {
	l, err := layer.NewDrawing(strokes, opts...)
	if err != nil {
		return models.Layer{}, err
	}
	return s.AddLayer(l)
}

// AppendStroke adds one stroke to a drawing layer.
func (s *Store) AppendStroke(id string, st models.Stroke) error {
	if st.ID == "" {
		st.ID = layer.NewID("stroke")
	}
	return s.update("Draw", true, func(d *models.Document) error {
		l, err := s.editable(d, id)
		if err != nil {
			return err
		}
		dd, ok := l.Data.(*models.DrawingData)
		if !ok {
			return fmt.Errorf("layer %s is %s, not drawing: %w", id, l.Type(), apperr.ErrInvalidInput)
		}
		if s.limits.MaxStrokes > 0 && len(dd.Strokes) >= s.limits.MaxStrokes {
			return fmt.Errorf("max %d strokes: %w", s.limits.MaxStrokes, apperr.ErrLimitExceeded)
		}
		dd.Strokes = append(dd.Strokes, st)
		if err := l.Validate(); err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		return nil
	})
}

// EditLayer applies an unlock, an edit through fn and a lock as one history
// entry. A nil locked leaves the lock as is; a nil fn only changes the lock,
// which is the one update allowed on a locked layer. The layer id and
// payload type cannot change.
// fn runs after an unlock and before a lock, so unlocking and editing in
// one call succeeds while editing a layer that stays locked does not.
func (s *Store) EditLayer(id string, locked *bool, fn func(l *models.Layer) error) error {
	if locked == nil && fn == nil {
		return nil
	}
	action := "Update layer"
	if fn == nil {
		action = "Unlock layer"
		if *locked {
			action = "Lock layer"
		}
	}
	return s.update(action, true, func(d *models.Document) error {
		l, ok := d.Layer(id)
		if !ok {
			return fmt.Errorf("layer %s: %w", id, apperr.ErrNotFound)
		}
		if locked != nil && !*locked {
			l.Locked = false
		}
		if fn != nil {
			if _, err := s.editable(d, id); err != nil {
				return err
			}
			typ := l.Type()
			if err := fn(l); err != nil {
				return err
			}
			if l.ID != id || l.Type() != typ {
				return fmt.Errorf("layer %s: id and type are immutable: %w", id, apperr.ErrInvalidInput)
			}
			if err := l.Validate(); err != nil {
				return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
			}
		}
		if locked != nil && *locked {
			l.Locked = true
		}
		return nil
	})
}

// RemoveLayer deletes a layer, clearing the selection if it was active.
func (s *Store) RemoveLayer(id string) error {
	var typ models.LayerType
	s.mu.Lock()
	if l, ok := s.doc.Layer(id); ok {
		typ = l.Type()
	}
	s.mu.Unlock()
	return s.update("Remove "+string(typ), true, func(d *models.Document) error {
		i := d.LayerIndex(id)
		if i < 0 {
			return fmt.Errorf("layer %s: %w", id, apperr.ErrNotFound)
		}
		d.Layers = slices.Delete(d.Layers, i, i+1)
		if d.ActiveLayerID == id {
			d.ActiveLayerID = ""
		}
		if s.drag != nil && s.drag.id == id {
			s.drag = nil
		}
		return nil
	})
}

// MoveLayer moves a layer to stack position index, clamped to the stack.
func (s *Store) MoveLayer(id string, index int) error {
	return s.update("Reorder layer", true, func(d *models.Document) error {
		i := d.LayerIndex(id)
		if i < 0 {
			return fmt.Errorf("layer %s: %w", id, apperr.ErrNotFound)
		}
		index = max(0, min(index, len(d.Layers)-1))
		l := d.Layers[i]
		d.Layers = slices.Delete(d.Layers, i, i+1)
		d.Layers = slices.Insert(d.Layers, index, l)
		return nil
	})
}

// SetActiveLayer selects a layer. An empty id clears the selection.
func (s *Store) SetActiveLayer(id string) error {
	return s.update("Select layer", false, func(d *models.Document) error {
		if id != "" && d.LayerIndex(id) < 0 {
			return fmt.Errorf("layer %s: %w", id, apperr.ErrNotFound)
		}
		d.ActiveLayerID = id
		return nil
	})
}

// SetZoom sets the view zoom.
func (s *Store) SetZoom(zoom float64) error {
	if !(zoom > 0) {
		return fmt.Errorf("zoom %v: %w", zoom, apperr.ErrInvalidInput)
	}
	return s.update("Zoom", false, func(d *models.Document) error {
		d.Zoom = zoom
		return nil
	})
}

// SetPan sets the view offset.
func (s *Store) SetPan(p geom.Point) error {
	return s.update("Pan", false, func(d *models.Document) error {
		d.Pan = p
		return nil
	})
}

// SetCanvasSize resizes the canvas.
func (s *Store) SetCanvasSize(size geom.Size) error {
	if err := s.checkCanvas(size); err != nil {
		return err
	}
	return s.update("Resize canvas", true, func(d *models.Document) error {
		d.CanvasSize = size
		return nil
	})
}

// ApplyFilter activates name at intensity. Re-applying a name drops the
// existing entry and appends a fresh one, so it composes last.
func (s *Store) ApplyFilter(name string, intensity float64) (models.AppliedFilter, error) {
	if !s.filters.Has(name) {
		return models.AppliedFilter{}, fmt.Errorf("filter %q: %w", name, apperr.ErrFilterNotFound)
	}
	af := models.AppliedFilter{Name: name, Intensity: max(0, min(1, intensity))}
	err := s.update("Apply "+name+" filter", true, func(d *models.Document) error {
		if i := d.FilterIndex(name); i >= 0 {
			d.Filters = slices.Delete(d.Filters, i, i+1)
		}
		af.ID = layer.NewID("filter")
		d.Filters = append(d.Filters, af)
		return nil
	})
	return af, err
}

// RemoveFilter deactivates name.
func (s *Store) RemoveFilter(name string) error {
	return s.update("Remove "+name+" filter", true, func(d *models.Document) error {
		i := d.FilterIndex(name)
		if i < 0 {
			return fmt.Errorf("filter %q not applied: %w", name, apperr.ErrNotFound)
		}
		d.Filters = slices.Delete(d.Filters, i, i+1)
		return nil
	})
}

// ClearFilters removes every active filter.
func (s *Store) ClearFilters() error {
	return s.update("Clear filters", true, func(d *models.Document) error {
		d.Filters = []models.AppliedFilter{}
		return nil
	})
}

// UpdateAdjustment sets one channel, clamped to its range.
func (s *Store) UpdateAdjustment(ch models.Channel, value float64) error {
	return s.update("Adjust "+string(ch), true, func(d *models.Document) error {
		adj, err := d.Adjustments.With(ch, value)
		if err != nil {
			return err
		}
		d.Adjustments = adj
		return nil
	})
}

// ResetAdjustments zeroes every channel.
func (s *Store) ResetAdjustments() error {
	return s.update("Reset adjustments", true, func(d *models.Document) error {
		d.Adjustments = models.Adjustments{}
		return nil
	})
}

func (s *Store) canvas() geom.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.CanvasSize
}

func (s *Store) checkCanvas(size geom.Size) error {
	if size.Empty() {
		return fmt.Errorf("canvas %vx%v: %w", size.Width, size.Height, apperr.ErrInvalidInput)
	}
	if m := s.limits.MaxCanvas; m > 0 && (size.Width > m || size.Height > m) {
		return fmt.Errorf("canvas %vx%v exceeds %v: %w", size.Width, size.Height, m, apperr.ErrLimitExceeded)
	}
	return nil
}

func (s *Store) checkDocument(doc models.Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidProjectData, err)
	}
	if err := s.checkCanvas(doc.CanvasSize); err != nil {
		return err
	}
	if s.limits.MaxLayers > 0 && len(doc.Layers) > s.limits.MaxLayers {
		return fmt.Errorf("%d layers: %w", len(doc.Layers), apperr.ErrLimitExceeded)
	}
	return nil
}

// editable returns the layer with id if it exists and is unlocked.
func (s *Store) editable(d *models.Document, id string) (*models.Layer, error) {
	l, ok := d.Layer(id)
	if !ok {
		return nil, fmt.Errorf("layer %s: %w", id, apperr.ErrNotFound)
	}
	if l.Locked {
		return nil, fmt.Errorf("layer %s: %w", id, apperr.ErrLayerLocked)
	}
	return l, nil
}
