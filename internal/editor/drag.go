package editor

import (
	"fmt"
	"time"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/layer"
)

// dragState tracks one in-progress gesture. Intermediate positions write the
// layer transform directly without touching history.
type dragState struct {
	id         string
	origin     geom.Point
	lastWrite  time.Time
	wrote      bool
	pending    geom.Point
	hasPending bool
}

// BeginDrag starts moving layer id.
func (s *Store) BeginDrag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, err := s.editable(&s.doc, id)
	if err != nil {
		return err
	}
	s.drag = &dragState{id: id, origin: geom.Point{X: l.Transform.X, Y: l.Transform.Y}}
	return nil
}

// BeginDragAt starts moving the top-most visible layer under p, given in
// canvas units, and returns its id. ErrNotFound means nothing is there.
func (s *Store) BeginDragAt(p geom.Point) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := layer.TopmostAt(s.doc.Layers, p)
	if !ok {
		return "", fmt.Errorf("no layer at (%v, %v): %w", p.X, p.Y, apperr.ErrNotFound)
	}
	l, err := s.editable(&s.doc, id)
	if err != nil {
		return "", err
	}
	s.drag = &dragState{id: id, origin: geom.Point{X: l.Transform.X, Y: l.Transform.Y}}
	return id, nil
}

// DragTo moves the dragged layer to (x, y) in canvas units. At most one write
// happens per drag interval; it reports whether this call wrote. A throttled
// position is kept and applied by EndDrag.
func (s *Store) DragTo(x, y float64) (bool, error) {
	s.mu.Lock()
	dr := s.drag
	if dr == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("no drag in progress: %w", apperr.ErrInvalidInput)
	}
	now := s.now()
	if dr.wrote && now.Sub(dr.lastWrite) < s.limits.DragInterval {
		dr.pending = geom.Point{X: x, Y: y}
		dr.hasPending = true
		s.mu.Unlock()
		return false, nil
	}
	l, ok := s.doc.Layer(dr.id)
	if !ok {
		s.drag = nil
		s.mu.Unlock()
		return false, fmt.Errorf("layer %s: %w", dr.id, apperr.ErrNotFound)
	}
	l.Transform.X, l.Transform.Y = x, y
	dr.lastWrite, dr.wrote, dr.hasPending = now, true, false
	s.mu.Unlock()

	s.notify(ActionDragLayer)
	return true, nil
}

// EndDrag applies any throttled position and commits one "Move layer"
// snapshot if the layer moved. It reports whether a snapshot was committed.
func (s *Store) EndDrag() (bool, error) {
	s.mu.Lock()
	dr := s.drag
	s.drag = nil
	if dr == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("no drag in progress: %w", apperr.ErrInvalidInput)
	}
	l, ok := s.doc.Layer(dr.id)
	if !ok {
		s.mu.Unlock()
		return false, fmt.Errorf("layer %s: %w", dr.id, apperr.ErrNotFound)
	}
	if dr.hasPending {
		l.Transform.X, l.Transform.Y = dr.pending.X, dr.pending.Y
	}
	if l.Transform.X == dr.origin.X && l.Transform.Y == dr.origin.Y {
		s.mu.Unlock()
		return false, nil
	}
	s.hist.Commit(ActionMoveLayer, s.doc)
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(ActionMoveLayer)
	}
	return true, nil
}

// Dragging reports the id of the layer being dragged, if any.
func (s *Store) Dragging() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.drag == nil {
		return "", false
	}
	return s.drag.id, true
}
