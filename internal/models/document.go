package models

import (
	"time"

	"github.com/starford/lumina/internal/geom"
)

// AppliedFilter is a named filter at an intensity in [0,1]. A document holds
// at most one entry per name.
type AppliedFilter struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
}

// Document is the persisted part of the editor state.
type Document struct {
	Layers        []Layer         `json:"layers"`
	ActiveLayerID string          `json:"activeLayerId,omitempty"`
	CanvasSize    geom.Size       `json:"canvasSize"`
	Zoom          float64         `json:"zoom"`
	Pan           geom.Point      `json:"pan"`
	Filters       []AppliedFilter `json:"filters"`
	Adjustments   Adjustments     `json:"adjustments"`
}

// NewDocument returns an empty document for a canvas of the given size.
func NewDocument(canvas geom.Size) Document {
	return Document{
		Layers:     []Layer{},
		CanvasSize: canvas,
		Zoom:       1,
		Filters:    []AppliedFilter{},
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	layers := make([]Layer, len(d.Layers))
	for i, l := range d.Layers {
		layers[i] = l.Clone()
	}
	d.Layers = layers
	d.Filters = append([]AppliedFilter{}, d.Filters...)
	return d
}

// LayerIndex returns the stack position of id, or -1.
func (d *Document) LayerIndex(id string) int {
	for i := range d.Layers {
		if d.Layers[i].ID == id {
			return i
		}
	}
	return -1
}

// Layer returns the layer with id.
func (d *Document) Layer(id string) (*Layer, bool) {
	i := d.LayerIndex(id)
	if i < 0 {
		return nil, false
	}
	return &d.Layers[i], true
}

// FilterIndex returns the position of the filter named name, or -1.
func (d *Document) FilterIndex(name string) int {
	for i := range d.Filters {
		if d.Filters[i].Name == name {
			return i
		}
	}
	return -1
}

// Snapshot is one immutable history entry.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	State     Document  `json:"state"`
}

// EditorState is a document plus its undo history.
type EditorState struct {
	Document
	History      []Snapshot `json:"history"`
	HistoryIndex int        `json:"historyIndex"`
}
