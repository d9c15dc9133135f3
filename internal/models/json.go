package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/geom"
)

type layerJSON struct {
	ID        string          `json:"id"`
	Type      LayerType       `json:"type"`
	Visible   *bool           `json:"visible,omitempty"`
	Locked    bool            `json:"locked"`
	Opacity   *float64        `json:"opacity,omitempty"`
	BlendMode BlendMode       `json:"blendMode,omitempty"`
	Transform *geom.Transform `json:"transform,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// MarshalJSON writes the layer with its payload under "data" and the
// payload kind under "type".
func (l Layer) MarshalJSON() ([]byte, error) {
	if l.Data == nil {
		return nil, fmt.Errorf("layer %s: missing data", l.ID)
	}
	data, err := json.Marshal(l.Data)
	if err != nil {
		return nil, err
	}
	visible, opacity, tr := l.Visible, l.Opacity, l.Transform
	return json.Marshal(layerJSON{
		ID:        l.ID,
		Type:      l.Data.Type(),
		Visible:   &visible,
		Locked:    l.Locked,
		Opacity:   &opacity,
		BlendMode: l.BlendMode,
		Transform: &tr,
		Data:      data,
	})
}

// UnmarshalJSON reads a layer, filling defaults for missing optional fields.
// Unknown types and malformed payloads wrap apperr.ErrInvalidProjectData.
func (l *Layer) UnmarshalJSON(b []byte) error {
	var raw layerJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("layer: %v: %w", err, apperr.ErrInvalidProjectData)
	}

	trimmed := bytes.TrimSpace(raw.Data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("layer %s: data must be an object: %w", raw.ID, apperr.ErrInvalidProjectData)
	}

	var data LayerData
	switch raw.Type {
	case LayerImage:
		data = &ImageData{}
	case LayerSticker:
		data = &StickerData{}
	case LayerText:
		data = &TextData{}
	case LayerDrawing:
		data = &DrawingData{}
	default:
		return fmt.Errorf("layer %s: unknown type %q: %w", raw.ID, raw.Type, apperr.ErrInvalidProjectData)
	}
	if err := json.Unmarshal(trimmed, data); err != nil {
		return fmt.Errorf("layer %s: %v: %w", raw.ID, err, apperr.ErrInvalidProjectData)
	}
	if s, ok := data.(*StickerData); ok && s.SourceType == "" {
		s.SourceType = StickerSourceEmoji
	}
	if d, ok := data.(*DrawingData); ok && d.Strokes == nil {
		d.Strokes = []Stroke{}
	}

	*l = Layer{
		ID:        raw.ID,
		Visible:   true,
		Locked:    raw.Locked,
		Opacity:   1,
		BlendMode: BlendNormal,
		Transform: geom.Identity(),
		Data:      data,
	}
	if raw.Visible != nil {
		l.Visible = *raw.Visible
	}
	if raw.Opacity != nil {
		l.Opacity = *raw.Opacity
	}
	if raw.BlendMode != "" {
		l.BlendMode = raw.BlendMode
	}
	if raw.Transform != nil {
		l.Transform = raw.Transform.Normalize()
	}
	return nil
}

// DecodeDocument parses a serialized document, applies defaults and
// validates it. Every failure wraps apperr.ErrInvalidProjectData.
func DecodeDocument(b []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		if errors.Is(err, apperr.ErrInvalidProjectData) {
			return Document{}, err
		}
		return Document{}, fmt.Errorf("document: %v: %w", err, apperr.ErrInvalidProjectData)
	}
	if d.Layers == nil {
		d.Layers = []Layer{}
	}
	if d.Filters == nil {
		d.Filters = []AppliedFilter{}
	}
	if d.Zoom <= 0 {
		d.Zoom = 1
	}
	if err := d.Validate(); err != nil {
		return Document{}, fmt.Errorf("document: %v: %w", err, apperr.ErrInvalidProjectData)
	}
	return d, nil
}
