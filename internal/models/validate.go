package models

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// MaxDimension bounds every payload extent in canvas units.
const MaxDimension = 16384

func dimension() []validation.Rule {
	return []validation.Rule{validation.Min(0.0), validation.Max(float64(MaxDimension))}
}

func blendModeRule() validation.Rule {
	modes := make([]interface{}, len(BlendModes))
	for i, m := range BlendModes {
		modes[i] = m
	}
	return validation.In(modes...)
}

// Validate checks the layer envelope and its payload.
func (l *Layer) Validate() error {
	if err := validation.ValidateStruct(l,
		validation.Field(&l.ID, validation.Required),
		validation.Field(&l.Opacity, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&l.BlendMode, validation.Required, blendModeRule()),
		validation.Field(&l.Data, validation.NotNil),
	); err != nil {
		return fmt.Errorf("layer %s: %w", l.ID, err)
	}
	if err := validation.Validate(l.Transform.Scale, validation.Min(0.0).Exclusive()); err != nil {
		return fmt.Errorf("layer %s: scale: %w", l.ID, err)
	}
	if v, ok := l.Data.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("layer %s: data: %w", l.ID, err)
		}
	}
	return nil
}

func (d *ImageData) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Width, dimension()...),
		validation.Field(&d.Height, dimension()...),
	)
}

func (d *StickerData) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.AssetID, validation.Required),
		validation.Field(&d.SourceType, validation.In(StickerSourceEmoji)),
		validation.Field(&d.Width, dimension()...),
		validation.Field(&d.Height, dimension()...),
	)
}

func (d *TextData) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.FontSize, dimension()...),
		validation.Field(&d.TextWidth, dimension()...),
		validation.Field(&d.TextHeight, dimension()...),
	)
}

func (d *DrawingData) Validate() error {
	for i := range d.Strokes {
		s := &d.Strokes[i]
		if err := validation.ValidateStruct(s,
			validation.Field(&s.BrushType, validation.In(BrushPen, BrushMarker, BrushPencil, BrushEraser)),
			validation.Field(&s.Size, dimension()...),
			validation.Field(&s.Opacity, validation.Min(0.0), validation.Max(100.0)),
		); err != nil {
			return fmt.Errorf("stroke %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks document-level invariants: positive canvas, unique layer
// ids, a resolvable active layer and valid layers.
func (d *Document) Validate() error {
	if d.CanvasSize.Empty() {
		return fmt.Errorf("canvas size must be positive, got %vx%v", d.CanvasSize.Width, d.CanvasSize.Height)
	}
	seen := make(map[string]struct{}, len(d.Layers))
	for i := range d.Layers {
		l := &d.Layers[i]
		if _, dup := seen[l.ID]; dup {
			return fmt.Errorf("duplicate layer id %q", l.ID)
		}
		seen[l.ID] = struct{}{}
		if err := l.Validate(); err != nil {
			return err
		}
	}
	if d.ActiveLayerID != "" {
		if _, ok := seen[d.ActiveLayerID]; !ok {
			return fmt.Errorf("active layer %q does not exist", d.ActiveLayerID)
		}
	}
	names := make(map[string]struct{}, len(d.Filters))
	for _, f := range d.Filters {
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("duplicate filter %q", f.Name)
		}
		names[f.Name] = struct{}{}
	}
	return nil
}
