package api

import (
	"encoding/json"

	"github.com/starford/lumina/internal/editorservice"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/models"
	"github.com/starford/lumina/internal/project"
)

// CreateSessionRequest opens a blank canvas or a saved project.
type CreateSessionRequest struct {
	ProjectID string  `json:"projectId,omitempty" example:"proj_1700000000000_a1b2c3d4e"`
	Width     float64 `json:"width,omitempty" example:"1080"`
	Height    float64 `json:"height,omitempty" example:"1080"`
}

// SessionResponse is a session with its current document.
type SessionResponse struct {
	editorservice.SessionInfo
	Document models.Document `json:"document"`
}

// AddLayerRequest adds a layer. Type selects which other fields apply.
type AddLayerRequest struct {
	Type      models.LayerType  `json:"type" example:"sticker" validate:"required"`
	StickerID string            `json:"stickerId,omitempty" example:"emoji_heart"`
	Path      string            `json:"path,omitempty" example:"images/photo.png"`
	Text      *models.TextData  `json:"text,omitempty"`
	Strokes   []models.Stroke   `json:"strokes,omitempty"`
	Transform *geom.Transform   `json:"transform,omitempty"`
	Opacity   *float64          `json:"opacity,omitempty"`
	BlendMode *models.BlendMode `json:"blendMode,omitempty"`
}

// UpdateLayerRequest patches a layer. Data is merged into the payload.
type UpdateLayerRequest struct {
	Visible   *bool             `json:"visible,omitempty"`
	Locked    *bool             `json:"locked,omitempty"`
	Opacity   *float64          `json:"opacity,omitempty"`
	BlendMode *models.BlendMode `json:"blendMode,omitempty"`
	Transform *geom.Transform   `json:"transform,omitempty"`
	Data      json.RawMessage   `json:"data,omitempty"`
}

// MoveLayerRequest reorders a layer.
type MoveLayerRequest struct {
	Index int `json:"index" example:"0"`
}

// ApplyFilterRequest applies or replaces a named filter.
type ApplyFilterRequest struct {
	Name      string  `json:"name" example:"vintage" validate:"required"`
	Intensity float64 `json:"intensity" example:"0.8"`
}

// AdjustmentRequest sets one adjustment channel.
type AdjustmentRequest struct {
	Channel models.Channel `json:"channel" example:"brightness" validate:"required"`
	Value   float64        `json:"value" example:"25"`
}

// ViewRequest updates zoom, pan or canvas size.
type ViewRequest struct {
	Zoom   *float64    `json:"zoom,omitempty"`
	Pan    *geom.Point `json:"pan,omitempty"`
	Canvas *geom.Size  `json:"canvas,omitempty"`
}

// DragRequest is one step of a drag gesture. To begin a drag, name the
// layer or give the canvas point that was touched.
type DragRequest struct {
	LayerID string  `json:"layerId,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// DragResponse reports whether a drag step changed state.
type DragResponse struct {
	LayerID string `json:"layerId,omitempty"`
	Applied bool   `json:"applied"`
}

// SaveRequest stores a session as a project.
type SaveRequest struct {
	Name string `json:"name,omitempty" example:"Beach day"`
}

// ProjectListResponse wraps project listings.
type ProjectListResponse struct {
	Projects []project.Meta `json:"projects" validate:"required"`
	Total    int            `json:"total" example:"3" validate:"required"`
}
