package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumina/internal/apperr"
	"github.com/starford/lumina/internal/editorservice"
	"github.com/starford/lumina/internal/geom"
	"github.com/starford/lumina/internal/layer"
	"github.com/starford/lumina/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *editorservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *editorservice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*editorservice.Session, bool) {
	sess, err := h.svc.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, "get session", err)
		return nil, false
	}
	return sess, true
}

func (h *Handler) writeSession(w http.ResponseWriter, status int, sess *editorservice.Session) {
	writeJSON(w, status, SessionResponse{SessionInfo: h.svc.Info(sess), Document: sess.Store.Document()})
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List open editor sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{array}	editorservice.SessionInfo
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions())
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Open a blank canvas or a saved project
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	true	"Canvas or project"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create session", err)
		return
	}
	var (
		sess *editorservice.Session
		err  error
	)
	if req.ProjectID != "" {
		sess, err = h.svc.Open(r.Context(), req.ProjectID)
	} else {
		sess, err = h.svc.NewSession(geom.Size{Width: req.Width, Height: req.Height})
	}
	if err != nil {
		writeError(w, r, "create session", err)
		return
	}
	h.writeSession(w, http.StatusCreated, sess)
}

// GetSession handles GET /api/sessions/{sessionID}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// GetState handles GET /api/sessions/{sessionID}/state and includes history.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Store.State())
}

// CloseSession handles DELETE /api/sessions/{sessionID}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveSession handles POST /api/sessions/{sessionID}/save.
//
//	@Summary		Save a session as a project
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveRequest	false	"Project name"
//	@Success		200		{object}	project.Meta
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/save [post]
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, "save session", err)
			return
		}
	}
	meta, err := h.svc.Save(r.Context(), chi.URLParam(r, "sessionID"), req.Name)
	if err != nil {
		writeError(w, r, "save session", err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// Preview handles GET /api/sessions/{sessionID}/preview.png?width=N.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	res, err := h.svc.Preview(r.Context(), chi.URLParam(r, "sessionID"), width)
	if err != nil {
		writeError(w, r, "preview", err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, res.Image); err != nil {
		writeError(w, r, "preview", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Placeholders", strconv.Itoa(len(res.Placeholders)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// FilterThumbnail handles GET /api/sessions/{sessionID}/filters/{name}/thumbnail.png.
// Query parameters: intensity (default 1) and size (default 80).
func (h *Handler) FilterThumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	intensity := 1.0
	if v := q.Get("intensity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid intensity"))
			return
		}
		intensity = f
	}
	size, _ := strconv.Atoi(q.Get("size"))
	img, err := h.svc.FilterThumbnail(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "name"), intensity, size)
	if err != nil {
		writeError(w, r, "filter thumbnail", err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, r, "filter thumbnail", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// AddLayer handles POST /api/sessions/{sessionID}/layers.
//
//	@Summary		Add a layer
//	@Tags			layers
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddLayerRequest	true	"Layer to add"
//	@Success		201		{object}	models.Layer
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/layers [post]
func (h *Handler) AddLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AddLayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "add layer", err)
		return
	}

	var opts []layer.Option
	if req.Transform != nil {
		opts = append(opts, layer.WithTransform(*req.Transform))
	}
	if req.Opacity != nil {
		opts = append(opts, layer.WithOpacity(*req.Opacity))
	}
	if req.BlendMode != nil {
		opts = append(opts, layer.WithBlendMode(*req.BlendMode))
	}

	var (
		l   models.Layer
		err error
	)
	switch req.Type {
	case models.LayerSticker:
		l, err = h.svc.AddCatalogSticker(sess.ID, req.StickerID)
	case models.LayerImage:
		l, err = h.svc.AddImage(r.Context(), sess.ID, req.Path)
	case models.LayerText:
		if req.Text == nil {
			err = fmt.Errorf("%w: text is required", apperr.ErrInvalidInput)
			break
		}
		l, err = sess.Store.AddText(*req.Text, opts...)
	case models.LayerDrawing:
		l, err = sess.Store.AddDrawing(req.Strokes, opts...)
	default:
		err = fmt.Errorf("%w: unknown layer type %q", apperr.ErrInvalidInput, req.Type)
	}
	if err != nil {
		writeError(w, r, "add layer", err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// UpdateLayer handles PATCH /api/sessions/{sessionID}/layers/{layerID}.
// Unlocking happens before the other fields apply and locking after them,
// all as one undo step.
func (h *Handler) UpdateLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "layerID")
	var req UpdateLayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update layer", err)
		return
	}

	var edit func(l *models.Layer) error
	if req.Visible != nil || req.Opacity != nil || req.BlendMode != nil || req.Transform != nil || len(req.Data) > 0 {
		edit = func(l *models.Layer) error {
			if req.Visible != nil {
				l.Visible = *req.Visible
			}
			if req.Opacity != nil {
				l.Opacity = *req.Opacity
			}
			if req.BlendMode != nil {
				l.BlendMode = *req.BlendMode
			}
			if req.Transform != nil {
				l.Transform = *req.Transform
			}
			if len(req.Data) > 0 {
				if err := json.Unmarshal(req.Data, l.Data); err != nil {
					return fmt.Errorf("%w: data: %v", apperr.ErrInvalidInput, err)
				}
			}
			return nil
		}
	}
	if err := sess.Store.EditLayer(id, req.Locked, edit); err != nil {
		writeError(w, r, "update layer", err)
		return
	}
	doc := sess.Store.Document()
	l, _ := doc.Layer(id)
	writeJSON(w, http.StatusOK, l)
}

// DeleteLayer handles DELETE /api/sessions/{sessionID}/layers/{layerID}.
func (h *Handler) DeleteLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Store.RemoveLayer(chi.URLParam(r, "layerID")); err != nil {
		writeError(w, r, "delete layer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveLayer handles POST /api/sessions/{sessionID}/layers/{layerID}/move.
func (h *Handler) MoveLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req MoveLayerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "move layer", err)
		return
	}
	if err := sess.Store.MoveLayer(chi.URLParam(r, "layerID"), req.Index); err != nil {
		writeError(w, r, "move layer", err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// SelectLayer handles POST /api/sessions/{sessionID}/layers/{layerID}/select.
func (h *Handler) SelectLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Store.SetActiveLayer(chi.URLParam(r, "layerID")); err != nil {
		writeError(w, r, "select layer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AppendStroke handles POST /api/sessions/{sessionID}/layers/{layerID}/strokes.
func (h *Handler) AppendStroke(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var st models.Stroke
	if err := decodeJSON(w, r, &st); err != nil {
		writeError(w, r, "append stroke", err)
		return
	}
	if err := sess.Store.AppendStroke(chi.URLParam(r, "layerID"), st); err != nil {
		writeError(w, r, "append stroke", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyFilter handles POST /api/sessions/{sessionID}/filters.
func (h *Handler) ApplyFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ApplyFilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "apply filter", err)
		return
	}
	f, err := sess.Store.ApplyFilter(req.Name, req.Intensity)
	if err != nil {
		writeError(w, r, "apply filter", err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// RemoveFilter handles DELETE /api/sessions/{sessionID}/filters/{name}.
func (h *Handler) RemoveFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Store.RemoveFilter(chi.URLParam(r, "name")); err != nil {
		writeError(w, r, "remove filter", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearFilters handles DELETE /api/sessions/{sessionID}/filters.
func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Store.ClearFilters(); err != nil {
		writeError(w, r, "clear filters", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateAdjustment handles PUT /api/sessions/{sessionID}/adjustments.
func (h *Handler) UpdateAdjustment(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req AdjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update adjustment", err)
		return
	}
	if err := sess.Store.UpdateAdjustment(req.Channel, req.Value); err != nil {
		writeError(w, r, "update adjustment", err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Store.Document().Adjustments)
}

// ResetAdjustments handles DELETE /api/sessions/{sessionID}/adjustments.
func (h *Handler) ResetAdjustments(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Store.ResetAdjustments(); err != nil {
		writeError(w, r, "reset adjustments", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateView handles PATCH /api/sessions/{sessionID}/view.
func (h *Handler) UpdateView(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ViewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "update view", err)
		return
	}
	var err error
	if req.Zoom != nil {
		err = sess.Store.SetZoom(*req.Zoom)
	}
	if err == nil && req.Pan != nil {
		err = sess.Store.SetPan(*req.Pan)
	}
	if err == nil && req.Canvas != nil {
		err = sess.Store.SetCanvasSize(*req.Canvas)
	}
	if err != nil {
		writeError(w, r, "update view", err)
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// Undo handles POST /api/sessions/{sessionID}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if !sess.Store.Undo() {
		writeJSON(w, http.StatusConflict, errorBody("nothing to undo"))
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// Redo handles POST /api/sessions/{sessionID}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if !sess.Store.Redo() {
		writeJSON(w, http.StatusConflict, errorBody("nothing to redo"))
		return
	}
	h.writeSession(w, http.StatusOK, sess)
}

// BeginDrag handles POST /api/sessions/{sessionID}/drag.
func (h *Handler) BeginDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DragRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "begin drag", err)
		return
	}
	id := req.LayerID
	var err error
	if id == "" {
		id, err = sess.Store.BeginDragAt(geom.Point{X: req.X, Y: req.Y})
	} else {
		err = sess.Store.BeginDrag(id)
	}
	if err != nil {
		writeError(w, r, "begin drag", err)
		return
	}
	writeJSON(w, http.StatusOK, DragResponse{LayerID: id})
}

// DragTo handles PATCH /api/sessions/{sessionID}/drag.
func (h *Handler) DragTo(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req DragRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "drag", err)
		return
	}
	applied, err := sess.Store.DragTo(req.X, req.Y)
	if err != nil {
		writeError(w, r, "drag", err)
		return
	}
	writeJSON(w, http.StatusOK, DragResponse{Applied: applied})
}

// EndDrag handles DELETE /api/sessions/{sessionID}/drag.
func (h *Handler) EndDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	committed, err := sess.Store.EndDrag()
	if err != nil {
		writeError(w, r, "end drag", err)
		return
	}
	slog.Debug("drag ended", slog.String("session", sess.ID), slog.Bool("committed", committed))
	writeJSON(w, http.StatusOK, DragResponse{Applied: committed})
}
