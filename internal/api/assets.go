package api

import (
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumina/internal/storage"
)

// ListAssets handles GET /api/assets/{kind}, where kind is images or exports.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListAssets(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetAsset handles GET /api/assets/{kind}/{name}.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != storage.SanitizeName(name) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid asset name"))
		return
	}
	loc := assetLocation(r)
	data, err := h.svc.ReadAsset(r.Context(), loc)
	if err != nil {
		writeError(w, r, "get asset", err)
		return
	}
	ct := mime.TypeByExtension(path.Ext(loc))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// DeleteAsset handles DELETE /api/assets/{kind}/{name}.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAsset(r.Context(), assetLocation(r)); err != nil {
		writeError(w, r, "delete asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func assetLocation(r *http.Request) string {
	return chi.URLParam(r, "kind") + "/" + chi.URLParam(r, "name")
}
