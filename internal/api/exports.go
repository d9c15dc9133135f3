package api

import (
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumina/internal/export"
)

// StartExport handles POST /api/sessions/{sessionID}/exports.
//
//	@Summary		Start a background export
//	@Tags			exports
//	@Accept			json
//	@Produce		json
//	@Param			body	body		export.Options	true	"Format, quality and size"
//	@Success		202		{object}	editorservice.JobInfo
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sessionID}/exports [post]
func (h *Handler) StartExport(w http.ResponseWriter, r *http.Request) {
	var opts export.Options
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &opts); err != nil {
			writeError(w, r, "start export", err)
			return
		}
	}
	job, err := h.svc.StartExport(chi.URLParam(r, "sessionID"), opts)
	if err != nil {
		writeError(w, r, "start export", err)
		return
	}
	writeJSON(w, http.StatusAccepted, job.Info())
}

// GetExport handles GET /api/exports/{jobID}.
func (h *Handler) GetExport(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Job(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, r, "get export", err)
		return
	}
	writeJSON(w, http.StatusOK, job.Info())
}

// CancelExport handles DELETE /api/exports/{jobID}.
func (h *Handler) CancelExport(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelExport(chi.URLParam(r, "jobID")); err != nil {
		writeError(w, r, "cancel export", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// DownloadExport handles GET /api/exports/{jobID}/file.
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Job(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, r, "download export", err)
		return
	}
	info := job.Info()
	if info.Result == nil {
		writeJSON(w, http.StatusConflict, errorBody("export is not finished"))
		return
	}
	data, err := h.svc.ReadAsset(r.Context(), info.Result.Location)
	if err != nil {
		writeError(w, r, "download export", err)
		return
	}
	name := path.Base(info.Result.Location)
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ExportFormats handles GET /api/export/formats.
func (h *Handler) ExportFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"formats": export.Formats(),
		"presets": export.QualityPresets(),
	})
}
