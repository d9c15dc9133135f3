package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumina/internal/export"
	"github.com/starford/lumina/internal/project"
)

// ListProjects handles GET /api/projects.
//
//	@Summary		List or search saved projects, newest first
//	@Tags			projects
//	@Produce		json
//	@Param			limit	query		int		false	"Max results"
//	@Param			q		query		string	false	"Name search"
//	@Success		200		{object}	ProjectListResponse
//	@Security		BearerAuth
//	@Router			/projects [get]
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		items []project.Meta
		err   error
	)
	if term := q.Get("q"); term != "" {
		items, err = h.svc.Projects().Search(r.Context(), term, limit)
	} else {
		items, err = h.svc.Projects().List(r.Context(), limit)
	}
	if err != nil {
		writeError(w, r, "list projects", err)
		return
	}
	if items == nil {
		items = []project.Meta{}
	}
	writeJSON(w, http.StatusOK, ProjectListResponse{Projects: items, Total: len(items)})
}

// ProjectStats handles GET /api/projects/stats.
func (h *Handler) ProjectStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Projects().Stats(r.Context())
	if err != nil {
		writeError(w, r, "project stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// GetProject handles GET /api/projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Projects().Load(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, "get project", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(p.Checksum))
	writeJSON(w, http.StatusOK, p)
}

// DeleteProject handles DELETE /api/projects/{projectID}.
func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Projects().Delete(r.Context(), chi.URLParam(r, "projectID")); err != nil {
		writeError(w, r, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateProject handles POST /api/projects/{projectID}/duplicate.
func (h *Handler) DuplicateProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Projects().Duplicate(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, r, "duplicate project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Meta)
}

// ExportProjectJSON handles GET /api/projects/{projectID}/json.
func (h *Handler) ExportProjectJSON(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "projectID")
	data, err := h.svc.Projects().ExportJSON(r.Context(), id)
	if err != nil {
		writeError(w, r, "export project json", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportProject handles POST /api/projects/import with a project JSON body.
func (h *Handler) ImportProject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("body too large"))
		return
	}
	p, err := h.svc.Projects().Import(r.Context(), data)
	if err != nil {
		writeError(w, r, "import project", err)
		return
	}
	writeJSON(w, http.StatusCreated, p.Meta)
}

// RenderProject handles POST /api/projects/{projectID}/render and blocks
// until the export is stored.
func (h *Handler) RenderProject(w http.ResponseWriter, r *http.Request) {
	var opts export.Options
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &opts); err != nil {
			writeError(w, r, "render project", err)
			return
		}
	}
	res, err := h.svc.ExportProject(r.Context(), chi.URLParam(r, "projectID"), opts)
	if err != nil {
		writeError(w, r, "render project", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
