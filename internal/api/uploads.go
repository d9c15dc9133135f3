package api

import (
	"io"
	"net/http"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadImage handles POST /api/images (multipart/form-data, field "file").
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read upload"))
		return
	}

	up, err := h.svc.UploadImage(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, r, "upload image", err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}
