package api

import (
	"net/http"
	"strconv"

	"github.com/starford/lumina/internal/catalog"
)

// ListFilters handles GET /api/filters.
func (h *Handler) ListFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"filters": h.svc.Filters().Available()})
}

// ListStickers handles GET /api/stickers?category=&premium=.
// Without premium=true, premium stickers are left out.
func (h *Handler) ListStickers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	premium, _ := strconv.ParseBool(q.Get("premium"))
	var out []catalog.Sticker
	for _, st := range catalog.Available(premium) {
		if c := q.Get("category"); c != "" && st.Category != c {
			continue
		}
		out = append(out, st)
	}
	if out == nil {
		out = []catalog.Sticker{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stickers":   out,
		"categories": catalog.Categories(),
	})
}
