package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lumina/internal/editorservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *editorservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Catalogs.
	r.Get("/filters", h.ListFilters)
	r.Get("/stickers", h.ListStickers)
	r.Get("/export/formats", h.ExportFormats)

	// Source images and stored files.
	r.Post("/images", h.UploadImage)
	r.Get("/assets/{kind}", h.ListAssets)
	r.Get("/assets/{kind}/{name}", h.GetAsset)
	r.Delete("/assets/{kind}/{name}", h.DeleteAsset)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.CreateSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Get("/state", h.GetState)
			r.Post("/save", h.SaveSession)
			r.Get("/preview.png", h.Preview)
			r.Post("/exports", h.StartExport)

			r.Post("/layers", h.AddLayer)
			r.Patch("/layers/{layerID}", h.UpdateLayer)
			r.Delete("/layers/{layerID}", h.DeleteLayer)
			r.Post("/layers/{layerID}/move", h.MoveLayer)
			r.Post("/layers/{layerID}/select", h.SelectLayer)
			r.Post("/layers/{layerID}/strokes", h.AppendStroke)

			r.Post("/filters", h.ApplyFilter)
			r.Delete("/filters", h.ClearFilters)
			r.Delete("/filters/{name}", h.RemoveFilter)
			r.Get("/filters/{name}/thumbnail.png", h.FilterThumbnail)
			r.Put("/adjustments", h.UpdateAdjustment)
			r.Delete("/adjustments", h.ResetAdjustments)
			r.Patch("/view", h.UpdateView)

			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)

			r.Post("/drag", h.BeginDrag)
			r.Patch("/drag", h.DragTo)
			r.Delete("/drag", h.EndDrag)
		})
	})

	r.Get("/exports/{jobID}", h.GetExport)
	r.Delete("/exports/{jobID}", h.CancelExport)
	r.Get("/exports/{jobID}/file", h.DownloadExport)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Get("/stats", h.ProjectStats)
		r.Post("/import", h.ImportProject)
		r.Get("/{projectID}", h.GetProject)
		r.Delete("/{projectID}", h.DeleteProject)
		r.Post("/{projectID}/duplicate", h.DuplicateProject)
		r.Get("/{projectID}/json", h.ExportProjectJSON)
		r.Post("/{projectID}/render", h.RenderProject)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
