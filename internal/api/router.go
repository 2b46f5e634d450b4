package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	// Event stream, authorised by header or access_token query parameter.
	if sseHandler != nil {
		r.With(StreamAuthMiddleware(authEnabled, token)).Get("/events", sseHandler.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authEnabled, token))

		// Entries.
		r.Get("/files", h.ListFiles)
		r.Post("/files", h.ImportFiles)
		r.Put("/files/{index}/{field}", h.SetAnnotation)

		// Selection and preview.
		r.Get("/selection", h.GetSelection)
		r.Post("/selection", h.Select)
		r.Get("/mesh", h.GetMesh)

		// Export download.
		r.Get("/export", h.Export)

		// Editor pane.
		r.Get("/pane", h.GetPane)
		r.Put("/pane", h.SetPane)
		r.Post("/pane/toggle", h.TogglePane)

		r.Get("/search", h.Search)
	})

	return r
}
