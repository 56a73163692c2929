package server

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter mounts the API routes.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/v1/documents", func(r chi.Router) {
		r.Post("/", h.CreateDocument)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Delete("/", h.DeleteDocument)
			r.Post("/versions", h.SaveVersion)
			r.Get("/versions", h.ListVersions)
			r.Post("/restore", h.RestoreVersion)
			r.Get("/backlinks", h.GetBacklinks)
			r.Get("/graph", h.GetGraph)
			r.Post("/title", h.ChangeTitle)
			r.Post("/visibility", h.SetVisibility)
		})
	})

	return r
}
