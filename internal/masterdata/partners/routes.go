package partners

import "github.com/go-chi/chi/v5"

// Routes mounts partner endpoints under /partners.
func Routes(r chi.Router, h *Handler) {
	r.Route("/partners", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Delete("/{id}", h.archive)
	})
}
