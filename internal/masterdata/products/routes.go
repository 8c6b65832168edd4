package products

import "github.com/go-chi/chi/v5"

// Routes mounts product endpoints under /products.
func Routes(r chi.Router, h *Handler) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
}
