package orders

import "github.com/go-chi/chi/v5"

// Routes mounts order endpoints under /orders.
func Routes(r chi.Router, h *Handler) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/{id}", h.get)
		r.Get("/{id}/lines", h.listLines)
	})
}
