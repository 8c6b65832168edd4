package contracts

import "github.com/go-chi/chi/v5"

// Routes mounts contract endpoints under /contracts.
func Routes(r chi.Router, h *Handler) {
	r.Route("/contracts", func(r chi.Router) {
		r.Get("/{id}", h.get)
		r.Get("/{id}/lines", h.listLines)
	})
}
