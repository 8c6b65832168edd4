package billing

import "github.com/go-chi/chi/v5"

// Routes mounts invoice endpoints under /billing/invoices.
func Routes(r chi.Router, h *Handler) {
	r.Route("/billing/invoices", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/post", h.post)
		r.Post("/{id}/void", h.void)
	})
}
