package measurement

import "github.com/go-chi/chi/v5"

// Routes mounts the sheet endpoints under /measurement.
func Routes(r chi.Router, h *Handler) {
	r.Route("/measurement/sheets", func(r chi.Router) {
		r.Get("/", h.listSheets)
		r.Post("/", h.createSheet)
		r.Get("/export.csv", h.exportCSV)

		r.Post("/submit", h.batch(h.svc.Submit))
		r.Post("/approve", h.batch(h.svc.Approve))
		r.Post("/reset", h.batch(h.svc.SetToDraft))
		r.Post("/cancel", h.batch(h.svc.Cancel))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSheet)
			r.Patch("/", h.updateSheet)
			r.Delete("/", h.deleteSheet)
			r.Post("/invoice", h.generateInvoice)
			r.Get("/approvals", h.listApprovals)

			r.Post("/lines", h.addLine)
			r.Patch("/lines/{lineID}", h.updateLine)
			r.Delete("/lines/{lineID}", h.deleteLine)
			r.Get("/lines/{lineID}/previous-approved", h.previousApproved)
		})
	})
}
