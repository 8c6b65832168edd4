package products

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicao-erp/medicao-erp/internal/platform/httpx"
)

// Handler exposes the read-only product catalog.
type Handler struct {
	repo Repository
}

// NewHandler constructs the product Handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, _ := strconv.ParseInt(q.Get("company_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	out, err := h.repo.List(r.Context(), companyID, limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
