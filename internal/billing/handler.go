package billing

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicao-erp/medicao-erp/internal/platform/httpx"
)

// Handler exposes invoice HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs the billing Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, _ := strconv.ParseInt(q.Get("company_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	out, err := h.svc.List(r.Context(), companyID, limit, offset)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	inv, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	if err := h.svc.Post(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	if err := h.svc.Void(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
