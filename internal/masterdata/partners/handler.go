package partners

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicao-erp/medicao-erp/internal/platform/httpx"
)

// Handler exposes partner HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler constructs the partner Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreatePartnerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	p, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, _ := strconv.ParseInt(q.Get("company_id"), 10, 64)
	req := ListPartnersRequest{
		CompanyID: companyID,
		Search:    q.Get("search"),
	}
	if v := q.Get("is_active"); v != "" {
		active := v == "true" || v == "1"
		req.IsActive = &active
	}
	if v := q.Get("limit"); v != "" {
		req.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		req.Offset, _ = strconv.Atoi(v)
	}
	out, err := h.svc.List(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	if err := h.svc.Archive(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
