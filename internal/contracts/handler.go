package contracts

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicao-erp/medicao-erp/internal/platform/httpx"
)

// Handler exposes read-only contract endpoints.
type Handler struct {
	repo Repository
}

// NewHandler constructs the contract Handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	c, err := h.repo.GetContract(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listLines(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	lines, err := h.repo.ListLines(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}
