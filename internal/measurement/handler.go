package measurement

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/medicao-erp/medicao-erp/internal/platform/httpx"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Handler exposes the sheet HTTP surface.
type Handler struct {
	svc       *Service
	approvals *shared.ApprovalRecorder
	exporter  *CSVExporter
}

// NewHandler constructs the measurement Handler.
func NewHandler(svc *Service, approvals *shared.ApprovalRecorder) *Handler {
	return &Handler{svc: svc, approvals: approvals, exporter: NewCSVExporter()}
}

func urlID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) createSheet(w http.ResponseWriter, r *http.Request) {
	var req CreateSheetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	sheet, err := h.svc.CreateSheet(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sheet)
}

func (h *Handler) getSheet(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	sheet, err := h.svc.GetDetailed(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sheet)
}

func listRequestFromQuery(r *http.Request) ListSheetsRequest {
	q := r.URL.Query()
	companyID, _ := strconv.ParseInt(q.Get("company_id"), 10, 64)
	req := ListSheetsRequest{CompanyID: companyID}
	if v := q.Get("partner_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.PartnerID = &id
		}
	}
	if v := q.Get("sale_order_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.SaleOrderID = &id
		}
	}
	if v := q.Get("contract_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ContractID = &id
		}
	}
	if v := q.Get("status"); v != "" {
		st := SheetStatus(v)
		req.Status = &st
	}
	if y := q.Get("period_year"); y != "" {
		if m := q.Get("period_month"); m != "" {
			year, _ := strconv.Atoi(y)
			month, _ := strconv.Atoi(m)
			req.Period = &shared.Period{Year: year, Month: month}
		}
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PerPage, _ = strconv.Atoi(q.Get("per_page"))
	return req
}

func (h *Handler) listSheets(w http.ResponseWriter, r *http.Request) {
	sheets, pagination, err := h.svc.List(r.Context(), listRequestFromQuery(r))
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":       sheets,
		"pagination": pagination,
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	req := listRequestFromQuery(r)
	req.PerPage = 200
	var all []Sheet
	for page := 1; ; page++ {
		req.Page = page
		sheets, _, err := h.svc.List(r.Context(), req)
		if err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		all = append(all, sheets...)
		if len(sheets) < req.PerPage {
			break
		}
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="medicoes.csv"`)
	if err := h.exporter.WriteSheets(w, all); err != nil {
		httpx.RespondError(w, r, err)
	}
}

func (h *Handler) updateSheet(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	var req UpdateSheetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	sheet, err := h.svc.UpdateSheet(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sheet)
}

func (h *Handler) deleteSheet(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	if err := h.svc.DeleteSheet(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	var req AddLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	line, err := h.svc.AddLine(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	sheetID, err1 := urlID(r, "id")
	lineID, err2 := urlID(r, "lineID")
	if err1 != nil || err2 != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", "sheet and line ids must be numeric")
		return
	}
	var req UpdateLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	line, err := h.svc.UpdateLine(r.Context(), sheetID, lineID, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	sheetID, err1 := urlID(r, "id")
	lineID, err2 := urlID(r, "lineID")
	if err1 != nil || err2 != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", "sheet and line ids must be numeric")
		return
	}
	if err := h.svc.DeleteLine(r.Context(), sheetID, lineID); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) previousApproved(w http.ResponseWriter, r *http.Request) {
	sheetID, err1 := urlID(r, "id")
	lineID, err2 := urlID(r, "lineID")
	if err1 != nil || err2 != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", "sheet and line ids must be numeric")
		return
	}
	sum, err := h.svc.PreviousApproved(r.Context(), sheetID, lineID)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"line_id":               lineID,
		"previous_approved_qty": sum,
	})
}

func (h *Handler) batch(action func(context.Context, BatchActionRequest) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchActionRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
			return
		}
		if err := action(r.Context(), req); err != nil {
			httpx.RespondError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) generateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	var req GenerateInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if key := r.Header.Get("Idempotency-Key"); key != "" && req.IdempotencyKey == "" {
		req.IdempotencyKey = key
	}
	invoice, err := h.svc.GenerateInvoice(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) listApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httpx.Problem(w, r, http.StatusBadRequest, "invalid id", err.Error())
		return
	}
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	logs, err := h.approvals.List(r.Context(), "measurement", id)
	if err != nil {
		httpx.RespondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}
