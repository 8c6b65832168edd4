package measurement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medicao-erp/medicao-erp/internal/billing"
	"github.com/medicao-erp/medicao-erp/internal/contracts"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/partners"
	"github.com/medicao-erp/medicao-erp/internal/masterdata/products"
	"github.com/medicao-erp/medicao-erp/internal/sales/orders"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

const defaultLineSequence = 10

type auditTrail interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type idempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates sheet lifecycle, line edition and invoice
// generation. Every mutating action runs inside one repository
// transaction; batch actions commit or roll back as a whole.
type Service struct {
	repo      Repository
	orders    orders.Repository
	contracts contracts.Repository
	products  products.Repository
	partners  partners.Repository
	agg       *Aggregator
	audit     auditTrail
	idem      idempotencyGuard
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceDeps wires the Service's collaborators.
type ServiceDeps struct {
	Repo       Repository
	Orders     orders.Repository
	Contracts  contracts.Repository
	Products   products.Repository
	Partners   partners.Repository
	Aggregator *Aggregator
	Audit      auditTrail
	Idem       idempotencyGuard
	Logger     *slog.Logger
}

// NewService constructs the measurement Service.
func NewService(d ServiceDeps) *Service {
	return &Service{
		repo:      d.Repo,
		orders:    d.Orders,
		contracts: d.Contracts,
		products:  d.Products,
		partners:  d.Partners,
		agg:       d.Aggregator,
		audit:     d.Audit,
		idem:      d.Idem,
		validate:  validator.New(),
		logger:    d.Logger,
		now:       time.Now,
	}
}

// CreateSheet opens a new draft sheet, assigning its number from the
// bm.sheet sequence. The period defaults to the current month.
func (s *Service) CreateSheet(ctx context.Context, req CreateSheetRequest) (*Sheet, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate sheet: %w", err)
	}
	if _, err := s.partners.Get(ctx, req.PartnerID); err != nil {
		return nil, fmt.Errorf("partner %d: %w", req.PartnerID, err)
	}

	period := shared.CurrentPeriod(s.now())
	if req.Period != nil {
		period = *req.Period
	}
	if err := period.Validate(); err != nil {
		return nil, err
	}
	start, end := period.Bounds()

	mode := req.Mode
	if mode == "" {
		mode = ModeQuantity
	}
	currency := req.CurrencyCode

	var order *orders.Order
	if req.SaleOrderID != nil {
		var err error
		order, err = s.orders.GetOrder(ctx, *req.SaleOrderID)
		if err != nil {
			return nil, fmt.Errorf("sale order %d: %w", *req.SaleOrderID, err)
		}
		if currency == "" {
			currency = order.CurrencyCode
		}
	}
	if req.ContractID != nil {
		contract, err := s.contracts.GetContract(ctx, *req.ContractID)
		if err != nil {
			return nil, fmt.Errorf("contract %d: %w", *req.ContractID, err)
		}
		if currency == "" {
			currency = contract.CurrencyCode
		}
	}
	if currency == "" {
		currency = "BRL"
	}

	sheet := &Sheet{
		CompanyID:         req.CompanyID,
		PartnerID:         req.PartnerID,
		SaleOrderID:       req.SaleOrderID,
		ContractID:        req.ContractID,
		ProjectID:         req.ProjectID,
		AnalyticAccountID: req.AnalyticAccountID,
		CurrencyCode:      currency,
		Period:            period,
		PeriodStart:       start,
		PeriodEnd:         end,
		Mode:              mode,
		RetentionPercent:  req.RetentionPercent,
		Status:            SheetStatusDraft,
		SitePartnerID:     req.SitePartnerID,
		SiteName:          req.SiteName,
		SiteReference:     req.SiteReference,
		Notes:             req.Notes,
		CreatedBy:         req.CreatedBy,
	}
	if req.SitePartnerID != nil {
		if err := s.fillSiteFromPartner(ctx, sheet); err != nil {
			return nil, err
		}
	}
	applySiteOverrides(sheet, req.SiteStreet, req.SiteStreet2, req.SiteCity, req.SiteState, req.SiteZip, req.SiteCountry)

	err := s.repo.WithTx(ctx, func(tx Repository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		sheet.Number = number
		return tx.CreateSheet(ctx, sheet)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("sheet created",
		slog.Int64("sheet_id", sheet.ID),
		slog.String("number", sheet.Number),
		slog.String("period", sheet.Period.String()))
	s.recordAudit(ctx, req.CreatedBy, "create", sheet)
	return sheet, nil
}

// Get returns a sheet with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Sheet, error) {
	return s.repo.GetSheet(ctx, id)
}

// GetDetailed returns a sheet with each referenced line enriched with
// its cross-period previously approved sum.
func (s *Service) GetDetailed(ctx context.Context, id int64) (*Sheet, error) {
	sheet, err := s.repo.GetSheet(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range sheet.Lines {
		l := &sheet.Lines[i]
		if !l.HasReference() {
			continue
		}
		sum, err := s.agg.PreviousApproved(ctx, sheet.PartnerID, l.SaleOrderLineID, l.ContractLineID, sheet.ID)
		if err != nil {
			return nil, err
		}
		l.PreviousApprovedQty = sum
	}
	return sheet, nil
}

// List returns sheets matching the filter, newest period first.
func (s *Service) List(ctx context.Context, req ListSheetsRequest) ([]Sheet, *shared.Pagination, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, nil, fmt.Errorf("validate list: %w", err)
	}
	sheets, total, err := s.repo.ListSheets(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	p := shared.NewPagination(req.Page, req.PerPage, total)
	return sheets, &p, nil
}

// UpdateSheet edits header fields of a draft or submitted sheet. A
// retention change triggers an amount recomputation.
func (s *Service) UpdateSheet(ctx context.Context, id int64, req UpdateSheetRequest) (*Sheet, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate sheet update: %w", err)
	}
	var sheet *Sheet
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		var err error
		sheet, err = tx.GetSheet(ctx, id)
		if err != nil {
			return err
		}
		if sheet.Status != SheetStatusDraft && sheet.Status != SheetStatusSubmitted {
			return fmt.Errorf("edit sheet in %s: %w", sheet.Status, shared.ErrInvalidStatus)
		}
		if req.Period != nil && *req.Period != sheet.Period {
			if sheet.Status != SheetStatusDraft {
				return fmt.Errorf("change period of %s sheet: %w", sheet.Status, shared.ErrInvalidStatus)
			}
			if err := req.Period.Validate(); err != nil {
				return err
			}
			sheet.Period = *req.Period
			sheet.PeriodStart, sheet.PeriodEnd = req.Period.Bounds()
		}
		retentionChanged := req.RetentionPercent != nil && *req.RetentionPercent != sheet.RetentionPercent
		if req.RetentionPercent != nil {
			sheet.RetentionPercent = *req.RetentionPercent
		}
		if req.AnalyticAccountID != nil {
			sheet.AnalyticAccountID = req.AnalyticAccountID
		}
		if req.SitePartnerID != nil && !equalRef(req.SitePartnerID, sheet.SitePartnerID) {
			sheet.SitePartnerID = req.SitePartnerID
			if err := s.fillSiteFromPartner(ctx, sheet); err != nil {
				return err
			}
		}
		if req.SiteName != nil {
			sheet.SiteName = req.SiteName
		}
		if req.SiteReference != nil {
			sheet.SiteReference = req.SiteReference
		}
		applySiteOverrides(sheet, req.SiteStreet, req.SiteStreet2, req.SiteCity, req.SiteState, req.SiteZip, req.SiteCountry)
		if req.Notes != nil {
			sheet.Notes = req.Notes
		}
		if err := tx.UpdateSheetHeader(ctx, sheet); err != nil {
			return err
		}
		if retentionChanged {
			sheet.RecomputeAmounts()
			return tx.UpdateSheetAmounts(ctx, sheet)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sheet, nil
}

// DeleteSheet removes a draft or cancelled sheet and all of its lines.
func (s *Service) DeleteSheet(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(tx Repository) error {
		sheet, err := tx.GetSheet(ctx, id)
		if err != nil {
			return err
		}
		if sheet.Status != SheetStatusDraft && sheet.Status != SheetStatusCancelled {
			return fmt.Errorf("delete sheet in %s: %w", sheet.Status, shared.ErrInvalidStatus)
		}
		return tx.DeleteSheet(ctx, id)
	})
}

// AddLine appends a line to a draft sheet, deriving product, unit,
// price and description from the referenced source line when one is set.
func (s *Service) AddLine(ctx context.Context, sheetID int64, req AddLineRequest) (*Line, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate line: %w", err)
	}
	line := &Line{
		SheetID:         sheetID,
		Sequence:        req.Sequence,
		SaleOrderLineID: req.SaleOrderLineID,
		ContractLineID:  req.ContractLineID,
		ProductID:       req.ProductID,
		MeasuredQty:     req.MeasuredQty,
		MeasuredPercent: req.MeasuredPercent,
	}
	if line.Sequence == 0 {
		line.Sequence = defaultLineSequence
	}

	err := s.repo.WithTx(ctx, func(tx Repository) error {
		sheet, err := tx.GetSheet(ctx, sheetID)
		if err != nil {
			return err
		}
		if sheet.Status != SheetStatusDraft {
			return fmt.Errorf("add line to %s sheet: %w", sheet.Status, shared.ErrInvalidStatus)
		}
		if err := s.deriveSource(ctx, sheet, line); err != nil {
			return err
		}
		// user-entered values override the source-derived defaults
		if req.Description != "" {
			line.Description = req.Description
		}
		if req.UoM != "" {
			line.UoM = req.UoM
		}
		if req.PriceUnit != nil {
			line.PriceUnit = *req.PriceUnit
		}
		line.Recompute(sheet.Mode)
		if err := tx.InsertLine(ctx, line); err != nil {
			return err
		}
		return s.refreshAmounts(ctx, tx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLine edits a line of a draft sheet. Changing the source
// reference re-derives the copied fields before applying overrides.
func (s *Service) UpdateLine(ctx context.Context, sheetID, lineID int64, req UpdateLineRequest) (*Line, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate line update: %w", err)
	}
	var line *Line
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		sheet, err := tx.GetSheet(ctx, sheetID)
		if err != nil {
			return err
		}
		if sheet.Status != SheetStatusDraft {
			return fmt.Errorf("edit line of %s sheet: %w", sheet.Status, shared.ErrInvalidStatus)
		}
		line, err = tx.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.SheetID != sheetID {
			return shared.ErrNotFound
		}

		if req.ClearSource {
			line.SaleOrderLineID = nil
			line.ContractLineID = nil
		}
		refChanged := false
		if req.SaleOrderLineID != nil && !equalRef(line.SaleOrderLineID, req.SaleOrderLineID) {
			line.SaleOrderLineID = req.SaleOrderLineID
			line.ContractLineID = nil
			refChanged = true
		}
		if req.ContractLineID != nil && !equalRef(line.ContractLineID, req.ContractLineID) {
			line.ContractLineID = req.ContractLineID
			line.SaleOrderLineID = nil
			refChanged = true
		}
		if refChanged {
			if err := s.deriveSource(ctx, sheet, line); err != nil {
				return err
			}
		}
		if req.ProductID != nil {
			line.ProductID = req.ProductID
		}
		if req.Description != nil {
			line.Description = *req.Description
		}
		if req.UoM != nil {
			line.UoM = *req.UoM
		}
		if req.PriceUnit != nil {
			line.PriceUnit = *req.PriceUnit
		}
		if req.MeasuredQty != nil {
			line.MeasuredQty = *req.MeasuredQty
		}
		if req.MeasuredPercent != nil {
			line.MeasuredPercent = *req.MeasuredPercent
		}
		if req.Sequence != nil {
			line.Sequence = *req.Sequence
		}
		line.Recompute(sheet.Mode)
		if err := tx.UpdateLine(ctx, line); err != nil {
			return err
		}
		return s.refreshAmounts(ctx, tx, sheet)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteLine removes a line from a draft sheet.
func (s *Service) DeleteLine(ctx context.Context, sheetID, lineID int64) error {
	return s.repo.WithTx(ctx, func(tx Repository) error {
		sheet, err := tx.GetSheet(ctx, sheetID)
		if err != nil {
			return err
		}
		if sheet.Status != SheetStatusDraft {
			return fmt.Errorf("delete line of %s sheet: %w", sheet.Status, shared.ErrInvalidStatus)
		}
		line, err := tx.GetLine(ctx, lineID)
		if err != nil {
			return err
		}
		if line.SheetID != sheetID {
			return shared.ErrNotFound
		}
		if err := tx.DeleteLine(ctx, lineID); err != nil {
			return err
		}
		return s.refreshAmounts(ctx, tx, sheet)
	})
}

// Submit sends the sheets for approval, all in one transaction.
func (s *Service) Submit(ctx context.Context, req BatchActionRequest) error {
	return s.batchTransition(ctx, req, ActionSubmit, shared.ApprovalSubmit)
}

// Approve clears the sheets for billing, all in one transaction.
func (s *Service) Approve(ctx context.Context, req BatchActionRequest) error {
	return s.batchTransition(ctx, req, ActionApprove, shared.ApprovalApprove)
}

// SetToDraft returns the sheets to draft, all in one transaction.
func (s *Service) SetToDraft(ctx context.Context, req BatchActionRequest) error {
	return s.batchTransition(ctx, req, ActionReset, shared.ApprovalReset)
}

// Cancel cancels the sheets, all in one transaction. A sheet whose
// linked invoice moved past draft cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, req BatchActionRequest) error {
	return s.batchTransition(ctx, req, ActionCancel, shared.ApprovalCancel)
}

func (s *Service) batchTransition(ctx context.Context, req BatchActionRequest, action TransitionAction, logAction shared.ApprovalAction) error {
	if err := s.validate.Struct(req); err != nil {
		return fmt.Errorf("validate batch: %w", err)
	}
	partnerIDs := make(map[int64]struct{})
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		for _, id := range req.SheetIDs {
			sheet, err := tx.GetSheet(ctx, id)
			if err != nil {
				return fmt.Errorf("sheet %d: %w", id, err)
			}
			in := TransitionInput{LineCount: len(sheet.Lines)}
			if len(sheet.Lines) > 0 {
				in.MinApprovedQty = sheet.Lines[0].ApprovedQty
				for _, l := range sheet.Lines[1:] {
					if l.ApprovedQty < in.MinApprovedQty {
						in.MinApprovedQty = l.ApprovedQty
					}
				}
			}
			if action == ActionCancel && sheet.InvoiceID != nil {
				status, err := tx.InvoiceStatus(ctx, *sheet.InvoiceID)
				if err != nil {
					return fmt.Errorf("sheet %d invoice: %w", id, err)
				}
				in.InvoiceStatus = string(status)
			}
			if err := Transition(sheet, action, in); err != nil {
				return fmt.Errorf("sheet %s: %w", sheet.Number, err)
			}
			if err := tx.SetStatus(ctx, id, sheet.Status); err != nil {
				return err
			}
			if err := tx.RecordApproval(ctx, shared.ApprovalLog{
				Module:  "measurement",
				RefID:   id,
				ActorID: req.ActorID,
				Action:  logAction,
				Note:    req.Note,
			}); err != nil {
				return err
			}
			partnerIDs[sheet.PartnerID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for pid := range partnerIDs {
		s.agg.Invalidate(ctx, pid)
	}
	s.logger.Info("sheets transitioned",
		slog.String("action", string(action)),
		slog.Int("count", len(req.SheetIDs)),
		slog.Int64("actor_id", req.ActorID))
	return nil
}

// GenerateInvoice derives the invoice for one sheet, persists it, links
// it and marks the sheet invoiced, all in one transaction.
func (s *Service) GenerateInvoice(ctx context.Context, sheetID int64, req GenerateInvoiceRequest) (*billing.Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate invoice request: %w", err)
	}
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	if err := s.idem.CheckAndInsert(ctx, key, "measurement.invoice"); err != nil {
		return nil, err
	}

	var invoice *billing.Invoice
	var partnerID int64
	err := s.repo.WithTx(ctx, func(tx Repository) error {
		sheet, err := tx.GetSheet(ctx, sheetID)
		if err != nil {
			return err
		}
		if err := Transition(sheet, ActionInvoice, TransitionInput{LineCount: len(sheet.Lines)}); err != nil {
			return err
		}
		src, err := s.loadInvoiceSource(ctx, sheet, req.ActorID)
		if err != nil {
			return err
		}
		spec, err := BuildInvoiceSpec(sheet, sheet.Lines, src)
		if err != nil {
			return err
		}
		invoice, err = tx.CreateInvoice(ctx, *spec)
		if err != nil {
			return err
		}
		if err := tx.LinkInvoice(ctx, sheetID, invoice.ID); err != nil {
			return err
		}
		if err := tx.SetStatus(ctx, sheetID, sheet.Status); err != nil {
			return err
		}
		partnerID = sheet.PartnerID
		return tx.RecordApproval(ctx, shared.ApprovalLog{
			Module:  "measurement",
			RefID:   sheetID,
			ActorID: req.ActorID,
			Action:  shared.ApprovalInvoice,
			Note:    invoice.Number,
		})
	})
	if err != nil {
		if delErr := s.idem.Delete(ctx, key); delErr != nil {
			s.logger.Warn("release idempotency key", slog.Any("error", delErr))
		}
		return nil, err
	}
	s.agg.Invalidate(ctx, partnerID)
	s.logger.Info("invoice generated",
		slog.Int64("sheet_id", sheetID),
		slog.Int64("invoice_id", invoice.ID),
		slog.String("number", invoice.Number))
	return invoice, nil
}

// PreviousApproved returns the informational cross-period sum for a line.
func (s *Service) PreviousApproved(ctx context.Context, sheetID, lineID int64) (float64, error) {
	line, err := s.repo.GetLine(ctx, lineID)
	if err != nil {
		return 0, err
	}
	if line.SheetID != sheetID {
		return 0, shared.ErrNotFound
	}
	sheet, err := s.repo.GetSheet(ctx, sheetID)
	if err != nil {
		return 0, err
	}
	return s.agg.PreviousApproved(ctx, sheet.PartnerID, line.SaleOrderLineID, line.ContractLineID, sheetID)
}

// deriveSource copies product, unit, price, base quantity, description
// and taxes from whichever reference the line carries.
func (s *Service) deriveSource(ctx context.Context, sheet *Sheet, l *Line) error {
	switch {
	case l.SaleOrderLineID != nil:
		ol, err := s.orders.GetLine(ctx, *l.SaleOrderLineID)
		if err != nil {
			return fmt.Errorf("order line %d: %w", *l.SaleOrderLineID, err)
		}
		if sheet.SaleOrderID != nil && ol.OrderID != *sheet.SaleOrderID {
			return fmt.Errorf("order line %d belongs to another order: %w", ol.ID, shared.ErrValidation)
		}
		l.ProductID = &ol.ProductID
		l.Description = ol.Description
		l.UoM = ol.UoM
		l.PriceUnit = ol.PriceUnit
		l.BaseQty = ol.OrderedQty
		l.TaxIDs = ol.TaxIDs
	case l.ContractLineID != nil:
		cl, err := s.contracts.GetLine(ctx, *l.ContractLineID)
		if err != nil {
			return fmt.Errorf("contract line %d: %w", *l.ContractLineID, err)
		}
		if sheet.ContractID != nil && cl.ContractID != *sheet.ContractID {
			return fmt.Errorf("contract line %d belongs to another contract: %w", cl.ID, shared.ErrValidation)
		}
		l.ProductID = &cl.ProductID
		l.Description = cl.Description
		l.UoM = cl.UoM
		l.PriceUnit = cl.PriceUnit
		l.BaseQty = cl.Quantity
		l.TaxIDs = cl.TaxIDs
	case l.ProductID != nil:
		p, err := s.products.Get(ctx, *l.ProductID)
		if err != nil {
			return fmt.Errorf("product %d: %w", *l.ProductID, err)
		}
		l.Description = p.DisplayName()
		l.UoM = p.UoM
		l.PriceUnit = p.ListPrice
		l.BaseQty = 0
		l.TaxIDs = p.TaxIDs
	}
	return nil
}

// refreshAmounts reloads the sheet's lines and persists recomputed totals.
func (s *Service) refreshAmounts(ctx context.Context, tx Repository, sheet *Sheet) error {
	lines, err := tx.ListLines(ctx, sheet.ID)
	if err != nil {
		return err
	}
	sheet.Lines = lines
	sheet.RecomputeAmounts()
	return tx.UpdateSheetAmounts(ctx, sheet)
}

// loadInvoiceSource gathers the read-only order, contract and product
// data referenced by the sheet's lines.
func (s *Service) loadInvoiceSource(ctx context.Context, sheet *Sheet, actorID int64) (InvoiceSource, error) {
	src := InvoiceSource{
		OrderLines:    make(map[int64]orders.OrderLine),
		ContractLines: make(map[int64]contracts.ContractLine),
		Products:      make(map[int64]products.Product),
		IssuedByID:    actorID,
	}
	if sheet.SaleOrderID != nil {
		order, err := s.orders.GetOrder(ctx, *sheet.SaleOrderID)
		if err != nil {
			return src, fmt.Errorf("sale order %d: %w", *sheet.SaleOrderID, err)
		}
		src.Order = order
	}
	if sheet.ContractID != nil {
		contract, err := s.contracts.GetContract(ctx, *sheet.ContractID)
		if err != nil {
			return src, fmt.Errorf("contract %d: %w", *sheet.ContractID, err)
		}
		src.Contract = contract
	}
	for i := range sheet.Lines {
		l := &sheet.Lines[i]
		if l.SaleOrderLineID != nil {
			if _, ok := src.OrderLines[*l.SaleOrderLineID]; !ok {
				ol, err := s.orders.GetLine(ctx, *l.SaleOrderLineID)
				if err != nil {
					return src, fmt.Errorf("order line %d: %w", *l.SaleOrderLineID, err)
				}
				src.OrderLines[ol.ID] = *ol
			}
		}
		if l.ContractLineID != nil {
			if _, ok := src.ContractLines[*l.ContractLineID]; !ok {
				cl, err := s.contracts.GetLine(ctx, *l.ContractLineID)
				if err != nil {
					return src, fmt.Errorf("contract line %d: %w", *l.ContractLineID, err)
				}
				src.ContractLines[cl.ID] = *cl
			}
		}
		if l.ProductID != nil {
			if _, ok := src.Products[*l.ProductID]; !ok {
				p, err := s.products.Get(ctx, *l.ProductID)
				if err != nil {
					return src, fmt.Errorf("product %d: %w", *l.ProductID, err)
				}
				src.Products[p.ID] = *p
			}
		}
	}
	return src, nil
}

// fillSiteFromPartner copies the work site address from the sheet's
// site partner. Callers apply explicit request fields afterwards, so a
// prefilled address stays editable.
func (s *Service) fillSiteFromPartner(ctx context.Context, sheet *Sheet) error {
	p, err := s.partners.Get(ctx, *sheet.SitePartnerID)
	if err != nil {
		return fmt.Errorf("site partner %d: %w", *sheet.SitePartnerID, err)
	}
	sheet.SiteStreet = p.Street
	sheet.SiteStreet2 = p.Street2
	sheet.SiteCity = p.City
	sheet.SiteState = p.State
	sheet.SiteZip = p.Zip
	sheet.SiteCountry = p.Country
	return nil
}

func applySiteOverrides(sheet *Sheet, street, street2, city, state, zip, country *string) {
	if street != nil {
		sheet.SiteStreet = street
	}
	if street2 != nil {
		sheet.SiteStreet2 = street2
	}
	if city != nil {
		sheet.SiteCity = city
	}
	if state != nil {
		sheet.SiteState = state
	}
	if zip != nil {
		sheet.SiteZip = zip
	}
	if country != nil {
		sheet.SiteCountry = country
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, sheet *Sheet) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "measurement_sheet",
		EntityID: fmt.Sprint(sheet.ID),
		Meta: map[string]any{
			"number": sheet.Number,
			"period": sheet.Period.String(),
			"status": string(sheet.Status),
		},
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

func equalRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
