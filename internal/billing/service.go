package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// ErrEmptySpec rejects invoice specs without lines.
var ErrEmptySpec = fmt.Errorf("invoice spec has no lines: %w", shared.ErrValidation)

// Service exposes invoice operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the billing Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// BuildInvoice maps a spec onto an Invoice ready for persistence.
func BuildInvoice(spec InvoiceSpec) (*Invoice, error) {
	if spec.PartnerID == 0 {
		return nil, fmt.Errorf("invoice spec: partner required: %w", shared.ErrValidation)
	}
	if len(spec.Lines) == 0 {
		return nil, ErrEmptySpec
	}
	inv := &Invoice{
		CompanyID:     spec.CompanyID,
		PartnerID:     spec.PartnerID,
		Origin:        spec.Origin,
		CurrencyCode:  spec.CurrencyCode,
		PaymentTermID: spec.PaymentTermID,
		Status:        InvoiceStatusDraft,
		AmountTotal:   spec.Total(),
		IssuedByID:    spec.IssuedByID,
	}
	for i, ls := range spec.Lines {
		inv.Lines = append(inv.Lines, InvoiceLine{
			Sequence:             (i + 1) * 10,
			Description:          ls.Description,
			ProductID:            ls.ProductID,
			Quantity:             ls.Quantity,
			PriceUnit:            ls.PriceUnit,
			UoM:                  ls.UoM,
			TaxIDs:               ls.TaxIDs,
			AnalyticDistribution: ls.AnalyticDistribution,
		})
	}
	return inv, nil
}

// CreateFromSpec validates and persists a draft invoice.
func (s *Service) CreateFromSpec(ctx context.Context, spec InvoiceSpec) (*Invoice, error) {
	inv, err := BuildInvoice(spec)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("invoice created",
		slog.Int64("invoice_id", inv.ID),
		slog.String("number", inv.Number),
		slog.String("origin", inv.Origin))
	return inv, nil
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns invoices for a company, most recent first.
func (s *Service) List(ctx context.Context, companyID int64, limit, offset int) ([]Invoice, error) {
	return s.repo.List(ctx, companyID, limit, offset)
}

// Post confirms a draft invoice.
func (s *Service) Post(ctx context.Context, id int64) error {
	status, err := s.repo.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	if status != InvoiceStatusDraft {
		return fmt.Errorf("post from %s: %w", status, shared.ErrInvalidStatus)
	}
	now := time.Now()
	return s.repo.SetStatus(ctx, id, InvoiceStatusPosted, &now)
}

// Void cancels a draft or posted invoice.
func (s *Service) Void(ctx context.Context, id int64) error {
	status, err := s.repo.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	if status == InvoiceStatusVoid {
		return fmt.Errorf("void from %s: %w", status, shared.ErrInvalidStatus)
	}
	return s.repo.SetStatus(ctx, id, InvoiceStatusVoid, nil)
}
