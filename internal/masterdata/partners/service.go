package partners

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// Service wraps partner operations with validation.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService constructs a partner Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create registers a partner.
func (s *Service) Create(ctx context.Context, req CreatePartnerRequest) (*Partner, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate partner: %w", err)
	}
	p := &Partner{
		CompanyID: req.CompanyID,
		Name:      req.Name,
		TaxID:     req.TaxID,
		Email:     req.Email,
		Phone:     req.Phone,
		Street:    req.Street,
		Street2:   req.Street2,
		City:      req.City,
		State:     req.State,
		Zip:       req.Zip,
		Country:   req.Country,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("partner created", slog.Int64("partner_id", p.ID), slog.String("name", p.Name))
	return p, nil
}

// Get fetches a single partner.
func (s *Service) Get(ctx context.Context, id int64) (*Partner, error) {
	return s.repo.Get(ctx, id)
}

// List returns partners for a company.
func (s *Service) List(ctx context.Context, req ListPartnersRequest) ([]Partner, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate list: %w", err)
	}
	if req.Limit == 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Archive deactivates a partner without deleting history.
func (s *Service) Archive(ctx context.Context, id int64) error {
	return s.repo.SetActive(ctx, id, false)
}
