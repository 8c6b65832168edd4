package partners

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Repository provides partner persistence.
type Repository interface {
	Create(ctx context.Context, p *Partner) error
	Get(ctx context.Context, id int64) (*Partner, error)
	List(ctx context.Context, req ListPartnersRequest) ([]Partner, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const partnerColumns = `id, company_id, name, tax_id, email, phone, street, street2, city, state, zip, country, is_active, created_at, updated_at`

func scanPartner(row pgx.Row) (*Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.TaxID, &p.Email, &p.Phone,
		&p.Street, &p.Street2, &p.City, &p.State, &p.Zip, &p.Country,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *pgRepository) Create(ctx context.Context, p *Partner) error {
	row := r.pool.QueryRow(ctx, `INSERT INTO partners
(company_id, name, tax_id, email, phone, street, street2, city, state, zip, country, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
RETURNING id, is_active, created_at, updated_at`,
		p.CompanyID, p.Name, p.TaxID, p.Email, p.Phone, p.Street, p.Street2, p.City, p.State, p.Zip, p.Country)
	if err := row.Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("create partner: %w", err)
	}
	return nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Partner, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id=$1`, id)
	return scanPartner(row)
}

func (r *pgRepository) List(ctx context.Context, req ListPartnersRequest) ([]Partner, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + partnerColumns + ` FROM partners WHERE company_id=$1`)
	args := []any{req.CompanyID}
	if req.IsActive != nil {
		args = append(args, *req.IsActive)
		fmt.Fprintf(&sb, ` AND is_active=$%d`, len(args))
	}
	if req.Search != "" {
		args = append(args, "%"+req.Search+"%")
		fmt.Fprintf(&sb, ` AND name ILIKE $%d`, len(args))
	}
	sb.WriteString(` ORDER BY name ASC`)
	if req.Limit > 0 {
		args = append(args, req.Limit)
		fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	}
	if req.Offset > 0 {
		args = append(args, req.Offset)
		fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))
	}
	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()
	var out []Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *pgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE partners SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return fmt.Errorf("set partner active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
