package contracts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Repository reads rental contracts and their lines.
type Repository interface {
	GetContract(ctx context.Context, id int64) (*Contract, error)
	GetLine(ctx context.Context, id int64) (*ContractLine, error)
	ListLines(ctx context.Context, contractID int64) ([]ContractLine, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetContract(ctx context.Context, id int64) (*Contract, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, company_id, number, partner_id, status, currency_code,
payment_term_id, analytic_account_id, start_date, end_date, created_at, updated_at
FROM contracts WHERE id=$1`, id)
	var c Contract
	var status string
	err := row.Scan(&c.ID, &c.CompanyID, &c.Number, &c.PartnerID, &status, &c.CurrencyCode,
		&c.PaymentTermID, &c.AnalyticAccountID, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get contract: %w", err)
	}
	c.Status = ContractStatus(status)
	return &c, nil
}

const lineColumns = `id, contract_id, product_id, description, quantity, price_unit, uom, tax_ids`

func scanLine(row pgx.Row) (*ContractLine, error) {
	var l ContractLine
	err := row.Scan(&l.ID, &l.ContractID, &l.ProductID, &l.Description, &l.Quantity, &l.PriceUnit, &l.UoM, &l.TaxIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *pgRepository) GetLine(ctx context.Context, id int64) (*ContractLine, error) {
	return scanLine(r.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM contract_lines WHERE id=$1`, id))
}

func (r *pgRepository) ListLines(ctx context.Context, contractID int64) ([]ContractLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM contract_lines WHERE contract_id=$1 ORDER BY id ASC`, contractID)
	if err != nil {
		return nil, fmt.Errorf("list contract lines: %w", err)
	}
	defer rows.Close()
	var out []ContractLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
