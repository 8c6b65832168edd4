package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Repository reads sales orders and their lines.
type Repository interface {
	GetOrder(ctx context.Context, id int64) (*Order, error)
	GetLine(ctx context.Context, id int64) (*OrderLine, error)
	ListLines(ctx context.Context, orderID int64) ([]OrderLine, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, company_id, number, partner_id, status, currency_code,
payment_term_id, analytic_account_id, ordered_at, created_at, updated_at
FROM sales_orders WHERE id=$1`, id)
	var o Order
	var status string
	err := row.Scan(&o.ID, &o.CompanyID, &o.Number, &o.PartnerID, &status, &o.CurrencyCode,
		&o.PaymentTermID, &o.AnalyticAccountID, &o.OrderedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

const lineColumns = `id, order_id, product_id, description, ordered_qty, price_unit, uom, tax_ids`

func scanLine(row pgx.Row) (*OrderLine, error) {
	var l OrderLine
	err := row.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Description, &l.OrderedQty, &l.PriceUnit, &l.UoM, &l.TaxIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *pgRepository) GetLine(ctx context.Context, id int64) (*OrderLine, error) {
	return scanLine(r.pool.QueryRow(ctx, `SELECT `+lineColumns+` FROM sales_order_lines WHERE id=$1`, id))
}

func (r *pgRepository) ListLines(ctx context.Context, orderID int64) ([]OrderLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineColumns+` FROM sales_order_lines WHERE order_id=$1 ORDER BY id ASC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()
	var out []OrderLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
