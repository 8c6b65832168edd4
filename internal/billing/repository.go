package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medicao-erp/medicao-erp/internal/platform/db"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Repository persists invoices. It runs on a pool or inside a caller's
// transaction depending on the Querier it was built with.
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetStatus(ctx context.Context, id int64) (InvoiceStatus, error)
	SetStatus(ctx context.Context, id int64, status InvoiceStatus, postedAt *time.Time) error
	List(ctx context.Context, companyID int64, limit, offset int) ([]Invoice, error)
}

type pgRepository struct {
	q   db.Querier
	seq *shared.Sequence
}

// NewRepository returns a PostgreSQL backed Repository bound to q.
func NewRepository(q db.Querier) Repository {
	return &pgRepository{q: q, seq: shared.NewSequence(q)}
}

func (r *pgRepository) Create(ctx context.Context, inv *Invoice) error {
	if inv.Number == "" {
		number, err := r.seq.NextValue(ctx, "inv.customer")
		if err != nil {
			return fmt.Errorf("invoice number: %w", err)
		}
		inv.Number = number
	}
	if inv.Status == "" {
		inv.Status = InvoiceStatusDraft
	}
	var issuedAt *time.Time
	if !inv.IssuedAt.IsZero() {
		issuedAt = &inv.IssuedAt
	}
	row := r.q.QueryRow(ctx, `INSERT INTO invoices
(number, company_id, partner_id, origin, currency_code, payment_term_id, status, amount_total, issued_by_id, issued_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
RETURNING id, issued_at, created_at, updated_at`,
		inv.Number, inv.CompanyID, inv.PartnerID, inv.Origin, inv.CurrencyCode,
		inv.PaymentTermID, string(inv.Status), inv.AmountTotal, inv.IssuedByID, issuedAt)
	if err := row.Scan(&inv.ID, &inv.IssuedAt, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	for i := range inv.Lines {
		l := &inv.Lines[i]
		l.InvoiceID = inv.ID
		if l.Sequence == 0 {
			l.Sequence = (i + 1) * 10
		}
		err := r.q.QueryRow(ctx, `INSERT INTO invoice_lines
(invoice_id, sequence, description, product_id, quantity, price_unit, uom, tax_ids, analytic_distribution)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
			l.InvoiceID, l.Sequence, l.Description, l.ProductID, l.Quantity,
			l.PriceUnit, l.UoM, l.TaxIDs, l.AnalyticDistribution).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("create invoice line: %w", err)
		}
	}
	return nil
}

const invoiceColumns = `id, number, company_id, partner_id, origin, currency_code, payment_term_id, status, amount_total, issued_by_id, issued_at, posted_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.Number, &inv.CompanyID, &inv.PartnerID, &inv.Origin,
		&inv.CurrencyCode, &inv.PaymentTermID, &status, &inv.AmountTotal,
		&inv.IssuedByID, &inv.IssuedAt, &inv.PostedAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	inv.Status = InvoiceStatus(status)
	return &inv, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, `SELECT id, invoice_id, sequence, description, product_id, quantity, price_unit, uom, tax_ids
FROM invoice_lines WHERE invoice_id=$1 ORDER BY sequence ASC, id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.Sequence, &l.Description, &l.ProductID,
			&l.Quantity, &l.PriceUnit, &l.UoM, &l.TaxIDs); err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, l)
	}
	return inv, rows.Err()
}

func (r *pgRepository) GetStatus(ctx context.Context, id int64) (InvoiceStatus, error) {
	var status string
	err := r.q.QueryRow(ctx, `SELECT status FROM invoices WHERE id=$1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", fmt.Errorf("invoice status: %w", err)
	}
	return InvoiceStatus(status), nil
}

func (r *pgRepository) SetStatus(ctx context.Context, id int64, status InvoiceStatus, postedAt *time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE invoices SET status=$2, posted_at=COALESCE($3, posted_at), updated_at=NOW() WHERE id=$1`,
		id, string(status), postedAt)
	if err != nil {
		return fmt.Errorf("set invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, companyID int64, limit, offset int) ([]Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.q.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE company_id=$1 ORDER BY issued_at DESC, id DESC LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}
