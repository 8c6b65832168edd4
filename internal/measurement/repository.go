package measurement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicao-erp/medicao-erp/internal/billing"
	"github.com/medicao-erp/medicao-erp/internal/platform/db"
	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// Repository persists sheets and lines. WithTx yields a Repository bound
// to one transaction so a whole batch action commits or rolls back as a
// unit, invoice rows included.
type Repository interface {
	WithTx(ctx context.Context, fn func(Repository) error) error

	CreateSheet(ctx context.Context, s *Sheet) error
	GetSheet(ctx context.Context, id int64) (*Sheet, error)
	ListSheets(ctx context.Context, req ListSheetsRequest) ([]Sheet, int, error)
	UpdateSheetHeader(ctx context.Context, s *Sheet) error
	UpdateSheetAmounts(ctx context.Context, s *Sheet) error
	SetStatus(ctx context.Context, id int64, status SheetStatus) error
	LinkInvoice(ctx context.Context, sheetID, invoiceID int64) error
	DeleteSheet(ctx context.Context, id int64) error

	InsertLine(ctx context.Context, l *Line) error
	GetLine(ctx context.Context, id int64) (*Line, error)
	UpdateLine(ctx context.Context, l *Line) error
	DeleteLine(ctx context.Context, id int64) error
	ListLines(ctx context.Context, sheetID int64) ([]Line, error)

	PreviousApproved(ctx context.Context, partnerID int64, saleOrderLineID, contractLineID *int64, excludeSheetID int64) (float64, error)
	NextNumber(ctx context.Context) (string, error)
	RecordApproval(ctx context.Context, log shared.ApprovalLog) error

	CreateInvoice(ctx context.Context, spec billing.InvoiceSpec) (*billing.Invoice, error)
	InvoiceStatus(ctx context.Context, id int64) (billing.InvoiceStatus, error)
}

type pgRepository struct {
	q    db.Querier
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{q: pool, pool: pool}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		// already transaction-bound, reuse it
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&pgRepository{q: tx})
	})
}

func mapUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.HasPrefix(pgErr.ConstraintName, "uq_sheets_") {
			return ErrDuplicatePeriod
		}
		return shared.ErrValidation
	}
	return err
}

const sheetColumns = `id, number, company_id, partner_id, sale_order_id, contract_id, project_id, analytic_account_id,
currency_code, period_year, period_month, period_start, period_end, mode, retention_percent, status,
subtotal, retention_amount, total, invoice_id, site_partner_id, site_name, site_street, site_street2,
site_city, site_state, site_zip, site_country, site_reference, notes, created_by, created_at, updated_at`

func scanSheet(row pgx.Row) (*Sheet, error) {
	var s Sheet
	var mode, status string
	err := row.Scan(&s.ID, &s.Number, &s.CompanyID, &s.PartnerID, &s.SaleOrderID, &s.ContractID,
		&s.ProjectID, &s.AnalyticAccountID, &s.CurrencyCode, &s.Period.Year, &s.Period.Month,
		&s.PeriodStart, &s.PeriodEnd, &mode, &s.RetentionPercent, &status,
		&s.Subtotal, &s.RetentionAmount, &s.Total, &s.InvoiceID,
		&s.SitePartnerID, &s.SiteName, &s.SiteStreet, &s.SiteStreet2,
		&s.SiteCity, &s.SiteState, &s.SiteZip, &s.SiteCountry, &s.SiteReference,
		&s.Notes, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	s.Mode = Mode(mode)
	s.Status = SheetStatus(status)
	return &s, nil
}

func (r *pgRepository) CreateSheet(ctx context.Context, s *Sheet) error {
	row := r.q.QueryRow(ctx, `INSERT INTO measurement_sheets
(number, company_id, partner_id, sale_order_id, contract_id, project_id, analytic_account_id,
 currency_code, period_year, period_month, period_start, period_end, mode, retention_percent, status,
 subtotal, retention_amount, total, site_partner_id, site_name, site_street, site_street2,
 site_city, site_state, site_zip, site_country, site_reference, notes, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)
RETURNING id, created_at, updated_at`,
		s.Number, s.CompanyID, s.PartnerID, s.SaleOrderID, s.ContractID, s.ProjectID, s.AnalyticAccountID,
		s.CurrencyCode, s.Period.Year, s.Period.Month, s.PeriodStart, s.PeriodEnd, string(s.Mode),
		s.RetentionPercent, string(s.Status), s.Subtotal, s.RetentionAmount, s.Total,
		s.SitePartnerID, s.SiteName, s.SiteStreet, s.SiteStreet2,
		s.SiteCity, s.SiteState, s.SiteZip, s.SiteCountry, s.SiteReference, s.Notes, s.CreatedBy)
	if err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("create sheet: %w", mapUnique(err))
	}
	return nil
}

func (r *pgRepository) GetSheet(ctx context.Context, id int64) (*Sheet, error) {
	s, err := scanSheet(r.q.QueryRow(ctx, `SELECT `+sheetColumns+` FROM measurement_sheets WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	s.Lines, err = r.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *pgRepository) ListSheets(ctx context.Context, req ListSheetsRequest) ([]Sheet, int, error) {
	var sb strings.Builder
	sb.WriteString(` FROM measurement_sheets WHERE company_id=$1`)
	args := []any{req.CompanyID}
	add := func(clause string, v any) {
		args = append(args, v)
		fmt.Fprintf(&sb, clause, len(args))
	}
	if req.PartnerID != nil {
		add(` AND partner_id=$%d`, *req.PartnerID)
	}
	if req.SaleOrderID != nil {
		add(` AND sale_order_id=$%d`, *req.SaleOrderID)
	}
	if req.ContractID != nil {
		add(` AND contract_id=$%d`, *req.ContractID)
	}
	if req.Status != nil {
		add(` AND status=$%d`, string(*req.Status))
	}
	if req.Period != nil {
		add(` AND period_year=$%d`, req.Period.Year)
		add(` AND period_month=$%d`, req.Period.Month)
	}
	where := sb.String()

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sheets: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	perPage := req.PerPage
	if perPage < 1 {
		perPage = 20
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s%s ORDER BY period_year DESC, period_month DESC, id DESC LIMIT $%d OFFSET $%d`,
		sheetColumns, where, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()
	var out []Sheet
	for rows.Next() {
		s, err := scanSheet(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *pgRepository) UpdateSheetHeader(ctx context.Context, s *Sheet) error {
	tag, err := r.q.Exec(ctx, `UPDATE measurement_sheets SET
retention_percent=$2, analytic_account_id=$3, site_partner_id=$4, site_name=$5,
site_street=$6, site_street2=$7, site_city=$8, site_state=$9, site_zip=$10,
site_country=$11, site_reference=$12, notes=$13, period_year=$14, period_month=$15,
period_start=$16, period_end=$17, updated_at=NOW()
WHERE id=$1`,
		s.ID, s.RetentionPercent, s.AnalyticAccountID, s.SitePartnerID, s.SiteName,
		s.SiteStreet, s.SiteStreet2, s.SiteCity, s.SiteState, s.SiteZip,
		s.SiteCountry, s.SiteReference, s.Notes, s.Period.Year, s.Period.Month, s.PeriodStart, s.PeriodEnd)
	if err != nil {
		return fmt.Errorf("update sheet: %w", mapUnique(err))
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) UpdateSheetAmounts(ctx context.Context, s *Sheet) error {
	tag, err := r.q.Exec(ctx, `UPDATE measurement_sheets SET
subtotal=$2, retention_amount=$3, total=$4, updated_at=NOW() WHERE id=$1`,
		s.ID, s.Subtotal, s.RetentionAmount, s.Total)
	if err != nil {
		return fmt.Errorf("update sheet amounts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetStatus(ctx context.Context, id int64, status SheetStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE measurement_sheets SET status=$2, updated_at=NOW() WHERE id=$1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("set sheet status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) LinkInvoice(ctx context.Context, sheetID, invoiceID int64) error {
	tag, err := r.q.Exec(ctx, `UPDATE measurement_sheets SET invoice_id=$2, updated_at=NOW() WHERE id=$1`,
		sheetID, invoiceID)
	if err != nil {
		return fmt.Errorf("link invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteSheet removes a sheet; its lines go with it through the cascade.
func (r *pgRepository) DeleteSheet(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM measurement_sheets WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete sheet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const lineColumns = `id, sheet_id, sequence, sale_order_line_id, contract_line_id, product_id, description,
uom, price_unit, base_qty, measured_qty, measured_percent, approved_qty, subtotal, tax_ids, created_at, updated_at`

func scanLineRow(row pgx.Row) (*Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.SheetID, &l.Sequence, &l.SaleOrderLineID, &l.ContractLineID, &l.ProductID,
		&l.Description, &l.UoM, &l.PriceUnit, &l.BaseQty, &l.MeasuredQty, &l.MeasuredPercent,
		&l.ApprovedQty, &l.Subtotal, &l.TaxIDs, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *pgRepository) InsertLine(ctx context.Context, l *Line) error {
	row := r.q.QueryRow(ctx, `INSERT INTO measurement_lines
(sheet_id, sequence, sale_order_line_id, contract_line_id, product_id, description,
 uom, price_unit, base_qty, measured_qty, measured_percent, approved_qty, subtotal, tax_ids)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id, created_at, updated_at`,
		l.SheetID, l.Sequence, l.SaleOrderLineID, l.ContractLineID, l.ProductID, l.Description,
		l.UoM, l.PriceUnit, l.BaseQty, l.MeasuredQty, l.MeasuredPercent, l.ApprovedQty, l.Subtotal, l.TaxIDs)
	if err := row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

func (r *pgRepository) GetLine(ctx context.Context, id int64) (*Line, error) {
	return scanLineRow(r.q.QueryRow(ctx, `SELECT `+lineColumns+` FROM measurement_lines WHERE id=$1`, id))
}

func (r *pgRepository) UpdateLine(ctx context.Context, l *Line) error {
	tag, err := r.q.Exec(ctx, `UPDATE measurement_lines SET
sequence=$2, sale_order_line_id=$3, contract_line_id=$4, product_id=$5, description=$6,
uom=$7, price_unit=$8, base_qty=$9, measured_qty=$10, measured_percent=$11,
approved_qty=$12, subtotal=$13, tax_ids=$14, updated_at=NOW()
WHERE id=$1`,
		l.ID, l.Sequence, l.SaleOrderLineID, l.ContractLineID, l.ProductID, l.Description,
		l.UoM, l.PriceUnit, l.BaseQty, l.MeasuredQty, l.MeasuredPercent,
		l.ApprovedQty, l.Subtotal, l.TaxIDs)
	if err != nil {
		return fmt.Errorf("update line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) DeleteLine(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM measurement_lines WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *pgRepository) ListLines(ctx context.Context, sheetID int64) ([]Line, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lineColumns+` FROM measurement_lines
WHERE sheet_id=$1 ORDER BY sequence ASC, id ASC`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		l, err := scanLineRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// PreviousApproved sums approved quantities over approved and invoiced
// sheets of the same partner that reference the same source line,
// excluding the sheet the caller is looking at. Lines without a source
// reference never match anything.
func (r *pgRepository) PreviousApproved(ctx context.Context, partnerID int64, saleOrderLineID, contractLineID *int64, excludeSheetID int64) (float64, error) {
	var refClause string
	var refID int64
	switch {
	case saleOrderLineID != nil:
		refClause = `l.sale_order_line_id=$4`
		refID = *saleOrderLineID
	case contractLineID != nil:
		refClause = `l.contract_line_id=$4`
		refID = *contractLineID
	default:
		return 0, nil
	}
	var sum float64
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(l.approved_qty), 0)
FROM measurement_lines l
JOIN measurement_sheets s ON s.id = l.sheet_id
WHERE s.partner_id=$1 AND s.status = ANY($2) AND s.id <> $3 AND `+refClause,
		partnerID, []string{string(SheetStatusApproved), string(SheetStatusInvoiced)}, excludeSheetID, refID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("previous approved: %w", err)
	}
	return sum, nil
}

// NextNumber assigns the next sheet identifier from the bm.sheet sequence.
func (r *pgRepository) NextNumber(ctx context.Context) (string, error) {
	return shared.NewSequence(r.q).NextValue(ctx, "bm.sheet")
}

// RecordApproval writes the approval entry through this repository's
// querier, so inside WithTx it commits or rolls back with the sheets.
func (r *pgRepository) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	return shared.NewApprovalRecorder(r.q, nil).Record(ctx, log)
}

func (r *pgRepository) CreateInvoice(ctx context.Context, spec billing.InvoiceSpec) (*billing.Invoice, error) {
	inv, err := billing.BuildInvoice(spec)
	if err != nil {
		return nil, err
	}
	if err := billing.NewRepository(r.q).Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *pgRepository) InvoiceStatus(ctx context.Context, id int64) (billing.InvoiceStatus, error) {
	return billing.NewRepository(r.q).GetStatus(ctx, id)
}
