package billing

import "time"

// InvoiceStatus enumerates customer invoice states.
type InvoiceStatus string

const (
	// InvoiceStatusDraft marks an editable invoice.
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
	// InvoiceStatusPosted marks a confirmed invoice.
	InvoiceStatusPosted InvoiceStatus = "POSTED"
	// InvoiceStatusVoid marks a voided invoice.
	InvoiceStatusVoid InvoiceStatus = "VOID"
)

// Invoice is a customer invoice derived from an approved sheet.
type Invoice struct {
	ID            int64         `json:"id" db:"id"`
	Number        string        `json:"number" db:"number"`
	CompanyID     int64         `json:"company_id" db:"company_id"`
	PartnerID     int64         `json:"partner_id" db:"partner_id"`
	Origin        string        `json:"origin" db:"origin"`
	CurrencyCode  string        `json:"currency_code" db:"currency_code"`
	PaymentTermID *int64        `json:"payment_term_id,omitempty" db:"payment_term_id"`
	Status        InvoiceStatus `json:"status" db:"status"`
	AmountTotal   float64       `json:"amount_total" db:"amount_total"`
	IssuedByID    int64         `json:"issued_by_id" db:"issued_by_id"`
	IssuedAt      time.Time     `json:"issued_at" db:"issued_at"`
	PostedAt      *time.Time    `json:"posted_at,omitempty" db:"posted_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`

	Lines []InvoiceLine `json:"lines,omitempty" db:"-"`
}

// InvoiceLine is one billed item on an invoice.
type InvoiceLine struct {
	ID                   int64             `json:"id" db:"id"`
	InvoiceID            int64             `json:"invoice_id" db:"invoice_id"`
	Sequence             int               `json:"sequence" db:"sequence"`
	Description          string            `json:"description" db:"description"`
	ProductID            *int64            `json:"product_id,omitempty" db:"product_id"`
	Quantity             float64           `json:"quantity" db:"quantity"`
	PriceUnit            float64           `json:"price_unit" db:"price_unit"`
	UoM                  string            `json:"uom" db:"uom"`
	TaxIDs               []int64           `json:"tax_ids,omitempty" db:"tax_ids"`
	AnalyticDistribution map[int64]float64 `json:"analytic_distribution,omitempty" db:"-"`
}

// Amount is the line's quantity times unit price before taxes.
func (l *InvoiceLine) Amount() float64 {
	return l.Quantity * l.PriceUnit
}

// InvoiceSpec describes an invoice to be created, header plus ordered lines.
type InvoiceSpec struct {
	CompanyID     int64
	PartnerID     int64
	Origin        string
	CurrencyCode  string
	PaymentTermID *int64
	IssuedByID    int64
	Lines         []LineSpec
}

// LineSpec describes one invoice line within an InvoiceSpec.
type LineSpec struct {
	Description          string
	ProductID            *int64
	Quantity             float64
	PriceUnit            float64
	UoM                  string
	TaxIDs               []int64
	AnalyticDistribution map[int64]float64
}

// Total sums line amounts of the spec.
func (s *InvoiceSpec) Total() float64 {
	var total float64
	for i := range s.Lines {
		total += s.Lines[i].Quantity * s.Lines[i].PriceUnit
	}
	return total
}
