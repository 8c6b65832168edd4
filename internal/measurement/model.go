package measurement

import (
	"strings"
	"time"

	"github.com/medicao-erp/medicao-erp/internal/shared"
)

// SheetStatus enumerates measurement sheet lifecycle states.
type SheetStatus string

const (
	// SheetStatusDraft marks a sheet under edition.
	SheetStatusDraft SheetStatus = "DRAFT"
	// SheetStatusSubmitted marks a sheet awaiting approval.
	SheetStatusSubmitted SheetStatus = "SUBMITTED"
	// SheetStatusApproved marks a sheet cleared for billing.
	SheetStatusApproved SheetStatus = "APPROVED"
	// SheetStatusInvoiced marks a sheet with a generated invoice.
	SheetStatusInvoiced SheetStatus = "INVOICED"
	// SheetStatusCancelled marks a cancelled sheet.
	SheetStatusCancelled SheetStatus = "CANCELLED"
)

// Mode selects how raw measurements are entered.
type Mode string

const (
	// ModeQuantity records absolute measured quantities.
	ModeQuantity Mode = "quantity"
	// ModePercent records percentages of the contracted quantity.
	ModePercent Mode = "percent"
)

// Sheet is one monthly measurement bulletin for a partner.
type Sheet struct {
	ID                int64         `json:"id" db:"id"`
	Number            string        `json:"number" db:"number"`
	CompanyID         int64         `json:"company_id" db:"company_id"`
	PartnerID         int64         `json:"partner_id" db:"partner_id"`
	SaleOrderID       *int64        `json:"sale_order_id,omitempty" db:"sale_order_id"`
	ContractID        *int64        `json:"contract_id,omitempty" db:"contract_id"`
	ProjectID         *int64        `json:"project_id,omitempty" db:"project_id"`
	AnalyticAccountID *int64        `json:"analytic_account_id,omitempty" db:"analytic_account_id"`
	CurrencyCode      string        `json:"currency_code" db:"currency_code"`
	Period            shared.Period `json:"period" db:"-"`
	PeriodStart       time.Time     `json:"period_start" db:"period_start"`
	PeriodEnd         time.Time     `json:"period_end" db:"period_end"`
	Mode              Mode          `json:"mode" db:"mode"`
	RetentionPercent  float64       `json:"retention_percent" db:"retention_percent"`
	Status            SheetStatus   `json:"status" db:"status"`
	Subtotal          float64       `json:"subtotal" db:"subtotal"`
	RetentionAmount   float64       `json:"retention_amount" db:"retention_amount"`
	Total             float64       `json:"total" db:"total"`
	InvoiceID         *int64        `json:"invoice_id,omitempty" db:"invoice_id"`
	SitePartnerID     *int64        `json:"site_partner_id,omitempty" db:"site_partner_id"`
	SiteName          *string       `json:"site_name,omitempty" db:"site_name"`
	SiteStreet        *string       `json:"site_street,omitempty" db:"site_street"`
	SiteStreet2       *string       `json:"site_street2,omitempty" db:"site_street2"`
	SiteCity          *string       `json:"site_city,omitempty" db:"site_city"`
	SiteState         *string       `json:"site_state,omitempty" db:"site_state"`
	SiteZip           *string       `json:"site_zip,omitempty" db:"site_zip"`
	SiteCountry       *string       `json:"site_country,omitempty" db:"site_country"`
	SiteReference     *string       `json:"site_reference,omitempty" db:"site_reference"`
	Notes             *string       `json:"notes,omitempty" db:"notes"`
	CreatedBy         int64         `json:"created_by" db:"created_by"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`

	Lines []Line `json:"lines,omitempty" db:"-"`
}

// SiteAddress renders the work site as a single display block.
func (s *Sheet) SiteAddress() string {
	parts := make([]string, 0, 6)
	for _, p := range []*string{s.SiteName, s.SiteStreet, s.SiteStreet2} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	var cityLine []string
	for _, p := range []*string{s.SiteCity, s.SiteState, s.SiteZip} {
		if p != nil && *p != "" {
			cityLine = append(cityLine, *p)
		}
	}
	if len(cityLine) > 0 {
		parts = append(parts, strings.Join(cityLine, " - "))
	}
	if s.SiteCountry != nil && *s.SiteCountry != "" {
		parts = append(parts, *s.SiteCountry)
	}
	return strings.Join(parts, "\n")
}

// Line is one measured service entry inside a sheet.
type Line struct {
	ID              int64     `json:"id" db:"id"`
	SheetID         int64     `json:"sheet_id" db:"sheet_id"`
	Sequence        int       `json:"sequence" db:"sequence"`
	SaleOrderLineID *int64    `json:"sale_order_line_id,omitempty" db:"sale_order_line_id"`
	ContractLineID  *int64    `json:"contract_line_id,omitempty" db:"contract_line_id"`
	ProductID       *int64    `json:"product_id,omitempty" db:"product_id"`
	Description     string    `json:"description" db:"description"`
	UoM             string    `json:"uom" db:"uom"`
	PriceUnit       float64   `json:"price_unit" db:"price_unit"`
	BaseQty         float64   `json:"base_qty" db:"base_qty"`
	MeasuredQty     float64   `json:"measured_qty" db:"measured_qty"`
	MeasuredPercent float64   `json:"measured_percent" db:"measured_percent"`
	ApprovedQty     float64   `json:"approved_qty" db:"approved_qty"`
	Subtotal        float64   `json:"subtotal" db:"subtotal"`
	TaxIDs          []int64   `json:"tax_ids,omitempty" db:"tax_ids"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`

	// PreviousApprovedQty is the informational cross-period sum, filled
	// on detail reads only.
	PreviousApprovedQty float64 `json:"previous_approved_qty" db:"-"`
}

// HasReference reports whether the line is tied to an order or contract line.
func (l *Line) HasReference() bool {
	return l.SaleOrderLineID != nil || l.ContractLineID != nil
}
