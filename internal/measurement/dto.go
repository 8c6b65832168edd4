package measurement

import "github.com/medicao-erp/medicao-erp/internal/shared"

// CreateSheetRequest opens a new draft sheet.
type CreateSheetRequest struct {
	CompanyID         int64          `json:"company_id" validate:"required,gt=0"`
	PartnerID         int64          `json:"partner_id" validate:"required,gt=0"`
	SaleOrderID       *int64         `json:"sale_order_id,omitempty" validate:"omitempty,gt=0"`
	ContractID        *int64         `json:"contract_id,omitempty" validate:"omitempty,gt=0"`
	ProjectID         *int64         `json:"project_id,omitempty"`
	AnalyticAccountID *int64         `json:"analytic_account_id,omitempty"`
	CurrencyCode      string         `json:"currency_code" validate:"omitempty,len=3"`
	Period            *shared.Period `json:"period,omitempty"`
	Mode              Mode           `json:"mode" validate:"omitempty,oneof=quantity percent"`
	RetentionPercent  float64        `json:"retention_percent"`
	SitePartnerID     *int64         `json:"site_partner_id,omitempty" validate:"omitempty,gt=0"`
	SiteName          *string        `json:"site_name,omitempty"`
	SiteStreet        *string        `json:"site_street,omitempty"`
	SiteStreet2       *string        `json:"site_street2,omitempty"`
	SiteCity          *string        `json:"site_city,omitempty"`
	SiteState         *string        `json:"site_state,omitempty"`
	SiteZip           *string        `json:"site_zip,omitempty"`
	SiteCountry       *string        `json:"site_country,omitempty"`
	SiteReference     *string        `json:"site_reference,omitempty"`
	Notes             *string        `json:"notes,omitempty"`
	CreatedBy         int64          `json:"created_by" validate:"required,gt=0"`
}

// UpdateSheetRequest edits header fields of a draft or submitted sheet.
// Nil fields are left untouched. The period can only change while the
// sheet is still a draft. Assigning a new site partner prefills the
// site address from that partner; explicit fields in the same request
// win over the prefill.
type UpdateSheetRequest struct {
	Period            *shared.Period `json:"period,omitempty"`
	RetentionPercent  *float64       `json:"retention_percent,omitempty"`
	AnalyticAccountID *int64         `json:"analytic_account_id,omitempty"`
	SitePartnerID     *int64         `json:"site_partner_id,omitempty" validate:"omitempty,gt=0"`
	SiteName          *string        `json:"site_name,omitempty"`
	SiteStreet        *string        `json:"site_street,omitempty"`
	SiteStreet2       *string        `json:"site_street2,omitempty"`
	SiteCity          *string        `json:"site_city,omitempty"`
	SiteState         *string        `json:"site_state,omitempty"`
	SiteZip           *string        `json:"site_zip,omitempty"`
	SiteCountry       *string        `json:"site_country,omitempty"`
	SiteReference     *string        `json:"site_reference,omitempty"`
	Notes             *string        `json:"notes,omitempty"`
}

// AddLineRequest appends a line to a sheet. At most one of the source
// references may be set; a line with neither is free-standing.
type AddLineRequest struct {
	SaleOrderLineID *int64  `json:"sale_order_line_id,omitempty" validate:"omitempty,gt=0,excluded_with=ContractLineID"`
	ContractLineID  *int64  `json:"contract_line_id,omitempty" validate:"omitempty,gt=0"`
	ProductID       *int64  `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Description     string  `json:"description,omitempty" validate:"max=500"`
	UoM             string  `json:"uom,omitempty" validate:"max=20"`
	PriceUnit       *float64 `json:"price_unit,omitempty"`
	MeasuredQty     float64 `json:"measured_qty"`
	MeasuredPercent float64 `json:"measured_percent"`
	Sequence        int     `json:"sequence" validate:"gte=0"`
}

// UpdateLineRequest edits a line. Nil fields keep their value; changing
// a source reference re-derives product, unit, price and description.
// ClearSource detaches the line from its order or contract line, turning
// it back into a free-standing line with its current values.
type UpdateLineRequest struct {
	ClearSource     bool     `json:"clear_source,omitempty" validate:"excluded_with=SaleOrderLineID ContractLineID"`
	SaleOrderLineID *int64   `json:"sale_order_line_id,omitempty" validate:"omitempty,gt=0,excluded_with=ContractLineID"`
	ContractLineID  *int64   `json:"contract_line_id,omitempty" validate:"omitempty,gt=0"`
	ProductID       *int64   `json:"product_id,omitempty"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	UoM             *string  `json:"uom,omitempty" validate:"omitempty,max=20"`
	PriceUnit       *float64 `json:"price_unit,omitempty"`
	MeasuredQty     *float64 `json:"measured_qty,omitempty"`
	MeasuredPercent *float64 `json:"measured_percent,omitempty"`
	Sequence        *int     `json:"sequence,omitempty" validate:"omitempty,gte=0"`
}

// BatchActionRequest applies one lifecycle action to a set of sheets,
// all within a single transaction.
type BatchActionRequest struct {
	SheetIDs []int64 `json:"sheet_ids" validate:"required,min=1,dive,gt=0"`
	ActorID  int64   `json:"actor_id" validate:"required,gt=0"`
	Note     string  `json:"note,omitempty" validate:"max=500"`
}

// GenerateInvoiceRequest derives and persists the invoice for one sheet.
type GenerateInvoiceRequest struct {
	ActorID        int64  `json:"actor_id" validate:"required,gt=0"`
	IdempotencyKey string `json:"idempotency_key,omitempty" validate:"omitempty,max=100"`
}

// ListSheetsRequest filters sheet listings.
type ListSheetsRequest struct {
	CompanyID   int64          `json:"company_id" validate:"required,gt=0"`
	PartnerID   *int64         `json:"partner_id,omitempty"`
	SaleOrderID *int64         `json:"sale_order_id,omitempty"`
	ContractID  *int64         `json:"contract_id,omitempty"`
	Status      *SheetStatus   `json:"status,omitempty"`
	Period      *shared.Period `json:"period,omitempty"`
	Page        int            `json:"page" validate:"gte=0"`
	PerPage     int            `json:"per_page" validate:"gte=0,lte=200"`
}
