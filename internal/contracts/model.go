package contracts

import "time"

// ContractStatus enumerates rental contract lifecycle states.
type ContractStatus string

const (
	// ContractStatusDraft marks an unsigned contract.
	ContractStatusDraft ContractStatus = "DRAFT"
	// ContractStatusActive marks a running contract.
	ContractStatusActive ContractStatus = "ACTIVE"
	// ContractStatusClosed marks an ended contract.
	ContractStatusClosed ContractStatus = "CLOSED"
)

// Contract is a rental agreement referenced by measurement sheets.
type Contract struct {
	ID                int64          `json:"id" db:"id"`
	CompanyID         int64          `json:"company_id" db:"company_id"`
	Number            string         `json:"number" db:"number"`
	PartnerID         int64          `json:"partner_id" db:"partner_id"`
	Status            ContractStatus `json:"status" db:"status"`
	CurrencyCode      string         `json:"currency_code" db:"currency_code"`
	PaymentTermID     *int64         `json:"payment_term_id,omitempty" db:"payment_term_id"`
	AnalyticAccountID *int64         `json:"analytic_account_id,omitempty" db:"analytic_account_id"`
	StartDate         time.Time      `json:"start_date" db:"start_date"`
	EndDate           *time.Time     `json:"end_date,omitempty" db:"end_date"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// ContractLine carries the contracted quantity and pricing for one product.
type ContractLine struct {
	ID          int64   `json:"id" db:"id"`
	ContractID  int64   `json:"contract_id" db:"contract_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	Description string  `json:"description" db:"description"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	PriceUnit   float64 `json:"price_unit" db:"price_unit"`
	UoM         string  `json:"uom" db:"uom"`
	TaxIDs      []int64 `json:"tax_ids" db:"tax_ids"`
}
