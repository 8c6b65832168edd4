package orders

import "time"

// OrderStatus enumerates sales order lifecycle states.
type OrderStatus string

const (
	// OrderStatusDraft marks an unconfirmed quotation.
	OrderStatusDraft OrderStatus = "DRAFT"
	// OrderStatusConfirmed marks a confirmed order.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusDone marks a fully delivered order.
	OrderStatusDone OrderStatus = "DONE"
	// OrderStatusCancelled marks a cancelled order.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a confirmed sales order referenced by measurement sheets.
type Order struct {
	ID                int64       `json:"id" db:"id"`
	CompanyID         int64       `json:"company_id" db:"company_id"`
	Number            string      `json:"number" db:"number"`
	PartnerID         int64       `json:"partner_id" db:"partner_id"`
	Status            OrderStatus `json:"status" db:"status"`
	CurrencyCode      string      `json:"currency_code" db:"currency_code"`
	PaymentTermID     *int64      `json:"payment_term_id,omitempty" db:"payment_term_id"`
	AnalyticAccountID *int64      `json:"analytic_account_id,omitempty" db:"analytic_account_id"`
	OrderedAt         time.Time   `json:"ordered_at" db:"ordered_at"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderLine carries the ordered quantity and pricing for one product.
type OrderLine struct {
	ID          int64   `json:"id" db:"id"`
	OrderID     int64   `json:"order_id" db:"order_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	Description string  `json:"description" db:"description"`
	OrderedQty  float64 `json:"ordered_qty" db:"ordered_qty"`
	PriceUnit   float64 `json:"price_unit" db:"price_unit"`
	UoM         string  `json:"uom" db:"uom"`
	TaxIDs      []int64 `json:"tax_ids" db:"tax_ids"`
}
