package products

import "time"

// Product is a sellable service or rental item.
type Product struct {
	ID          int64     `json:"id" db:"id"`
	CompanyID   int64     `json:"company_id" db:"company_id"`
	Name        string    `json:"name" db:"name"`
	DefaultCode *string   `json:"default_code,omitempty" db:"default_code"`
	UoM         string    `json:"uom" db:"uom"`
	ListPrice   float64   `json:"list_price" db:"list_price"`
	TaxIDs      []int64   `json:"tax_ids" db:"tax_ids"`
	IsService   bool      `json:"is_service" db:"is_service"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName renders "[CODE] Name" when a default code exists.
func (p *Product) DisplayName() string {
	if p.DefaultCode != nil && *p.DefaultCode != "" {
		return "[" + *p.DefaultCode + "] " + p.Name
	}
	return p.Name
}
