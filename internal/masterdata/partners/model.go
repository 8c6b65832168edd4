package partners

import "time"

// Partner is a billing or worksite counterparty.
type Partner struct {
	ID        int64     `json:"id" db:"id"`
	CompanyID int64     `json:"company_id" db:"company_id"`
	Name      string    `json:"name" db:"name"`
	TaxID     *string   `json:"tax_id,omitempty" db:"tax_id"`
	Email     *string   `json:"email,omitempty" db:"email"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Street    *string   `json:"street,omitempty" db:"street"`
	Street2   *string   `json:"street2,omitempty" db:"street2"`
	City      *string   `json:"city,omitempty" db:"city"`
	State     *string   `json:"state,omitempty" db:"state"`
	Zip       *string   `json:"zip,omitempty" db:"zip"`
	Country   *string   `json:"country,omitempty" db:"country"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
