package partners

// CreatePartnerRequest creates a new partner.
type CreatePartnerRequest struct {
	CompanyID int64   `json:"company_id" validate:"required,gt=0"`
	Name      string  `json:"name" validate:"required,max=200"`
	TaxID     *string `json:"tax_id,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty"`
	Street    *string `json:"street,omitempty"`
	Street2   *string `json:"street2,omitempty"`
	City      *string `json:"city,omitempty"`
	State     *string `json:"state,omitempty"`
	Zip       *string `json:"zip,omitempty"`
	Country   *string `json:"country,omitempty"`
}

// ListPartnersRequest filters partner listings.
type ListPartnersRequest struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	IsActive  *bool  `json:"is_active,omitempty"`
	Search    string `json:"search,omitempty"`
	Limit     int    `json:"limit" validate:"gte=0,lte=1000"`
	Offset    int    `json:"offset" validate:"gte=0"`
}
