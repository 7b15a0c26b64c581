package types

import "strings"

// ShippingDetails is the delivery form captured in the first checkout step.
type ShippingDetails struct {
	FullName     string  `json:"full_name" validate:"required,min=2,max=120"`
	Phone        string  `json:"phone" validate:"required,e164"`
	Email        string  `json:"email" validate:"required,email"`
	CompanyName  *string `json:"company_name,omitempty" validate:"omitempty,max=160"`
	AddressLine1 string  `json:"address_line1" validate:"required,max=200"`
	AddressLine2 *string `json:"address_line2,omitempty" validate:"omitempty,max=200"`
	City         string  `json:"city" validate:"required,max=100"`
	County       string  `json:"county" validate:"required,max=100"`
	PostalCode   string  `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	Country      string  `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	Instructions *string `json:"instructions,omitempty" validate:"omitempty,max=500"`
}

// Normalize trims user input and applies the default country.
func (s *ShippingDetails) Normalize() {
	s.FullName = strings.TrimSpace(s.FullName)
	s.Phone = strings.TrimSpace(s.Phone)
	s.Email = strings.ToLower(strings.TrimSpace(s.Email))
	s.AddressLine1 = strings.TrimSpace(s.AddressLine1)
	s.City = strings.TrimSpace(s.City)
	s.County = strings.TrimSpace(s.County)
	s.PostalCode = strings.TrimSpace(s.PostalCode)
	s.Country = strings.ToUpper(strings.TrimSpace(s.Country))
	if s.Country == "" {
		s.Country = "KE"
	}
}
