package checkout

import (
	"strings"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/validation"
)

// Form is the contact and shipping information collected at checkout.
type Form struct {
	FirstName  string `json:"firstName" validate:"required,min=2"`
	LastName   string `json:"lastName" validate:"required,min=2"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,min=10"`
	Street     string `json:"street" validate:"required,min=5"`
	City       string `json:"city" validate:"required,min=2"`
	State      string `json:"state" validate:"required,min=2"`
	PostalCode string `json:"postalCode" validate:"required,min=5"`
	Country    string `json:"country" validate:"required,min=2"`
	Notes      string `json:"notes" validate:"max=1000"`
}

// Validate returns a *validation.FieldError naming the first invalid field.
func (f Form) Validate() error {
	return validation.Struct(f.trimmed())
}

// Address converts the form into the order's shipping address.
func (f Form) Address() domain.Address {
	t := f.trimmed()
	return domain.Address{
		Name:       t.FirstName + " " + t.LastName,
		Street:     t.Street,
		City:       t.City,
		State:      t.State,
		PostalCode: t.PostalCode,
		Country:    t.Country,
		Phone:      t.Phone,
	}
}

func (f Form) trimmed() Form {
	return Form{
		FirstName:  strings.TrimSpace(f.FirstName),
		LastName:   strings.TrimSpace(f.LastName),
		Email:      strings.TrimSpace(f.Email),
		Phone:      strings.TrimSpace(f.Phone),
		Street:     strings.TrimSpace(f.Street),
		City:       strings.TrimSpace(f.City),
		State:      strings.TrimSpace(f.State),
		PostalCode: strings.TrimSpace(f.PostalCode),
		Country:    strings.TrimSpace(f.Country),
		Notes:      strings.TrimSpace(f.Notes),
	}
}
