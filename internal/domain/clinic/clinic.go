package clinic

import (
	"strings"
	"time"

	"github.com/careverify/clinic-trust-engine/internal/domain/errors"
	"github.com/careverify/clinic-trust-engine/internal/domain/validation"
)

// Profile holds the raw attributes a clinic submits at registration.
// Every field except Name and a contact method is optional; absent values
// stay zero and the feature layer owns the defaulting rules. A profile is
// immutable once submitted for scoring.
type Profile struct {
	Name            string   `json:"name" validate:"required,min=2,max=200"`
	Email           string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone           string   `json:"phone,omitempty"`
	Website         string   `json:"website,omitempty" validate:"omitempty,url"`
	LicenseNumber   string   `json:"license_number,omitempty"`
	Accreditation   string   `json:"accreditation,omitempty"`
	TaxID           string   `json:"tax_id,omitempty"`
	Address         string   `json:"address,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	ZipCode         string   `json:"zip_code,omitempty"`
	Description     string   `json:"description,omitempty"`
	YearEstablished int      `json:"year_established,omitempty"`
	NumberOfDoctors int      `json:"number_of_doctors,omitempty" validate:"omitempty,min=0"`
	NumberOfStaff   int      `json:"number_of_staff,omitempty" validate:"omitempty,min=0"`
	Specialties     []string `json:"specialties,omitempty"`
	Services        []string `json:"services,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Validate enforces the identity fields required before any scoring
// attempt: a plausible name and at least one usable contact method.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.ErrNameRequired
	}
	if err := validation.ValidateClinicName(p.Name); err != nil {
		return errors.NewInvalidInputError("INVALID_NAME", err.Error()).WithCause(err)
	}

	hasEmail := p.Email != "" && validation.ValidEmail(p.Email)
	hasPhone := p.Phone != "" && validation.ValidPhone(p.Phone)
	if p.Email == "" && p.Phone == "" {
		return errors.ErrContactRequired
	}
	if !hasEmail && !hasPhone {
		return errors.NewInvalidInputError("INVALID_CONTACT", "neither email nor phone is in a usable format")
	}
	return nil
}

// HasLicense reports whether any license number was supplied.
func (p *Profile) HasLicense() bool {
	return strings.TrimSpace(p.LicenseNumber) != ""
}
