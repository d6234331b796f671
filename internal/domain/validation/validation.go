package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	// Phone validation - international digit pattern, optional leading +
	phoneRegex = regexp.MustCompile(`^\+?[1-9]\d{0,15}$`)

	// License numbers - uppercase alphanumeric, 6-20 characters
	licenseRegex = regexp.MustCompile(`^[A-Z0-9]{6,20}$`)

	// Tax ids - 9 to 12 digits
	taxIDRegex = regexp.MustCompile(`^\d{9,12}$`)

	// Clinic name - letters, numbers, spaces and common business chars
	clinicNameRegex = regexp.MustCompile(`^[\p{L}\p{N}\s\-'\.&,()]{2,200}$`)
)

// ValidEmail reports whether the address parses as an email.
func ValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 255 {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

// ValidPhone reports whether the number matches the international digit
// pattern after stripping common formatting characters.
func ValidPhone(phone string) bool {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '+':
			return r
		case r == ' ', r == '-', r == '(', r == ')', r == '.':
			return -1
		default:
			return r
		}
	}, phone)
	return phoneRegex.MatchString(cleaned)
}

// ValidLicense reports whether a license number matches the expected
// alphanumeric format. Separators are stripped before matching so values
// like "LIC-123456" pass.
func ValidLicense(license string) bool {
	cleaned := strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(license))
	return licenseRegex.MatchString(cleaned)
}

// ValidTaxID reports whether a tax id is 9-12 digits after stripping
// separators.
func ValidTaxID(taxID string) bool {
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(taxID)
	return taxIDRegex.MatchString(cleaned)
}

// ValidateClinicName validates a registering clinic's legal name.
func ValidateClinicName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("clinic name cannot be empty")
	}
	if !clinicNameRegex.MatchString(name) {
		return fmt.Errorf("invalid clinic name: %q", name)
	}
	return nil
}
