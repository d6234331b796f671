package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		want  bool
	}{
		{"e164", "+15551234567", true},
		{"formatted", "+1 (555) 123-4567", true},
		{"bare digits", "15551234567", true},
		{"leading zero", "05551234567", false},
		{"letters", "555-CALL-NOW", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPhone(tt.phone))
		})
	}
}

func TestValidLicense(t *testing.T) {
	tests := []struct {
		name    string
		license string
		want    bool
	}{
		{"plain alphanumeric", "ABC123XYZ", true},
		{"dashed", "LIC-123456", true},
		{"lowercase normalized", "lic123456", true},
		{"too short", "AB123", false},
		{"too long", "A123456789012345678901", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidLicense(tt.license))
		})
	}
}

func TestValidTaxID(t *testing.T) {
	assert.True(t, ValidTaxID("123456789"))
	assert.True(t, ValidTaxID("12-3456789"))
	assert.True(t, ValidTaxID("123456789012"))
	assert.False(t, ValidTaxID("12345678"))
	assert.False(t, ValidTaxID("1234567890123"))
	assert.False(t, ValidTaxID("12345678A"))
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("front-desk@clinic.example"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail(""))
}

func TestValidateClinicName(t *testing.T) {
	assert.NoError(t, ValidateClinicName("Mercy Family Health & Wellness"))
	assert.Error(t, ValidateClinicName(""))
	assert.Error(t, ValidateClinicName("x"))
}
