package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
)

var refTime = time.Date(2025, time.June, 16, 14, 30, 0, 0, time.UTC) // Monday afternoon

func TestEngineer_FullKeySet(t *testing.T) {
	eng := NewEngineerAt(refTime)

	// An empty profile must still produce every declared column.
	vec := eng.Engineer(&clinic.Profile{}, nil)

	m := vec.Map()
	require.Len(t, m, len(Columns))
	for _, col := range Columns {
		_, ok := m[col]
		assert.True(t, ok, "missing column %s", col)
	}

	// Absent optional fields read as zero, not as missing keys.
	assert.Zero(t, vec.Get("has_website"))
	assert.Zero(t, vec.Get("mouseMoveRate"))
	assert.Zero(t, vec.Get("submission_hour"))
}

func TestEngineer_PresenceAndFormatFeatures(t *testing.T) {
	eng := NewEngineerAt(refTime)

	profile := &clinic.Profile{
		Name:          "Mercy Family Health 24",
		Phone:         "+15551234567",
		Website:       "https://mercy.example",
		LicenseNumber: "LIC-123456",
		Accreditation: "ACC-1",
		TaxID:         "123456789",
		Address:       "10 Main St",
		City:          "Springfield",
	}
	vec := eng.Engineer(profile, nil)

	assert.Equal(t, 1.0, vec.Get("has_website"))
	assert.Equal(t, 1.0, vec.Get("has_phone"))
	assert.Equal(t, 1.0, vec.Get("phone_is_valid"))
	assert.Equal(t, 1.0, vec.Get("has_license"))
	assert.Equal(t, 1.0, vec.Get("license_format_valid"))
	assert.Equal(t, 1.0, vec.Get("has_tax_id"))
	assert.Equal(t, 1.0, vec.Get("tax_id_format_valid"))
	assert.Equal(t, 1.0, vec.Get("has_numbers_in_name"))
	assert.Equal(t, 0.5, vec.Get("address_completeness"))
	assert.Equal(t, float64(len("LIC-123456")), vec.Get("license_length"))
}

func TestEngineer_BusinessMaturity(t *testing.T) {
	eng := NewEngineerAt(refTime)

	tests := []struct {
		name      string
		year      int
		wantYears float64
		wantNew   float64
		wantEstab float64
	}{
		{"established 2005", 2005, 20, 0, 1},
		{"founded this year", 2025, 0, 1, 0},
		{"missing year defaults to zero years", 0, 0, 1, 0},
		{"future year clamps to zero", 2030, 0, 1, 0},
		{"four years old", 2021, 4, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vec := eng.Engineer(&clinic.Profile{YearEstablished: tt.year}, nil)
			assert.Equal(t, tt.wantYears, vec.Get("years_in_business"))
			assert.Equal(t, tt.wantNew, vec.Get("is_new_business"))
			assert.Equal(t, tt.wantEstab, vec.Get("is_established"))
		})
	}
}

func TestEngineer_ScaleFeatures(t *testing.T) {
	eng := NewEngineerAt(refTime)

	vec := eng.Engineer(&clinic.Profile{NumberOfDoctors: 1, NumberOfStaff: 4}, nil)
	assert.Equal(t, 1.0, vec.Get("is_solo_practice"))
	assert.Equal(t, 0.0, vec.Get("is_large_clinic"))
	assert.Equal(t, 4.0, vec.Get("doctor_to_staff_ratio"))

	// Zero doctors must not divide by zero.
	vec = eng.Engineer(&clinic.Profile{NumberOfStaff: 3}, nil)
	assert.Equal(t, 3.0, vec.Get("doctor_to_staff_ratio"))

	vec = eng.Engineer(&clinic.Profile{NumberOfDoctors: 12, NumberOfStaff: 30}, nil)
	assert.Equal(t, 1.0, vec.Get("is_large_clinic"))
	assert.InDelta(t, 2.5, vec.Get("doctor_to_staff_ratio"), 1e-9)
}

func TestEngineer_SubmissionTiming(t *testing.T) {
	eng := NewEngineerAt(refTime)

	lateNight := time.Date(2025, time.June, 14, 23, 5, 0, 0, time.UTC) // Saturday 23:05
	vec := eng.Engineer(&clinic.Profile{SubmittedAt: &lateNight}, nil)
	assert.Equal(t, 23.0, vec.Get("submission_hour"))
	assert.Equal(t, 1.0, vec.Get("is_weekend_submission"))
	assert.Equal(t, 1.0, vec.Get("is_late_night"))
	assert.Equal(t, 0.0, vec.Get("is_business_hours"))

	businessHours := time.Date(2025, time.June, 17, 10, 0, 0, 0, time.UTC) // Tuesday 10:00
	vec = eng.Engineer(&clinic.Profile{SubmittedAt: &businessHours}, nil)
	assert.Equal(t, 1.0, vec.Get("is_business_hours"))
	assert.Equal(t, 0.0, vec.Get("is_weekend_submission"))
	assert.Equal(t, 0.0, vec.Get("is_late_night"))
}

func TestEngineer_TextQuality(t *testing.T) {
	eng := NewEngineerAt(refTime)

	long := "A comprehensive medical center providing quality healthcare services " +
		"to patients across the region, with professional treatment and preventive care programs."
	vec := eng.Engineer(&clinic.Profile{Description: long}, nil)
	assert.Greater(t, vec.Get("description_quality"), 0.5)
	assert.LessOrEqual(t, vec.Get("description_quality"), 1.0)

	vec = eng.Engineer(&clinic.Profile{Description: "ok"}, nil)
	assert.Equal(t, 0.0, vec.Get("description_quality"))
	assert.Equal(t, 1.0, vec.Get("has_description"))
}

func TestEngineer_BehavioralPassThrough(t *testing.T) {
	eng := NewEngineerAt(refTime)

	snap := &behavior.Snapshot{
		MouseMoveCount:    120,
		KeyPressCount:     30,
		TimeOnPageSeconds: 90,
		MouseMoveRate:     1.33,
		KeyPressRate:      0.33,
		IdleRatio:         0.2,
		InteractionScore:  0.8,
	}
	vec := eng.Engineer(&clinic.Profile{}, snap)
	assert.Equal(t, 120.0, vec.Get("mouseMoveCount"))
	assert.Equal(t, 0.2, vec.Get("idleRatio"))

	// NaN telemetry never reaches a model.
	snap.MouseMoveRate = math.NaN()
	snap.KeyPressRate = math.Inf(1)
	vec = eng.Engineer(&clinic.Profile{}, snap)
	assert.Equal(t, 0.0, vec.Get("mouseMoveRate"))
	assert.Equal(t, 0.0, vec.Get("keyPressRate"))
}

func TestVector_Align(t *testing.T) {
	eng := NewEngineerAt(refTime)
	vec := eng.Engineer(&clinic.Profile{Name: "Mercy"}, nil)

	vals, err := vec.Align([]string{"clinic_name_length", "has_website"})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0}, vals)

	_, err = vec.Align([]string{"clinic_name_length", "not_a_feature"})
	assert.Error(t, err)
}

func TestEngineer_Deterministic(t *testing.T) {
	eng := NewEngineerAt(refTime)
	profile := &clinic.Profile{Name: "Mercy", YearEstablished: 2010, NumberOfDoctors: 3}

	a := eng.Engineer(profile, nil)
	b := eng.Engineer(profile, nil)
	assert.Equal(t, a.Map(), b.Map())
}
