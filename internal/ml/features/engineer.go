package features

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
	"github.com/careverify/clinic-trust-engine/internal/domain/validation"
)

// Columns is the full declared feature superset in canonical order. Every
// engineered vector carries exactly these keys; absent raw inputs
// synthesize 0 rather than dropping the key.
var Columns = []string{
	"submission_hour",
	"submission_day_of_week",
	"is_weekend_submission",
	"is_business_hours",
	"is_late_night",
	"clinic_name_length",
	"has_numbers_in_name",
	"has_website",
	"website_length",
	"has_phone",
	"phone_length",
	"phone_is_valid",
	"email_length",
	"has_license",
	"license_length",
	"license_format_valid",
	"has_accreditation",
	"accreditation_length",
	"has_tax_id",
	"tax_id_format_valid",
	"has_address",
	"address_length",
	"has_city",
	"city_length",
	"has_state",
	"state_length",
	"has_zip_code",
	"zip_code_length",
	"address_completeness",
	"years_in_business",
	"is_new_business",
	"is_established",
	"number_of_doctors",
	"number_of_staff",
	"doctor_to_staff_ratio",
	"is_solo_practice",
	"is_large_clinic",
	"specialties_count",
	"services_count",
	"description_length",
	"has_description",
	"description_quality",
	"mouseMoveCount",
	"keyPressCount",
	"timeOnPageSeconds",
	"mouseMoveRate",
	"keyPressRate",
	"interactionBalance",
	"interactionScore",
	"idleRatio",
}

// Vector is an ordered mapping of named numeric features. Its key set is
// always the full Columns superset.
type Vector struct {
	values map[string]float64
}

// Columns returns the canonical column ordering.
func (v *Vector) Columns() []string {
	return Columns
}

// Get returns the named feature, or 0 for a column outside the superset.
func (v *Vector) Get(name string) float64 {
	return v.values[name]
}

// Map returns a copy of the underlying values.
func (v *Vector) Map() map[string]float64 {
	out := make(map[string]float64, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// Align orders the vector's values to match the requested columns. A
// requested column missing from the declared superset is an irrecoverable
// schema mismatch, not a defaulting case, and fails aloud.
func (v *Vector) Align(cols []string) ([]float64, error) {
	out := make([]float64, len(cols))
	for i, col := range cols {
		val, ok := v.values[col]
		if !ok {
			return nil, fmt.Errorf("feature column %q is not part of the engineered feature set", col)
		}
		out[i] = val
	}
	return out, nil
}

var digitRegex = regexp.MustCompile(`\d`)

// descriptionKeywords reward domain-relevant language in free text.
var descriptionKeywords = []string{"medical", "healthcare", "patients", "treatment", "care", "professional"}

// Engineer derives the named numeric feature vector from a clinic profile
// and optional behavior snapshot. It is the single transform shared by
// training and inference; both call sites must go through it so feature
// computation can never drift between the two.
type Engineer struct {
	now func() time.Time
}

// NewEngineer returns an Engineer that evaluates maturity features against
// the wall clock.
func NewEngineer() *Engineer {
	return &Engineer{now: time.Now}
}

// NewEngineerAt pins the reference time, for reproducible training runs and
// tests.
func NewEngineerAt(now time.Time) *Engineer {
	return &Engineer{now: func() time.Time { return now }}
}

// Engineer computes the feature vector. snapshot may be nil, in which case
// the behavioral columns are zero. The transform is pure: no I/O, and the
// output is fully determined by the inputs and the reference time.
func (e *Engineer) Engineer(p *clinic.Profile, snapshot *behavior.Snapshot) *Vector {
	vals := make(map[string]float64, len(Columns))
	for _, col := range Columns {
		vals[col] = 0
	}

	// Submission timing
	if p.SubmittedAt != nil {
		ts := p.SubmittedAt.UTC()
		hour := ts.Hour()
		vals["submission_hour"] = float64(hour)
		vals["submission_day_of_week"] = float64(int(ts.Weekday()))
		vals["is_weekend_submission"] = boolFeature(ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday)
		vals["is_business_hours"] = boolFeature(hour >= 9 && hour <= 17)
		vals["is_late_night"] = boolFeature(hour >= 22 || hour < 6)
	}

	// Identity presence, length and format validity
	vals["clinic_name_length"] = float64(len(p.Name))
	vals["has_numbers_in_name"] = boolFeature(digitRegex.MatchString(p.Name))

	vals["has_website"] = boolFeature(p.Website != "")
	vals["website_length"] = float64(len(p.Website))

	vals["has_phone"] = boolFeature(p.Phone != "")
	vals["phone_length"] = float64(len(p.Phone))
	vals["phone_is_valid"] = boolFeature(p.Phone != "" && validation.ValidPhone(p.Phone))

	vals["email_length"] = float64(len(p.Email))

	vals["has_license"] = boolFeature(p.HasLicense())
	vals["license_length"] = float64(len(p.LicenseNumber))
	vals["license_format_valid"] = boolFeature(p.HasLicense() && validation.ValidLicense(p.LicenseNumber))

	vals["has_accreditation"] = boolFeature(p.Accreditation != "")
	vals["accreditation_length"] = float64(len(p.Accreditation))

	vals["has_tax_id"] = boolFeature(p.TaxID != "")
	vals["tax_id_format_valid"] = boolFeature(p.TaxID != "" && validation.ValidTaxID(p.TaxID))

	// Location completeness
	present := 0
	for _, part := range []struct {
		name  string
		value string
	}{
		{"address", p.Address},
		{"city", p.City},
		{"state", p.State},
		{"zip_code", p.ZipCode},
	} {
		vals["has_"+part.name] = boolFeature(part.value != "")
		vals[part.name+"_length"] = float64(len(part.value))
		if part.value != "" {
			present++
		}
	}
	vals["address_completeness"] = float64(present) / 4.0

	// Business maturity. A missing year defaults to the current year so a
	// blank field reads as zero years in business.
	currentYear := e.now().UTC().Year()
	year := p.YearEstablished
	if year == 0 {
		year = currentYear
	}
	yearsInBusiness := float64(currentYear - year)
	if yearsInBusiness < 0 {
		yearsInBusiness = 0
	}
	vals["years_in_business"] = yearsInBusiness
	vals["is_new_business"] = boolFeature(yearsInBusiness < 1)
	vals["is_established"] = boolFeature(yearsInBusiness >= 5)

	// Practice scale
	doctors := float64(p.NumberOfDoctors)
	staff := float64(p.NumberOfStaff)
	vals["number_of_doctors"] = doctors
	vals["number_of_staff"] = staff
	vals["doctor_to_staff_ratio"] = staff / math.Max(doctors, 1)
	vals["is_solo_practice"] = boolFeature(p.NumberOfDoctors == 1)
	vals["is_large_clinic"] = boolFeature(p.NumberOfDoctors > 10)

	vals["specialties_count"] = float64(len(p.Specialties))
	vals["services_count"] = float64(len(p.Services))

	// Text quality
	vals["description_length"] = float64(len(p.Description))
	vals["has_description"] = boolFeature(p.Description != "")
	vals["description_quality"] = textQuality(p.Description)

	// Behavioral pass-throughs
	if snapshot != nil {
		feats := snapshot.Features()
		for i, col := range behavior.FeatureColumns {
			vals[col] = sanitize(feats[i])
		}
	}

	return &Vector{values: vals}
}

// textQuality is a bounded 0-1 heuristic rewarding length bands and
// domain-relevant keywords.
func textQuality(text string) float64 {
	if text == "" {
		return 0
	}

	score := 0.0
	if len(text) > 50 {
		score += 0.3
	}
	if len(text) > 150 {
		score += 0.2
	}
	if len(text) > 300 {
		score += 0.2
	}

	lower := strings.ToLower(text)
	found := 0
	for _, term := range descriptionKeywords {
		if strings.Contains(lower, term) {
			found++
		}
	}
	score += math.Min(0.3, float64(found)*0.1)

	return math.Min(1.0, score)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// sanitize coerces NaN and infinities to 0 so no model ever sees them.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
