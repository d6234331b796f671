package risk

import (
	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/ml/features"
)

// riskScore folds the class probability distribution into a single score.
// The HIGH probability dominates and MEDIUM contributes partial weight, so
// a confident MEDIUM prediction lands in the middle band rather than at an
// extreme.
func riskScore(b *bundle.Bundle, probs []float64) float64 {
	hi := b.ClassIndex(string(assessment.RiskHigh))
	if hi >= 0 && hi < len(probs) {
		score := 0.7 * probs[hi]
		if med := b.ClassIndex(string(assessment.RiskMedium)); med >= 0 && med < len(probs) {
			score += 0.3 * probs[med]
		}
		return score
	}

	// Degraded bundle without a HIGH class: fall back to the predicted
	// class probability so the score still orders registrations.
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return probs[best]
}

// confidence is the probability mass on the winning class.
func confidence(probs []float64) float64 {
	max := 0.0
	for _, p := range probs {
		if p > max {
			max = p
		}
	}
	return max
}

// riskFlags derives the explanatory flags from the engineered features.
// Flags explain, they never feed back into the score.
func riskFlags(vec *features.Vector) []string {
	flags := []string{}

	if vec.Get("has_website") == 0 {
		flags = append(flags, assessment.FlagNoWebsite)
	}
	if vec.Get("has_license") == 0 {
		flags = append(flags, assessment.FlagNoLicense)
	}
	// Independent of presence: a missing license also fails the format
	// check, so an unlicensed clinic carries both flags.
	if vec.Get("license_format_valid") == 0 {
		flags = append(flags, assessment.FlagInvalidLicenseFormat)
	}
	if vec.Get("has_accreditation") == 0 {
		flags = append(flags, assessment.FlagNoAccreditation)
	}
	if vec.Get("is_new_business") == 1 {
		flags = append(flags, assessment.FlagNewBusiness)
	}
	if vec.Get("is_solo_practice") == 1 {
		flags = append(flags, assessment.FlagSoloPractice)
	}

	return flags
}
