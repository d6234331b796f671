package assessment

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel buckets a risk score into the three operator-facing tiers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskLevels is the canonical class ordering used for label encoding.
var RiskLevels = []string{string(RiskLow), string(RiskMedium), string(RiskHigh)}

// Fixed score thresholds. Part of the decision contract, not tunables.
const (
	LowThreshold  = 0.3
	HighThreshold = 0.7
)

// LevelFromScore buckets a score: <=0.3 LOW, <=0.7 MEDIUM, else HIGH.
func LevelFromScore(score float64) RiskLevel {
	switch {
	case score <= LowThreshold:
		return RiskLow
	case score <= HighThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// AccountStatus is the recommended account state for a scored clinic.
type AccountStatus string

const (
	StatusActiveLimited        AccountStatus = "ACTIVE_LIMITED"
	StatusVerificationRequired AccountStatus = "VERIFICATION_REQUIRED"
	StatusRestricted           AccountStatus = "RESTRICTED"
)

// StatusFor is the deterministic decision table over (risk level, license
// presence). The raw score never enters the mapping.
func StatusFor(level RiskLevel, hasLicense bool) AccountStatus {
	switch {
	case level == RiskHigh:
		return StatusRestricted
	case level == RiskLow && hasLicense:
		return StatusActiveLimited
	default:
		return StatusVerificationRequired
	}
}

// Risk flags. Explanatory only; they never feed back into the score.
const (
	FlagNoWebsite            = "NO_WEBSITE"
	FlagNoLicense            = "NO_LICENSE"
	FlagInvalidLicenseFormat = "INVALID_LICENSE_FORMAT"
	FlagNoAccreditation      = "NO_ACCREDITATION"
	FlagNewBusiness          = "NEW_BUSINESS"
	FlagSoloPractice         = "SOLO_PRACTICE"
)

// RiskAssessment is the structured verdict returned for one clinic. It is
// produced fresh per request and never mutated afterward.
type RiskAssessment struct {
	ID            uuid.UUID     `json:"id"`
	RiskScore     float64       `json:"risk_score"`
	RiskLevel     RiskLevel     `json:"risk_level"`
	AccountStatus AccountStatus `json:"account_status"`
	RiskFlags     []string      `json:"risk_flags"`
	Confidence    float64       `json:"confidence"`
	ModelVersion  string        `json:"model_version"`
	Timestamp     time.Time     `json:"timestamp"`
}
