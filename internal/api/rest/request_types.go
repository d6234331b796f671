package rest

import (
	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
)

// AssessmentRequest scores one clinic registration. The behavior snapshot
// is optional; without it only profile features drive the score.
type AssessmentRequest struct {
	Profile  *clinic.Profile    `json:"profile" validate:"required"`
	Behavior *behavior.Snapshot `json:"behavior,omitempty"`
}

// BatchAssessmentRequest scores several registrations in one call. Items
// are validated individually by the scoring service so one bad profile
// fails only its own slot.
type BatchAssessmentRequest struct {
	Items []AssessmentRequest `json:"items" validate:"required,min=1"`
}

// ClassifyRequest classifies one session snapshot.
type ClassifyRequest struct {
	Snapshot *behavior.Snapshot `json:"snapshot" validate:"required"`
}

// ReloadRequest swaps a model bundle. Model defaults to "risk"; Path
// defaults to the configured bundle path for that model.
type ReloadRequest struct {
	Model string `json:"model,omitempty" validate:"omitempty,oneof=risk behavior"`
	Path  string `json:"path,omitempty"`
}
