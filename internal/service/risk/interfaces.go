package risk

import (
	"context"

	"github.com/google/uuid"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
)

// Service scores clinic registrations against the active model bundle.
type Service interface {
	// Assess scores a single registration. snapshot may be nil when no
	// session telemetry was captured.
	Assess(ctx context.Context, profile *clinic.Profile, snapshot *behavior.Snapshot) (*assessment.RiskAssessment, error)

	// AssessBatch scores up to the configured maximum of registrations in
	// one call. Item failures are isolated; one bad profile never fails
	// the batch.
	AssessBatch(ctx context.Context, items []BatchItem) (*BatchResult, error)

	// GetAssessment fetches one persisted assessment by id.
	GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.RiskAssessment, error)

	// AssessmentHistory returns a clinic's persisted assessments, newest
	// first. Requires a configured repository.
	AssessmentHistory(ctx context.Context, clinicName string, limit int) ([]*assessment.RiskAssessment, error)

	// Reload atomically swaps in the bundle at path. On failure the
	// currently active bundle keeps serving.
	Reload(path string) error

	// ModelInfo describes the active bundle, if any.
	ModelInfo() (ModelInfo, bool)
}

// Repository persists completed assessments for audit and retraining.
type Repository interface {
	Save(ctx context.Context, clinicName string, a *assessment.RiskAssessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*assessment.RiskAssessment, error)
	RecentByClinic(ctx context.Context, clinicName string, limit int) ([]*assessment.RiskAssessment, error)
}

// Cache is a short-TTL read-through cache keyed by clinic identity.
type Cache interface {
	Get(ctx context.Context, key string) (*assessment.RiskAssessment, bool)
	Set(ctx context.Context, key string, a *assessment.RiskAssessment) error
}

// BatchItem is one registration inside a batch request.
type BatchItem struct {
	Profile  *clinic.Profile    `json:"profile"`
	Snapshot *behavior.Snapshot `json:"behavior,omitempty"`
}

// BatchOutcome pairs an item's position with its assessment or error.
type BatchOutcome struct {
	Index      int                        `json:"index"`
	Assessment *assessment.RiskAssessment `json:"assessment,omitempty"`
	Error      error                      `json:"error,omitempty"`
}

// BatchResult summarizes a batch run. Every input index appears exactly
// once in Outcomes.
type BatchResult struct {
	Outcomes  []BatchOutcome `json:"outcomes"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

// ModelInfo is the operator-visible summary of the active bundle.
type ModelInfo struct {
	Version         string  `json:"version"`
	Algorithm       string  `json:"algorithm"`
	TrainedAt       string  `json:"trained_at"`
	TrainingSamples int     `json:"training_samples"`
	WeightedF1      float64 `json:"weighted_f1,omitempty"`
}
