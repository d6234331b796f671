package rest

import (
	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	"github.com/careverify/clinic-trust-engine/internal/service/risk"
)

// ErrorBody is the error envelope every non-2xx response carries.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorBody under the "error" key.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// BatchOutcomeResponse is one scored (or failed) item of a batch.
type BatchOutcomeResponse struct {
	Index      int                        `json:"index"`
	Assessment *assessment.RiskAssessment `json:"assessment,omitempty"`
	Error      *ErrorBody                 `json:"error,omitempty"`
}

// BatchAssessmentResponse summarizes a batch run.
type BatchAssessmentResponse struct {
	Outcomes  []BatchOutcomeResponse `json:"outcomes"`
	Total     int                    `json:"total"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
}

// AssessmentHistoryResponse lists a clinic's persisted assessments,
// newest first.
type AssessmentHistoryResponse struct {
	Clinic      string                       `json:"clinic"`
	Assessments []*assessment.RiskAssessment `json:"assessments"`
}

// ReloadResponse confirms the now-active model.
type ReloadResponse struct {
	Model   string `json:"model"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// HealthResponse reports liveness and the active risk model, if any.
type HealthResponse struct {
	Status string          `json:"status"`
	Model  *risk.ModelInfo `json:"model,omitempty"`
}
