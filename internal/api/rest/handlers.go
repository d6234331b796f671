package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	domainerrors "github.com/careverify/clinic-trust-engine/internal/domain/errors"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/service/biometrics"
	"github.com/careverify/clinic-trust-engine/internal/service/risk"
)

// maxBodyBytes caps request bodies; batch payloads stay well under it.
const maxBodyBytes = 1 << 20

// History pagination bounds.
const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Services are the collaborators the handlers call into.
type Services struct {
	Risk     risk.Service
	Behavior biometrics.Classifier

	// BehaviorStore backs behavior model reloads. Risk reloads go through
	// the risk service.
	BehaviorStore *bundle.Store
}

// BundlePaths are the default artifact locations for reload requests that
// do not name a path.
type BundlePaths struct {
	Risk     string
	Behavior string
}

// Handler owns the HTTP surface of the scoring engine.
type Handler struct {
	services Services
	paths    BundlePaths
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(services Services, paths BundlePaths, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		services: services,
		paths:    paths,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *Handler) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req AssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.services.Risk.Assess(r.Context(), req.Profile, req.Behavior)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	assessmentsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleAssessBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchAssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]risk.BatchItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = risk.BatchItem{Profile: item.Profile, Snapshot: item.Behavior}
	}

	result, err := h.services.Risk.AssessBatch(r.Context(), items)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := BatchAssessmentResponse{
		Outcomes:  make([]BatchOutcomeResponse, len(result.Outcomes)),
		Total:     result.Total,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}
	for i, outcome := range result.Outcomes {
		out := BatchOutcomeResponse{Index: outcome.Index}
		if outcome.Error != nil {
			body := errorBody(outcome.Error)
			out.Error = &body
		} else {
			out.Assessment = outcome.Assessment
			assessmentsTotal.WithLabelValues(string(outcome.Assessment.RiskLevel)).Inc()
		}
		resp.Outcomes[i] = out
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, domainerrors.NewInvalidInputError("INVALID_ID", "assessment id must be a UUID").WithCause(err))
		return
	}

	a, err := h.services.Risk.GetAssessment(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleAssessmentHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, domainerrors.NewInvalidInputError("INVALID_LIMIT", "limit must be a positive integer"))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	name := r.PathValue("name")
	list, err := h.services.Risk.AssessmentHistory(r.Context(), name, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*assessment.RiskAssessment{}
	}
	writeJSON(w, http.StatusOK, AssessmentHistoryResponse{Clinic: name, Assessments: list})
}

func (h *Handler) handleClassifyBehavior(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	verdict := h.services.Behavior.Classify(r.Context(), req.Snapshot)

	label := "bot"
	if verdict.IsHuman {
		label = "human"
	}
	behaviorVerdictsTotal.WithLabelValues(label).Inc()
	writeJSON(w, http.StatusOK, verdict)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	req := ReloadRequest{Model: "risk"}
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
		if req.Model == "" {
			req.Model = "risk"
		}
	}

	var err error
	var version string
	switch req.Model {
	case "behavior":
		if req.Path == "" {
			req.Path = h.paths.Behavior
		}
		err = h.services.BehaviorStore.Reload(req.Path)
		if b, ok := h.services.BehaviorStore.Current(); ok && err == nil {
			version = b.Version
		}
	default:
		if req.Path == "" {
			req.Path = h.paths.Risk
		}
		err = h.services.Risk.Reload(req.Path)
		if info, ok := h.services.Risk.ModelInfo(); ok && err == nil {
			version = info.Version
		}
	}

	if err != nil {
		modelReloadsTotal.WithLabelValues(req.Model, "failure").Inc()
		h.writeError(w, r, domainerrors.NewInternalError("model reload failed").WithCause(err))
		return
	}

	modelReloadsTotal.WithLabelValues(req.Model, "success").Inc()
	writeJSON(w, http.StatusOK, ReloadResponse{Model: req.Model, Path: req.Path, Version: version})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if info, ok := h.services.Risk.ModelInfo(); ok {
		resp.Model = &info
	} else {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode parses and validates the JSON body, writing the error response
// itself on failure. Unknown keys are ignored so upstream intake records
// can carry extra fields.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, domainerrors.NewInvalidInputError("MALFORMED_BODY", "request body is not valid JSON").WithCause(err))
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		h.writeError(w, r, domainerrors.NewInvalidInputError("INVALID_REQUEST", err.Error()).WithCause(err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := domainerrors.GetStatusCode(err)
	if status >= 500 {
		h.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, ErrorResponse{Error: errorBody(err)})
}

func errorBody(err error) ErrorBody {
	var appErr *domainerrors.AppError
	if errors.As(err, &appErr) {
		return ErrorBody{Code: appErr.Code, Message: appErr.Message}
	}
	return ErrorBody{Code: "INTERNAL_ERROR", Message: "internal server error"}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
