package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	domainerrors "github.com/careverify/clinic-trust-engine/internal/domain/errors"
	"github.com/careverify/clinic-trust-engine/internal/infrastructure/config"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/ml/features"
	"github.com/careverify/clinic-trust-engine/internal/ml/selector"
	"github.com/careverify/clinic-trust-engine/internal/service/biometrics"
	"github.com/careverify/clinic-trust-engine/internal/service/risk"
)

// memoryRepo stands in for the PostgreSQL repository behind the history
// endpoints.
type memoryRepo struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*assessment.RiskAssessment
	byClinic map[string][]*assessment.RiskAssessment
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		byID:     map[uuid.UUID]*assessment.RiskAssessment{},
		byClinic: map[string][]*assessment.RiskAssessment{},
	}
}

func (r *memoryRepo) Save(_ context.Context, clinicName string, a *assessment.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.ID] = a
	r.byClinic[clinicName] = append([]*assessment.RiskAssessment{a}, r.byClinic[clinicName]...)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*assessment.RiskAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	return nil, domainerrors.NewNotFoundError("assessment")
}

func (r *memoryRepo) RecentByClinic(_ context.Context, clinicName string, limit int) ([]*assessment.RiskAssessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.byClinic[clinicName]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

type testEnv struct {
	server        *Server
	riskStore     *bundle.Store
	behaviorStore *bundle.Store
	riskPath      string
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	eng := features.NewEngineerAt(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	sel := selector.New(eng, selector.Config{}, slog.Default())

	riskBundle, err := sel.Train(context.Background(), selector.GenerateClinicRecords(150, 7))
	require.NoError(t, err)
	riskStore := bundle.NewStore()
	riskStore.Set(riskBundle)

	riskPath := filepath.Join(t.TempDir(), "risk.json")
	require.NoError(t, bundle.Save(riskBundle, riskPath))

	behaviorStore := bundle.NewStore()

	services := Services{
		Risk:          risk.NewService(riskStore, eng, slog.Default(), risk.WithRepository(newMemoryRepo())),
		Behavior:      biometrics.NewClassifier(behaviorStore, slog.Default()),
		BehaviorStore: behaviorStore,
	}
	handler := NewHandler(services, BundlePaths{Risk: riskPath, Behavior: "/missing/behavior.json"}, slog.Default())

	cfg := config.ServerConfig{
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		RateLimit:    config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000},
	}
	return &testEnv{
		server:        NewServer(cfg, handler, slog.Default()),
		riskStore:     riskStore,
		behaviorStore: behaviorStore,
		riskPath:      riskPath,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.server.routes().ServeHTTP(rec, req)
	return rec
}

func validAssessmentBody() map[string]any {
	return map[string]any{
		"profile": map[string]any{
			"name":             "Evergreen Medical Group",
			"email":            "admin@evergreen.example.com",
			"website":          "https://evergreen.example.com",
			"license_number":   "LIC123456",
			"accreditation":    "Joint Commission",
			"year_established": 2010,
			"number_of_doctors": 5,
		},
	}
}

func TestAssessEndpoint(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", validAssessmentBody())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var a assessment.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, assessment.RiskLow, a.RiskLevel)
	assert.Equal(t, assessment.StatusActiveLimited, a.AccountStatus)
	assert.NotEmpty(t, a.ModelVersion)
}

func TestAssessEndpointRejectsBadInput(t *testing.T) {
	env := setupServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "missing profile",
			body:   map[string]any{},
			status: http.StatusBadRequest,
			code:   "INVALID_REQUEST",
		},
		{
			name:   "empty name",
			body:   map[string]any{"profile": map[string]any{"name": "", "email": "a@b.com"}},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/assessments", tt.body)

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Error.Code)
			}
		})
	}
}

func TestAssessEndpointIgnoresUnknownFields(t *testing.T) {
	env := setupServer(t)

	// Upstream intake records carry extra keys; they must not fail scoring.
	body := validAssessmentBody()
	body["clinic_id"] = "ext-7841"
	body["profile"].(map[string]any)["source_system"] = "intake-portal"

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var a assessment.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.Equal(t, assessment.RiskLow, a.RiskLevel)
}

func TestAssessEndpointRejectsMalformedJSON(t *testing.T) {
	env := setupServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assessments", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MALFORMED_BODY", resp.Error.Code)
}

func TestAssessEndpointWithoutModel(t *testing.T) {
	env := setupServer(t)
	env.riskStore.Clear()

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", validAssessmentBody())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MODEL_NOT_LOADED", resp.Error.Code)
}

func TestBatchEndpoint(t *testing.T) {
	env := setupServer(t)

	body := map[string]any{
		"items": []any{
			validAssessmentBody(),
			map[string]any{"profile": map[string]any{"name": "", "email": "a@b.com"}},
		},
	}
	rec := env.do(t, http.MethodPost, "/api/v1/assessments/batch", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp BatchAssessmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.NotNil(t, resp.Outcomes[0].Assessment)
	require.NotNil(t, resp.Outcomes[1].Error)
	assert.Equal(t, "BATCH_ITEM_FAILED", resp.Outcomes[1].Error.Code)
}

func TestBatchEndpointRejectsEmpty(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/assessments/batch", map[string]any{"items": []any{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAssessmentEndpoint(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", validAssessmentBody())
	require.Equal(t, http.StatusOK, rec.Code)
	var created assessment.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = env.do(t, http.MethodGet, "/api/v1/assessments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched assessment.RiskAssessment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, created.RiskLevel, fetched.RiskLevel)

	rec = env.do(t, http.MethodGet, "/api/v1/assessments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/assessments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAssessmentHistoryEndpoint(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/assessments", validAssessmentBody())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/clinics/Evergreen%20Medical%20Group/assessments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp AssessmentHistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Evergreen Medical Group", resp.Clinic)
	require.Len(t, resp.Assessments, 1)

	rec = env.do(t, http.MethodGet, "/api/v1/clinics/Nobody%20Here/assessments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Assessments)

	rec = env.do(t, http.MethodGet, "/api/v1/clinics/Evergreen%20Medical%20Group/assessments?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassifyEndpointHeuristicFallback(t *testing.T) {
	env := setupServer(t)

	body := map[string]any{
		"snapshot": map[string]any{
			"timeOnPageSeconds": 2,
			"idleRatio":         0.9,
		},
	}
	rec := env.do(t, http.MethodPost, "/api/v1/behavior/classify", body)

	require.Equal(t, http.StatusOK, rec.Code)
	var verdict struct {
		IsHuman      bool    `json:"isHuman"`
		Confidence   float64 `json:"confidence"`
		ModelVersion string  `json:"modelVersion"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verdict))
	assert.False(t, verdict.IsHuman)
	assert.Equal(t, biometrics.HeuristicVersion, verdict.ModelVersion)
}

func TestReloadEndpoint(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/model/reload", ReloadRequest{Model: "risk"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "risk", resp.Model)
	assert.Equal(t, env.riskPath, resp.Path)
	assert.NotEmpty(t, resp.Version)
}

func TestReloadEndpointFailure(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/model/reload", ReloadRequest{Model: "behavior"})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Model)
	assert.NotEmpty(t, resp.Model.Algorithm)

	env.riskStore.Clear()
	rec = env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestRateLimiting(t *testing.T) {
	env := setupServer(t)
	env.server.cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1}

	handler := env.server.routes()
	limited := false
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited)
}
