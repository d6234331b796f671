package risk

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
	"github.com/careverify/clinic-trust-engine/internal/domain/errors"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/ml/features"
)

// DefaultMaxBatchSize caps batch requests unless configured otherwise.
const DefaultMaxBatchSize = 100

type service struct {
	store    *bundle.Store
	engineer *features.Engineer
	repo     Repository
	cache    Cache
	logger   *slog.Logger
	maxBatch int
}

// Option configures optional service collaborators.
type Option func(*service)

// WithRepository persists every completed assessment.
func WithRepository(repo Repository) Option {
	return func(s *service) { s.repo = repo }
}

// WithCache serves repeated assessments of the same clinic from cache.
func WithCache(cache Cache) Option {
	return func(s *service) { s.cache = cache }
}

// WithMaxBatchSize overrides the batch cap.
func WithMaxBatchSize(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// NewService assembles the risk scoring service around the shared bundle
// store and feature engineer.
func NewService(store *bundle.Store, engineer *features.Engineer, logger *slog.Logger, opts ...Option) Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{
		store:    store,
		engineer: engineer,
		logger:   logger,
		maxBatch: DefaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Assess(ctx context.Context, profile *clinic.Profile, snapshot *behavior.Snapshot) (*assessment.RiskAssessment, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	key := cacheKey(profile)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	b, ok := s.store.Current()
	if !ok {
		return nil, errors.ErrMissingModel
	}

	result, err := s.assessWith(b, profile, snapshot)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("assessment cache write failed", "error", err)
		}
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, profile.Name, result); err != nil {
			s.logger.Warn("assessment persistence failed", "clinic", profile.Name, "error", err)
		}
	}

	s.logger.Info("clinic assessed",
		"clinic", profile.Name,
		"risk_level", result.RiskLevel,
		"risk_score", result.RiskScore,
		"account_status", result.AccountStatus,
		"model_version", result.ModelVersion)
	return result, nil
}

// assessWith runs inference against one pinned bundle. The bundle
// reference is captured by the caller, so a concurrent reload can never
// mix versions within a request.
func (s *service) assessWith(b *bundle.Bundle, profile *clinic.Profile, snapshot *behavior.Snapshot) (*assessment.RiskAssessment, error) {
	vec := s.engineer.Engineer(profile, snapshot)
	row, err := vec.Align(b.FeatureColumns)
	if err != nil {
		return nil, errors.NewPredictionError("feature vector does not align with the model's columns").WithCause(err)
	}

	probs, err := b.Pipeline.PredictProba(row)
	if err != nil {
		return nil, errors.NewPredictionError("classifier inference failed").WithCause(err)
	}

	score := riskScore(b, probs)
	level := assessment.LevelFromScore(score)

	return &assessment.RiskAssessment{
		ID:            uuid.New(),
		RiskScore:     score,
		RiskLevel:     level,
		AccountStatus: assessment.StatusFor(level, profile.HasLicense()),
		RiskFlags:     riskFlags(vec),
		Confidence:    confidence(probs),
		ModelVersion:  b.Version,
		Timestamp:     time.Now().UTC(),
	}, nil
}

func (s *service) AssessBatch(ctx context.Context, items []BatchItem) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, errors.NewInvalidInputError("EMPTY_BATCH", "batch contains no items")
	}
	if len(items) > s.maxBatch {
		return nil, errors.ErrBatchTooLarge
	}

	// One bundle reference for the whole batch: every item is scored by
	// the same model version even if a reload lands mid-flight.
	b, ok := s.store.Current()
	if !ok {
		return nil, errors.ErrMissingModel
	}

	result := &BatchResult{
		Outcomes: make([]BatchOutcome, len(items)),
		Total:    len(items),
	}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome := BatchOutcome{Index: i}
		a, err := s.assessItem(ctx, b, item)
		if err != nil {
			outcome.Error = errors.NewBatchItemError(i, err)
			result.Failed++
		} else {
			outcome.Assessment = a
			result.Succeeded++
		}
		result.Outcomes[i] = outcome
	}

	s.logger.Info("batch assessed", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (s *service) assessItem(ctx context.Context, b *bundle.Bundle, item BatchItem) (*assessment.RiskAssessment, error) {
	if item.Profile == nil {
		return nil, errors.NewInvalidInputError("PROFILE_REQUIRED", "batch item has no profile")
	}
	if err := item.Profile.Validate(); err != nil {
		return nil, err
	}

	a, err := s.assessWith(b, item.Profile, item.Snapshot)
	if err != nil {
		return nil, err
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, item.Profile.Name, a); err != nil {
			s.logger.Warn("assessment persistence failed", "clinic", item.Profile.Name, "error", err)
		}
	}
	return a, nil
}

func (s *service) GetAssessment(ctx context.Context, id uuid.UUID) (*assessment.RiskAssessment, error) {
	if s.repo == nil {
		return nil, errors.ErrNoPersistence
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) AssessmentHistory(ctx context.Context, clinicName string, limit int) ([]*assessment.RiskAssessment, error) {
	if s.repo == nil {
		return nil, errors.ErrNoPersistence
	}
	if strings.TrimSpace(clinicName) == "" {
		return nil, errors.ErrNameRequired
	}
	return s.repo.RecentByClinic(ctx, clinicName, limit)
}

func (s *service) Reload(path string) error {
	if err := s.store.Reload(path); err != nil {
		s.logger.Error("model reload failed, previous bundle still active", "path", path, "error", err)
		return err
	}

	if b, ok := s.store.Current(); ok {
		s.logger.Info("model reloaded", "path", path, "version", b.Version, "algorithm", b.Algorithm)
	}
	return nil
}

func (s *service) ModelInfo() (ModelInfo, bool) {
	b, ok := s.store.Current()
	if !ok {
		return ModelInfo{}, false
	}

	info := ModelInfo{
		Version:         b.Version,
		Algorithm:       b.Algorithm,
		TrainedAt:       b.TrainedAt.Format(time.RFC3339),
		TrainingSamples: b.TrainingSamples,
	}
	if b.Evaluation != nil {
		info.WeightedF1 = b.Evaluation.WeightedF1
	}
	return info, true
}

// cacheKey identifies a clinic by normalized name and contact.
func cacheKey(p *clinic.Profile) string {
	return strings.ToLower(strings.TrimSpace(p.Name)) + "|" + strings.ToLower(strings.TrimSpace(p.Email))
}
