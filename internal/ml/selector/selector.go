package selector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/careverify/clinic-trust-engine/internal/domain/assessment"
	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/domain/clinic"
	"github.com/careverify/clinic-trust-engine/internal/domain/errors"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
	"github.com/careverify/clinic-trust-engine/internal/ml/features"
	"github.com/careverify/clinic-trust-engine/internal/ml/model"
)

// Record is one training example: a clinic profile, optional session
// telemetry, and an optional ground-truth risk level. When RiskLevel is
// empty the configured labeler derives a synthetic one.
type Record struct {
	Profile   *clinic.Profile
	Snapshot  *behavior.Snapshot
	RiskLevel string
}

// BehaviorSample is one labeled session for the human/bot model.
type BehaviorSample struct {
	Snapshot behavior.Snapshot
	IsHuman  bool
}

// BehaviorClassNames encodes bot as class 0 and human as class 1.
var BehaviorClassNames = []string{"bot", "human"}

// Candidate pairs an algorithm name with its constructor. Selection
// breaks CV-score ties by declaration order, so the slice order is part
// of the protocol.
type Candidate struct {
	Name string
	New  func() model.Classifier
}

func defaultCandidates() []Candidate {
	return []Candidate{
		{Name: model.KindLogisticRegression, New: func() model.Classifier { return model.NewLogisticRegression() }},
		{Name: model.KindDecisionTree, New: func() model.Classifier { return model.NewDecisionTree() }},
		{Name: model.KindRandomForest, New: func() model.Classifier { return model.NewRandomForest() }},
	}
}

// Config tunes the selection protocol. Zero values fall back to defaults.
type Config struct {
	MinSamples   int
	TestFraction float64
	Folds        int
	Seed         int64
	Version      string

	// Labeler is the synthetic-scoring heuristic used when a record has
	// no ground-truth level. It is a documented, swappable input, not
	// ground truth; see SyntheticRiskScore.
	Labeler func(*features.Vector) float64
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MinSamples == 0 {
		out.MinSamples = 50
	}
	if out.TestFraction == 0 {
		out.TestFraction = 0.2
	}
	if out.Folds == 0 {
		out.Folds = 5
	}
	if out.Seed == 0 {
		out.Seed = 42
	}
	if out.Version == "" {
		out.Version = "2.0"
	}
	if out.Labeler == nil {
		out.Labeler = SyntheticRiskScore
	}
	return out
}

// Selector trains and cross-validates the candidate pipelines and packages
// the winner into a versioned bundle.
type Selector struct {
	cfg        Config
	engineer   *features.Engineer
	candidates []Candidate
	logger     *slog.Logger
}

// New builds a Selector around the shared feature engineer.
func New(engineer *features.Engineer, cfg Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{
		cfg:        cfg.withDefaults(),
		engineer:   engineer,
		candidates: defaultCandidates(),
		logger:     logger,
	}
}

// Train fits the clinic risk model: engineer features for every record,
// derive the three-level target, select the best candidate by 5-fold CV
// weighted F1, refit on the training split and evaluate once on the
// held-out split.
func (s *Selector) Train(ctx context.Context, records []Record) (*bundle.Bundle, error) {
	if len(records) < s.cfg.MinSamples {
		return nil, errors.NewInsufficientDataError(
			fmt.Sprintf("need at least %d samples, got %d", s.cfg.MinSamples, len(records)))
	}

	X := make([][]float64, len(records))
	y := make([]int, len(records))
	for i, rec := range records {
		vec := s.engineer.Engineer(rec.Profile, rec.Snapshot)
		row, err := vec.Align(features.Columns)
		if err != nil {
			return nil, errors.NewInternalError("feature engineering produced a misaligned vector").WithCause(err)
		}
		X[i] = row

		level := rec.RiskLevel
		if level == "" {
			level = string(assessment.LevelFromScore(s.cfg.Labeler(vec)))
		}
		idx := classIndex(assessment.RiskLevels, level)
		if idx < 0 {
			return nil, errors.NewInvalidInputError("UNKNOWN_LABEL",
				fmt.Sprintf("record %d carries unknown risk level %q", i, level))
		}
		y[i] = idx
	}

	return s.selectAndFit(ctx, X, y, features.Columns, assessment.RiskLevels)
}

// TrainBehavior fits the human/bot model over the eight behavioral
// columns using the same selection protocol.
func (s *Selector) TrainBehavior(ctx context.Context, samples []BehaviorSample) (*bundle.Bundle, error) {
	if len(samples) < s.cfg.MinSamples {
		return nil, errors.NewInsufficientDataError(
			fmt.Sprintf("need at least %d samples, got %d", s.cfg.MinSamples, len(samples)))
	}

	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, sample := range samples {
		X[i] = sample.Snapshot.Features()
		if sample.IsHuman {
			y[i] = 1
		}
	}

	return s.selectAndFit(ctx, X, y, behavior.FeatureColumns, BehaviorClassNames)
}

// selectAndFit runs the shared selection protocol over an engineered
// matrix.
func (s *Selector) selectAndFit(ctx context.Context, X [][]float64, y []int, cols, classNames []string) (*bundle.Bundle, error) {
	if distinct(y) < 2 {
		return nil, errors.NewInsufficientDataError("training data collapses to a single label class")
	}

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	trainIdx, testIdx := split(y, s.cfg.TestFraction, rng)

	trainX, trainY := gather(X, y, trainIdx)
	testX, testY := gather(X, y, testIdx)

	// The same fold assignment is reused for every candidate so CV scores
	// are comparable.
	folds := stratifiedFolds(trainY, s.cfg.Folds, rng)

	cvScores := make(map[string]float64, len(s.candidates))
	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, cand := range s.candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		score, err := s.crossValidate(cand, trainX, trainY, folds, len(classNames))
		if err != nil {
			return nil, errors.NewInternalError(fmt.Sprintf("cross-validation of %s failed", cand.Name)).WithCause(err)
		}
		cvScores[cand.Name] = score
		s.logger.Info("candidate cross-validated", "algorithm", cand.Name, "weighted_f1", score)

		// Strict comparison keeps ties on the first-declared candidate.
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	best := s.candidates[bestIdx]
	pipeline := model.NewPipeline(best.New())
	if err := pipeline.Fit(trainX, trainY); err != nil {
		return nil, errors.NewInternalError("final fit failed").WithCause(err)
	}

	// When the highest-ordered class never occurs in the data the fitted
	// classifier covers fewer classes; the published names must match what
	// the model can actually emit.
	if k := pipeline.Classifier.NumClasses(); k < len(classNames) {
		classNames = classNames[:k]
	}

	report, err := evaluate(pipeline, testX, testY, classNames)
	if err != nil {
		return nil, errors.NewInternalError("held-out evaluation failed").WithCause(err)
	}

	b := &bundle.Bundle{
		Version:         s.cfg.Version,
		Algorithm:       best.Name,
		TrainedAt:       time.Now().UTC(),
		FeatureColumns:  cols,
		ClassNames:      classNames,
		Pipeline:        pipeline,
		Evaluation:      report,
		CVScores:        cvScores,
		Importances:     importances(pipeline.Classifier, cols),
		TrainingSamples: len(trainIdx),
	}
	if err := b.Validate(); err != nil {
		return nil, errors.NewInternalError("training produced an incoherent bundle").WithCause(err)
	}

	s.logger.Info("model selected",
		"algorithm", best.Name,
		"cv_weighted_f1", bestScore,
		"test_weighted_f1", report.WeightedF1,
		"training_samples", len(trainIdx),
		"test_samples", len(testIdx))
	return b, nil
}

// crossValidate scores one candidate by k-fold weighted F1.
func (s *Selector) crossValidate(cand Candidate, X [][]float64, y []int, folds [][]int, k int) (float64, error) {
	total := 0.0
	scored := 0
	for f, holdout := range folds {
		if len(holdout) == 0 {
			continue
		}
		var fitIdx []int
		for other, fold := range folds {
			if other != f {
				fitIdx = append(fitIdx, fold...)
			}
		}

		foldX, foldY := gather(X, y, fitIdx)
		pipeline := model.NewPipeline(cand.New())
		if err := pipeline.Fit(foldX, foldY); err != nil {
			return 0, err
		}

		yTrue := make([]int, len(holdout))
		yPred := make([]int, len(holdout))
		for i, idx := range holdout {
			pred, err := pipeline.Predict(X[idx])
			if err != nil {
				return 0, err
			}
			yTrue[i] = y[idx]
			yPred[i] = pred
		}
		total += model.WeightedF1(yTrue, yPred, k)
		scored++
	}
	if scored == 0 {
		return 0, fmt.Errorf("no scorable folds")
	}
	return total / float64(scored), nil
}

func evaluate(p *model.Pipeline, X [][]float64, y []int, classNames []string) (*model.Report, error) {
	yPred := make([]int, len(X))
	for i, row := range X {
		pred, err := p.Predict(row)
		if err != nil {
			return nil, err
		}
		yPred[i] = pred
	}
	return model.Classification(y, yPred, classNames), nil
}

// importances maps feature importances to column names for algorithms
// that expose them.
func importances(clf model.Classifier, cols []string) map[string]float64 {
	imp, ok := clf.(model.FeatureImporter)
	if !ok {
		return nil
	}
	vals := imp.FeatureImportances()
	if len(vals) != len(cols) {
		return nil
	}
	out := make(map[string]float64, len(cols))
	for i, col := range cols {
		out[col] = vals[i]
	}
	return out
}

// split holds out TestFraction of the rows. Splitting is stratified
// whenever every class has at least two members; otherwise it degrades to
// a plain shuffle split.
func split(y []int, fraction float64, rng *rand.Rand) (trainIdx, testIdx []int) {
	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}

	stratify := true
	for _, members := range byClass {
		if len(members) < 2 {
			stratify = false
			break
		}
	}

	if !stratify {
		all := rng.Perm(len(y))
		cut := int(math.Round(float64(len(y)) * fraction))
		if cut == 0 {
			cut = 1
		}
		return all[cut:], all[:cut]
	}

	for c := 0; c < len(y); c++ {
		members, ok := byClass[c]
		if !ok {
			continue
		}
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		take := int(math.Round(float64(len(members)) * fraction))
		if take == 0 {
			take = 1
		}
		if take >= len(members) {
			take = len(members) - 1
		}
		testIdx = append(testIdx, members[:take]...)
		trainIdx = append(trainIdx, members[take:]...)
	}
	return trainIdx, testIdx
}

// stratifiedFolds deals each class round-robin across k folds.
func stratifiedFolds(y []int, k int, rng *rand.Rand) [][]int {
	folds := make([][]int, k)
	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	next := 0
	for c := 0; c < len(y); c++ {
		members, ok := byClass[c]
		if !ok {
			continue
		}
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		for _, idx := range members {
			folds[next%k] = append(folds[next%k], idx)
			next++
		}
	}
	return folds
}

func gather(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	outX := make([][]float64, len(idx))
	outY := make([]int, len(idx))
	for i, j := range idx {
		outX[i] = X[j]
		outY[i] = y[j]
	}
	return outX, outY
}

func distinct(y []int) int {
	seen := make(map[int]struct{})
	for _, c := range y {
		seen[c] = struct{}{}
	}
	return len(seen)
}

func classIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// SyntheticRiskScore is the default labeler: a hand-tuned heuristic that
// manufactures a risk score from documentation and maturity signals when
// no real outcome data exists. Models trained against it inherit its
// assumptions, so it stays a swappable input rather than ground truth.
func SyntheticRiskScore(vec *features.Vector) float64 {
	score := 0.5

	if vec.Get("has_license") == 0 {
		score += 0.2
	}
	if vec.Get("has_website") == 0 {
		score += 0.1
	}
	if vec.Get("is_new_business") == 1 {
		score += 0.15
	}
	if vec.Get("is_solo_practice") == 1 {
		score += 0.1
	}
	if vec.Get("has_accreditation") == 0 {
		score += 0.1
	} else {
		score -= 0.1
	}
	if vec.Get("years_in_business") > 5 {
		score -= 0.1
	}
	if vec.Get("license_format_valid") == 1 {
		score -= 0.15
	}

	return math.Max(0, math.Min(1, score))
}
