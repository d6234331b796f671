package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/careverify/clinic-trust-engine/internal/ml/model"
)

// Bundle is a versioned, immutable package of a trained classifier plus
// the scaler, label encoding and metadata it was fitted with. Once built
// or loaded it is never mutated; replacement happens only by swapping the
// whole reference.
type Bundle struct {
	Version   string    `json:"version"`
	Algorithm string    `json:"algorithm"`
	TrainedAt time.Time `json:"trained_at"`

	// FeatureColumns fixes the exact input ordering the pipeline was
	// fitted on. Inference must align to it, never the other way around.
	FeatureColumns []string `json:"feature_columns"`

	// ClassNames maps class index to label, e.g. index 0 -> "LOW".
	ClassNames []string `json:"class_names"`

	Pipeline *model.Pipeline `json:"-"`

	Evaluation      *model.Report      `json:"evaluation,omitempty"`
	CVScores        map[string]float64 `json:"cv_scores,omitempty"`
	Importances     map[string]float64 `json:"feature_importances,omitempty"`
	TrainingSamples int                `json:"training_samples"`
}

// ClassIndex returns the encoded index for a label, or -1.
func (b *Bundle) ClassIndex(name string) int {
	for i, n := range b.ClassNames {
		if n == name {
			return i
		}
	}
	return -1
}

// ClassName returns the label for an index.
func (b *Bundle) ClassName(idx int) string {
	if idx < 0 || idx >= len(b.ClassNames) {
		return ""
	}
	return b.ClassNames[idx]
}

// Validate checks that the bundle's parts agree with each other. A bundle
// that fails here is never published to readers.
func (b *Bundle) Validate() error {
	if b.Version == "" {
		return fmt.Errorf("bundle: missing version")
	}
	if len(b.FeatureColumns) == 0 {
		return fmt.Errorf("bundle: no feature columns")
	}
	if len(b.ClassNames) < 2 {
		return fmt.Errorf("bundle: need at least two classes, got %d", len(b.ClassNames))
	}
	if b.Pipeline == nil || b.Pipeline.Classifier == nil || b.Pipeline.Scaler == nil {
		return fmt.Errorf("bundle: incomplete pipeline")
	}
	if got := len(b.Pipeline.Scaler.Mean); got != len(b.FeatureColumns) {
		return fmt.Errorf("bundle: scaler fitted on %d features but %d columns declared", got, len(b.FeatureColumns))
	}
	if got := b.Pipeline.Classifier.NumClasses(); got != len(b.ClassNames) {
		return fmt.Errorf("bundle: classifier has %d classes but %d names declared", got, len(b.ClassNames))
	}
	return nil
}

// artifact is the on-disk shape. The classifier serializes as a tagged
// union keyed by algorithm kind.
type artifact struct {
	Version   string    `json:"version"`
	Algorithm string    `json:"algorithm"`
	TrainedAt time.Time `json:"trained_at"`

	FeatureColumns []string `json:"feature_columns"`
	ClassNames     []string `json:"class_names"`

	Scaler *model.StandardScaler `json:"scaler"`

	Logistic *model.LogisticRegression `json:"logistic_regression,omitempty"`
	Tree     *model.DecisionTree       `json:"decision_tree,omitempty"`
	Forest   *model.RandomForest       `json:"random_forest,omitempty"`

	Evaluation      *model.Report      `json:"evaluation,omitempty"`
	CVScores        map[string]float64 `json:"cv_scores,omitempty"`
	Importances     map[string]float64 `json:"feature_importances,omitempty"`
	TrainingSamples int                `json:"training_samples"`
}

// Save writes the bundle as a JSON artifact, atomically: a temp file in
// the target directory followed by a rename, so a crashed write never
// leaves a half-written artifact at the destination.
func Save(b *Bundle, path string) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid bundle: %w", err)
	}

	art := artifact{
		Version:         b.Version,
		Algorithm:       b.Algorithm,
		TrainedAt:       b.TrainedAt,
		FeatureColumns:  b.FeatureColumns,
		ClassNames:      b.ClassNames,
		Scaler:          b.Pipeline.Scaler,
		Evaluation:      b.Evaluation,
		CVScores:        b.CVScores,
		Importances:     b.Importances,
		TrainingSamples: b.TrainingSamples,
	}

	switch clf := b.Pipeline.Classifier.(type) {
	case *model.LogisticRegression:
		art.Logistic = clf
	case *model.DecisionTree:
		art.Tree = clf
	case *model.RandomForest:
		art.Forest = clf
	default:
		return fmt.Errorf("bundle: unsupported classifier kind %q", b.Pipeline.Classifier.Kind())
	}

	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return fmt.Errorf("bundle: marshal failed: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bundle: create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*.json")
	if err != nil {
		return fmt.Errorf("bundle: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("bundle: write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bundle: close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("bundle: publish artifact: %w", err)
	}
	return nil
}

// Load reads and validates a bundle artifact. The returned bundle is fully
// formed or the call fails; callers never see partial state.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: read artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("bundle: parse artifact: %w", err)
	}

	var clf model.Classifier
	switch art.Algorithm {
	case model.KindLogisticRegression:
		if art.Logistic == nil {
			return nil, fmt.Errorf("bundle: algorithm %q declared but no parameters present", art.Algorithm)
		}
		clf = art.Logistic
	case model.KindDecisionTree:
		if art.Tree == nil {
			return nil, fmt.Errorf("bundle: algorithm %q declared but no parameters present", art.Algorithm)
		}
		clf = art.Tree
	case model.KindRandomForest:
		if art.Forest == nil {
			return nil, fmt.Errorf("bundle: algorithm %q declared but no parameters present", art.Algorithm)
		}
		clf = art.Forest
	default:
		return nil, fmt.Errorf("bundle: unknown algorithm %q", art.Algorithm)
	}

	b := &Bundle{
		Version:         art.Version,
		Algorithm:       art.Algorithm,
		TrainedAt:       art.TrainedAt,
		FeatureColumns:  art.FeatureColumns,
		ClassNames:      art.ClassNames,
		Pipeline:        &model.Pipeline{Scaler: art.Scaler, Classifier: clf},
		Evaluation:      art.Evaluation,
		CVScores:        art.CVScores,
		Importances:     art.Importances,
		TrainingSamples: art.TrainingSamples,
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
