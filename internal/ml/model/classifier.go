package model

import (
	"fmt"
	"math"
)

// Classifier is the capability shared by every candidate learning
// algorithm: fit on a labeled matrix, then predict class labels and class
// probability distributions for single rows.
type Classifier interface {
	// Fit trains on X (rows of feature values) and y (class indices
	// 0..k-1). Implementations must be deterministic for identical input.
	Fit(X [][]float64, y []int) error
	// Predict returns the most likely class index for one row.
	Predict(x []float64) int
	// PredictProba returns the class probability distribution for one row.
	PredictProba(x []float64) []float64
	// NumClasses reports the number of classes seen at fit time.
	NumClasses() int
	// Kind names the algorithm for bundle serialization.
	Kind() string
}

// FeatureImporter is implemented by classifiers that can attribute
// predictive weight to individual features.
type FeatureImporter interface {
	FeatureImportances() []float64
}

// StandardScaler centers features to zero mean and unit variance, the same
// transform at training and inference time.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit computes per-column mean and standard deviation.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("scaler: empty training matrix")
	}
	n := len(X)
	d := len(X[0])
	s.Mean = make([]float64, d)
	s.Std = make([]float64, d)

	for _, row := range X {
		if len(row) != d {
			return fmt.Errorf("scaler: ragged matrix, expected %d columns got %d", d, len(row))
		}
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= float64(n)
	}
	for _, row := range X {
		for j, v := range row {
			diff := v - s.Mean[j]
			s.Std[j] += diff * diff
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / float64(n))
		// Constant columns pass through unscaled.
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return nil
}

// Transform scales a single row.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler: expected %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll scales a matrix.
func (s *StandardScaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// Pipeline is the fixed scale-then-classify composition every candidate
// trains and predicts through.
type Pipeline struct {
	Scaler     *StandardScaler
	Classifier Classifier
}

// NewPipeline wraps a classifier with a fresh scaler.
func NewPipeline(clf Classifier) *Pipeline {
	return &Pipeline{Scaler: &StandardScaler{}, Classifier: clf}
}

// Fit fits the scaler on X, then the classifier on the scaled matrix.
func (p *Pipeline) Fit(X [][]float64, y []int) error {
	if len(X) != len(y) {
		return fmt.Errorf("pipeline: %d rows but %d labels", len(X), len(y))
	}
	if err := p.Scaler.Fit(X); err != nil {
		return err
	}
	scaled, err := p.Scaler.TransformAll(X)
	if err != nil {
		return err
	}
	return p.Classifier.Fit(scaled, y)
}

// Predict scales one row and predicts its class index.
func (p *Pipeline) Predict(x []float64) (int, error) {
	scaled, err := p.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return p.Classifier.Predict(scaled), nil
}

// PredictProba scales one row and returns its class distribution.
func (p *Pipeline) PredictProba(x []float64) ([]float64, error) {
	scaled, err := p.Scaler.Transform(x)
	if err != nil {
		return nil, err
	}
	return p.Classifier.PredictProba(scaled), nil
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}

func numClasses(y []int) int {
	max := 0
	for _, c := range y {
		if c > max {
			max = c
		}
	}
	return max + 1
}
