package model

import (
	"fmt"
	"math"
)

const KindLogisticRegression = "logistic_regression"

// LogisticRegression is a multinomial (softmax) classifier trained with
// full-batch gradient descent. Weights start at zero, so training is fully
// deterministic for a given dataset.
type LogisticRegression struct {
	// Weights is Classes x (Features+1); the final column is the bias.
	Weights [][]float64 `json:"weights"`
	Classes int         `json:"classes"`

	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`
}

// NewLogisticRegression returns a classifier with the default training
// schedule.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{
		LearningRate: 0.1,
		Epochs:       500,
		L2:           1e-4,
	}
}

func (l *LogisticRegression) Kind() string    { return KindLogisticRegression }
func (l *LogisticRegression) NumClasses() int { return l.Classes }

// Fit runs gradient descent on the cross-entropy objective.
func (l *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("logistic regression: empty training matrix")
	}
	n := len(X)
	d := len(X[0])
	l.Classes = numClasses(y)

	l.Weights = make([][]float64, l.Classes)
	for c := range l.Weights {
		l.Weights[c] = make([]float64, d+1)
	}

	grads := make([][]float64, l.Classes)
	for c := range grads {
		grads[c] = make([]float64, d+1)
	}

	for epoch := 0; epoch < l.Epochs; epoch++ {
		for c := range grads {
			for j := range grads[c] {
				grads[c][j] = 0
			}
		}

		for i, row := range X {
			probs := l.scores(row)
			for c := 0; c < l.Classes; c++ {
				err := probs[c]
				if y[i] == c {
					err -= 1
				}
				for j, v := range row {
					grads[c][j] += err * v
				}
				grads[c][d] += err
			}
		}

		step := l.LearningRate / float64(n)
		for c := 0; c < l.Classes; c++ {
			for j := 0; j <= d; j++ {
				grad := grads[c][j]
				if j < d {
					grad += l.L2 * l.Weights[c][j]
				}
				l.Weights[c][j] -= step * grad
			}
		}
	}
	return nil
}

// Predict returns the class with the highest posterior.
func (l *LogisticRegression) Predict(x []float64) int {
	return argmax(l.scores(x))
}

// PredictProba returns the softmax distribution over classes.
func (l *LogisticRegression) PredictProba(x []float64) []float64 {
	return l.scores(x)
}

// scores computes softmax(Wx + b) with the max-subtraction trick for
// numerical stability.
func (l *LogisticRegression) scores(x []float64) []float64 {
	logits := make([]float64, l.Classes)
	for c, w := range l.Weights {
		sum := w[len(w)-1]
		for j, v := range x {
			if j < len(w)-1 {
				sum += w[j] * v
			}
		}
		logits[c] = sum
	}

	maxLogit := logits[argmax(logits)]
	total := 0.0
	for c, v := range logits {
		logits[c] = math.Exp(v - maxLogit)
		total += logits[c]
	}
	for c := range logits {
		logits[c] /= total
	}
	return logits
}
