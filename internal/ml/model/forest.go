package model

import (
	"fmt"
	"math"
	"math/rand"
)

const KindRandomForest = "random_forest"

// RandomForest bags CART trees over bootstrap samples with per-split
// feature subsampling. The sample draws come from a seeded source, so a
// forest is reproducible for a given dataset and seed.
type RandomForest struct {
	Trees   []*DecisionTree `json:"trees"`
	Classes int             `json:"classes"`

	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// NewRandomForest returns a forest with the default ensemble shape.
func NewRandomForest() *RandomForest {
	return &RandomForest{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Seed:            42,
	}
}

func (f *RandomForest) Kind() string    { return KindRandomForest }
func (f *RandomForest) NumClasses() int { return f.Classes }

// Fit grows NumTrees trees, each on its own bootstrap sample.
func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("random forest: empty training matrix")
	}
	f.Classes = numClasses(y)
	f.Trees = make([]*DecisionTree, 0, f.NumTrees)

	n := len(X)
	d := len(X[0])
	maxFeatures := int(math.Ceil(math.Sqrt(float64(d))))
	rng := rand.New(rand.NewSource(f.Seed))

	sampleX := make([][]float64, n)
	sampleY := make([]int, n)
	for t := 0; t < f.NumTrees; t++ {
		for i := 0; i < n; i++ {
			pick := rng.Intn(n)
			sampleX[i] = X[pick]
			sampleY[i] = y[pick]
		}

		tree := &DecisionTree{
			MaxDepth:        f.MaxDepth,
			MinSamplesSplit: f.MinSamplesSplit,
			MinSamplesLeaf:  f.MinSamplesLeaf,
			maxFeatures:     maxFeatures,
			rng:             rng,
		}
		// A bootstrap sample can miss the rarest class; pin the class
		// count so every tree votes over the same distribution width.
		tree.Classes = f.Classes
		if err := tree.fitWithClasses(sampleX, sampleY); err != nil {
			return err
		}
		f.Trees = append(f.Trees, tree)
	}
	return nil
}

// fitWithClasses grows the tree keeping the preset class count.
func (t *DecisionTree) fitWithClasses(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("decision tree: empty training matrix")
	}
	t.Nodes = t.Nodes[:0]
	t.Importances = make([]float64, len(X[0]))
	t.total = float64(len(X))

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}
	t.grow(X, y, indices, 0)
	normalize(t.Importances)
	return nil
}

// Predict returns the class with the highest averaged vote.
func (f *RandomForest) Predict(x []float64) int {
	return argmax(f.PredictProba(x))
}

// PredictProba averages the leaf distributions of every tree.
func (f *RandomForest) PredictProba(x []float64) []float64 {
	probs := make([]float64, f.Classes)
	for _, tree := range f.Trees {
		for c, p := range tree.PredictProba(x) {
			probs[c] += p
		}
	}
	for c := range probs {
		probs[c] /= float64(len(f.Trees))
	}
	return probs
}

// FeatureImportances averages per-tree impurity decrease.
func (f *RandomForest) FeatureImportances() []float64 {
	if len(f.Trees) == 0 {
		return nil
	}
	out := make([]float64, len(f.Trees[0].Importances))
	for _, tree := range f.Trees {
		for j, v := range tree.Importances {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.Trees))
	}
	normalize(out)
	return out
}
