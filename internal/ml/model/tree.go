package model

import (
	"fmt"
	"math/rand"
	"sort"
)

const KindDecisionTree = "decision_tree"

// TreeNode is one node of a CART tree, stored flat so trees serialize to a
// plain array.
type TreeNode struct {
	// Feature is the split column, or -1 for a leaf.
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	// Counts holds the class counts of the training rows that reached the
	// node. Leaves normalize it into a probability distribution.
	Counts []float64 `json:"counts"`
}

// DecisionTree is a CART classifier split on Gini impurity.
type DecisionTree struct {
	Nodes   []TreeNode `json:"nodes"`
	Classes int        `json:"classes"`

	MaxDepth        int `json:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split"`
	MinSamplesLeaf  int `json:"min_samples_leaf"`

	Importances []float64 `json:"importances,omitempty"`

	// Set by the forest: sample this many candidate features per split.
	maxFeatures int
	rng         *rand.Rand

	total float64
}

// NewDecisionTree returns a tree with the default growth limits.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{
		MaxDepth:        10,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
	}
}

func (t *DecisionTree) Kind() string    { return KindDecisionTree }
func (t *DecisionTree) NumClasses() int { return t.Classes }

// Fit grows the tree on the full dataset.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("decision tree: empty training matrix")
	}
	t.Classes = numClasses(y)
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

// grow appends the subtree for the given rows and returns its node index.
func (t *DecisionTree) grow(X [][]float64, y []int, indices []int, depth int) int {
	counts := make([]float64, t.Classes)
	for _, i := range indices {
		counts[y[i]]++
	}

	nodeIdx := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Feature: -1, Left: -1, Right: -1, Counts: counts})

	if depth >= t.MaxDepth || len(indices) < t.MinSamplesSplit || isPure(counts) {
		return nodeIdx
	}

	feature, threshold, gain := t.bestSplit(X, y, indices, counts)
	if feature < 0 || gain <= 0 {
		return nodeIdx
	}

	var left, right []int
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < t.MinSamplesLeaf || len(right) < t.MinSamplesLeaf {
		return nodeIdx
	}

	t.Importances[feature] += float64(len(indices)) / t.total * gain

	t.Nodes[nodeIdx].Feature = feature
	t.Nodes[nodeIdx].Threshold = threshold
	leftIdx := t.grow(X, y, left, depth+1)
	t.Nodes[nodeIdx].Left = leftIdx
	rightIdx := t.grow(X, y, right, depth+1)
	t.Nodes[nodeIdx].Right = rightIdx
	return nodeIdx
}

// bestSplit scans candidate features for the threshold with the largest
// Gini impurity decrease.
func (t *DecisionTree) bestSplit(X [][]float64, y []int, indices []int, counts []float64) (int, float64, float64) {
	n := float64(len(indices))
	parentImpurity := gini(counts, n)

	features := t.candidateFeatures(len(X[0]))

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	order := make([]int, len(indices))
	for _, f := range features {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		leftCounts := make([]float64, t.Classes)
		rightCounts := append([]float64(nil), counts...)

		for i := 0; i < len(order)-1; i++ {
			c := y[order[i]]
			leftCounts[c]++
			rightCounts[c]--

			cur, next := X[order[i]][f], X[order[i+1]][f]
			if cur == next {
				continue
			}

			nl := float64(i + 1)
			nr := n - nl
			gain := parentImpurity - (nl/n)*gini(leftCounts, nl) - (nr/n)*gini(rightCounts, nr)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

// candidateFeatures returns all feature indices, or a random subset when
// the tree grows inside a forest.
func (t *DecisionTree) candidateFeatures(d int) []int {
	all := make([]int, d)
	for i := range all {
		all[i] = i
	}
	if t.maxFeatures <= 0 || t.maxFeatures >= d || t.rng == nil {
		return all
	}
	t.rng.Shuffle(d, func(i, j int) { all[i], all[j] = all[j], all[i] })
	sub := all[:t.maxFeatures]
	sort.Ints(sub)
	return sub
}

// Predict returns the majority class of the reached leaf.
func (t *DecisionTree) Predict(x []float64) int {
	return argmax(t.PredictProba(x))
}

// PredictProba walks the tree and normalizes the leaf's class counts.
func (t *DecisionTree) PredictProba(x []float64) []float64 {
	idx := 0
	for t.Nodes[idx].Feature >= 0 {
		node := t.Nodes[idx]
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}

	counts := t.Nodes[idx].Counts
	total := 0.0
	for _, c := range counts {
		total += c
	}
	probs := make([]float64, len(counts))
	for i, c := range counts {
		probs[i] = c / total
	}
	return probs
}

// FeatureImportances reports normalized impurity decrease per feature.
func (t *DecisionTree) FeatureImportances() []float64 {
	return t.Importances
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / n
		impurity -= p * p
	}
	return impurity
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func normalize(vals []float64) {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	if total == 0 {
		return
	}
	for i := range vals {
		vals[i] /= total
	}
}
