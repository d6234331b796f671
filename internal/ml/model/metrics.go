package model

// ClassMetrics holds per-class evaluation numbers.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the held-out evaluation of a fitted pipeline.
type Report struct {
	Accuracy        float64        `json:"accuracy"`
	WeightedF1      float64        `json:"weighted_f1"`
	PerClass        []ClassMetrics `json:"per_class"`
	ConfusionMatrix [][]int        `json:"confusion_matrix"`
}

// Classification computes accuracy, per-class precision/recall/F1 and the
// confusion matrix. classNames indexes class labels for the report.
func Classification(yTrue, yPred []int, classNames []string) *Report {
	k := len(classNames)
	confusion := make([][]int, k)
	for i := range confusion {
		confusion[i] = make([]int, k)
	}

	correct := 0
	for i, truth := range yTrue {
		pred := yPred[i]
		confusion[truth][pred]++
		if truth == pred {
			correct++
		}
	}

	report := &Report{
		ConfusionMatrix: confusion,
		PerClass:        make([]ClassMetrics, k),
	}
	if len(yTrue) > 0 {
		report.Accuracy = float64(correct) / float64(len(yTrue))
	}

	totalSupport := 0
	for c := 0; c < k; c++ {
		tp := confusion[c][c]
		fp, fn := 0, 0
		for other := 0; other < k; other++ {
			if other != c {
				fp += confusion[other][c]
				fn += confusion[c][other]
			}
		}
		support := tp + fn

		precision := safeDiv(float64(tp), float64(tp+fp))
		recall := safeDiv(float64(tp), float64(tp+fn))
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}

		report.PerClass[c] = ClassMetrics{
			Label:     classNames[c],
			Precision: precision,
			Recall:    recall,
			F1:        f1,
			Support:   support,
		}
		report.WeightedF1 += f1 * float64(support)
		totalSupport += support
	}
	if totalSupport > 0 {
		report.WeightedF1 /= float64(totalSupport)
	}
	return report
}

// WeightedF1 scores predictions by per-class F1 weighted by support.
func WeightedF1(yTrue, yPred []int, k int) float64 {
	names := make([]string, k)
	return Classification(yTrue, yPred, names).WeightedF1
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
