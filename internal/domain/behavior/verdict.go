package behavior

// Probabilities holds the human/bot posterior pair. The two values sum
// to 1 for model-backed verdicts.
type Probabilities struct {
	Human float64 `json:"human"`
	Bot   float64 `json:"bot"`
}

// Verdict is the structured human-vs-automation result for one session.
// Both classifier variants emit exactly this shape.
type Verdict struct {
	IsHuman       bool          `json:"isHuman"`
	Confidence    float64       `json:"confidence"`
	Reason        string        `json:"reason"`
	ModelVersion  string        `json:"modelVersion"`
	Probabilities Probabilities `json:"probabilities"`
}

// FailClosed is the safe default verdict on internal error: suspicious,
// zero confidence, never trusted.
func FailClosed(reason string) *Verdict {
	return &Verdict{
		IsHuman:      false,
		Confidence:   0,
		Reason:       reason,
		ModelVersion: "error",
		Probabilities: Probabilities{
			Human: 0,
			Bot:   1,
		},
	}
}
