package biometrics

import (
	"context"
	"log/slog"
	"strings"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
	"github.com/careverify/clinic-trust-engine/internal/ml/bundle"
)

// Learned classifies sessions with the trained behavior bundle. Any
// inference failure yields the fail-closed verdict rather than an error.
type Learned struct {
	store  *bundle.Store
	logger *slog.Logger
}

func NewLearned(store *bundle.Store, logger *slog.Logger) *Learned {
	if logger == nil {
		logger = slog.Default()
	}
	return &Learned{store: store, logger: logger}
}

func (l *Learned) Classify(_ context.Context, snapshot *behavior.Snapshot) *behavior.Verdict {
	b, ok := l.store.Current()
	if !ok {
		return behavior.FailClosed("no behavior model loaded")
	}

	row := snapshot.Features()
	if len(row) != len(b.FeatureColumns) {
		l.logger.Error("behavior model column mismatch",
			"model_columns", len(b.FeatureColumns), "snapshot_columns", len(row))
		return behavior.FailClosed("behavior model expects a different feature set")
	}

	probs, err := b.Pipeline.PredictProba(row)
	if err != nil {
		l.logger.Error("behavior inference failed", "error", err)
		return behavior.FailClosed("prediction error")
	}

	humanIdx := b.ClassIndex("human")
	botIdx := b.ClassIndex("bot")
	if humanIdx < 0 || botIdx < 0 || humanIdx >= len(probs) || botIdx >= len(probs) {
		l.logger.Error("behavior bundle class names unusable", "class_names", b.ClassNames)
		return behavior.FailClosed("behavior model classes unusable")
	}

	humanProb := probs[humanIdx]
	botProb := probs[botIdx]
	isHuman := humanProb > botProb

	return &behavior.Verdict{
		IsHuman:      isHuman,
		Confidence:   maxProb(humanProb, botProb),
		Reason:       verdictReason(isHuman, snapshot),
		ModelVersion: b.Version,
		Probabilities: behavior.Probabilities{
			Human: humanProb,
			Bot:   botProb,
		},
	}
}

// verdictReason annotates the model's decision with the rule-level
// indicators that agree with it. Advisory only; the probabilities carry
// the decision.
func verdictReason(isHuman bool, s *behavior.Snapshot) string {
	if isHuman {
		return "behavioral patterns match human interaction"
	}

	var indicators []string
	if s.TimeOnPageSeconds < 5 {
		indicators = append(indicators, "very short time on page")
	}
	if s.MouseMoveRate < 0.1 && s.KeyPressRate < 0.1 {
		indicators = append(indicators, "minimal interaction")
	}
	if s.IdleRatio > 0.7 {
		indicators = append(indicators, "high idle ratio")
	}
	if len(indicators) == 0 {
		return "behavioral patterns consistent with automated activity"
	}
	return "bot indicators: " + strings.Join(indicators, ", ")
}

func maxProb(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
