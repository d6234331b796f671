package biometrics

import (
	"context"
	"strings"

	"github.com/careverify/clinic-trust-engine/internal/domain/behavior"
)

// HeuristicVersion tags verdicts produced by the rule-based fallback so
// downstream consumers can distinguish them from model-backed ones.
const HeuristicVersion = "heuristic-1.0"

// botDecisionThreshold: accumulated suspicion at or above it means bot.
const botDecisionThreshold = 0.6

// Heuristic is the rule-based fallback used when no trained behavior
// model is available. Each rule shifts a suspicion score that starts at
// the neutral 0.5; the distance from neutral becomes the confidence.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Classify(_ context.Context, s *behavior.Snapshot) *behavior.Verdict {
	score := 0.5
	var botIndicators, humanIndicators []string

	if s.TimeOnPageSeconds < 5 {
		score += 0.3
		botIndicators = append(botIndicators, "very short time on page")
	}
	if s.MouseMoveRate < 0.1 && s.KeyPressRate < 0.1 {
		score += 0.2
		botIndicators = append(botIndicators, "minimal interaction")
	}
	if s.IdleRatio > 0.7 {
		score += 0.2
		botIndicators = append(botIndicators, "high idle ratio")
	}
	if s.InteractionScore < 0.1 {
		score += 0.1
		botIndicators = append(botIndicators, "low interaction score")
	}

	if s.TimeOnPageSeconds > 30 && s.TimeOnPageSeconds < 300 {
		score -= 0.2
		humanIndicators = append(humanIndicators, "reasonable time on page")
	}
	if s.MouseMoveRate > 0.5 && s.KeyPressRate > 0.1 {
		score -= 0.2
		humanIndicators = append(humanIndicators, "active interaction")
	}
	if s.IdleRatio < 0.5 {
		score -= 0.1
		humanIndicators = append(humanIndicators, "low idle ratio")
	}

	isHuman := score < botDecisionThreshold
	confidence := clamp01(abs(score-0.5) * 2)

	humanProb := 0.5 + confidence/2
	if !isHuman {
		humanProb = 0.5 - confidence/2
	}

	return &behavior.Verdict{
		IsHuman:      isHuman,
		Confidence:   confidence,
		Reason:       heuristicReason(isHuman, humanIndicators, botIndicators),
		ModelVersion: HeuristicVersion,
		Probabilities: behavior.Probabilities{
			Human: humanProb,
			Bot:   1 - humanProb,
		},
	}
}

func heuristicReason(isHuman bool, humanIndicators, botIndicators []string) string {
	if isHuman {
		if len(humanIndicators) == 0 {
			return "human indicators: normal behavior patterns"
		}
		return "human indicators: " + strings.Join(humanIndicators, ", ")
	}
	if len(botIndicators) == 0 {
		return "bot indicators: suspicious behavior patterns"
	}
	return "bot indicators: " + strings.Join(botIndicators, ", ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
