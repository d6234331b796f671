package behavior

// Snapshot is the fixed set of telemetry counters and rates captured for
// one browsing session. It arrives from the telemetry collector and is
// read-only to the scoring engine.
type Snapshot struct {
	MouseMoveCount     float64 `json:"mouseMoveCount"`
	KeyPressCount      float64 `json:"keyPressCount"`
	TimeOnPageSeconds  float64 `json:"timeOnPageSeconds"`
	MouseMoveRate      float64 `json:"mouseMoveRate"`
	KeyPressRate       float64 `json:"keyPressRate"`
	InteractionBalance float64 `json:"interactionBalance"`
	InteractionScore   float64 `json:"interactionScore"`
	IdleRatio          float64 `json:"idleRatio"`
}

// FeatureColumns is the canonical ordering of the snapshot fields as a
// model feature vector. Training and inference both go through Features,
// so the order can never drift between the two.
var FeatureColumns = []string{
	"mouseMoveCount",
	"keyPressCount",
	"timeOnPageSeconds",
	"mouseMoveRate",
	"keyPressRate",
	"interactionBalance",
	"interactionScore",
	"idleRatio",
}

// Features returns the snapshot values in FeatureColumns order.
func (s *Snapshot) Features() []float64 {
	return []float64{
		s.MouseMoveCount,
		s.KeyPressCount,
		s.TimeOnPageSeconds,
		s.MouseMoveRate,
		s.KeyPressRate,
		s.InteractionBalance,
		s.InteractionScore,
		s.IdleRatio,
	}
}
