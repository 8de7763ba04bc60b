package signal

import "time"

// #region taxonomy

// Type identifies a detected behavioral condition.
type Type string

const (
	MealGap          Type = "meal_gap"
	PoorSleep        Type = "poor_sleep"
	Dehydration      Type = "dehydration"
	LowEnergy        Type = "low_energy"
	CalendarConflict Type = "calendar_conflict"
	RecoveryNeeded   Type = "recovery_needed"
	StressHigh       Type = "stress_high"
)

// priorityOrder breaks severity ties between simultaneous candidates.
// Earlier entries win.
var priorityOrder = []Type{
	MealGap,
	PoorSleep,
	Dehydration,
	LowEnergy,
	CalendarConflict,
	RecoveryNeeded,
	StressHigh,
}

// rank returns the tie-break rank of t; unknown types sort last.
func rank(t Type) int {
	for i, p := range priorityOrder {
		if p == t {
			return i
		}
	}
	return len(priorityOrder)
}

// #endregion taxonomy

// #region signal

// Signal is a detected behavioral condition. Signals are ephemeral; they are
// only persisted as snapshots inside an intervention's triggering list.
type Signal struct {
	Type       Type           `json:"type"`
	Confidence float64        `json:"confidence"`
	Severity   float64        `json:"severity"`
	Data       map[string]any `json:"data"`
	Reasoning  string         `json:"reasoning"`
	DetectedAt time.Time      `json:"detected_at"`
}

// New builds a Signal with confidence and severity clamped to [0, 1] and
// the detection timestamp fixed to now.
func New(t Type, confidence, severity float64, data map[string]any, reasoning string, now time.Time) Signal {
	return Signal{
		Type:       t,
		Confidence: clamp(confidence),
		Severity:   clamp(severity),
		Data:       data,
		Reasoning:  reasoning,
		DetectedAt: now,
	}
}

// #endregion signal

// #region helpers

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
