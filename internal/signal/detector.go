package signal

import (
	"fmt"
	"time"

	"github.com/Arpita31/alfred/internal/behavior"
)

// #region window

// Window bundles the behavioral records visible to one evaluation.
type Window struct {
	Meals    []behavior.Meal
	Sleep    []behavior.Sleep
	Activity []behavior.Activity
	Calendar []behavior.CalendarEvent
}

// #endregion window

// #region config

// DetectorConfig holds tuning knobs for windowed detection rules.
type DetectorConfig struct {
	MealGapHours      float64 // gap beyond which meal_gap fires
	MealGapConfidence float64 // fixed confidence for meal_gap
	MealGapFullHours  float64 // gap at which meal_gap severity saturates
}

// DefaultDetectorConfig returns the stock thresholds.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MealGapHours:      4,
		MealGapConfidence: 0.85,
		MealGapFullHours:  6,
	}
}

// #endregion config

// #region detector

// Detector scans a behavioral window and emits at most one candidate signal.
type Detector struct {
	config DetectorConfig
}

// NewDetector creates a detector with the given configuration.
func NewDetector(config DetectorConfig) *Detector {
	return &Detector{config: config}
}

// Detect runs every detection rule against the window and returns the
// highest-severity candidate, or nil when nothing fires. Severity ties are
// broken by taxonomy declaration order. Only meal_gap has a detection rule;
// the remaining taxonomy arms contribute no candidates until rules are
// defined for them.
func (d *Detector) Detect(window Window, now time.Time) *Signal {
	var candidates []Signal
	if s := d.mealGap(window, now); s != nil {
		candidates = append(candidates, *s)
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Severity > best.Severity ||
			(c.Severity == best.Severity && rank(c.Type) < rank(best.Type)) {
			best = c
		}
	}
	return &best
}

// #endregion detector

// #region meal-gap

// mealGap fires when the most recent meal is more than MealGapHours before now.
// An empty meal window is not a signal.
func (d *Detector) mealGap(window Window, now time.Time) *Signal {
	if len(window.Meals) == 0 {
		return nil
	}

	last := window.Meals[0].MealTime
	for _, m := range window.Meals[1:] {
		if m.MealTime.After(last) {
			last = m.MealTime
		}
	}

	hours := now.Sub(last).Hours()
	if hours <= d.config.MealGapHours {
		return nil
	}

	severity := hours / d.config.MealGapFullHours
	s := New(
		MealGap,
		d.config.MealGapConfidence,
		severity,
		map[string]any{"hours_since_last_meal": hours},
		fmt.Sprintf("It's been %.1f hours since your last meal", hours),
		now,
	)
	return &s
}

// #endregion meal-gap
