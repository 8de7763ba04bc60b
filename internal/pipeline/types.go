package pipeline

import (
	"time"

	"github.com/Arpita31/alfred/internal/gate"
	"github.com/Arpita31/alfred/internal/intervention"
)

// #region outcome

// OutcomeStatus classifies what an evaluation produced.
type OutcomeStatus string

const (
	OutcomeCreated          OutcomeStatus = "created"
	OutcomeDenied           OutcomeStatus = "denied"
	OutcomeGenerationFailed OutcomeStatus = "generation_failed"
)

// Outcome is the result of one evaluate call. Denied outcomes are normal
// operation, not errors; Intervention is set only for OutcomeCreated.
type Outcome struct {
	Status       OutcomeStatus
	DenyReason   gate.DenyReason
	Detail       string
	Intervention *intervention.Record
}

// #endregion outcome

// #region config

// Config bounds the behavioral windows an evaluation reads and the lifetime
// of interventions it creates.
type Config struct {
	MealLookback      time.Duration
	SleepLookback     time.Duration
	ActivityLookback  time.Duration
	CalendarLookahead time.Duration
	RecentWindow      time.Duration // prior-intervention context window
	RecentLimit       int
	TTL               time.Duration // pending-feedback lifetime

	// Now is the clock for every temporal decision. Defaults to time.Now;
	// tests substitute a fixed clock.
	Now func() time.Time
}

// DefaultConfig mirrors the backend's lookback and expiry choices.
func DefaultConfig() Config {
	return Config{
		MealLookback:      7 * 24 * time.Hour,
		SleepLookback:     7 * 24 * time.Hour,
		ActivityLookback:  7 * 24 * time.Hour,
		CalendarLookahead: 24 * time.Hour,
		RecentWindow:      24 * time.Hour,
		RecentLimit:       10,
		TTL:               intervention.DefaultTTL,
		Now:               time.Now,
	}
}

// #endregion config
