package gate

import "time"

// #region deny-reason
// DenyReason enumerates why the gate refused a candidate signal.
type DenyReason string

const (
	DenyNoSignal      DenyReason = "no_signal"
	DenyQuietHours    DenyReason = "quiet_hours"
	DenyLowConfidence DenyReason = "low_confidence"
	DenyDailyCap      DenyReason = "daily_cap_reached"
	DenyCooldown      DenyReason = "cooldown_active"
)

// #endregion deny-reason

// #region policy-context
// PolicyContext carries every fact the gate needs. It is derived per
// evaluation and never persisted. Now must already be in the user's timezone;
// quiet hours are "HH:MM" wall-clock strings in that same timezone.
type PolicyContext struct {
	Now             time.Time
	QuietHoursStart string
	QuietHoursEnd   string

	CreatedToday  int        // interventions created since local midnight
	LastCreatedAt *time.Time // most recent intervention, nil if none

	ConfidenceThreshold float64
	MaxPerDay           int
	CooldownHours       int
}

// #endregion policy-context

// #region decision
// Decision is the output of the gate evaluation.
type Decision struct {
	Admitted bool
	Reason   DenyReason // empty when admitted
	Detail   string
}

// #endregion decision
