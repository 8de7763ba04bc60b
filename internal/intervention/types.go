package intervention

import (
	"time"

	"github.com/Arpita31/alfred/internal/signal"
)

// #region status

// Status is an intervention lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// #endregion status

// #region feedback

// Recognized feedback literals. Any other submitted value is stored as
// user_response but leaves status untouched.
const (
	ResponseAccepted = "accepted"
	ResponseRejected = "rejected"
)

// statusForResponse maps a feedback literal to its target status, or "".
func statusForResponse(response string) Status {
	switch response {
	case ResponseAccepted:
		return StatusAccepted
	case ResponseRejected:
		return StatusRejected
	}
	return ""
}

// #endregion feedback

// #region record

// DefaultTTL is how long a fresh intervention waits for feedback before the
// expiry sweep moves it to expired.
const DefaultTTL = 24 * time.Hour

// Record is a persisted intervention.
type Record struct {
	ID     string
	UserID string
	Type   string
	Status Status

	Title     string
	Message   string
	Reasoning string

	ConfidenceScore float64
	Priority        int

	TriggeringSignals  []signal.Signal
	RecommendationData map[string]any
	ContextFeatures    map[string]any

	UserResponse string
	UserFeedback string
	ResponseTime *time.Time

	DeliveredAt     *time.Time
	DeliveryChannel string

	CreatedAt time.Time
	UpdatedAt *time.Time
	ExpiresAt *time.Time
}

// #endregion record
