package userpref

import "time"

// #region user

// User holds identity and intervention policy preferences.
// Quiet hours are "HH:MM" wall-clock strings in the user's timezone.
type User struct {
	ID       string
	Email    string
	Username string
	IsActive bool

	Timezone        string
	QuietHoursStart string
	QuietHoursEnd   string

	TelegramChatID string

	MaxInterventionsPerDay int
	CooldownHours          int
	ConfidenceThreshold    float64

	DietaryPreferences map[string]any
	FitnessGoals       map[string]any

	CreatedAt time.Time
}

// #endregion user

// #region defaults

// Policy defaults match the backend's per-user column defaults.
const (
	DefaultTimezone        = "UTC"
	DefaultQuietHoursStart = "22:00"
	DefaultQuietHoursEnd   = "07:00"
	DefaultMaxPerDay       = 6
	DefaultCooldownHours   = 2
	DefaultThreshold       = 0.70
)

// applyDefaults fills zero-valued policy fields.
func applyDefaults(u User) User {
	if u.Timezone == "" {
		u.Timezone = DefaultTimezone
	}
	if u.QuietHoursStart == "" {
		u.QuietHoursStart = DefaultQuietHoursStart
	}
	if u.QuietHoursEnd == "" {
		u.QuietHoursEnd = DefaultQuietHoursEnd
	}
	if u.MaxInterventionsPerDay == 0 {
		u.MaxInterventionsPerDay = DefaultMaxPerDay
	}
	if u.CooldownHours == 0 {
		u.CooldownHours = DefaultCooldownHours
	}
	if u.ConfidenceThreshold == 0 {
		u.ConfidenceThreshold = DefaultThreshold
	}
	return u
}

// #endregion defaults

// #region location

// Location resolves the user's timezone, reverting to UTC when unknown.
func (u User) Location() *time.Location {
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// #endregion location
