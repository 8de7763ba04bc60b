package behavior

import "time"

// #region records

// Meal is a single logged meal.
type Meal struct {
	ID          string
	UserID      string
	MealTime    time.Time
	MealType    string
	Description string
	Calories    float64
	WaterML     float64
	CreatedAt   time.Time
}

// Sleep is a single sleep session.
type Sleep struct {
	ID              string
	UserID          string
	SleepStart      time.Time
	SleepEnd        time.Time
	DurationMinutes int
	QualityScore    float64
}

// Activity is a single logged activity or workout.
type Activity struct {
	ID              string
	UserID          string
	StartTime       time.Time
	ActivityType    string
	DurationMinutes int
	Intensity       string
}

// CalendarEvent is a synced calendar entry.
type CalendarEvent struct {
	ID              string
	UserID          string
	Title           string
	StartTime       time.Time
	EndTime         time.Time
	DurationMinutes int
}

// #endregion records
