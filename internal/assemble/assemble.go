// Package assemble builds the bounded, serializable context handed to the
// generation client. Hard caps keep the prompt size stable so generation
// behavior stays reproducible.
package assemble

import (
	"fmt"
	"time"

	"github.com/Arpita31/alfred/internal/behavior"
	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/userpref"
)

// #region types

// maxItems caps calendar entries and prior interventions in the context.
const maxItems = 5

// CalendarEntry is one upcoming event, already formatted for the prompt.
type CalendarEntry struct {
	Title    string `json:"title"`
	Start    string `json:"start"`
	Duration string `json:"duration"`
}

// PriorIntervention is a prior intervention reduced to its prompt-relevant
// fields.
type PriorIntervention struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	When     string `json:"when"`
	Response string `json:"response"`
}

// Patterns carries opaque meal/sleep aggregate summaries. They are passed
// through to the prompt unchanged; their computation is out of scope here.
type Patterns struct {
	Meals map[string]any
	Sleep map[string]any
}

// Context is the structured user-state payload for generation.
type Context struct {
	CurrentTime         string              `json:"current_time"`
	UserPreferences     map[string]any      `json:"user_preferences"`
	UpcomingEvents      []CalendarEntry     `json:"upcoming_events"`
	MealPatterns        map[string]any      `json:"meal_patterns"`
	SleepPatterns       map[string]any      `json:"sleep_patterns"`
	RecentInterventions []PriorIntervention `json:"recent_interventions"`
}

// #endregion types

// #region build

// Build assembles the generation context. events must be soonest-first and
// recent newest-first; both are truncated to the 5 nearest items.
func Build(user userpref.User, events []behavior.CalendarEvent, patterns Patterns,
	recent []intervention.Record, now time.Time) Context {

	entries := make([]CalendarEntry, 0, maxItems)
	for _, e := range events {
		if len(entries) == maxItems {
			break
		}
		entries = append(entries, CalendarEntry{
			Title:    e.Title,
			Start:    e.StartTime.In(now.Location()).Format("03:04 PM"),
			Duration: fmt.Sprintf("%d minutes", e.DurationMinutes),
		})
	}

	priors := make([]PriorIntervention, 0, maxItems)
	for _, r := range recent {
		if len(priors) == maxItems {
			break
		}
		priors = append(priors, PriorIntervention{
			Type:     r.Type,
			Title:    r.Title,
			When:     r.CreatedAt.Format(time.RFC3339),
			Response: r.UserResponse,
		})
	}

	return Context{
		CurrentTime: now.Format("Monday, January 02, 2006 at 03:04 PM"),
		UserPreferences: map[string]any{
			"timezone":            user.Timezone,
			"dietary_preferences": user.DietaryPreferences,
			"fitness_goals":       user.FitnessGoals,
		},
		UpcomingEvents:      entries,
		MealPatterns:        patterns.Meals,
		SleepPatterns:       patterns.Sleep,
		RecentInterventions: priors,
	}
}

// #endregion build
