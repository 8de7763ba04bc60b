package behavior

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Arpita31/alfred/internal/storage"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS meals (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	meal_time    TEXT NOT NULL,
	meal_type    TEXT,
	description  TEXT,
	calories     REAL,
	water_ml     REAL,
	created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_meals_user_time ON meals(user_id, meal_time);

CREATE TABLE IF NOT EXISTS sleep_sessions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	sleep_start      TEXT NOT NULL,
	sleep_end        TEXT NOT NULL,
	duration_minutes INTEGER,
	quality_score    REAL
);
CREATE INDEX IF NOT EXISTS idx_sleep_user_start ON sleep_sessions(user_id, sleep_start);

CREATE TABLE IF NOT EXISTS activities (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	start_time       TEXT NOT NULL,
	activity_type    TEXT,
	duration_minutes INTEGER,
	intensity        TEXT
);
CREATE INDEX IF NOT EXISTS idx_activities_user_start ON activities(user_id, start_time);

CREATE TABLE IF NOT EXISTS calendar_events (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	title            TEXT NOT NULL,
	start_time       TEXT NOT NULL,
	end_time         TEXT,
	duration_minutes INTEGER
);
CREATE INDEX IF NOT EXISTS idx_calendar_user_start ON calendar_events(user_id, start_time);
`

// #endregion schema

// qb builds queries with ? placeholders for SQLite.
var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// #region store
// Store persists behavioral streams and answers per-user time-range queries.
type Store struct {
	db *sql.DB
}

// NewStore runs the behavior migrations and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate behavior: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion store

// #region meal-writes

// AddMeal inserts a meal record. Ingestion collaborators and fixtures use this.
func (s *Store) AddMeal(m Meal) (Meal, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO meals (id, user_id, meal_time, meal_type, description, calories, water_ml, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, storage.FormatTime(m.MealTime), m.MealType, m.Description,
		m.Calories, m.WaterML, storage.FormatTime(m.CreatedAt),
	)
	if err != nil {
		return Meal{}, fmt.Errorf("insert meal: %w", err)
	}
	return m, nil
}

// AddSleep inserts a sleep session.
func (s *Store) AddSleep(sl Sleep) (Sleep, error) {
	if sl.ID == "" {
		sl.ID = uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO sleep_sessions (id, user_id, sleep_start, sleep_end, duration_minutes, quality_score)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sl.ID, sl.UserID, storage.FormatTime(sl.SleepStart), storage.FormatTime(sl.SleepEnd),
		sl.DurationMinutes, sl.QualityScore,
	)
	if err != nil {
		return Sleep{}, fmt.Errorf("insert sleep: %w", err)
	}
	return sl, nil
}

// AddActivity inserts an activity record.
func (s *Store) AddActivity(a Activity) (Activity, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO activities (id, user_id, start_time, activity_type, duration_minutes, intensity)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, storage.FormatTime(a.StartTime), a.ActivityType, a.DurationMinutes, a.Intensity,
	)
	if err != nil {
		return Activity{}, fmt.Errorf("insert activity: %w", err)
	}
	return a, nil
}

// AddCalendarEvent inserts a calendar entry.
func (s *Store) AddCalendarEvent(e CalendarEvent) (CalendarEvent, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.Exec(
		`INSERT INTO calendar_events (id, user_id, title, start_time, end_time, duration_minutes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Title, storage.FormatTime(e.StartTime), storage.FormatTime(e.EndTime),
		e.DurationMinutes,
	)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("insert calendar event: %w", err)
	}
	return e, nil
}

// #endregion meal-writes

// #region range-queries

// MealsInRange returns a user's meals in [from, to), newest first.
func (s *Store) MealsInRange(userID string, from, to time.Time) ([]Meal, error) {
	query, args, err := qb.
		Select("id", "user_id", "meal_time", "meal_type", "description", "calories", "water_ml", "created_at").
		From("meals").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"meal_time": storage.FormatTime(from)}).
		Where(sq.Lt{"meal_time": storage.FormatTime(to)}).
		OrderBy("meal_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build meals query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query meals: %w", err)
	}
	defer rows.Close()

	var meals []Meal
	for rows.Next() {
		var m Meal
		var mealTime, createdAt string
		if err := rows.Scan(&m.ID, &m.UserID, &mealTime, &m.MealType, &m.Description,
			&m.Calories, &m.WaterML, &createdAt); err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		if m.MealTime, err = storage.ParseTime(mealTime); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}

// SleepInRange returns a user's sleep sessions starting in [from, to), newest first.
func (s *Store) SleepInRange(userID string, from, to time.Time) ([]Sleep, error) {
	query, args, err := qb.
		Select("id", "user_id", "sleep_start", "sleep_end", "duration_minutes", "quality_score").
		From("sleep_sessions").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"sleep_start": storage.FormatTime(from)}).
		Where(sq.Lt{"sleep_start": storage.FormatTime(to)}).
		OrderBy("sleep_start DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sleep query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sleep: %w", err)
	}
	defer rows.Close()

	var sessions []Sleep
	for rows.Next() {
		var sl Sleep
		var start, end string
		if err := rows.Scan(&sl.ID, &sl.UserID, &start, &end, &sl.DurationMinutes, &sl.QualityScore); err != nil {
			return nil, fmt.Errorf("scan sleep: %w", err)
		}
		if sl.SleepStart, err = storage.ParseTime(start); err != nil {
			return nil, err
		}
		if sl.SleepEnd, err = storage.ParseTime(end); err != nil {
			return nil, err
		}
		sessions = append(sessions, sl)
	}
	return sessions, rows.Err()
}

// ActivitiesInRange returns a user's activities starting in [from, to), newest first.
func (s *Store) ActivitiesInRange(userID string, from, to time.Time) ([]Activity, error) {
	query, args, err := qb.
		Select("id", "user_id", "start_time", "activity_type", "duration_minutes", "intensity").
		From("activities").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"start_time": storage.FormatTime(from)}).
		Where(sq.Lt{"start_time": storage.FormatTime(to)}).
		OrderBy("start_time DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build activities query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var start string
		if err := rows.Scan(&a.ID, &a.UserID, &start, &a.ActivityType, &a.DurationMinutes, &a.Intensity); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if a.StartTime, err = storage.ParseTime(start); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// UpcomingCalendar returns a user's calendar entries starting in [from, to),
// soonest first.
func (s *Store) UpcomingCalendar(userID string, from, to time.Time) ([]CalendarEvent, error) {
	query, args, err := qb.
		Select("id", "user_id", "title", "start_time", "end_time", "duration_minutes").
		From("calendar_events").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"start_time": storage.FormatTime(from)}).
		Where(sq.Lt{"start_time": storage.FormatTime(to)}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build calendar query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	defer rows.Close()

	var events []CalendarEvent
	for rows.Next() {
		var e CalendarEvent
		var start, end string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &start, &end, &e.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		if e.StartTime, err = storage.ParseTime(start); err != nil {
			return nil, err
		}
		if e.EndTime, err = storage.ParseTime(end); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// #endregion range-queries
