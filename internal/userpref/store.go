package userpref

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Arpita31/alfred/internal/storage"
)

// ErrNotFound is returned when no user exists for the given ID.
var ErrNotFound = errors.New("user not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                        TEXT PRIMARY KEY,
	email                     TEXT,
	username                  TEXT,
	is_active                 INTEGER NOT NULL DEFAULT 1,
	timezone                  TEXT NOT NULL DEFAULT 'UTC',
	quiet_hours_start         TEXT NOT NULL DEFAULT '22:00',
	quiet_hours_end           TEXT NOT NULL DEFAULT '07:00',
	telegram_chat_id          TEXT,
	max_interventions_per_day INTEGER NOT NULL DEFAULT 6,
	cooldown_hours            INTEGER NOT NULL DEFAULT 2,
	confidence_threshold      REAL NOT NULL DEFAULT 0.70,
	dietary_preferences       TEXT,
	fitness_goals             TEXT,
	created_at                TEXT NOT NULL
);
`

// #endregion schema

// #region store
// Store persists user preference records.
type Store struct {
	db *sql.DB
}

// NewStore runs the users migration and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion store

// #region create

// Create inserts a user, filling policy defaults for zero-valued fields.
func (s *Store) Create(u User) (User, error) {
	u = applyDefaults(u)
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	dietary, err := json.Marshal(u.DietaryPreferences)
	if err != nil {
		return User{}, fmt.Errorf("marshal dietary preferences: %w", err)
	}
	goals, err := json.Marshal(u.FitnessGoals)
	if err != nil {
		return User{}, fmt.Errorf("marshal fitness goals: %w", err)
	}

	active := 0
	if u.IsActive {
		active = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO users (id, email, username, is_active, timezone, quiet_hours_start, quiet_hours_end,
		 telegram_chat_id, max_interventions_per_day, cooldown_hours, confidence_threshold,
		 dietary_preferences, fitness_goals, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Username, active, u.Timezone, u.QuietHoursStart, u.QuietHoursEnd,
		u.TelegramChatID, u.MaxInterventionsPerDay, u.CooldownHours, u.ConfidenceThreshold,
		string(dietary), string(goals), storage.FormatTime(u.CreatedAt),
	)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// #endregion create

// #region get

// Get retrieves a user by ID. Returns ErrNotFound when absent.
func (s *Store) Get(id string) (User, error) {
	row := s.db.QueryRow(
		`SELECT id, email, username, is_active, timezone, quiet_hours_start, quiet_hours_end,
		 telegram_chat_id, max_interventions_per_day, cooldown_hours, confidence_threshold,
		 dietary_preferences, fitness_goals, created_at
		 FROM users WHERE id = ?`, id,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// #endregion get

// #region list-active

// ListActive returns all users with is_active set, in creation order.
func (s *Store) ListActive() ([]User, error) {
	rows, err := s.db.Query(
		`SELECT id, email, username, is_active, timezone, quiet_hours_start, quiet_hours_end,
		 telegram_chat_id, max_interventions_per_day, cooldown_hours, confidence_threshold,
		 dietary_preferences, fitness_goals, created_at
		 FROM users WHERE is_active = 1 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// #endregion list-active

// #region scan

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (User, error) {
	var u User
	var active int
	var email, username, chatID, dietary, goals sql.NullString
	var createdAt string

	err := r.Scan(&u.ID, &email, &username, &active, &u.Timezone, &u.QuietHoursStart,
		&u.QuietHoursEnd, &chatID, &u.MaxInterventionsPerDay, &u.CooldownHours,
		&u.ConfidenceThreshold, &dietary, &goals, &createdAt)
	if err != nil {
		return User{}, err
	}

	u.IsActive = active == 1
	u.Email = email.String
	u.Username = username.String
	u.TelegramChatID = chatID.String

	if dietary.String != "" {
		if err := json.Unmarshal([]byte(dietary.String), &u.DietaryPreferences); err != nil {
			return User{}, fmt.Errorf("unmarshal dietary preferences: %w", err)
		}
	}
	if goals.String != "" {
		if err := json.Unmarshal([]byte(goals.String), &u.FitnessGoals); err != nil {
			return User{}, fmt.Errorf("unmarshal fitness goals: %w", err)
		}
	}
	if u.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// #endregion scan
