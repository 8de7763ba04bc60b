package intervention

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/Arpita31/alfred/internal/storage"
)

// ErrNotFound is returned when no intervention exists for the given ID.
var ErrNotFound = errors.New("intervention not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS interventions (
	id                  TEXT PRIMARY KEY,
	user_id             TEXT NOT NULL,
	type                TEXT NOT NULL,
	status              TEXT NOT NULL,
	title               TEXT NOT NULL,
	message             TEXT NOT NULL,
	reasoning           TEXT,
	confidence_score    REAL NOT NULL,
	priority            INTEGER NOT NULL DEFAULT 5,
	triggering_signals  TEXT,
	recommendation_data TEXT,
	context_features    TEXT,
	user_response       TEXT,
	user_feedback       TEXT,
	response_time       TEXT,
	delivered_at        TEXT,
	delivery_channel    TEXT,
	created_at          TEXT NOT NULL,
	updated_at          TEXT,
	expires_at          TEXT
);
CREATE INDEX IF NOT EXISTS idx_interventions_user_created ON interventions(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_interventions_status ON interventions(status);
`

// #endregion schema

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const recordColumns = `id, user_id, type, status, title, message, reasoning,
	confidence_score, priority, triggering_signals, recommendation_data, context_features,
	user_response, user_feedback, response_time, delivered_at, delivery_channel,
	created_at, updated_at, expires_at`

// #region store
// Store persists interventions and enforces the lifecycle transition rules.
type Store struct {
	db *sql.DB
}

// NewStore runs the interventions migration and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate interventions: %w", err)
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle for packages that share the database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion store

// #region create

// Create inserts a new intervention in pending status.
func (s *Store) Create(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.Priority == 0 {
		rec.Priority = 5
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	signalsJSON, err := json.Marshal(rec.TriggeringSignals)
	if err != nil {
		return Record{}, fmt.Errorf("marshal triggering signals: %w", err)
	}
	recJSON, err := json.Marshal(rec.RecommendationData)
	if err != nil {
		return Record{}, fmt.Errorf("marshal recommendation data: %w", err)
	}
	ctxJSON, err := json.Marshal(rec.ContextFeatures)
	if err != nil {
		return Record{}, fmt.Errorf("marshal context features: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO interventions (id, user_id, type, status, title, message, reasoning,
		 confidence_score, priority, triggering_signals, recommendation_data, context_features,
		 user_response, user_feedback, response_time, delivered_at, delivery_channel,
		 created_at, updated_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Type, string(rec.Status), rec.Title, rec.Message, rec.Reasoning,
		rec.ConfidenceScore, rec.Priority, string(signalsJSON), string(recJSON), string(ctxJSON),
		nullIfEmpty(rec.UserResponse), nullIfEmpty(rec.UserFeedback), nullTime(rec.ResponseTime),
		nullTime(rec.DeliveredAt), nullIfEmpty(rec.DeliveryChannel),
		storage.FormatTime(rec.CreatedAt), nullTime(rec.UpdatedAt), nullTime(rec.ExpiresAt),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert intervention: %w", err)
	}
	return rec, nil
}

// #endregion create

// #region get

// Get retrieves an intervention by ID. Returns ErrNotFound when absent.
func (s *Store) Get(id string) (Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM interventions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get intervention %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get

// #region list

// ListByUser returns a user's interventions, newest first.
func (s *Store) ListByUser(userID string, limit int) ([]Record, error) {
	query, args, err := qb.
		Select(recordColumns).
		From("interventions").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	return s.queryRecords(query, args...)
}

// ListRecent returns the newest interventions across all users.
func (s *Store) ListRecent(limit int) ([]Record, error) {
	query, args, err := qb.
		Select(recordColumns).
		From("interventions").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}
	return s.queryRecords(query, args...)
}

// RecentByUser returns up to limit interventions created at or after since,
// newest first.
func (s *Store) RecentByUser(userID string, since time.Time, limit int) ([]Record, error) {
	query, args, err := qb.
		Select(recordColumns).
		From("interventions").
		Where(sq.Eq{"user_id": userID}).
		Where(sq.GtOrEq{"created_at": storage.FormatTime(since)}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent query: %w", err)
	}
	return s.queryRecords(query, args...)
}

func (s *Store) queryRecords(query string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query interventions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list

// #region history-reads

// CountCreatedSince returns how many interventions the user has created at or
// after since. The gate uses this with since set to local midnight.
func (s *Store) CountCreatedSince(userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM interventions WHERE user_id = ? AND created_at >= ?`,
		userID, storage.FormatTime(since),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count interventions: %w", err)
	}
	return count, nil
}

// LatestCreatedAt returns the creation time of the user's most recent
// intervention, or nil when none exist.
func (s *Store) LatestCreatedAt(userID string) (*time.Time, error) {
	var created sql.NullString
	err := s.db.QueryRow(
		`SELECT MAX(created_at) FROM interventions WHERE user_id = ?`, userID,
	).Scan(&created)
	if err != nil {
		return nil, fmt.Errorf("latest intervention: %w", err)
	}
	if !created.Valid || created.String == "" {
		return nil, nil
	}
	t, err := storage.ParseTime(created.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// #endregion history-reads

// #region feedback

// SubmitFeedback stores the user's response and applies the transition rules:
// "accepted" and "rejected" move a pending or delivered intervention to the
// matching terminal status; re-submitting the same literal is a no-op on
// status; any other literal is stored as user_response with status untouched.
// No transition out of a terminal state is permitted.
func (s *Store) SubmitFeedback(id, response, feedback string, now time.Time) (Record, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var statusStr string
	err = tx.QueryRow(`SELECT status FROM interventions WHERE id = ?`, id).Scan(&statusStr)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read status: %w", err)
	}

	current := Status(statusStr)
	next := current
	if target := statusForResponse(response); target != "" {
		if current == StatusPending || current == StatusDelivered || current == target {
			next = target
		}
	}

	_, err = tx.Exec(
		`UPDATE interventions
		 SET status = ?, user_response = ?, user_feedback = ?, response_time = ?, updated_at = ?
		 WHERE id = ?`,
		string(next), response, nullIfEmpty(feedback),
		storage.FormatTime(now), storage.FormatTime(now), id,
	)
	if err != nil {
		return Record{}, fmt.Errorf("update feedback: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit feedback: %w", err)
	}

	return s.Get(id)
}

// #endregion feedback

// #region delivery

// MarkDelivered transitions pending → delivered and records the channel.
// Re-marking a delivered intervention is a no-op; terminal rows are left alone.
func (s *Store) MarkDelivered(id, channel string, now time.Time) (Record, error) {
	res, err := s.db.Exec(
		`UPDATE interventions
		 SET status = ?, delivered_at = ?, delivery_channel = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(StatusDelivered), storage.FormatTime(now), channel, storage.FormatTime(now),
		id, string(StatusPending),
	)
	if err != nil {
		return Record{}, fmt.Errorf("mark delivered: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either absent or not pending; Get distinguishes the two.
		return s.Get(id)
	}
	return s.Get(id)
}

// #endregion delivery

// #region expiry

// ExpireOverdue moves pending and delivered interventions whose expires_at has
// passed into expired, and returns how many rows changed.
func (s *Store) ExpireOverdue(now time.Time) (int, error) {
	res, err := s.db.Exec(
		`UPDATE interventions
		 SET status = ?, updated_at = ?
		 WHERE status IN (?, ?) AND expires_at IS NOT NULL AND expires_at < ?`,
		string(StatusExpired), storage.FormatTime(now),
		string(StatusPending), string(StatusDelivered), storage.FormatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("expire overdue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// #endregion expiry

// #region scan

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (Record, error) {
	var rec Record
	var status string
	var reasoning, signalsJSON, recJSON, ctxJSON sql.NullString
	var userResponse, userFeedback, responseTime sql.NullString
	var deliveredAt, channel, updatedAt, expiresAt sql.NullString
	var createdAt string

	err := r.Scan(&rec.ID, &rec.UserID, &rec.Type, &status, &rec.Title, &rec.Message, &reasoning,
		&rec.ConfidenceScore, &rec.Priority, &signalsJSON, &recJSON, &ctxJSON,
		&userResponse, &userFeedback, &responseTime, &deliveredAt, &channel,
		&createdAt, &updatedAt, &expiresAt)
	if err != nil {
		return Record{}, err
	}

	rec.Status = Status(status)
	rec.Reasoning = reasoning.String
	rec.UserResponse = userResponse.String
	rec.UserFeedback = userFeedback.String
	rec.DeliveryChannel = channel.String

	if signalsJSON.String != "" {
		if err := json.Unmarshal([]byte(signalsJSON.String), &rec.TriggeringSignals); err != nil {
			return Record{}, fmt.Errorf("unmarshal triggering signals: %w", err)
		}
	}
	if recJSON.String != "" {
		if err := json.Unmarshal([]byte(recJSON.String), &rec.RecommendationData); err != nil {
			return Record{}, fmt.Errorf("unmarshal recommendation data: %w", err)
		}
	}
	if ctxJSON.String != "" {
		if err := json.Unmarshal([]byte(ctxJSON.String), &rec.ContextFeatures); err != nil {
			return Record{}, fmt.Errorf("unmarshal context features: %w", err)
		}
	}

	if rec.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
		return Record{}, err
	}
	if rec.ResponseTime, err = parseNullTime(responseTime); err != nil {
		return Record{}, err
	}
	if rec.DeliveredAt, err = parseNullTime(deliveredAt); err != nil {
		return Record{}, err
	}
	if rec.UpdatedAt, err = parseNullTime(updatedAt); err != nil {
		return Record{}, err
	}
	if rec.ExpiresAt, err = parseNullTime(expiresAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := storage.ParseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return storage.FormatTime(*t)
}

// #endregion scan
