// Package audit records every gate and generation decision so operators can
// reconstruct why an intervention was or was not produced.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Arpita31/alfred/internal/storage"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id         TEXT NOT NULL,
	signal_type     TEXT,
	decision        TEXT NOT NULL,
	reason          TEXT,
	confidence      REAL,
	intervention_id TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_log_user ON decision_log(user_id, created_at);
`

// #endregion schema

// #region entry
// Entry is one decision-log row.
type Entry struct {
	UserID         string
	SignalType     string
	Decision       string // "created" | "denied" | "generation_failed"
	Reason         string
	Confidence     float64
	InterventionID string
	CreatedAt      time.Time
}

// #endregion entry

// #region log
// Log appends decision entries to the shared database.
type Log struct {
	db *sql.DB
}

// NewLog runs the decision_log migration and returns a Log.
func NewLog(db *sql.DB) (*Log, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate decision log: %w", err)
	}
	return &Log{db: db}, nil
}

// Record writes a decision entry.
func (l *Log) Record(entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.Exec(
		`INSERT INTO decision_log (user_id, signal_type, decision, reason, confidence, intervention_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.UserID,
		nullIfEmpty(entry.SignalType),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.Confidence,
		nullIfEmpty(entry.InterventionID),
		storage.FormatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	rows, err := l.db.Query(
		`SELECT user_id, signal_type, decision, reason, confidence, intervention_id, created_at
		 FROM decision_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query decision log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var signalType, reason, interventionID sql.NullString
		var confidence sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&e.UserID, &signalType, &e.Decision, &reason, &confidence,
			&interventionID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.SignalType = signalType.String
		e.Reason = reason.String
		e.Confidence = confidence.Float64
		e.InterventionID = interventionID.String
		if e.CreatedAt, err = storage.ParseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion log

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
