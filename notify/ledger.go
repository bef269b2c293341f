package notify

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SummaryID is the entity id and domain recorded for scan summaries.
const SummaryID = "scan_summary"

// Ledger records every notification attempt in SQLite.
type Ledger struct {
	db *sql.DB
}

// Attempt is one recorded delivery attempt.
type Attempt struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	Timestamp     time.Time `json:"timestamp"`
	EntityID      string    `json:"entity_id"`
	Domain        string    `json:"domain"`
	Group         string    `json:"group"`
	MessageLength int       `json:"message_length"`
	Success       bool      `json:"success"`
}

// NewLedger opens (or creates) the ledger database at dbPath.
func NewLedger(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ledger := &Ledger{db: db}
	if err := ledger.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return ledger, nil
}

// initSchema creates the notifications table if it doesn't exist.
func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		attempt_id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		ransomware_group TEXT NOT NULL,
		message_length INTEGER NOT NULL,
		success INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications(timestamp);
	`

	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a, assigning an id and timestamp when they are unset.
func (l *Ledger) Record(a *Attempt) error {
	if a.AttemptID == uuid.Nil {
		a.AttemptID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	query := `
		INSERT INTO notifications (
			attempt_id, timestamp, entity_id, domain, ransomware_group,
			message_length, success
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := l.db.Exec(query,
		a.AttemptID.String(),
		formatTime(a.Timestamp),
		a.EntityID,
		a.Domain,
		a.Group,
		a.MessageLength,
		a.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// Recent returns up to limit attempts, newest first. A limit of zero
// returns every attempt.
func (l *Ledger) Recent(limit int) ([]Attempt, error) {
	query := `
		SELECT attempt_id, timestamp, entity_id, domain, ransomware_group,
			message_length, success
		FROM notifications
		ORDER BY timestamp DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var idStr, tsStr string

		if err := rows.Scan(&idStr, &tsStr, &a.EntityID, &a.Domain, &a.Group,
			&a.MessageLength, &a.Success); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		a.AttemptID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid attempt_id: %w", err)
		}
		a.Timestamp = parseTime(tsStr)

		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}

// Counts returns the number of successful and failed attempts.
func (l *Ledger) Counts() (sent, failed int, err error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0)
		FROM notifications
	`
	if err := l.db.QueryRow(query).Scan(&sent, &failed); err != nil {
		return 0, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return sent, failed, nil
}

func formatTime(t time.Time) string {
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}
