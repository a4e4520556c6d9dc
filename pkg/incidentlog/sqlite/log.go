// Package sqlite provides a SQLite implementation of the incident log.
//
// Matched keywords are stored as JSON strings in a TEXT column. Rows are
// never deleted; only the status and acknowledged_by columns advance.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/carevoice/companion-go/pkg/incidentlog"
)

// Log implements incidentlog.Log using SQLite as the backend.
type Log struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing events.
	tableName string
}

// Config contains configuration for creating a SQLite incident log.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use (default: "escalation_events").
	TableName string
}

// NewLog creates a new SQLite incident log.
func NewLog(cfg *Config) (*Log, error) {
	if cfg.TableName == "" {
		cfg.TableName = "escalation_events"
	}

	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return nil, fmt.Errorf("NewSQLiteLog: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteLog: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteLog: %w", err)
	}

	l := &Log{
		db:        db,
		tableName: cfg.TableName,
	}

	if err := l.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return l, nil
}

// initTables initializes the database table structure.
func (l *Log) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			utterance TEXT NOT NULL,
			severity TEXT NOT NULL,
			matched_keywords TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			status TEXT NOT NULL,
			acknowledged_by TEXT
		)
	`, l.tableName)

	_, err := l.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s(user_id)
	`, l.tableName, l.tableName)
	_, err = l.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Append durably records a new event.
func (l *Log) Append(ctx context.Context, event *incidentlog.Event) error {
	keywordsJSON, err := json.Marshal(event.MatchedKeywords)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id, user_id, utterance, severity, matched_keywords, timestamp, status, acknowledged_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.tableName)

	_, err = l.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		event.Utterance,
		string(event.Severity),
		string(keywordsJSON),
		event.Timestamp,
		string(event.Status),
		event.AcknowledgedBy,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	return nil
}

// MarkNotified advances an event's status to notified.
func (l *Log) MarkNotified(ctx context.Context, eventID string) error {
	return l.setStatus(ctx, eventID, incidentlog.StatusNotified, "")
}

// Acknowledge advances an event's status to acknowledged.
func (l *Log) Acknowledge(ctx context.Context, eventID, staffID string) error {
	return l.setStatus(ctx, eventID, incidentlog.StatusAcknowledged, staffID)
}

func (l *Log) setStatus(ctx context.Context, eventID string, status incidentlog.Status, staffID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, acknowledged_by = CASE WHEN ? != '' THEN ? ELSE acknowledged_by END
		WHERE id = ?
	`, l.tableName)

	result, err := l.db.ExecContext(ctx, query, string(status), staffID, staffID, eventID)
	if err != nil {
		return fmt.Errorf("setStatus: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("setStatus: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("setStatus: event %s not found", eventID)
	}

	return nil
}

// ListForUser returns all events for a user, most recent first.
func (l *Log) ListForUser(ctx context.Context, userID string) ([]*incidentlog.Event, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, utterance, severity, matched_keywords, timestamp, status, acknowledged_by
		FROM %s
		WHERE user_id = ?
		ORDER BY timestamp DESC, id DESC
	`, l.tableName)

	rows, err := l.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*incidentlog.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ListForUser: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}

	return events, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEvent scans an event from a database row or rows.
func scanEvent(scanner rowScanner) (*incidentlog.Event, error) {
	var event incidentlog.Event
	var severity, status, keywordsStr string
	var acknowledgedBy sql.NullString
	var timestamp time.Time

	err := scanner.Scan(
		&event.ID,
		&event.UserID,
		&event.Utterance,
		&severity,
		&keywordsStr,
		&timestamp,
		&status,
		&acknowledgedBy,
	)
	if err != nil {
		return nil, err
	}

	event.Severity = incidentlog.Severity(severity)
	event.Status = incidentlog.Status(status)
	event.Timestamp = timestamp
	if acknowledgedBy.Valid {
		event.AcknowledgedBy = acknowledgedBy.String
	}

	if err := json.Unmarshal([]byte(keywordsStr), &event.MatchedKeywords); err != nil {
		return nil, fmt.Errorf("parse matched_keywords: %w", err)
	}

	return &event, nil
}
