// Package postgres provides a PostgreSQL implementation of the incident log.
//
// PostgreSQL suits deployments where a facility keeps a central audit
// database shared across rooms and devices. Matched keywords are stored as
// JSONB; rows are never deleted.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/carevoice/companion-go/pkg/incidentlog"
)

// Log implements incidentlog.Log using PostgreSQL as the backend.
type Log struct {
	db        *sql.DB
	tableName string
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	TableName string
	SSLMode   string
}

// NewLog creates a new PostgreSQL incident log.
func NewLog(cfg *Config) (*Log, error) {
	if cfg.TableName == "" {
		cfg.TableName = "escalation_events"
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresLog: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewPostgresLog: %w", err)
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

// initTables initializes the database table.
func (l *Log) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			utterance TEXT NOT NULL,
			severity VARCHAR(32) NOT NULL,
			matched_keywords JSONB NOT NULL,
			timestamp TIMESTAMP NOT NULL,
			status VARCHAR(32) NOT NULL,
			acknowledged_by VARCHAR(255)
		)
	`, l.tableName)

	_, err := l.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s(user_id)
	`, l.tableName, l.tableName)
	_, err = l.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: create index: %w", err)
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
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
		SET status = $1,
		    acknowledged_by = CASE WHEN $2 != '' THEN $2 ELSE acknowledged_by END
		WHERE id = $3
	`, l.tableName)

	result, err := l.db.ExecContext(ctx, query, string(status), staffID, eventID)
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
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
	`, l.tableName)

	rows, err := l.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*incidentlog.Event
	for rows.Next() {
		var event incidentlog.Event
		var severity, status, keywordsStr string
		var acknowledgedBy sql.NullString
		var timestamp time.Time

		err := rows.Scan(
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
			return nil, fmt.Errorf("ListForUser: %w", err)
		}

		event.Severity = incidentlog.Severity(severity)
		event.Status = incidentlog.Status(status)
		event.Timestamp = timestamp
		if acknowledgedBy.Valid {
			event.AcknowledgedBy = acknowledgedBy.String
		}
		if err := json.Unmarshal([]byte(keywordsStr), &event.MatchedKeywords); err != nil {
			return nil, fmt.Errorf("ListForUser: parse matched_keywords: %w", err)
		}

		events = append(events, &event)
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
