// Package sqlite provides a SQLite implementation of the record store.
//
// SQLite is a lightweight, file-based database suitable for single-facility
// deployments. Record fields are stored as JSON strings in a TEXT column so
// the persisted field names stay identical across backends.
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

	"github.com/carevoice/companion-go/pkg/recordstore"
)

// Store implements recordstore.Store using SQLite as the backend.
type Store struct {
	// db is the SQLite database connection.
	db *sql.DB

	// tableName is the name of the table storing memory records.
	tableName string
}

// Config contains configuration for creating a SQLite record store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TableName is the name of the table to use (default: "memory_records").
	TableName string
}

// NewStore creates a new SQLite record store.
//
// Parameters:
//   - cfg: Configuration containing database path and table name
//
// Returns:
//   - *Store: The store instance
//   - error: Error if database connection or table creation fails
func NewStore(cfg *Config) (*Store, error) {
	if cfg.TableName == "" {
		cfg.TableName = "memory_records"
	}

	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return nil, fmt.Errorf("NewSQLiteStore: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteStore: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewSQLiteStore: %w", err)
	}

	store := &Store{
		db:        db,
		tableName: cfg.TableName,
	}

	if err := store.initTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// initTables initializes the database table structure.
func (s *Store) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			user_id TEXT NOT NULL,
			category TEXT NOT NULL,
			fields TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_user_category ON %s(user_id, category)
	`, s.tableName, s.tableName)
	_, err = s.db.ExecContext(ctx, indexQuery)
	if err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

// Insert stores a new record.
func (s *Store) Insert(ctx context.Context, record *recordstore.Record) error {
	fieldsJSON, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, category, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		string(record.Category),
		string(fieldsJSON),
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	return nil
}

// Update replaces a previously inserted record identified by record.ID.
func (s *Store) Update(ctx context.Context, record *recordstore.Record) error {
	fieldsJSON, err := json.Marshal(record.Fields)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET fields = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, s.tableName)

	result, err := s.db.ExecContext(ctx, query,
		string(fieldsJSON),
		record.UpdatedAt,
		record.ID,
		record.UserID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("Update: record %d not found", record.ID)
	}

	return nil
}

// GetByUser returns all records for a user in canonical bundle order.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]*recordstore.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, category, fields, created_at, updated_at
		FROM %s
		WHERE user_id = ?
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("GetByUser: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*recordstore.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByUser: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByUser: %w", err)
	}

	// Category order is a domain ordering, not a column ordering, so it is
	// applied in memory rather than in SQL.
	recordstore.SortBundle(records)
	return records, nil
}

// GetPersonalInfo returns the single personal_info record for a user, or nil.
func (s *Store) GetPersonalInfo(ctx context.Context, userID string) (*recordstore.Record, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, category, fields, created_at, updated_at
		FROM %s
		WHERE user_id = ? AND category = ?
		LIMIT 1
	`, s.tableName)

	row := s.db.QueryRowContext(ctx, query, userID, string(recordstore.CategoryPersonalInfo))

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetPersonalInfo: %w", err)
	}
	return record, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a record from a database row or rows.
func scanRecord(scanner rowScanner) (*recordstore.Record, error) {
	var record recordstore.Record
	var category string
	var fieldsStr string
	var createdAt, updatedAt time.Time

	err := scanner.Scan(
		&record.ID,
		&record.UserID,
		&category,
		&fieldsStr,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Category = recordstore.Category(category)
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt

	if err := json.Unmarshal([]byte(fieldsStr), &record.Fields); err != nil {
		return nil, fmt.Errorf("parse fields: %w", err)
	}

	return &record, nil
}
