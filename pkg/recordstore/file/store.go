// Package file provides a JSON-file-per-user implementation of the record store.
//
// Each user's bundle lives in its own JSON document under the data directory.
// Writes go through a temporary file followed by an atomic rename, so a
// bundle on disk is always a complete document and a crash after a
// successful call never loses the write.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/carevoice/companion-go/pkg/recordstore"
)

// Store implements recordstore.Store with one JSON file per user.
type Store struct {
	// dir is the directory holding per-user bundle files.
	dir string

	// mu serializes file access across users. Per-user serialization is
	// the caller's job; this guard only keeps concurrent different-user
	// writes from racing on directory operations.
	mu sync.Mutex
}

// Config contains configuration for creating a file-backed record store.
type Config struct {
	// DataDir is the directory where bundle files are written.
	DataDir string
}

// bundleDoc is the on-disk layout of one user's bundle.
type bundleDoc struct {
	UserID  string       `json:"user_id"`
	Records []*recordDoc `json:"records"`
}

// recordDoc is the on-disk layout of one record. Field names are part of the
// persisted format and must not change.
type recordDoc struct {
	ID        int64                `json:"id"`
	Category  recordstore.Category `json:"category"`
	Fields    map[string]string    `json:"fields"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// NewStore creates a file-backed record store rooted at cfg.DataDir.
//
// The directory is created if it does not exist.
func NewStore(cfg *Config) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("NewFileStore: data directory is required")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("NewFileStore: failed to create directory: %w", err)
	}
	return &Store{dir: cfg.DataDir}, nil
}

// Insert stores a new record and persists the user's bundle.
func (s *Store) Insert(ctx context.Context, record *recordstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(record.UserID)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	doc.Records = append(doc.Records, toDoc(record))
	if err := s.save(record.UserID, doc); err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	return nil
}

// Update replaces a previously inserted record and persists the bundle.
func (s *Store) Update(ctx context.Context, record *recordstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(record.UserID)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	for i, existing := range doc.Records {
		if existing.ID == record.ID {
			doc.Records[i] = toDoc(record)
			if err := s.save(record.UserID, doc); err != nil {
				return fmt.Errorf("Update: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("Update: record %d not found", record.ID)
}

// GetByUser returns all records for a user in canonical bundle order.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]*recordstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, fmt.Errorf("GetByUser: %w", err)
	}
	records := make([]*recordstore.Record, 0, len(doc.Records))
	for _, d := range doc.Records {
		records = append(records, fromDoc(userID, d))
	}
	recordstore.SortBundle(records)
	return records, nil
}

// GetPersonalInfo returns the single personal_info record for a user, or nil.
func (s *Store) GetPersonalInfo(ctx context.Context, userID string) (*recordstore.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, fmt.Errorf("GetPersonalInfo: %w", err)
	}
	for _, d := range doc.Records {
		if d.Category == recordstore.CategoryPersonalInfo {
			return fromDoc(userID, d), nil
		}
	}
	return nil, nil
}

// Close releases the store's resources.
func (s *Store) Close() error {
	return nil
}

// load reads a user's bundle document, returning an empty document when the
// user has no file yet.
func (s *Store) load(userID string) (*bundleDoc, error) {
	data, err := os.ReadFile(s.path(userID))
	if os.IsNotExist(err) {
		return &bundleDoc{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc bundleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse bundle: %w", err)
	}
	return &doc, nil
}

// save writes a bundle document durably: temp file, sync, atomic rename.
func (s *Store) save(userID string, doc *bundleDoc) error {
	doc.UserID = userID
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	target := s.path(userID)
	tmp, err := os.CreateTemp(s.dir, ".bundle-*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// path returns the bundle file path for a user.
func (s *Store) path(userID string) string {
	return filepath.Join(s.dir, sanitize(userID)+".json")
}

// sanitize maps a user ID onto a safe file name component. The mapping is
// injective: unsafe bytes (underscore included) are hex-escaped as "_xx", so
// two distinct user IDs never share a bundle file.
func sanitize(userID string) string {
	var b strings.Builder
	for i := 0; i < len(userID); i++ {
		c := userID[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02x", c)
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// toDoc converts a record to its on-disk form.
func toDoc(r *recordstore.Record) *recordDoc {
	cp := r.Clone()
	return &recordDoc{
		ID:        cp.ID,
		Category:  cp.Category,
		Fields:    cp.Fields,
		CreatedAt: cp.CreatedAt,
		UpdatedAt: cp.UpdatedAt,
	}
}

// fromDoc converts an on-disk record back to its domain form.
func fromDoc(userID string, d *recordDoc) *recordstore.Record {
	fields := make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = v
	}
	return &recordstore.Record{
		ID:        d.ID,
		UserID:    userID,
		Category:  d.Category,
		Fields:    fields,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
