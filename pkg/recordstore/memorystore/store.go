// Package memorystore provides an in-memory implementation of the record store.
//
// It keeps bundles in a process-local map and is intended for tests and for
// running the escalation and search layers without touching a filesystem.
package memorystore

import (
	"context"
	"fmt"
	"sync"

	"github.com/carevoice/companion-go/pkg/recordstore"
)

// Store implements recordstore.Store backed by an in-process map.
type Store struct {
	mu      sync.RWMutex
	records map[string][]*recordstore.Record // keyed by user ID
}

// NewStore creates an empty in-memory record store.
func NewStore() *Store {
	return &Store{
		records: make(map[string][]*recordstore.Record),
	}
}

// Insert stores a new record.
func (s *Store) Insert(ctx context.Context, record *recordstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.UserID] = append(s.records[record.UserID], record.Clone())
	return nil
}

// Update replaces a previously inserted record identified by record.ID.
func (s *Store) Update(ctx context.Context, record *recordstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.records[record.UserID] {
		if existing.ID == record.ID {
			s.records[record.UserID][i] = record.Clone()
			return nil
		}
	}
	return fmt.Errorf("Update: record %d not found", record.ID)
}

// GetByUser returns all records for a user in canonical bundle order.
func (s *Store) GetByUser(ctx context.Context, userID string) ([]*recordstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*recordstore.Record, 0, len(s.records[userID]))
	for _, r := range s.records[userID] {
		records = append(records, r.Clone())
	}
	recordstore.SortBundle(records)
	return records, nil
}

// GetPersonalInfo returns the single personal_info record for a user, or nil.
func (s *Store) GetPersonalInfo(ctx context.Context, userID string) (*recordstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records[userID] {
		if r.Category == recordstore.CategoryPersonalInfo {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

// Close releases the store's resources.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
