// Package recordstore provides interfaces and types for memory record storage backends.
//
// It defines the Store interface that all storage implementations must satisfy,
// along with the record types shared by every backend.
package recordstore

import (
	"context"
	"sort"
	"time"
)

// Category identifies the kind of fact a record holds.
//
// Categories control the write semantics of a record:
//   - CategoryPersonalInfo: at most one record per user, later writes merge fields
//   - CategoryFamilyMember, CategoryLifeEvent, CategoryInterest: append-only
type Category string

const (
	// CategoryPersonalInfo holds basic biographical facts (name, birth date, ...).
	CategoryPersonalInfo Category = "personal_info"

	// CategoryFamilyMember holds one relationship (child, spouse, friend, ...).
	CategoryFamilyMember Category = "family_member"

	// CategoryLifeEvent holds one remembered event with optional free-form date.
	CategoryLifeEvent Category = "life_event"

	// CategoryInterest holds one hobby or topic the person cares about.
	CategoryInterest Category = "interest"
)

// Categories lists all record categories in their canonical bundle order.
var Categories = []Category{
	CategoryPersonalInfo,
	CategoryFamilyMember,
	CategoryLifeEvent,
	CategoryInterest,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Well-known field names. These are persisted as-is so that bundles written
// by earlier deployments keep their meaning.
const (
	FieldSummary      = "summary"
	FieldName         = "name"
	FieldRelationship = "relationship"
	FieldDetails      = "details"
	FieldDescription  = "description"
	FieldDate         = "date"
)

// PrimaryField returns the primary descriptive field for a category.
//
// Search matches against the primary field outrank matches found only in
// secondary fields, and summaries list the primary text of each record.
func PrimaryField(c Category) string {
	switch c {
	case CategoryFamilyMember:
		return FieldName
	case CategoryLifeEvent, CategoryInterest:
		return FieldDescription
	default:
		return FieldSummary
	}
}

// Record represents one stored fact, event, relationship, or interest.
//
// This type is defined in the recordstore package to avoid circular
// dependencies with the core package. It mirrors the core.MemoryRecord
// structure.
type Record struct {
	// ID is the unique identifier of the record, set once at creation.
	ID int64

	// UserID identifies the person this record belongs to.
	UserID string

	// Category is the kind of fact this record holds.
	Category Category

	// Fields maps attribute names to values. Every record carries a
	// free-text "summary" field used for search and summaries.
	Fields map[string]string

	// CreatedAt is when the record was created.
	CreatedAt time.Time

	// UpdatedAt is when the record was last mutated.
	UpdatedAt time.Time
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	cp.Fields = make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	return &cp
}

// Store defines the interface for memory record storage backends.
//
// Implementations must make every successful mutation durable before
// returning, so a process restart immediately after a successful call never
// loses data. Callers serialize writes per user ID; implementations only
// need to be safe for concurrent use across different users.
type Store interface {
	// Insert stores a new record. The record ID must already be set.
	Insert(ctx context.Context, record *Record) error

	// Update replaces a previously inserted record identified by record.ID.
	Update(ctx context.Context, record *Record) error

	// GetByUser returns all records for a user in canonical bundle order
	// (by category, then by creation time). An unknown user yields an
	// empty slice, not an error.
	GetByUser(ctx context.Context, userID string) ([]*Record, error)

	// GetPersonalInfo returns the single personal_info record for a user,
	// or nil if the user has none.
	GetPersonalInfo(ctx context.Context, userID string) (*Record, error)

	// Close closes the store and releases resources.
	Close() error
}

// categoryRank maps categories to their canonical bundle position.
var categoryRank = map[Category]int{
	CategoryPersonalInfo: 0,
	CategoryFamilyMember: 1,
	CategoryLifeEvent:    2,
	CategoryInterest:     3,
}

// SortBundle sorts records into canonical bundle order: by category, then by
// creation time, then by ID for full determinism. Backends without a natural
// ordering (file, in-memory) use this before returning from GetByUser.
func SortBundle(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i], records[j]
		if categoryRank[ri.Category] != categoryRank[rj.Category] {
			return categoryRank[ri.Category] < categoryRank[rj.Category]
		}
		if !ri.CreatedAt.Equal(rj.CreatedAt) {
			return ri.CreatedAt.Before(rj.CreatedAt)
		}
		return ri.ID < rj.ID
	})
}
