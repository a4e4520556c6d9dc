package core

import (
	"time"

	"github.com/carevoice/companion-go/pkg/recordstore"
)

// Category re-exports the record categories for callers of this package.
type Category = recordstore.Category

const (
	CategoryPersonalInfo = recordstore.CategoryPersonalInfo
	CategoryFamilyMember = recordstore.CategoryFamilyMember
	CategoryLifeEvent    = recordstore.CategoryLifeEvent
	CategoryInterest     = recordstore.CategoryInterest
)

// MemoryRecord represents one stored fact, event, relationship, or interest
// about a person.
//
// A record contains:
//   - Category: which kind of fact it holds, controlling write semantics
//   - Fields: the attribute values, always including a searchable "summary"
//
// Example:
//
//	record := &core.MemoryRecord{
//	    ID:       1234567890,
//	    UserID:   "resident_12",
//	    Category: core.CategoryInterest,
//	    Fields: map[string]string{
//	        "description": "tending the rose garden",
//	        "summary":     "tending the rose garden",
//	    },
//	}
type MemoryRecord struct {
	// ID is the unique identifier of the record, set once at creation.
	ID int64 `json:"id"`

	// UserID identifies the person who owns this record.
	UserID string `json:"user_id"`

	// Category is the kind of fact this record holds.
	Category Category `json:"category"`

	// Fields maps attribute names to values. The schema varies by
	// category; every record carries a free-text "summary" field.
	Fields map[string]string `json:"fields"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonMemoryBundle is the full set of memory records for one person,
// ordered by category. It is created lazily on first write and never
// hard-deleted by the core.
type PersonMemoryBundle struct {
	// UserID identifies the person the bundle belongs to.
	UserID string `json:"user_id"`

	// Records holds all records in canonical bundle order (personal_info,
	// family_member, life_event, interest; oldest first within each).
	Records []*MemoryRecord `json:"records"`
}

// ByCategory returns the bundle's records of one category, preserving order.
func (b *PersonMemoryBundle) ByCategory(category Category) []*MemoryRecord {
	var records []*MemoryRecord
	for _, r := range b.Records {
		if r.Category == category {
			records = append(records, r)
		}
	}
	return records
}

// Len returns the number of records in the bundle.
func (b *PersonMemoryBundle) Len() int {
	return len(b.Records)
}
