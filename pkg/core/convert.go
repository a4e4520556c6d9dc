package core

import (
	"github.com/carevoice/companion-go/pkg/recordstore"
)

// fromStoreRecord converts a recordstore.Record to a core.MemoryRecord.
func fromStoreRecord(r *recordstore.Record) *MemoryRecord {
	if r == nil {
		return nil
	}
	return &MemoryRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		Category:  r.Category,
		Fields:    r.Fields,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// fromStoreRecords converts a slice of recordstore.Record.
func fromStoreRecords(records []*recordstore.Record) []*MemoryRecord {
	out := make([]*MemoryRecord, 0, len(records))
	for _, r := range records {
		out = append(out, fromStoreRecord(r))
	}
	return out
}
