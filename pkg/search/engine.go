// Package search provides keyword search and aggregate summaries over a
// record store. It is a read-only layer: nothing here mutates a bundle.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/carevoice/companion-go/pkg/recordstore"
)

// Engine answers search and summary queries against a record store.
type Engine struct {
	store recordstore.Store
}

// NewEngine creates a search engine over the given store.
func NewEngine(store recordstore.Store) *Engine {
	return &Engine{store: store}
}

// Summary is the aggregate view of one person's bundle: one block per
// category that has records. Categories with zero records are omitted.
type Summary struct {
	// UserID identifies the person summarized.
	UserID string `json:"user_id"`

	// Categories holds one block per non-empty category, in canonical
	// bundle order.
	Categories []CategoryBlock `json:"categories"`
}

// CategoryBlock lists the primary descriptive text of each record in one
// category.
type CategoryBlock struct {
	Category recordstore.Category `json:"category"`
	Entries  []string             `json:"entries"`
}

// Search returns the user's records matching the query, best matches first.
//
// Matching is a case-insensitive substring check of each query token against
// every field value. Records matched in their category's primary descriptive
// field rank above records matched only in secondary fields; ties break by
// most recent update. Repeated calls over unchanged data return identical
// orderings.
//
// The composed summary field is not treated as primary for categories whose
// primary field is something else: summaries fold secondary fields in, so a
// summary hit would otherwise promote every secondary-field match.
//
// An unknown user or a query with no matches yields an empty slice.
func (e *Engine) Search(ctx context.Context, userID, query string) ([]*recordstore.Record, error) {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("Search: query is empty")
	}

	records, err := e.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}

	type ranked struct {
		record  *recordstore.Record
		primary bool
	}

	var matches []ranked
	for _, record := range records {
		primaryField := recordstore.PrimaryField(record.Category)
		matched, inPrimary := false, false
		for field, value := range record.Fields {
			lower := strings.ToLower(value)
			for _, token := range tokens {
				if strings.Contains(lower, token) {
					matched = true
					if field == primaryField {
						inPrimary = true
					}
				}
			}
		}
		if matched {
			matches = append(matches, ranked{record: record, primary: inPrimary})
		}
	}

	// Primary-field matches first, then most recently updated. The input
	// is already in canonical bundle order, so a stable sort keeps the
	// remaining ties deterministic.
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.primary != b.primary {
			return a.primary
		}
		return a.record.UpdatedAt.After(b.record.UpdatedAt)
	})

	results := make([]*recordstore.Record, 0, len(matches))
	for _, m := range matches {
		results = append(results, m.record)
	}
	return results, nil
}

// Summarize builds the aggregate summary of a user's bundle. A brand-new
// user yields a summary with zero category blocks, not an error.
func (e *Engine) Summarize(ctx context.Context, userID string) (*Summary, error) {
	records, err := e.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Summarize: %w", err)
	}

	byCategory := make(map[recordstore.Category][]string)
	for _, record := range records {
		text := record.Fields[recordstore.PrimaryField(record.Category)]
		if text == "" {
			text = record.Fields[recordstore.FieldSummary]
		}
		if text == "" {
			continue
		}
		byCategory[record.Category] = append(byCategory[record.Category], text)
	}

	summary := &Summary{UserID: userID, Categories: []CategoryBlock{}}
	for _, category := range recordstore.Categories {
		entries, ok := byCategory[category]
		if !ok {
			continue
		}
		summary.Categories = append(summary.Categories, CategoryBlock{
			Category: category,
			Entries:  entries,
		})
	}
	return summary, nil
}

// queryTokens lowercases and splits a query, dropping empty tokens.
func queryTokens(query string) []string {
	return strings.Fields(strings.ToLower(query))
}
