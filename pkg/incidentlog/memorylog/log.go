// Package memorylog provides an in-memory implementation of the incident log.
//
// It is intended for tests and for exercising the escalation state machine
// without touching a filesystem.
package memorylog

import (
	"context"
	"fmt"
	"sync"

	"github.com/carevoice/companion-go/pkg/incidentlog"
)

// Log implements incidentlog.Log backed by an in-process slice.
type Log struct {
	mu     sync.RWMutex
	events []*incidentlog.Event
}

// NewLog creates an empty in-memory incident log.
func NewLog() *Log {
	return &Log{}
}

// Append records a new event.
func (l *Log) Append(ctx context.Context, event *incidentlog.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event.Clone())
	return nil
}

// MarkNotified advances an event's status to notified.
func (l *Log) MarkNotified(ctx context.Context, eventID string) error {
	return l.setStatus(eventID, incidentlog.StatusNotified, "")
}

// Acknowledge advances an event's status to acknowledged.
func (l *Log) Acknowledge(ctx context.Context, eventID, staffID string) error {
	return l.setStatus(eventID, incidentlog.StatusAcknowledged, staffID)
}

func (l *Log) setStatus(eventID string, status incidentlog.Status, staffID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, e := range l.events {
		if e.ID == eventID {
			e.Status = status
			if staffID != "" {
				e.AcknowledgedBy = staffID
			}
			return nil
		}
	}
	return fmt.Errorf("event %s not found", eventID)
}

// ListForUser returns all events for a user, most recent first.
func (l *Log) ListForUser(ctx context.Context, userID string) ([]*incidentlog.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []*incidentlog.Event
	for _, e := range l.events {
		if e.UserID == userID {
			events = append(events, e.Clone())
		}
	}
	incidentlog.SortNewestFirst(events)
	return events, nil
}

// Close releases the log's resources.
func (l *Log) Close() error {
	return nil
}
