// Package incidentlog provides interfaces and types for the escalation audit log.
//
// The log is append-only: entries are never removed and only their delivery
// status may advance (detected -> notified -> acknowledged). Every detected
// escalation is written here before any notification is attempted, so a
// failed delivery still leaves a durable trace.
package incidentlog

import (
	"context"
	"sort"
	"time"
)

// Severity classifies how urgent a detected utterance is.
type Severity string

const (
	// SeverityInfo marks entries recorded for audit only (manual notes,
	// suppressed duplicates). The classifier never produces it.
	SeverityInfo Severity = "info"

	// SeverityStaffRequest marks a non-urgent request for staff assistance.
	SeverityStaffRequest Severity = "staff_request"

	// SeverityEmergency marks an utterance that needs immediate attention.
	SeverityEmergency Severity = "emergency"
)

// Status tracks how far an escalation event has progressed.
type Status string

const (
	// StatusDetected means the event is durably logged but staff have not
	// been reached yet.
	StatusDetected Status = "detected"

	// StatusNotified means the notification collaborator confirmed delivery.
	StatusNotified Status = "notified"

	// StatusAcknowledged means a staff member has taken ownership.
	StatusAcknowledged Status = "acknowledged"
)

// Event is one detected escalation with its delivery state.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`

	// UserID identifies the person whose utterance triggered the event.
	UserID string `json:"user_id"`

	// Utterance is the raw text that triggered detection.
	Utterance string `json:"utterance"`

	// Severity is the triage level assigned by the classifier.
	Severity Severity `json:"severity"`

	// MatchedKeywords lists the canonical keywords that matched.
	MatchedKeywords []string `json:"matched_keywords"`

	// Timestamp is when the event was detected.
	Timestamp time.Time `json:"timestamp"`

	// Status is the current delivery status.
	Status Status `json:"status"`

	// AcknowledgedBy names the staff member who acknowledged the event.
	AcknowledgedBy string `json:"acknowledged_by,omitempty"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	cp := *e
	cp.MatchedKeywords = append([]string(nil), e.MatchedKeywords...)
	return &cp
}

// Log defines the interface for escalation audit log backends.
//
// Append must be durable before it returns. Implementations must be safe for
// concurrent use.
type Log interface {
	// Append durably records a new event. Prior entries are never
	// overwritten.
	Append(ctx context.Context, event *Event) error

	// MarkNotified advances an event's status to notified.
	MarkNotified(ctx context.Context, eventID string) error

	// Acknowledge advances an event's status to acknowledged, recording
	// the staff member who took ownership.
	Acknowledge(ctx context.Context, eventID, staffID string) error

	// ListForUser returns all events for a user, most recent first.
	// Used for audit and testing, not by the conversational path.
	ListForUser(ctx context.Context, userID string) ([]*Event, error)

	// Close closes the log and releases resources.
	Close() error
}

// SortNewestFirst orders events most recent first, breaking timestamp ties
// by ID for determinism.
func SortNewestFirst(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.After(events[j].Timestamp)
		}
		return events[i].ID > events[j].ID
	})
}
