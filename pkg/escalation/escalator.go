package escalation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/carevoice/companion-go/pkg/incidentlog"
	"github.com/carevoice/companion-go/pkg/notify"
)

// Sentinel errors distinguishing the two failure points of an escalation.
var (
	// ErrLogWrite indicates the incident log rejected the durable write.
	// The whole escalation fails; nothing was notified.
	ErrLogWrite = errors.New("incident log write failed")

	// ErrDeliveryFailed indicates the event is durably logged but the
	// notification collaborator could not be reached. Only the notify
	// step failed.
	ErrDeliveryFailed = errors.New("staff notification failed")
)

// Resident-facing acknowledgment messages. The conversational front end
// speaks these verbatim.
const (
	ackEmergency    = "I'm alerting staff right now. Help is on the way. Please stay where you are and stay calm."
	ackStaffRequest = "I've notified the staff. Someone from the care team will be with you shortly."
	ackDegraded     = "I've recorded this, but connecting you to staff may be delayed. If you can, please use your call button."
	ackSuppressed   = "I've already called for help. Someone should be on their way to you now."
)

// Result is the outcome of handling one utterance.
type Result struct {
	// Event is the recorded escalation, or nil when no keyword matched
	// and the utterance was ordinary conversation.
	Event *incidentlog.Event

	// Acknowledgment is the resident-facing response text. Empty when no
	// event was created.
	Acknowledgment string
}

// Config configures an Escalator.
type Config struct {
	// Log receives every detected event before notification is attempted.
	Log incidentlog.Log

	// Notifier is the staff notification collaborator, already wrapped
	// with the delivery policy (timeout, retry, optional cooldown).
	Notifier notify.Notifier

	// EmergencyKeywords and StaffRequestKeywords override the built-in
	// vocabularies. Nil means defaults.
	EmergencyKeywords    []Keyword
	StaffRequestKeywords []Keyword
}

// Escalator drives the detection state machine: idle -> detected -> notified.
//
// Every detected event is written to the incident log before any delivery is
// attempted, so a failed notification never loses the detection.
type Escalator struct {
	classifier *Classifier
	log        incidentlog.Log
	notifier   notify.Notifier

	// now and newID are injectable for tests.
	now   func() time.Time
	newID func() string
}

// New creates an Escalator.
func New(cfg *Config) (*Escalator, error) {
	if cfg.Log == nil {
		return nil, fmt.Errorf("New: incident log is required")
	}
	if cfg.Notifier == nil {
		return nil, fmt.Errorf("New: notifier is required")
	}

	emergency := cfg.EmergencyKeywords
	if emergency == nil {
		emergency = DefaultEmergencyKeywords()
	}
	staff := cfg.StaffRequestKeywords
	if staff == nil {
		staff = DefaultStaffRequestKeywords()
	}

	classifier, err := NewClassifier(emergency, staff)
	if err != nil {
		return nil, err
	}

	return &Escalator{
		classifier: classifier,
		log:        cfg.Log,
		notifier:   cfg.Notifier,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Classifier exposes the pure classification function, mainly for callers
// that want to triage without side effects.
func (e *Escalator) Classifier() *Classifier {
	return e.classifier
}

// HandleUtterance classifies one utterance and, on a match, records and
// delivers the escalation synchronously.
//
// The common no-match case returns an empty Result with zero side effects.
// On a match the event is appended to the incident log with status detected,
// then the notifier is invoked; success advances the status to notified
// before the call returns. If delivery fails or times out, the returned
// error wraps ErrDeliveryFailed and the Result still carries the logged
// event plus a degraded but honest acknowledgment for the resident.
func (e *Escalator) HandleUtterance(ctx context.Context, userID, utterance string) (*Result, error) {
	cls := e.classifier.Classify(utterance)
	if !cls.Detected() {
		return &Result{}, nil
	}

	event := &incidentlog.Event{
		ID:              e.newID(),
		UserID:          userID,
		Utterance:       utterance,
		Severity:        cls.Severity,
		MatchedKeywords: cls.Matched,
		Timestamp:       e.now().UTC(),
		Status:          incidentlog.StatusDetected,
	}

	if err := e.log.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogWrite, err)
	}

	if err := e.notifier.NotifyStaff(ctx, event); err != nil {
		log.Printf("escalation: delivery failed for event %s (user %s): %v", event.ID, event.UserID, err)
		ack := ackDegraded
		if errors.Is(err, notify.ErrSuppressed) {
			ack = ackSuppressed
		}
		return &Result{Event: event, Acknowledgment: ack}, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if err := e.log.MarkNotified(ctx, event.ID); err != nil {
		// Staff were reached but the status column could not advance;
		// the call must not claim success with the event still detected.
		return &Result{Event: event, Acknowledgment: ackDegraded}, fmt.Errorf("%w: %v", ErrLogWrite, err)
	}
	event.Status = incidentlog.StatusNotified

	ack := ackStaffRequest
	if event.Severity == incidentlog.SeverityEmergency {
		ack = ackEmergency
	}
	return &Result{Event: event, Acknowledgment: ack}, nil
}
