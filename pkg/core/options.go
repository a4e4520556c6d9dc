package core

import (
	"github.com/carevoice/companion-go/pkg/incidentlog"
	"github.com/carevoice/companion-go/pkg/notify"
	"github.com/carevoice/companion-go/pkg/recordstore"
)

// LifeEventOption is a function type for configuring AddLifeEvent operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type LifeEventOption func(*LifeEventOptions)

// LifeEventOptions contains configuration options for AddLifeEvent operations.
type LifeEventOptions struct {
	// Date is optional free-form text ("spring of 1954", "when I was 25").
	// It is stored as given, never parsed.
	Date string
}

// WithEventDate sets the free-form date for AddLifeEvent operations.
//
// Example:
//
//	record, _ := client.AddLifeEvent(ctx, "resident_12", "married Robert",
//	    core.WithEventDate("June 1955"))
func WithEventDate(date string) LifeEventOption {
	return func(opts *LifeEventOptions) {
		opts.Date = date
	}
}

// FamilyMemberOption is a function type for configuring AddFamilyMember operations.
type FamilyMemberOption func(*FamilyMemberOptions)

// FamilyMemberOptions contains configuration options for AddFamilyMember operations.
type FamilyMemberOptions struct {
	// Details is optional free text about the family member.
	Details string
}

// WithDetails sets the detail text for AddFamilyMember operations.
//
// Example:
//
//	record, _ := client.AddFamilyMember(ctx, "resident_12", "Susan", "daughter",
//	    core.WithDetails("visits every Sunday"))
func WithDetails(details string) FamilyMemberOption {
	return func(opts *FamilyMemberOptions) {
		opts.Details = details
	}
}

// ClientOption is a function type for configuring NewClient.
//
// Options inject pre-built collaborators, bypassing the corresponding
// provider section of the Config. Tests use them to substitute in-memory
// backends and fake notifiers without touching global state.
type ClientOption func(*clientOptions)

type clientOptions struct {
	store    recordstore.Store
	log      incidentlog.Log
	notifier notify.Notifier
}

// WithRecordStore injects a pre-built record store.
func WithRecordStore(store recordstore.Store) ClientOption {
	return func(opts *clientOptions) {
		opts.store = store
	}
}

// WithIncidentLog injects a pre-built incident log.
func WithIncidentLog(log incidentlog.Log) ClientOption {
	return func(opts *clientOptions) {
		opts.log = log
	}
}

// WithNotifier injects a staff notifier. The delivery policy (timeout,
// retry, cooldown) from the config is still applied around it.
func WithNotifier(n notify.Notifier) ClientOption {
	return func(opts *clientOptions) {
		opts.notifier = n
	}
}
