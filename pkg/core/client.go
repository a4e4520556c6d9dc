package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/carevoice/companion-go/pkg/escalation"
	"github.com/carevoice/companion-go/pkg/incidentlog"
	incidentFile "github.com/carevoice/companion-go/pkg/incidentlog/file"
	"github.com/carevoice/companion-go/pkg/incidentlog/memorylog"
	incidentPostgres "github.com/carevoice/companion-go/pkg/incidentlog/postgres"
	incidentSQLite "github.com/carevoice/companion-go/pkg/incidentlog/sqlite"
	"github.com/carevoice/companion-go/pkg/notify"
	"github.com/carevoice/companion-go/pkg/recordstore"
	recordFile "github.com/carevoice/companion-go/pkg/recordstore/file"
	"github.com/carevoice/companion-go/pkg/recordstore/memorystore"
	recordSQLite "github.com/carevoice/companion-go/pkg/recordstore/sqlite"
	"github.com/carevoice/companion-go/pkg/search"
)

// Client is the main Companion client.
//
// It provides the complete function-style surface the conversational front
// end calls:
//   - Record Store writes (personal info, family members, life events, interests)
//   - Search and summaries over a person's bundle
//   - Escalation handling with guaranteed incident logging
//
// Writes to one person's bundle are serialized per user ID; operations for
// different users may run concurrently. The client is safe for concurrent
// use from multiple goroutines.
//
// Example usage:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, _ := core.NewClient(config)
//	defer client.Close()
//
//	record, _ := client.AddInterest(ctx, "resident_12", "tending the rose garden")
type Client struct {
	// config contains the client configuration.
	config *Config

	// store is the record store backend for bundle persistence.
	store recordstore.Store

	// log is the incident log backend for escalation audit.
	log incidentlog.Log

	// escalator drives utterance triage and staff notification.
	escalator *escalation.Escalator

	// engine answers search and summary queries.
	engine *search.Engine

	// snowflakeNode generates unique IDs for records.
	snowflakeNode *snowflake.Node

	// userMu guards userLocks.
	userMu sync.Mutex

	// userLocks serializes bundle writes per user ID.
	userLocks map[string]*sync.Mutex
}

// NewClient creates a new Companion client.
//
// Backends are built from the configuration (file, sqlite, postgres,
// memory providers) unless injected through options.
//
// Parameters:
//   - cfg: Configuration containing record store, incident log, and notifier settings
//   - opts: Optional collaborator injections (WithRecordStore, WithIncidentLog, WithNotifier)
//
// Returns a new Client instance, or an error if initialization fails.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var injected clientOptions
	for _, opt := range opts {
		opt(&injected)
	}

	store := injected.store
	if store == nil {
		var err error
		store, err = initRecordStore(cfg.RecordStore)
		if err != nil {
			return nil, err
		}
	}

	log := injected.log
	if log == nil {
		var err error
		log, err = initIncidentLog(cfg.IncidentLog)
		if err != nil {
			return nil, err
		}
	}

	notifier := injected.notifier
	if notifier == nil {
		notifier = initNotifier(cfg.Notifier)
	}
	// Delivery policy wraps the collaborator: optional per-user cooldown
	// inside, hard timeout and single retry outside.
	notifier = notify.WithPolicy(
		notify.WithCooldown(notifier, cfg.Notifier.Cooldown),
		cfg.Notifier.Timeout,
		cfg.Notifier.Retries,
	)

	escalatorCfg := &escalation.Config{
		Log:      log,
		Notifier: notifier,
	}
	if cfg.Triage != nil {
		escalatorCfg.EmergencyKeywords = cfg.Triage.EmergencyKeywords
		escalatorCfg.StaffRequestKeywords = cfg.Triage.StaffRequestKeywords
	}
	escalator, err := escalation.New(escalatorCfg)
	if err != nil {
		return nil, NewError("NewClient", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewError("NewClient", err)
	}

	return &Client{
		config:        cfg,
		store:         store,
		log:           log,
		escalator:     escalator,
		engine:        search.NewEngine(store),
		snowflakeNode: node,
		userLocks:     make(map[string]*sync.Mutex),
	}, nil
}

// StorePersonalInfo upserts the single personal_info record for a user.
//
// Field values merge into any existing record: overlapping field names take
// the later call's values, other fields are preserved, and no duplicate
// personal_info record is ever created. Unknown field names are accepted.
//
// Parameters:
//   - ctx: Context for cancellation
//   - userID: Person identifier
//   - fields: Attribute name to value mapping (e.g. "name", "birth_date")
//
// Returns the stored record, or ErrValidation if userID or fields is empty.
func (c *Client) StorePersonalInfo(ctx context.Context, userID string, fields map[string]string) (*MemoryRecord, error) {
	const op = "StorePersonalInfo"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}
	if len(fields) == 0 {
		return nil, validationError(op, "fields must not be empty")
	}

	unlock := c.lockUser(userID)
	defer unlock()

	existing, err := c.store.GetPersonalInfo(ctx, userID)
	if err != nil {
		return nil, storageError(op, err)
	}

	now := time.Now().UTC()
	if existing == nil {
		record := &recordstore.Record{
			ID:        c.snowflakeNode.Generate().Int64(),
			UserID:    userID,
			Category:  recordstore.CategoryPersonalInfo,
			Fields:    copyFields(fields),
			CreatedAt: now,
			UpdatedAt: now,
		}
		record.Fields[recordstore.FieldSummary] = personalInfoSummary(record.Fields)
		if err := c.store.Insert(ctx, record); err != nil {
			return nil, storageError(op, err)
		}
		return fromStoreRecord(record), nil
	}

	for k, v := range fields {
		existing.Fields[k] = v
	}
	existing.Fields[recordstore.FieldSummary] = personalInfoSummary(existing.Fields)
	existing.UpdatedAt = now
	if err := c.store.Update(ctx, existing); err != nil {
		return nil, storageError(op, err)
	}
	return fromStoreRecord(existing), nil
}

// AddLifeEvent appends a new life_event record. N calls produce N records;
// nothing is overwritten.
//
// The optional date is free-form text, stored without parsing.
func (c *Client) AddLifeEvent(ctx context.Context, userID, description string, opts ...LifeEventOption) (*MemoryRecord, error) {
	const op = "AddLifeEvent"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}
	if strings.TrimSpace(description) == "" {
		return nil, validationError(op, "description is required")
	}

	var eventOpts LifeEventOptions
	for _, opt := range opts {
		opt(&eventOpts)
	}

	fields := map[string]string{
		recordstore.FieldDescription: description,
	}
	summary := description
	if eventOpts.Date != "" {
		fields[recordstore.FieldDate] = eventOpts.Date
		summary = fmt.Sprintf("%s (%s)", description, eventOpts.Date)
	}
	fields[recordstore.FieldSummary] = summary

	return c.appendRecord(ctx, op, userID, recordstore.CategoryLifeEvent, fields)
}

// AddFamilyMember appends a new family_member record.
//
// Returns ErrValidation if name or relationship is empty.
func (c *Client) AddFamilyMember(ctx context.Context, userID, name, relationship string, opts ...FamilyMemberOption) (*MemoryRecord, error) {
	const op = "AddFamilyMember"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, validationError(op, "name is required")
	}
	if strings.TrimSpace(relationship) == "" {
		return nil, validationError(op, "relationship is required")
	}

	var familyOpts FamilyMemberOptions
	for _, opt := range opts {
		opt(&familyOpts)
	}

	fields := map[string]string{
		recordstore.FieldName:         name,
		recordstore.FieldRelationship: relationship,
	}
	summary := fmt.Sprintf("%s (%s)", name, relationship)
	if familyOpts.Details != "" {
		fields[recordstore.FieldDetails] = familyOpts.Details
		summary += ": " + familyOpts.Details
	}
	fields[recordstore.FieldSummary] = summary

	return c.appendRecord(ctx, op, userID, recordstore.CategoryFamilyMember, fields)
}

// AddInterest appends a new interest record.
//
// Returns ErrValidation if description is empty.
func (c *Client) AddInterest(ctx context.Context, userID, description string) (*MemoryRecord, error) {
	const op = "AddInterest"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}
	if strings.TrimSpace(description) == "" {
		return nil, validationError(op, "description is required")
	}

	fields := map[string]string{
		recordstore.FieldDescription: description,
		recordstore.FieldSummary:     description,
	}
	return c.appendRecord(ctx, op, userID, recordstore.CategoryInterest, fields)
}

// GetBundle returns the full bundle for a user, ordered by category.
//
// A user with no prior records yields an empty bundle, not an error; first
// access for any user is always well-defined.
func (c *Client) GetBundle(ctx context.Context, userID string) (*PersonMemoryBundle, error) {
	const op = "GetBundle"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}

	records, err := c.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, storageError(op, err)
	}
	return &PersonMemoryBundle{
		UserID:  userID,
		Records: fromStoreRecords(records),
	}, nil
}

// SearchMemories returns the user's records matching the query, best matches
// first. See the search package for the ranking rules.
//
// Returns ErrValidation for an empty query. An unknown user or a query with
// no matches yields an empty slice, not an error.
func (c *Client) SearchMemories(ctx context.Context, userID, query string) ([]*MemoryRecord, error) {
	const op = "SearchMemories"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}
	if strings.TrimSpace(query) == "" {
		return nil, validationError(op, "query is required")
	}

	records, err := c.engine.Search(ctx, userID, query)
	if err != nil {
		return nil, storageError(op, err)
	}
	return fromStoreRecords(records), nil
}

// MemorySummary returns one aggregate block per non-empty category of the
// user's bundle. A brand-new user yields a summary with zero blocks.
func (c *Client) MemorySummary(ctx context.Context, userID string) (*search.Summary, error) {
	const op = "MemorySummary"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}

	summary, err := c.engine.Summarize(ctx, userID)
	if err != nil {
		return nil, storageError(op, err)
	}
	return summary, nil
}

// HandleUtterance runs the escalation state machine over one utterance.
//
// Ordinary conversation (no keyword match) returns an empty Result with no
// side effects. A match is durably logged before staff are notified; if
// delivery fails the returned error wraps ErrEscalationDelivery and the
// Result still carries the logged event plus a degraded acknowledgment the
// front end must surface instead of claiming success.
func (c *Client) HandleUtterance(ctx context.Context, userID, utterance string) (*escalation.Result, error) {
	const op = "HandleUtterance"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}

	result, err := c.escalator.HandleUtterance(ctx, userID, utterance)
	if err != nil {
		// A failed incident-log write is a durable-write failure and is
		// classified as such for callers.
		if errors.Is(err, escalation.ErrLogWrite) {
			return result, storageError(op, err)
		}
		return result, NewError(op, err)
	}
	return result, nil
}

// Acknowledge records that a staff member has taken ownership of an event.
// This transition is driven by staff action, not by the state machine.
func (c *Client) Acknowledge(ctx context.Context, eventID, staffID string) error {
	const op = "Acknowledge"
	if strings.TrimSpace(eventID) == "" {
		return validationError(op, "event_id is required")
	}
	if strings.TrimSpace(staffID) == "" {
		return validationError(op, "staff_id is required")
	}

	if err := c.log.Acknowledge(ctx, eventID, staffID); err != nil {
		return storageError(op, err)
	}
	return nil
}

// Incidents returns the escalation history for a user, most recent first.
// Used for audit and review, not by the conversational path.
func (c *Client) Incidents(ctx context.Context, userID string) ([]*incidentlog.Event, error) {
	const op = "Incidents"
	if strings.TrimSpace(userID) == "" {
		return nil, validationError(op, "user_id is required")
	}

	events, err := c.log.ListForUser(ctx, userID)
	if err != nil {
		return nil, storageError(op, err)
	}
	return events, nil
}

// Close closes the client and releases all resources.
//
// Returns the first error encountered during cleanup, or nil if all
// resources were closed successfully.
func (c *Client) Close() error {
	var errs []error

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.log != nil {
		if err := c.log.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// appendRecord inserts a new append-only record under the user's write lock.
func (c *Client) appendRecord(ctx context.Context, op, userID string, category recordstore.Category, fields map[string]string) (*MemoryRecord, error) {
	unlock := c.lockUser(userID)
	defer unlock()

	now := time.Now().UTC()
	record := &recordstore.Record{
		ID:        c.snowflakeNode.Generate().Int64(),
		UserID:    userID,
		Category:  category,
		Fields:    fields,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Insert(ctx, record); err != nil {
		return nil, storageError(op, err)
	}
	return fromStoreRecord(record), nil
}

// lockUser acquires the per-user write lock and returns its release func.
func (c *Client) lockUser(userID string) func() {
	c.userMu.Lock()
	mu, ok := c.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		c.userLocks[userID] = mu
	}
	c.userMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// personalInfoSummary renders the personal_info fields into one searchable
// line, deterministic over field order.
func personalInfoSummary(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == recordstore.FieldSummary {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fields[k]))
	}
	return strings.Join(parts, "; ")
}

// copyFields returns a defensive copy of a field map.
func copyFields(fields map[string]string) map[string]string {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return cp
}

// initRecordStore initializes the record store backend.
func initRecordStore(cfg RecordStoreConfig) (recordstore.Store, error) {
	switch cfg.Provider {
	case "file":
		return recordFile.NewStore(&recordFile.Config{
			DataDir: stringValue(cfg.Config, "data_dir"),
		})
	case "sqlite":
		return recordSQLite.NewStore(&recordSQLite.Config{
			DBPath:    stringValue(cfg.Config, "db_path"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
	case "memory":
		return memorystore.NewStore(), nil
	default:
		return nil, NewError("initRecordStore", ErrInvalidConfig)
	}
}

// initIncidentLog initializes the incident log backend.
func initIncidentLog(cfg IncidentLogConfig) (incidentlog.Log, error) {
	switch cfg.Provider {
	case "file":
		return incidentFile.NewLog(&incidentFile.Config{
			Path: stringValue(cfg.Config, "path"),
		})
	case "sqlite":
		return incidentSQLite.NewLog(&incidentSQLite.Config{
			DBPath:    stringValue(cfg.Config, "db_path"),
			TableName: stringValue(cfg.Config, "table_name"),
		})
	case "postgres":
		return incidentPostgres.NewLog(&incidentPostgres.Config{
			Host:      stringValue(cfg.Config, "host"),
			Port:      intValue(cfg.Config, "port"),
			User:      stringValue(cfg.Config, "user"),
			Password:  stringValue(cfg.Config, "password"),
			DBName:    stringValue(cfg.Config, "db_name"),
			TableName: stringValue(cfg.Config, "table_name"),
			SSLMode:   stringValue(cfg.Config, "ssl_mode"),
		})
	case "memory":
		return memorylog.NewLog(), nil
	default:
		return nil, NewError("initIncidentLog", ErrInvalidConfig)
	}
}

// initNotifier initializes the staff notifier collaborator.
func initNotifier(cfg NotifierConfig) notify.Notifier {
	switch cfg.Provider {
	case "webhook":
		return notify.NewWebhook(cfg.URL, cfg.Timeout)
	default:
		return notify.Console{}
	}
}

// stringValue reads a string from a provider config map.
func stringValue(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// intValue reads an int from a provider config map.
func intValue(m map[string]interface{}, key string) int {
	if m == nil {
		return 0
	}
	if v, ok := m[key].(int); ok {
		return v
	}
	return 0
}
