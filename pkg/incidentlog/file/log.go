// Package file provides an append-only JSONL implementation of the incident log.
//
// Every write appends one full event document as a line; nothing in the file
// is ever rewritten. Status transitions append an amended copy of the event,
// and readers take the last line per event ID. This keeps the on-disk history
// strictly append-only while still exposing current status.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/carevoice/companion-go/pkg/incidentlog"
)

// Log implements incidentlog.Log backed by a JSONL file.
type Log struct {
	// path is the JSONL file holding all events.
	path string

	// f is the open append handle.
	f *os.File

	// mu serializes writes and replays.
	mu sync.Mutex
}

// Config contains configuration for creating a file-backed incident log.
type Config struct {
	// Path is the JSONL file to append to. Parent directories are created.
	Path string
}

// NewLog opens (or creates) the incident log file.
func NewLog(cfg *Config) (*Log, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("NewFileLog: path is required")
	}
	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("NewFileLog: failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("NewFileLog: %w", err)
	}

	return &Log{path: cfg.Path, f: f}, nil
}

// Append durably records a new event.
func (l *Log) Append(ctx context.Context, event *incidentlog.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeLine(event); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// MarkNotified advances an event's status to notified.
func (l *Log) MarkNotified(ctx context.Context, eventID string) error {
	return l.amend(eventID, incidentlog.StatusNotified, "")
}

// Acknowledge advances an event's status to acknowledged.
func (l *Log) Acknowledge(ctx context.Context, eventID, staffID string) error {
	return l.amend(eventID, incidentlog.StatusAcknowledged, staffID)
}

// amend appends a copy of the event with the new status. The original line
// stays in the file untouched.
func (l *Log) amend(eventID string, status incidentlog.Status, staffID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest, err := l.replay()
	if err != nil {
		return fmt.Errorf("amend: %w", err)
	}
	event, ok := latest[eventID]
	if !ok {
		return fmt.Errorf("amend: event %s not found", eventID)
	}

	event.Status = status
	if staffID != "" {
		event.AcknowledgedBy = staffID
	}
	if err := l.writeLine(event); err != nil {
		return fmt.Errorf("amend: %w", err)
	}
	return nil
}

// ListForUser returns all events for a user, most recent first.
func (l *Log) ListForUser(ctx context.Context, userID string) ([]*incidentlog.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	latest, err := l.replay()
	if err != nil {
		return nil, fmt.Errorf("ListForUser: %w", err)
	}

	var events []*incidentlog.Event
	for _, e := range latest {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	incidentlog.SortNewestFirst(events)
	return events, nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f != nil {
		err := l.f.Close()
		l.f = nil
		return err
	}
	return nil
}

// writeLine appends one event line and syncs it to disk before returning.
func (l *Log) writeLine(event *incidentlog.Event) error {
	if l.f == nil {
		return fmt.Errorf("log is closed")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return err
	}
	return l.f.Sync()
}

// replay reads the whole file and returns the last version of each event.
func (l *Log) replay() (map[string]*incidentlog.Event, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return map[string]*incidentlog.Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	latest := make(map[string]*incidentlog.Event)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event incidentlog.Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse event line: %w", err)
		}
		latest[event.ID] = &event
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return latest, nil
}
