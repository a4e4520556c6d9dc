package file_test

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevoice/companion-go/pkg/incidentlog"
	fileLog "github.com/carevoice/companion-go/pkg/incidentlog/file"
)

func setupFileLog(t *testing.T) (*fileLog.Log, string) {
	path := filepath.Join(t.TempDir(), "incidents.jsonl")
	log, err := fileLog.NewLog(&fileLog.Config{Path: path})
	require.NoError(t, err)
	require.NotNil(t, log)
	return log, path
}

func newEvent(id, userID string, ts time.Time) *incidentlog.Event {
	return &incidentlog.Event{
		ID:              id,
		UserID:          userID,
		Utterance:       "I fell",
		Severity:        incidentlog.SeverityEmergency,
		MatchedKeywords: []string{"fall"},
		Timestamp:       ts,
		Status:          incidentlog.StatusDetected,
	}
}

func countLines(t *testing.T, path string) int {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			n++
		}
	}
	require.NoError(t, scanner.Err())
	return n
}

func TestFileLog_RequiresPath(t *testing.T) {
	_, err := fileLog.NewLog(&fileLog.Config{})
	assert.Error(t, err)
}

func TestFileLog_AppendAndList(t *testing.T) {
	log, _ := setupFileLog(t)
	defer log.Close()
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, log.Append(ctx, newEvent("evt-1", "alice", now)))
	require.NoError(t, log.Append(ctx, newEvent("evt-2", "alice", now.Add(time.Minute))))

	events, err := log.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-2", events[0].ID)
	assert.Equal(t, []string{"fall"}, events[0].MatchedKeywords)
	assert.True(t, now.Add(time.Minute).Equal(events[0].Timestamp))
}

func TestFileLog_TransitionsAppendNotRewrite(t *testing.T) {
	log, path := setupFileLog(t)
	defer log.Close()
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, newEvent("evt-1", "alice", time.Now().UTC())))
	require.NoError(t, log.MarkNotified(ctx, "evt-1"))
	require.NoError(t, log.Acknowledge(ctx, "evt-1", "nurse_jones"))

	// Each transition appends an amended line; nothing is rewritten.
	assert.Equal(t, 3, countLines(t, path))

	events, err := log.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, incidentlog.StatusAcknowledged, events[0].Status)
	assert.Equal(t, "nurse_jones", events[0].AcknowledgedBy)
}

func TestFileLog_ReplayAcrossReopen(t *testing.T) {
	log, path := setupFileLog(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, log.Append(ctx, newEvent("evt-1", "alice", now)))
	require.NoError(t, log.MarkNotified(ctx, "evt-1"))
	require.NoError(t, log.Append(ctx, newEvent("evt-2", "alice", now.Add(time.Second))))
	require.NoError(t, log.Close())

	reopened, err := fileLog.NewLog(&fileLog.Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-2", events[0].ID)
	assert.Equal(t, incidentlog.StatusDetected, events[0].Status)
	assert.Equal(t, "evt-1", events[1].ID)
	assert.Equal(t, incidentlog.StatusNotified, events[1].Status, "last line per event wins on replay")
}

func TestFileLog_UnknownEvent(t *testing.T) {
	log, _ := setupFileLog(t)
	defer log.Close()

	assert.Error(t, log.MarkNotified(context.Background(), "missing"))
}

func TestFileLog_ClosedLogRejectsWrites(t *testing.T) {
	log, _ := setupFileLog(t)
	require.NoError(t, log.Close())

	err := log.Append(context.Background(), newEvent("evt-1", "alice", time.Now().UTC()))
	assert.Error(t, err)
}
