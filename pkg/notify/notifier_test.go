package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carevoice/companion-go/pkg/incidentlog"
	"github.com/carevoice/companion-go/pkg/notify"
)

func testEvent(userID string) *incidentlog.Event {
	return &incidentlog.Event{
		ID:              "evt-1",
		UserID:          userID,
		Utterance:       "help me",
		Severity:        incidentlog.SeverityStaffRequest,
		MatchedKeywords: []string{"help"},
		Timestamp:       time.Now().UTC(),
		Status:          incidentlog.StatusDetected,
	}
}

func TestWebhook_Delivers(t *testing.T) {
	var received incidentlog.Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	webhook := notify.NewWebhook(server.URL, time.Second)
	err := webhook.NotifyStaff(context.Background(), testEvent("resident_1"))
	require.NoError(t, err)
	assert.Equal(t, "evt-1", received.ID)
	assert.Equal(t, "resident_1", received.UserID)
}

func TestWebhook_Non2xxIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	webhook := notify.NewWebhook(server.URL, time.Second)
	err := webhook.NotifyStaff(context.Background(), testEvent("resident_1"))
	assert.Error(t, err)
}

func TestWebhook_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	webhook := notify.NewWebhook(server.URL, 500*time.Millisecond)
	err := webhook.NotifyStaff(context.Background(), testEvent("resident_1"))
	assert.Error(t, err)
}

func TestWithPolicy_RetriesOnce(t *testing.T) {
	attempts := 0
	n := notify.WithPolicy(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	}), time.Second, 1)

	err := n.NotifyStaff(context.Background(), testEvent("resident_1"))
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithPolicy_SurfacesFailureAfterRetry(t *testing.T) {
	attempts := 0
	n := notify.WithPolicy(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		attempts++
		return errors.New("gateway down")
	}), time.Second, 1)

	err := n.NotifyStaff(context.Background(), testEvent("resident_1"))
	require.Error(t, err)
	assert.Equal(t, 2, attempts, "at most one retry")
}

func TestWithPolicy_RetriesCappedAtOne(t *testing.T) {
	attempts := 0
	n := notify.WithPolicy(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		attempts++
		return errors.New("down")
	}), time.Second, 10)

	_ = n.NotifyStaff(context.Background(), testEvent("resident_1"))
	assert.Equal(t, 2, attempts)
}

func TestWithPolicy_Timeout(t *testing.T) {
	n := notify.WithPolicy(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}), 20*time.Millisecond, 0)

	start := time.Now()
	err := n.NotifyStaff(context.Background(), testEvent("resident_1"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "timeout must bound the attempt")
}

func TestWithPolicy_NoRetryOnSuppression(t *testing.T) {
	attempts := 0
	n := notify.WithPolicy(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		attempts++
		return notify.ErrSuppressed
	}), time.Second, 1)

	err := n.NotifyStaff(context.Background(), testEvent("resident_1"))
	assert.True(t, errors.Is(err, notify.ErrSuppressed))
	assert.Equal(t, 1, attempts, "suppression is final, not transient")
}

func TestWithCooldown_SuppressesRepeatAlerts(t *testing.T) {
	delivered := 0
	n := notify.WithCooldown(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		delivered++
		return nil
	}), time.Minute)

	require.NoError(t, n.NotifyStaff(context.Background(), testEvent("resident_1")))

	err := n.NotifyStaff(context.Background(), testEvent("resident_1"))
	assert.True(t, errors.Is(err, notify.ErrSuppressed))
	assert.Equal(t, 1, delivered)

	// A different user is not affected by resident_1's cooldown.
	require.NoError(t, n.NotifyStaff(context.Background(), testEvent("resident_2")))
	assert.Equal(t, 2, delivered)
}

func TestWithCooldown_FailedDeliveryDoesNotStartWindow(t *testing.T) {
	attempts := 0
	n := notify.WithCooldown(notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		attempts++
		if attempts == 1 {
			return errors.New("down")
		}
		return nil
	}), time.Minute)

	require.Error(t, n.NotifyStaff(context.Background(), testEvent("resident_1")))
	require.NoError(t, n.NotifyStaff(context.Background(), testEvent("resident_1")))
	assert.Equal(t, 2, attempts)
}

func TestWithCooldown_ZeroWindowDisables(t *testing.T) {
	delivered := 0
	inner := notify.Func(func(ctx context.Context, event *incidentlog.Event) error {
		delivered++
		return nil
	})
	n := notify.WithCooldown(inner, 0)

	require.NoError(t, n.NotifyStaff(context.Background(), testEvent("resident_1")))
	require.NoError(t, n.NotifyStaff(context.Background(), testEvent("resident_1")))
	assert.Equal(t, 2, delivered)
}
