// Package notify defines the staff notification collaborator contract.
//
// The core owns the retry and timeout policy; the collaborator owns actual
// delivery (paging, nurse-call integration, webhooks). Implementations here
// cover an HTTP webhook for production and console/func adapters for
// development and tests.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/carevoice/companion-go/pkg/incidentlog"
)

// ErrSuppressed indicates that a notification was withheld by the cooldown
// policy because staff were already alerted for the same user moments ago.
var ErrSuppressed = errors.New("notification suppressed by cooldown")

// Notifier is the abstract notification collaborator.
//
// NotifyStaff returns nil only when delivery was confirmed. A timeout is
// treated identically to an explicit failure by callers.
type Notifier interface {
	NotifyStaff(ctx context.Context, event *incidentlog.Event) error
}

// Func adapts an ordinary function to the Notifier interface.
type Func func(ctx context.Context, event *incidentlog.Event) error

// NotifyStaff calls f.
func (f Func) NotifyStaff(ctx context.Context, event *incidentlog.Event) error {
	return f(ctx, event)
}

// Webhook delivers events by POSTing them as JSON to a staff alerting endpoint.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier with a hard per-request timeout.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// NotifyStaff POSTs the event and treats any non-2xx response as a failure.
func (w *Webhook) NotifyStaff(ctx context.Context, event *incidentlog.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("NotifyStaff: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("NotifyStaff: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("NotifyStaff: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("NotifyStaff: staff endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// Console writes alerts to the process log. Intended for development runs
// without a staff alerting endpoint.
type Console struct{}

// NotifyStaff logs the alert.
func (Console) NotifyStaff(ctx context.Context, event *incidentlog.Event) error {
	log.Printf("STAFF ALERT [%s] user=%s keywords=%v: %s",
		event.Severity, event.UserID, event.MatchedKeywords, event.Utterance)
	return nil
}

// WithPolicy wraps a notifier with the core's delivery policy: a hard
// per-attempt timeout and at most one automatic retry. The core never loops
// indefinitely; after the retry the failure is surfaced to the caller.
func WithPolicy(n Notifier, timeout time.Duration, retries int) Notifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	if retries > 1 {
		retries = 1
	}
	return &policyNotifier{next: n, timeout: timeout, retries: retries}
}

type policyNotifier struct {
	next    Notifier
	timeout time.Duration
	retries int
}

func (p *policyNotifier) NotifyStaff(ctx context.Context, event *incidentlog.Event) error {
	var lastErr error
	for attempt := 0; attempt <= p.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.next.NotifyStaff(attemptCtx, event)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrSuppressed) {
			return err
		}
		// Do not retry when the caller itself is gone.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return lastErr
}

// WithCooldown wraps a notifier so repeated alerts for the same user within
// the window are suppressed with ErrSuppressed instead of being delivered.
// The escalation layer still logs suppressed events; nothing is silently
// dropped. A zero or negative window disables suppression.
func WithCooldown(n Notifier, window time.Duration) Notifier {
	if window <= 0 {
		return n
	}
	return &cooldownNotifier{
		next:   n,
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
}

type cooldownNotifier struct {
	next   Notifier
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time // per-user time of last delivered alert
}

func (c *cooldownNotifier) NotifyStaff(ctx context.Context, event *incidentlog.Event) error {
	c.mu.Lock()
	if t, ok := c.last[event.UserID]; ok && c.now().Sub(t) < c.window {
		c.mu.Unlock()
		return ErrSuppressed
	}
	c.mu.Unlock()

	if err := c.next.NotifyStaff(ctx, event); err != nil {
		return err
	}

	c.mu.Lock()
	c.last[event.UserID] = c.now()
	c.mu.Unlock()
	return nil
}
