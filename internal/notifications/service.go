package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rustactions/internal/config"
)

const userAgent = "rustactions/1.0"

// Event names a notification template.
type Event string

// Notification events.
const (
	EventSyncCompleted Event = "sync_completed"
	EventSyncFailed    Event = "sync_failed"
	EventActionFailed  Event = "action_failed"
	EventTest          Event = "test"
)

// Payload carries template values.
type Payload map[string]any

// Service publishes notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil || strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: strings.TrimSpace(cfg.Notifications.NtfyTopic),
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := render(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func render(event Event, p Payload) (message, bool) {
	switch event {
	case EventSyncCompleted:
		body := fmt.Sprintf("Item database synced: %d items, %d images", p.intValue("items"), p.intValue("images"))
		if d := p.floatValue("duration_seconds"); d > 0 {
			body += fmt.Sprintf(" in %s", (time.Duration(d * float64(time.Second))).Round(time.Second))
		}
		return message{
			title: "Rust Actions - Sync Complete",
			body:  body,
			tags:  []string{"rustactions", "sync", "completed"},
		}, true
	case EventSyncFailed:
		return message{
			title:    "Rust Actions - Sync Failed",
			body:     "Sync failed: " + p.text("error", "unknown error"),
			tags:     []string{"rustactions", "sync", "error"},
			priority: "high",
		}, true
	case EventActionFailed:
		return message{
			title: "Rust Actions - Action Failed",
			body:  fmt.Sprintf("%s failed: %s", p.text("action", "action"), p.text("error", "unknown error")),
			tags:  []string{"rustactions", "action", "error"},
		}, true
	case EventTest:
		return message{
			title:    "Rust Actions - Test",
			body:     "Notification test",
			tags:     []string{"rustactions", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key, fallback string) string {
	if v, ok := p[key].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (p Payload) intValue(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (p Payload) floatValue(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
