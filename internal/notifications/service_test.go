package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"rustactions/internal/config"
	"rustactions/internal/events"
	"rustactions/internal/logging"
	"rustactions/internal/notifications"
)

type captured struct {
	title, body, tags, priority string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []captured) {
	t.Helper()
	var mu sync.Mutex
	var got []captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, func() []captured {
		mu.Lock()
		defer mu.Unlock()
		return append([]captured(nil), got...)
	}
}

func configFor(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	return &cfg
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	svc := notifications.NewService(configFor(""))
	if err := svc.Publish(context.Background(), notifications.EventSyncFailed, notifications.Payload{"error": "boom"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "sync completed",
			event:       notifications.EventSyncCompleted,
			payload:     notifications.Payload{"items": 412, "images": 380, "duration_seconds": 61.4},
			expectTitle: "Rust Actions - Sync Complete",
			expectBody:  "Item database synced: 412 items, 380 images in 1m1s",
			expectTags:  "rustactions,sync,completed",
		},
		{
			name:           "sync failed",
			event:          notifications.EventSyncFailed,
			payload:        notifications.Payload{"error": "steamcmd login required"},
			expectTitle:    "Rust Actions - Sync Failed",
			expectBody:     "Sync failed: steamcmd login required",
			expectTags:     "rustactions,sync,error",
			expectPriority: "high",
		},
		{
			name:        "action failed",
			event:       notifications.EventActionFailed,
			payload:     notifications.Payload{"action": "craft_by_name", "error": "item not found"},
			expectTitle: "Rust Actions - Action Failed",
			expectBody:  "craft_by_name failed: item not found",
			expectTags:  "rustactions,action,error",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "Rust Actions - Test",
			expectBody:     "Notification test",
			expectTags:     "rustactions,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, received := newNtfyServer(t)
			svc := notifications.NewService(configFor(server.URL))
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			got := received()
			if len(got) != 1 {
				t.Fatalf("expected one request, got %d", len(got))
			}
			if got[0].title != tc.expectTitle || got[0].body != tc.expectBody ||
				got[0].tags != tc.expectTags || got[0].priority != tc.expectPriority {
				t.Fatalf("unexpected notification: %+v", got[0])
			}
		})
	}
}

func TestNtfyServiceReportsErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewService(configFor(server.URL))
	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
	if err := svc.Publish(context.Background(), notifications.Event("bogus"), nil); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestForwardRelaysHubEvents(t *testing.T) {
	server, received := newNtfyServer(t)
	svc := notifications.NewService(configFor(server.URL))
	hub := events.NewHub(logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		notifications.Forward(ctx, hub, svc, notifications.Options{ActionFailures: true}, logging.NewNop())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("forwarder never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Publish(events.TypeSyncFinished, map[string]any{"items_fetched": 3, "images_fetched": 2})
	hub.Publish(events.TypeAction, map[string]any{"action": "suicide", "success": true})
	hub.Publish(events.TypeAction, map[string]any{"action": "craft_by_id", "success": false, "error": "no bind"})
	hub.Publish(events.TypeBinds, map[string]any{"op": "reload"})

	for len(received()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 notifications, got %d", len(received()))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	got := received()
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 notifications, got %+v", got)
	}
	if got[0].title != "Rust Actions - Sync Complete" || got[1].body != "craft_by_id failed: no bind" {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}
