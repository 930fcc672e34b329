package events

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestPublishFansOut(t *testing.T) {
	hub := NewHub(nil)
	a, cancelA := hub.Subscribe(4)
	b, cancelB := hub.Subscribe(4)
	defer cancelB()

	hub.Publish(TypeAction, map[string]any{"action": "noclip"})
	for name, ch := range map[string]<-chan []byte{"a": a, "b": b} {
		select {
		case msg := <-ch:
			var ev Event
			if err := json.Unmarshal(msg, &ev); err != nil {
				t.Fatalf("%s decode: %v", name, err)
			}
			if ev.Type != TypeAction || ev.Time.IsZero() {
				t.Fatalf("%s unexpected event %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s received nothing", name)
		}
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Fatal("cancelled subscriber channel should be closed")
	}
	if hub.Clients() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.Clients())
	}
}

func TestSlowSubscriberDropped(t *testing.T) {
	hub := NewHub(nil)
	ch, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(TypeTask, "one")
	hub.Publish(TypeTask, "two")
	if hub.Clients() != 0 {
		t.Fatalf("slow subscriber should be dropped, clients=%d", hub.Clients())
	}
	<-ch
	if _, ok := <-ch; ok {
		t.Fatal("dropped subscriber channel should be closed")
	}
}

func TestCloseRejectsSubscribers(t *testing.T) {
	hub := NewHub(nil)
	existing, _ := hub.Subscribe(1)
	hub.Close()
	if _, ok := <-existing; ok {
		t.Fatal("existing subscriber should be closed")
	}
	late, cancel := hub.Subscribe(1)
	cancel()
	if _, ok := <-late; ok {
		t.Fatal("subscriber after close should get a closed channel")
	}
	hub.Publish(TypeAction, nil)
}

func TestServeWSStreamsEvents(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish(TypeSyncProgress, map[string]any{"stage": "downloading", "percent": 42.5})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(msg), `"type":"sync_progress"`) || !strings.Contains(string(msg), `"percent":42.5`) {
		t.Fatalf("unexpected message %s", msg)
	}
}

func TestServeWSRejectsForeignOrigin(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	header := http.Header{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err == nil {
		t.Fatal("expected handshake failure for foreign origin")
	}
	if resp != nil && resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}
