package daemonrun

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"rustactions/internal/events"
	"rustactions/internal/logging"
	"rustactions/internal/logs"
	"rustactions/internal/steam"
)

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "rustactions-1.log")
	second := filepath.Join(dir, "rustactions-2.log")
	for path, body := range map[string]string{first: "one\n", second: "two\n"} {
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	data, err := os.ReadFile(logs.CurrentPath(dir))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "two\n" {
		t.Fatalf("pointer should follow the newest log, got %q", data)
	}
	if err := ensureCurrentLogPointer("", second); err != nil {
		t.Fatalf("empty dir should be a no-op, got %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rustactions.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}

func TestProgressRelaySamplesAndResets(t *testing.T) {
	hub := events.NewHub(logging.NewNop())
	ch, cancel := hub.Subscribe(32)
	defer cancel()

	relay := newProgressRelay(hub, logging.NewNop())
	for _, pct := range []float64{1, 3, 12, 15, 25} {
		relay.report(steam.Progress{Stage: "downloading", Percent: pct})
	}
	// A new run restarts below the previous percentage.
	relay.report(steam.Progress{Stage: "downloading", Percent: 2})

	var got []float64
	timeout := time.After(time.Second)
	for len(got) < 4 {
		select {
		case data := <-ch:
			var ev struct {
				Type    string         `json:"type"`
				Payload steam.Progress `json:"payload"`
			}
			if err := json.Unmarshal(data, &ev); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if ev.Type != events.TypeSyncProgress {
				t.Fatalf("unexpected event type %q", ev.Type)
			}
			got = append(got, ev.Payload.Percent)
		case <-timeout:
			t.Fatalf("expected 4 sampled events, got %v", got)
		}
	}
	want := []float64{1, 12, 25, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sampled %v, want %v", got, want)
		}
	}
}
