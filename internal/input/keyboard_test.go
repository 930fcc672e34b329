package input

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"rustactions/internal/logging"
	"rustactions/internal/services"
)

func newTestKeyboard(t *testing.T, rec *Recorder, window string) *Keyboard {
	t.Helper()
	kb, err := NewKeyboard(rec, Timing{}, "f1", window, logging.NewNop())
	if err != nil {
		t.Fatalf("NewKeyboard: %v", err)
	}
	return kb
}

func TestNewKeyboardRejectsUnknownConsoleKey(t *testing.T) {
	_, err := NewKeyboard(NewRecorder(nil), Timing{}, "nope", "", nil)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestComboReleasesInReverseOrder(t *testing.T) {
	rec := NewRecorder(nil)
	kb := newTestKeyboard(t, rec, "")

	if err := kb.Combo(context.Background(), "keypad1+keypad2+f13"); err != nil {
		t.Fatalf("Combo: %v", err)
	}
	want := []string{"down:keypad1", "down:keypad2", "down:f13", "up:f13", "up:keypad2", "up:keypad1"}
	if got := rec.Strings(); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestComboUnknownKeySendsNothing(t *testing.T) {
	rec := NewRecorder(nil)
	kb := newTestKeyboard(t, rec, "")

	if err := kb.Combo(context.Background(), "keypad1+bogus"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("expected no events, got %v", rec.Strings())
	}
}

func TestInjectorFailureIsExternalTool(t *testing.T) {
	rec := NewRecorder(nil)
	rec.FailWith(errors.New("display closed"))
	kb := newTestKeyboard(t, rec, "")

	err := kb.Tap(context.Background(), "enter")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestConsoleSequence(t *testing.T) {
	rec := NewRecorder(nil)
	kb := newTestKeyboard(t, rec, "")

	err := kb.Do(context.Background(), func(s *Sequence) error {
		return s.Console("exec keys.cfg")
	})
	if err != nil {
		t.Fatalf("Console: %v", err)
	}
	want := []string{"down:f1", "up:f1", "type:exec keys.cfg", "down:enter", "up:enter", "down:f1", "up:f1"}
	if got := rec.Strings(); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
}

func TestTypeChunksLongText(t *testing.T) {
	rec := NewRecorder(nil)
	kb := newTestKeyboard(t, rec, "")

	text := "this message is definitely longer than sixteen runes"
	if err := kb.TypeAndEnter(context.Background(), text); err != nil {
		t.Fatalf("TypeAndEnter: %v", err)
	}
	var typed string
	events := rec.Events()
	for _, ev := range events[:len(events)-2] {
		if ev.Kind != "type" {
			t.Fatalf("unexpected event before enter: %v", ev)
		}
		typed += ev.Text
	}
	if typed != text {
		t.Fatalf("typed %q, want %q", typed, text)
	}
	if tail := rec.Strings()[len(events)-2:]; !slices.Equal(tail, []string{"down:enter", "up:enter"}) {
		t.Fatalf("expected enter last, got %v", tail)
	}
}

func TestTypeRejectsEmptyText(t *testing.T) {
	kb := newTestKeyboard(t, NewRecorder(nil), "")
	if err := kb.TypeAndEnter(context.Background(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSequencesDoNotInterleave(t *testing.T) {
	rec := NewRecorder(nil)
	kb, err := NewKeyboard(rec, Timing{KeyHold: time.Millisecond, ComboHold: 2 * time.Millisecond}, "f1", "", nil)
	if err != nil {
		t.Fatalf("NewKeyboard: %v", err)
	}

	var wg sync.WaitGroup
	for _, combo := range []string{"keypad1+keypad2", "f13+f14", "slash+comma"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := kb.Combo(context.Background(), combo); err != nil {
				t.Errorf("Combo(%s): %v", combo, err)
			}
		}()
	}
	wg.Wait()

	events := rec.Events()
	if len(events) != 12 {
		t.Fatalf("expected 12 events, got %v", rec.Strings())
	}
	for i := 0; i < len(events); i += 4 {
		a, b := events[i].Key, events[i+1].Key
		block := []string{events[i].String(), events[i+1].String(), events[i+2].String(), events[i+3].String()}
		want := []string{"down:" + a, "down:" + b, "up:" + b, "up:" + a}
		if !slices.Equal(block, want) {
			t.Fatalf("interleaved sequence %v", block)
		}
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	rec := NewRecorder(nil)
	kb, err := NewKeyboard(rec, Timing{ComboHold: time.Hour}, "f1", "", nil)
	if err != nil {
		t.Fatalf("NewKeyboard: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := kb.Combo(ctx, "keypad1+keypad2"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	want := []string{"down:keypad1", "down:keypad2", "up:keypad2", "up:keypad1"}
	if got := rec.Strings(); !slices.Equal(got, want) {
		t.Fatalf("keys must be released after cancellation, got %v", got)
	}
}

func TestFocus(t *testing.T) {
	rec := NewRecorder(nil)
	kb := newTestKeyboard(t, rec, "Rust")

	if got := kb.Focus(); got != FocusUnknown {
		t.Fatalf("focus without title = %s, want unknown", got)
	}
	rec.SetWindowTitle("Rust")
	if got := kb.Focus(); got != FocusGame {
		t.Fatalf("focus = %s, want game", got)
	}
	rec.SetWindowTitle("Terminal")
	if got := kb.Focus(); got != FocusOther {
		t.Fatalf("focus = %s, want other", got)
	}

	noWindow := newTestKeyboard(t, rec, "")
	if got := noWindow.Focus(); got != FocusUnknown {
		t.Fatalf("focus without configured window = %s, want unknown", got)
	}
}

func TestMemoryClipboard(t *testing.T) {
	var clip Clipboard = &MemoryClipboard{}
	if err := clip.WriteAll(`{"a": 1}`); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if got := clip.(*MemoryClipboard).Text(); got != `{"a": 1}` {
		t.Fatalf("Text = %q", got)
	}
}
