package input

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"rustactions/internal/logging"
	"rustactions/internal/services"
)

// Injector sends key events to whichever window holds input focus.
type Injector interface {
	Name() string
	KeyDown(Key) error
	KeyUp(Key) error
	TypeText(text string) error
}

// WindowTitler is implemented by injectors that can report the title of the
// foreground window.
type WindowTitler interface {
	ActiveWindowTitle() (string, error)
}

// Backend names accepted by New.
const (
	BackendAuto      = "auto"
	BackendXdotool   = "xdotool"
	BackendSendInput = "sendinput"
	BackendNone      = "none"
)

// New selects an injector. "auto" prefers SendInput on Windows, then xdotool,
// and falls back to a logging Recorder when neither is usable.
func New(backend string, logger *slog.Logger) (Injector, error) {
	logger = logging.NewComponentLogger(logger, "input")
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendAuto:
		if runtime.GOOS == "windows" {
			return newSendInput()
		}
		if _, err := exec.LookPath("xdotool"); err == nil {
			return NewXdotool(nil), nil
		}
		logging.WarnWithContext(logger, "no input backend available", "input_unavailable",
			logging.String(logging.FieldErrorHint, "install xdotool or set input.backend"),
			logging.String(logging.FieldImpact, "actions are logged but not sent to the game"),
		)
		return NewRecorder(logger), nil
	case BackendXdotool:
		if _, err := exec.LookPath("xdotool"); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "input", "init", "xdotool not found on PATH", err)
		}
		return NewXdotool(nil), nil
	case BackendSendInput:
		return newSendInput()
	case BackendNone:
		return NewRecorder(logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "input", "init", fmt.Sprintf("unsupported backend %q", backend), nil)
	}
}

// Event is one injected action captured by a Recorder.
type Event struct {
	Kind string `json:"kind"`
	Key  string `json:"key,omitempty"`
	Text string `json:"text,omitempty"`
}

// String renders the event compactly, as "down:f1" or "type:exec keys.cfg".
func (e Event) String() string {
	if e.Kind == "type" {
		return "type:" + e.Text
	}
	return e.Kind + ":" + e.Key
}

// Recorder is an Injector that records events instead of sending them.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	title  string
	fail   error
	logger *slog.Logger
}

// NewRecorder returns an empty Recorder. A nil logger records silently.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Recorder{logger: logger}
}

func (r *Recorder) Name() string { return BackendNone }

func (r *Recorder) KeyDown(k Key) error { return r.record(Event{Kind: "down", Key: k.Name}) }

func (r *Recorder) KeyUp(k Key) error { return r.record(Event{Kind: "up", Key: k.Name}) }

func (r *Recorder) TypeText(text string) error { return r.record(Event{Kind: "type", Text: text}) }

func (r *Recorder) record(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.events = append(r.events, ev)
	r.logger.Debug("input recorded", logging.String("event", ev.String()))
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Strings returns the recorded events in String form.
func (r *Recorder) Strings() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.String()
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// SetWindowTitle fixes the title reported by ActiveWindowTitle.
func (r *Recorder) SetWindowTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.title = title
}

// FailWith makes every later event return err; nil clears it.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = err
}

// ActiveWindowTitle returns the title set by SetWindowTitle, or an error when
// none was set.
func (r *Recorder) ActiveWindowTitle() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.title == "" {
		return "", fmt.Errorf("no window title recorded")
	}
	return r.title, nil
}
