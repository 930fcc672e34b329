package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rustactions/internal/logging"
	"rustactions/internal/services"
)

// Focus values reported by Keyboard.Focus.
const (
	FocusGame    = "game"
	FocusOther   = "other"
	FocusUnknown = "unknown"
)

// typeChunk bounds how many characters are typed before pausing TypeDelay.
const typeChunk = 16

// Timing controls key hold and pacing durations.
type Timing struct {
	KeyHold     time.Duration
	ComboHold   time.Duration
	TypeDelay   time.Duration
	ReloadDelay time.Duration
}

// Keyboard serializes key sequences onto an Injector.
type Keyboard struct {
	mu         sync.Mutex
	inj        Injector
	timing     Timing
	consoleKey Key
	gameWindow string
	logger     *slog.Logger
}

// NewKeyboard wraps inj. consoleKey opens the in-game console; gameWindow is
// matched against the foreground window title to report focus.
func NewKeyboard(inj Injector, timing Timing, consoleKey, gameWindow string, logger *slog.Logger) (*Keyboard, error) {
	key, ok := LookupKey(consoleKey)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "input", "init", fmt.Sprintf("unknown console key %q", consoleKey), nil)
	}
	return &Keyboard{
		inj:        inj,
		timing:     timing,
		consoleKey: key,
		gameWindow: strings.TrimSpace(gameWindow),
		logger:     logging.NewComponentLogger(logger, "keyboard"),
	}, nil
}

// Backend names the underlying injector.
func (k *Keyboard) Backend() string {
	return k.inj.Name()
}

// Do runs fn with exclusive use of the keyboard. Every step fn takes through
// the Sequence lands before any other caller's input.
func (k *Keyboard) Do(ctx context.Context, fn func(*Sequence) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return fn(&Sequence{ctx: ctx, k: k})
}

// Tap presses and releases a single key.
func (k *Keyboard) Tap(ctx context.Context, name string) error {
	return k.Do(ctx, func(s *Sequence) error { return s.Tap(name) })
}

// Combo presses a "+"-joined key combination.
func (k *Keyboard) Combo(ctx context.Context, combo string) error {
	return k.Do(ctx, func(s *Sequence) error { return s.Combo(combo) })
}

// TypeAndEnter types text into the focused field and submits it.
func (k *Keyboard) TypeAndEnter(ctx context.Context, text string) error {
	return k.Do(ctx, func(s *Sequence) error {
		if err := s.Type(text); err != nil {
			return err
		}
		return s.Submit()
	})
}

// Focus reports whether the configured game window holds input focus. Any
// probe failure yields FocusUnknown; callers never fail on it.
func (k *Keyboard) Focus() string {
	titler, ok := k.inj.(WindowTitler)
	if !ok || k.gameWindow == "" {
		return FocusUnknown
	}
	title, err := titler.ActiveWindowTitle()
	if err != nil {
		k.logger.Debug("focus probe failed", logging.Error(err))
		return FocusUnknown
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(k.gameWindow)) {
		return FocusGame
	}
	return FocusOther
}

// Sequence is the handle passed to Do callbacks.
type Sequence struct {
	ctx context.Context
	k   *Keyboard
}

// Tap presses and releases one key, holding it for KeyHold.
func (s *Sequence) Tap(name string) error {
	key, ok := LookupKey(name)
	if !ok {
		return services.Validation("input", fmt.Sprintf("unknown key %q", name))
	}
	return s.tap(key)
}

func (s *Sequence) tap(key Key) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	if err := s.k.inj.KeyDown(key); err != nil {
		return injectError("key down", err)
	}
	holdErr := s.Sleep(s.k.timing.KeyHold)
	if err := s.k.inj.KeyUp(key); err != nil {
		return injectError("key up", err)
	}
	return holdErr
}

// Combo presses every key in order, holds for ComboHold, then releases in
// reverse order. Keys already pressed are released even when a later press
// fails.
func (s *Sequence) Combo(combo string) error {
	keys, err := ParseCombo(combo)
	if err != nil {
		return err
	}
	if err := s.ctx.Err(); err != nil {
		return err
	}
	pressed := make([]Key, 0, len(keys))
	release := func() error {
		var firstErr error
		for i := len(pressed) - 1; i >= 0; i-- {
			if err := s.k.inj.KeyUp(pressed[i]); err != nil && firstErr == nil {
				firstErr = injectError("key up", err)
			}
		}
		return firstErr
	}
	for _, key := range keys {
		if err := s.k.inj.KeyDown(key); err != nil {
			_ = release()
			return injectError("key down", err)
		}
		pressed = append(pressed, key)
	}
	holdErr := s.Sleep(s.k.timing.ComboHold)
	if err := release(); err != nil {
		return err
	}
	s.k.logger.Debug("combo sent", logging.String(logging.FieldCombo, combo))
	return holdErr
}

// Type enters text in chunks separated by TypeDelay.
func (s *Sequence) Type(text string) error {
	if text == "" {
		return services.Validation("input", "text must not be empty")
	}
	runes := []rune(text)
	for start := 0; start < len(runes); start += typeChunk {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		end := min(start+typeChunk, len(runes))
		if err := s.k.inj.TypeText(string(runes[start:end])); err != nil {
			return injectError("type", err)
		}
		if end < len(runes) {
			if err := s.Sleep(s.k.timing.TypeDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// Submit waits TypeDelay for typed text to settle and presses Enter.
func (s *Sequence) Submit() error {
	if err := s.Sleep(s.k.timing.TypeDelay); err != nil {
		return err
	}
	return s.Tap("enter")
}

// Console opens the in-game console, runs command, and closes it again.
func (s *Sequence) Console(command string) error {
	if err := s.tap(s.k.consoleKey); err != nil {
		return err
	}
	if err := s.Sleep(s.k.timing.ReloadDelay); err != nil {
		return err
	}
	if err := s.Type(command); err != nil {
		return err
	}
	if err := s.Tap("enter"); err != nil {
		return err
	}
	if err := s.Sleep(s.k.timing.ReloadDelay); err != nil {
		return err
	}
	return s.tap(s.k.consoleKey)
}

// Sleep pauses the sequence, returning early when the context ends.
func (s *Sequence) Sleep(d time.Duration) error {
	if d <= 0 {
		return s.ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-timer.C:
		return nil
	}
}

func injectError(op string, err error) error {
	return services.Wrap(services.ErrExternalTool, "input", op, "inject input", err)
}
