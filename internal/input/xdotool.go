package input

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const xdotoolTimeout = 5 * time.Second

// Runner executes xdotool and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "xdotool", args...).Output() //nolint:gosec
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return out, err
	}
	return out, nil
}

// Xdotool injects input on X11 through the xdotool command.
type Xdotool struct {
	runner Runner
}

// NewXdotool builds an xdotool injector. A nil runner shells out to xdotool.
func NewXdotool(runner Runner) *Xdotool {
	if runner == nil {
		runner = execRunner{}
	}
	return &Xdotool{runner: runner}
}

func (x *Xdotool) Name() string { return BackendXdotool }

func (x *Xdotool) KeyDown(k Key) error {
	return x.run("keydown", "--clearmodifiers", k.Keysym)
}

func (x *Xdotool) KeyUp(k Key) error {
	return x.run("keyup", k.Keysym)
}

// TypeText types text with no per-character delay; Keyboard paces longer
// strings itself.
func (x *Xdotool) TypeText(text string) error {
	return x.run("type", "--delay", "0", "--", text)
}

// ActiveWindowTitle reports the focused window's name.
func (x *Xdotool) ActiveWindowTitle() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), xdotoolTimeout)
	defer cancel()
	out, err := x.runner.Run(ctx, "getactivewindow", "getwindowname")
	if err != nil {
		return "", fmt.Errorf("xdotool getactivewindow: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (x *Xdotool) run(args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), xdotoolTimeout)
	defer cancel()
	if _, err := x.runner.Run(ctx, args...); err != nil {
		return fmt.Errorf("xdotool %s: %w", args[0], err)
	}
	return nil
}
