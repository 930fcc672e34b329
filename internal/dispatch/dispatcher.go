package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"time"

	"rustactions/internal/events"
	"rustactions/internal/history"
	"rustactions/internal/input"
	"rustactions/internal/items"
	"rustactions/internal/keybinds"
	"rustactions/internal/logging"
	"rustactions/internal/services"
	"rustactions/internal/tasks"
)

// Result is the outcome of an action. It encodes as a flat JSON object
// merging Fields with the standard keys.
type Result struct {
	Success bool
	Action  string
	Message string
	// Focus is "game", "other" or "unknown" for actions that send input.
	Focus  string
	Fields map[string]any
}

// MarshalJSON flattens Fields into the envelope.
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+4)
	maps.Copy(out, r.Fields)
	out["success"] = r.Success
	out["action"] = r.Action
	out["message"] = r.Message
	if r.Focus != "" {
		out["focus"] = r.Focus
	}
	return json.Marshal(out)
}

// ActionSpec describes an action and the parameters it accepts.
type ActionSpec struct {
	Name   string      `json:"name"`
	Help   string      `json:"help"`
	Params []ParamSpec `json:"params"`
	// Input reports that the action sends keyboard input.
	Input bool `json:"input"`

	run func(ctx context.Context, d *Dispatcher, a args) (Result, error)
}

// Recorder persists executed actions.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Publisher receives action events.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Settings tunes periodic tasks.
type Settings struct {
	AntiAFKInterval time.Duration
	StackInterval   time.Duration
	StackIterations int
}

// Dispatcher runs actions against the keyboard, bind table and item store.
type Dispatcher struct {
	keyboard  *input.Keyboard
	binds     *keybinds.Manager
	store     *items.Store
	clipboard input.Clipboard
	recorder  Recorder
	publisher Publisher
	logger    *slog.Logger
	settings  Settings

	taskCtx context.Context
	tasks   *tasks.Registry
	actions map[string]ActionSpec
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithClipboard overrides the system clipboard.
func WithClipboard(c input.Clipboard) Option {
	return func(d *Dispatcher) { d.clipboard = c }
}

// WithRecorder records every execution.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithPublisher publishes every execution.
func WithPublisher(p Publisher) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.publisher = p
		}
	}
}

// WithTaskContext bounds periodic tasks by ctx instead of the background
// context.
func WithTaskContext(ctx context.Context) Option {
	return func(d *Dispatcher) { d.taskCtx = ctx }
}

// New builds a dispatcher.
func New(kb *input.Keyboard, binds *keybinds.Manager, store *items.Store, settings Settings, logger *slog.Logger, opts ...Option) *Dispatcher {
	if settings.StackIterations <= 0 {
		settings.StackIterations = defaultStackIterations
	}
	d := &Dispatcher{
		keyboard:  kb,
		binds:     binds,
		store:     store,
		clipboard: input.SystemClipboard{},
		logger:    logging.NewComponentLogger(logger, "dispatcher"),
		settings:  settings,
		taskCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.actions = make(map[string]ActionSpec, len(actionTable))
	for _, spec := range actionTable {
		d.actions[spec.Name] = spec
	}
	d.tasks = tasks.NewRegistry(
		tasks.New(TaskAntiAFK, settings.AntiAFKInterval, d.antiAFKTick, logger),
		tasks.New(TaskContinuousStack, settings.StackInterval, d.stackTick, logger),
	)
	return d
}

// Actions lists every action sorted by name.
func (d *Dispatcher) Actions() []ActionSpec {
	out := make([]ActionSpec, 0, len(d.actions))
	for _, spec := range d.actions {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Backend names the input backend in use.
func (d *Dispatcher) Backend() string {
	return d.keyboard.Backend()
}

// Focus probes the foreground window without sending input.
func (d *Dispatcher) Focus() string {
	return d.keyboard.Focus()
}

// Tasks exposes the periodic task registry.
func (d *Dispatcher) Tasks() *tasks.Registry {
	return d.tasks
}

// Close stops every periodic task.
func (d *Dispatcher) Close() {
	d.tasks.StopAll()
}

// Execute validates params and runs action. State errors raised by the
// action (stopping an idle task) are folded into a successful Result.
func (d *Dispatcher) Execute(ctx context.Context, action string, params Params) (Result, error) {
	spec, ok := d.actions[action]
	if !ok {
		return Result{}, services.Wrap(services.ErrNotFound, "dispatch", "execute", fmt.Sprintf("unknown action %q", action), nil)
	}
	if params == nil {
		params = Params{}
	}
	ctx = services.WithAction(ctx, action)
	logger := logging.WithContext(ctx, d.logger)
	start := time.Now()

	var (
		res Result
		err = validate(spec, params)
	)
	if err == nil {
		res, err = spec.run(ctx, d, args{params: params})
	}
	if err != nil && services.IsState(err) {
		res.Success, err = true, nil
	}
	res.Action = action
	if err == nil {
		res.Success = true
	}
	elapsed := time.Since(start)

	if err != nil {
		logger.Warn("action failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "action_failed"),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
	} else {
		attrs := []logging.Attr{logging.Duration("elapsed", elapsed)}
		if res.Focus != "" {
			attrs = append(attrs, logging.String("focus", res.Focus))
		}
		logger.Info("action dispatched", logging.Args(attrs...)...)
	}
	d.record(ctx, action, params, res, err, elapsed)
	return res, err
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "check the request parameters"
	case errors.Is(err, services.ErrNotFound):
		return "check the item id or name, or regenerate binds"
	case errors.Is(err, services.ErrExternalTool):
		return "check the input backend and that a desktop session is available"
	default:
		return "see daemon log for details"
	}
}

func (d *Dispatcher) record(ctx context.Context, action string, params Params, res Result, err error, elapsed time.Duration) {
	entry := history.Entry{
		Action:     action,
		Params:     params,
		Success:    err == nil,
		Message:    res.Message,
		Focus:      res.Focus,
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		entry.Error = services.Message(err)
	}
	if id, ok := services.RequestIDFromContext(ctx); ok {
		entry.RequestID = id
	}
	if d.recorder != nil {
		if _, recErr := d.recorder.Record(context.WithoutCancel(ctx), entry); recErr != nil {
			d.logger.Warn("history record failed",
				logging.Error(recErr),
				logging.String(logging.FieldEventType, "history_record_failed"),
				logging.String(logging.FieldErrorHint, "check the history database path and disk space"),
			)
		}
	}
	if d.publisher != nil {
		d.publisher.Publish(events.TypeAction, entry)
	}
}

// focus probes the foreground window and warns when it is not the game.
func (d *Dispatcher) focus(ctx context.Context) string {
	f := d.keyboard.Focus()
	if f == input.FocusOther {
		logging.WarnWithContext(logging.WithContext(ctx, d.logger), "game window not focused", "focus_other",
			logging.String("focus", f),
			logging.String(logging.FieldImpact, "input went to another window"),
		)
	}
	return f
}

// press runs the primary binds and then the feedback bind, if any, in one
// keyboard sequence.
func (d *Dispatcher) press(ctx context.Context, primary []string, feedback string) (string, error) {
	combos := make([]string, 0, len(primary)+1)
	for _, action := range slices.Concat(primary, []string{feedback}) {
		if action == "" {
			continue
		}
		combo, err := d.binds.Resolve(action)
		if err != nil {
			return "", err
		}
		combos = append(combos, combo)
	}
	focus := d.focus(ctx)
	err := d.keyboard.Do(ctx, func(s *input.Sequence) error {
		for _, combo := range combos {
			if err := s.Combo(combo); err != nil {
				return err
			}
		}
		return nil
	})
	return focus, err
}

// pressDynamic assigns a dynamic bind for kind/value, reloads keys.cfg in the
// game when the assignment is new, and presses it followed by feedback.
func (d *Dispatcher) pressDynamic(ctx context.Context, kind, value, feedback string) (keybinds.Assignment, string, error) {
	var fbCombo string
	if feedback != "" {
		combo, err := d.binds.Resolve(feedback)
		if err != nil {
			return keybinds.Assignment{}, "", err
		}
		fbCombo = combo
	}
	assignment, err := d.binds.AssignDynamic(kind, value)
	if err != nil {
		return keybinds.Assignment{}, "", err
	}
	focus := d.focus(ctx)
	err = d.keyboard.Do(ctx, func(s *input.Sequence) error {
		if assignment.Created {
			if err := s.Console("exec keys.cfg"); err != nil {
				return err
			}
		}
		if err := s.Combo(assignment.Combo); err != nil {
			return err
		}
		if fbCombo != "" {
			return s.Combo(fbCombo)
		}
		return nil
	})
	return assignment, focus, err
}
