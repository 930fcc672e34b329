package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"rustactions/internal/logging"
	"rustactions/internal/services"
)

// Func is one tick of work. Errors are logged and recorded; the task keeps
// running.
type Func func(ctx context.Context) error

// States reported in Status.
const (
	StateIdle    = "idle"
	StateRunning = "running"
)

// Status is a snapshot of a task.
type Status struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Running   bool      `json:"running"`
	Interval  string    `json:"interval"`
	StartedAt time.Time `json:"started_at,omitzero"`
	LastRun   time.Time `json:"last_run,omitzero"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
}

// Task runs fn every interval while started.
type Task struct {
	name     string
	interval time.Duration
	fn       Func
	logger   *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
	lastRun   time.Time
	runs      int
	failures  int
	lastErr   string
}

// New builds an idle task. Non-positive intervals default to one second.
func New(name string, interval time.Duration, fn Func, logger *slog.Logger) *Task {
	if interval <= 0 {
		interval = time.Second
	}
	return &Task{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logging.NewComponentLogger(logger, "tasks").With(logging.Action(name)),
	}
}

// Name returns the task name.
func (t *Task) Name() string { return t.name }

// Start launches the task under ctx, running fn immediately and then every
// interval. It reports whether the task was idle; a running task is left
// alone.
func (t *Task) Start(ctx context.Context) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return t.statusLocked(), false
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.startedAt = time.Now()
	t.runs, t.failures, t.lastErr = 0, 0, ""
	go t.loop(runCtx, t.done)
	t.logger.Info("task started", logging.Duration("interval", t.interval))
	return t.statusLocked(), true
}

// Stop cancels a running task and waits for the in-flight tick to finish.
func (t *Task) Stop() (Status, error) {
	t.mu.Lock()
	if t.cancel == nil {
		status := t.statusLocked()
		t.mu.Unlock()
		return status, services.Wrap(services.ErrState, "tasks", "stop", fmt.Sprintf("%s is not running", t.name), nil)
	}
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel, t.done = nil, nil
	t.startedAt = time.Time{}
	t.logger.Info("task stopped", logging.Int("runs", t.runs))
	return t.statusLocked(), nil
}

// Status returns a snapshot.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

func (t *Task) statusLocked() Status {
	s := Status{
		Name:      t.name,
		State:     StateIdle,
		Interval:  t.interval.String(),
		StartedAt: t.startedAt,
		LastRun:   t.lastRun,
		Runs:      t.runs,
		Failures:  t.failures,
		LastError: t.lastErr,
	}
	if t.cancel != nil {
		s.State, s.Running = StateRunning, true
	}
	return s
}

func (t *Task) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	t.tick(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Task) tick(ctx context.Context) {
	err := t.fn(ctx)
	if ctx.Err() != nil {
		return
	}
	t.mu.Lock()
	t.runs++
	t.lastRun = time.Now()
	if err != nil {
		t.failures++
		t.lastErr = services.Message(err)
	}
	t.mu.Unlock()
	if err != nil {
		t.logger.Warn("task tick failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "task_tick_failed"),
			logging.String(logging.FieldErrorHint, "check that the game window is focused"),
		)
	}
}

// Registry holds the daemon's tasks by name.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

// NewRegistry returns a registry holding tasks.
func NewRegistry(tasks ...*Task) *Registry {
	r := &Registry{tasks: make(map[string]*Task, len(tasks))}
	for _, task := range tasks {
		r.tasks[task.Name()] = task
	}
	return r
}

// Get returns a task by name.
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[name]
	return task, ok
}

// Statuses lists every task sorted by name.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	list := make([]*Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		list = append(list, task)
	}
	r.mu.Unlock()
	out := make([]Status, 0, len(list))
	for _, task := range list {
		out = append(out, task.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StopAll stops every running task.
func (r *Registry) StopAll() {
	r.mu.Lock()
	list := make([]*Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		list = append(list, task)
	}
	r.mu.Unlock()
	for _, task := range list {
		_, _ = task.Stop()
	}
}
