package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"rustactions/internal/config"
	"rustactions/internal/dispatch"
	"rustactions/internal/events"
	"rustactions/internal/history"
	"rustactions/internal/items"
	"rustactions/internal/keybinds"
	"rustactions/internal/logging"
	"rustactions/internal/recipes"
	"rustactions/internal/services"
	"rustactions/internal/steam"
	"rustactions/internal/tasks"
)

// Deps are the components the daemon serves. History may be nil; a nil
// Events gets a private hub.
type Deps struct {
	Items      *items.Store
	Binds      *keybinds.Manager
	Dispatcher *dispatch.Dispatcher
	Steam      *steam.Client
	History    *history.Store
	Events     *events.Hub
}

// Daemon holds the process lock and serves the HTTP API.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	// regenMu serializes craft bind regeneration after item changes.
	regenMu sync.Mutex

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	// runCtx ends when the daemon stops; detached work hangs off it.
	runCtx context.Context
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool             `json:"running"`
	PID            int              `json:"pid"`
	StartedAt      time.Time        `json:"started_at,omitzero"`
	Uptime         string           `json:"uptime,omitempty"`
	Address        string           `json:"address,omitempty"`
	InputBackend   string           `json:"input_backend"`
	Focus          string           `json:"focus"`
	ItemCount      int              `json:"item_count"`
	Binds          keybinds.Summary `json:"binds"`
	Tasks          []tasks.Status   `json:"tasks"`
	Syncing        bool             `json:"syncing"`
	HistoryEnabled bool             `json:"history_enabled"`
	EventClients   int              `json:"event_clients"`
	LockFilePath   string           `json:"lock_path"`
	DataDir        string           `json:"data_dir"`
}

// New constructs a daemon around deps.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || deps.Items == nil || deps.Binds == nil || deps.Dispatcher == nil || deps.Steam == nil {
		return nil, errors.New("daemon requires config, item store, keybind manager, dispatcher, and steam client")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	if deps.Events == nil {
		deps.Events = events.NewHub(logger)
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and starts the HTTP server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return services.Wrap(services.ErrState, "daemon", "start", "daemon already running", nil)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another rustactions daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.runCtx = runCtx
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.cancel = cancel
	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("rustactions daemon started",
		logging.String("lock_path", d.lockPath),
		logging.String("address", d.api.Addr()),
	)
	return nil
}

// Stop shuts the HTTP server and periodic tasks down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.deps.Dispatcher.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
		)
	}
	d.running.Store(false)
	d.logger.Info("rustactions daemon stopped")
}

// Close stops the daemon and closes the stores it was given.
func (d *Daemon) Close() error {
	d.Stop()
	d.deps.Events.Close()
	if d.deps.History != nil {
		return d.deps.History.Close()
	}
	return nil
}

// Handler exposes the HTTP routes, mainly for tests.
func (d *Daemon) Handler() http.Handler {
	return d.api.handler
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	s := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		InputBackend:   d.deps.Dispatcher.Backend(),
		Focus:          d.deps.Dispatcher.Focus(),
		ItemCount:      d.deps.Items.Len(),
		Binds:          d.deps.Binds.Summary(),
		Tasks:          d.deps.Dispatcher.Tasks().Statuses(),
		Syncing:        d.deps.Steam.Syncing(),
		HistoryEnabled: d.deps.History != nil,
		EventClients:   d.deps.Events.Clients(),
		LockFilePath:   d.lockPath,
		DataDir:        d.cfg.Paths.DataDir,
	}
	if s.Running {
		s.StartedAt = d.startedAt
		s.Uptime = time.Since(d.startedAt).Round(time.Second).String()
		s.Address = d.api.Addr()
	}
	return s
}

// Sync runs a content sync, bounded by steam.sync_timeout when set, and
// rebuilds the craft binds from the refreshed store.
func (d *Daemon) Sync(ctx context.Context) (steam.Result, error) {
	if timeout := d.cfg.SyncTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := d.deps.Steam.Sync(ctx)
	d.deps.Events.Publish(events.TypeSyncFinished, result)
	if err != nil {
		return result, err
	}
	if _, err := d.RegenerateCraftBinds(); err != nil {
		return result, err
	}
	return result, nil
}

// SyncDetached runs Sync for a caller that may go away mid-sync. Dropping
// the caller does not interrupt steamcmd; stopping the daemon does.
func (d *Daemon) SyncDetached(ctx context.Context) (steam.Result, error) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	if d.runCtx != nil {
		stop := context.AfterFunc(d.runCtx, cancel)
		defer stop()
	}
	return d.Sync(ctx)
}

// MergeRecipes merges src into the item store and rebuilds craft binds.
func (d *Daemon) MergeRecipes(src recipes.Source, mapping map[string]string) (recipes.Report, error) {
	report, err := recipes.Merge(d.deps.Items, src, mapping)
	if err != nil {
		return report, err
	}
	if _, err := d.RegenerateCraftBinds(); err != nil {
		return report, err
	}
	return report, nil
}

// RegenerateCraftBinds rebuilds the crafting range of keys.cfg from the
// item store.
func (d *Daemon) RegenerateCraftBinds() (int, error) {
	d.regenMu.Lock()
	defer d.regenMu.Unlock()
	n, err := d.deps.Binds.Generate(d.deps.Items.List(items.Filter{}))
	if err != nil {
		return 0, err
	}
	d.deps.Events.Publish(events.TypeBinds, map[string]any{"op": "generate", "summary": d.deps.Binds.Summary()})
	return n, nil
}
