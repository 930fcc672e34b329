package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"rustactions/internal/config"
	"rustactions/internal/daemon"
	"rustactions/internal/dispatch"
	"rustactions/internal/events"
	"rustactions/internal/history"
	"rustactions/internal/input"
	"rustactions/internal/items"
	"rustactions/internal/keybinds"
	"rustactions/internal/logging"
	"rustactions/internal/logs"
	"rustactions/internal/notifications"
	"rustactions/internal/preflight"
	"rustactions/internal/steam"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the rustactions daemon and blocks until the context is
// cancelled or the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("rustactions-%s.log", runID))
	level := opts.LogLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	console, err := logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		Development:      opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runHandler, runLog, err := logging.OpenRunLog(logPath, level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer runLog.Close()
	logger := logging.TeeLogger(console, runHandler)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update rustactions.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "rustactions-*.log", Exclude: []string{logPath}},
	)
	logPreflight(signalCtx, logger, cfg)

	pidPath := filepath.Join(cfg.Paths.LogDir, "rustactions.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := items.Open(cfg.ItemDatabasePath(), logger)
	if err != nil {
		logger.Error("open item store", logging.Error(err))
		return err
	}

	binds, err := keybinds.New(cfg.Paths.KeysCfg, logger)
	if err != nil {
		return fmt.Errorf("load keybinds: %w", err)
	}
	if _, err := binds.Generate(store.List(items.Filter{})); err != nil {
		logging.WarnWithContext(logger, "keys.cfg generation failed", "keybind_generate_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the keys.cfg directory is writable"),
			logging.String(logging.FieldImpact, "craft binds are unavailable until regenerated"),
		)
	}

	injector, err := input.New(cfg.Input.Backend, logger)
	if err != nil {
		return fmt.Errorf("init input backend: %w", err)
	}
	keyboard, err := input.NewKeyboard(injector, input.Timing{
		KeyHold:     cfg.KeyHold(),
		ComboHold:   cfg.ComboHold(),
		TypeDelay:   cfg.TypeDelay(),
		ReloadDelay: cfg.ReloadDelay(),
	}, cfg.Input.ConsoleKey, cfg.Input.GameWindow, logger)
	if err != nil {
		return fmt.Errorf("init keyboard: %w", err)
	}

	hub := events.NewHub(logger)
	dispatchOpts := []dispatch.Option{
		dispatch.WithClipboard(input.SystemClipboard{}),
		dispatch.WithPublisher(hub),
		dispatch.WithTaskContext(signalCtx),
	}
	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.HistoryPath(), cfg.History.MaxRows)
		if err != nil {
			logging.WarnWithContext(logger, "action history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "actions are not recorded"),
			)
		} else {
			dispatchOpts = append(dispatchOpts, dispatch.WithRecorder(hist))
		}
	}

	dispatcher := dispatch.New(keyboard, binds, store, dispatch.Settings{
		AntiAFKInterval: cfg.AntiAFKInterval(),
		StackInterval:   cfg.StackInterval(),
		StackIterations: cfg.Tasks.StackIterations,
	}, logger, dispatchOpts...)

	relay := newProgressRelay(hub, logger)
	client := steam.NewClient(cfg, store, logger, steam.WithProgressFunc(relay.report))

	deps := daemon.Deps{
		Items:      store,
		Binds:      binds,
		Dispatcher: dispatcher,
		Steam:      client,
		History:    hist,
		Events:     hub,
	}
	d, err := daemon.New(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.api_bind and whether another daemon holds the lock"),
		)
		return err
	}

	if cfg.Notifications.NtfyTopic != "" {
		go notifications.Forward(signalCtx, hub, notifications.NewService(cfg),
			notifications.Options{ActionFailures: cfg.Notifications.ActionFailures}, logger)
	}

	<-signalCtx.Done()
	logger.Info("rustactions daemon shutting down")
	return nil
}

// progressRelay samples steamcmd progress into log lines and
// sync_progress events.
type progressRelay struct {
	mu      sync.Mutex
	sampler *logging.ProgressSampler
	hub     *events.Hub
	logger  *slog.Logger
	last    float64
}

func newProgressRelay(hub *events.Hub, logger *slog.Logger) *progressRelay {
	return &progressRelay{
		sampler: logging.NewProgressSampler(10),
		hub:     hub,
		logger:  logging.NewComponentLogger(logger, "steam"),
	}
}

func (r *progressRelay) report(p steam.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// A lower percentage means a new sync run started.
	if p.Percent >= 0 && p.Percent < r.last {
		r.sampler.Reset()
	}
	r.last = p.Percent
	if !r.sampler.ShouldLog(p.Percent, p.Stage) {
		return
	}
	r.logger.Info("sync progress",
		logging.String(logging.FieldEventType, "sync_progress"),
		logging.String("stage", p.Stage),
		logging.Float64("percent", p.Percent),
	)
	r.hub.Publish(events.TypeSyncProgress, p)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, r := range preflight.RunAll(ctx, cfg) {
		if r.Passed {
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
		)
	}
	for _, s := range preflight.CheckSystemDeps(cfg) {
		logger.Info("dependency snapshot",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("dependency", s.Name),
			logging.String("command", s.Command),
			logging.Bool("available", s.Available),
			logging.Bool("optional", s.Optional),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := logs.CurrentPath(logDir)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
