package steam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rustactions/internal/config"
	"rustactions/internal/deps"
	"rustactions/internal/fileutil"
	"rustactions/internal/items"
	"rustactions/internal/logging"
	"rustactions/internal/recipes"
	"rustactions/internal/services"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"

	installTestTimeout = 10 * time.Second
)

// Result summarizes one sync run.
type Result struct {
	RunID           string          `json:"run_id"`
	Status          string          `json:"status"`
	ItemsFetched    int             `json:"items_fetched"`
	ImagesFetched   int             `json:"images_fetched"`
	Skipped         int             `json:"skipped,omitempty"`
	Recipes         *recipes.Report `json:"recipes,omitempty"`
	DurationSeconds float64         `json:"duration_seconds"`
	Error           string          `json:"error,omitempty"`
}

// Status is the login and database summary reported by /steam/status.
type Status struct {
	Username    string      `json:"username"`
	LoggedIn    bool        `json:"logged_in"`
	LastLogin   time.Time   `json:"last_login,omitzero"`
	Syncing     bool        `json:"syncing"`
	SteamCMD    deps.Status `json:"steamcmd"`
	ItemCount   int         `json:"item_count"`
	LastUpdated time.Time   `json:"last_updated,omitzero"`
	Source      string      `json:"source,omitempty"`
}

// Installation reports whether steamcmd can run and where game files live.
type Installation struct {
	SteamCMD   deps.Status `json:"steamcmd"`
	Executable bool        `json:"is_executable"`
	InstallDir string      `json:"install_dir"`
	ItemsDir   string      `json:"items_dir,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Client coordinates logins, syncs, and database resets.
type Client struct {
	cfg      *config.Config
	tool     *SteamCMD
	fetcher  Fetcher
	store    *items.Store
	sessions SessionStore
	logger   *slog.Logger
	progress func(Progress)

	syncMu  sync.Mutex
	syncing bool
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	exec     Executor
	fetcher  Fetcher
	sessions SessionStore
	progress func(Progress)
}

// WithCommandExecutor overrides how steamcmd is run.
func WithCommandExecutor(exec Executor) ClientOption {
	return func(o *clientOptions) { o.exec = exec }
}

// WithFetcher replaces the steamcmd download step.
func WithFetcher(f Fetcher) ClientOption {
	return func(o *clientOptions) { o.fetcher = f }
}

// WithSessionStore overrides where login state is kept.
func WithSessionStore(s SessionStore) ClientOption {
	return func(o *clientOptions) { o.sessions = s }
}

// WithProgressFunc receives download and import progress.
func WithProgressFunc(fn func(Progress)) ClientOption {
	return func(o *clientOptions) { o.progress = fn }
}

// NewClient builds a Client for cfg writing into store.
func NewClient(cfg *config.Config, store *items.Store, logger *slog.Logger, opts ...ClientOption) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.NewComponentLogger(logger, "steam")

	binary := deps.ResolveSteamCMD(cfg.Steam.SteamCMDPath, cfg.Steam.InstallDir).Command
	toolOpts := []Option{WithProgress(o.progress)}
	if o.exec != nil {
		toolOpts = append(toolOpts, WithExecutor(o.exec))
	}
	tool := NewSteamCMD(binary, cfg.Steam.InstallDir, cfg.Steam.AppID, logger, toolOpts...)

	c := &Client{
		cfg:      cfg,
		tool:     tool,
		fetcher:  o.fetcher,
		store:    store,
		sessions: o.sessions,
		logger:   logger,
		progress: o.progress,
	}
	if c.fetcher == nil {
		c.fetcher = tool
	}
	if c.sessions == nil {
		c.sessions = NewFileSessionStore(cfg.SessionPath())
	}
	return c
}

// Login forwards credentials to steamcmd and records a successful login.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := c.tool.Login(ctx, creds); err != nil {
		return Session{}, err
	}
	session := Session{Username: strings.TrimSpace(creds.Username), LoggedIn: true, LastLogin: time.Now().UTC()}
	if err := c.sessions.Save(session); err != nil {
		return Session{}, services.Wrap(services.ErrIO, "steam", "login", "save session", err)
	}
	c.logger.Info("steam login succeeded", logging.String(logging.FieldEventType, "steam_login"), logging.String("username", session.Username))
	return session, nil
}

// Logout forgets in-memory credentials and removes the session file.
func (c *Client) Logout() error {
	c.tool.Forget()
	if err := c.sessions.Clear(); err != nil {
		return services.Wrap(services.ErrIO, "steam", "logout", "clear session", err)
	}
	c.logger.Info("steam logout", logging.String(logging.FieldEventType, "steam_logout"))
	return nil
}

// Status reports login state, steamcmd availability, and database metadata.
func (c *Client) Status() (Status, error) {
	session, err := c.sessions.Load()
	if err != nil {
		return Status{}, services.Wrap(services.ErrIO, "steam", "status", "load session", err)
	}
	meta := c.store.Metadata()
	c.syncMu.Lock()
	syncing := c.syncing
	c.syncMu.Unlock()
	return Status{
		Username:    session.Username,
		LoggedIn:    session.LoggedIn,
		LastLogin:   session.LastLogin,
		Syncing:     syncing,
		SteamCMD:    deps.ResolveSteamCMD(c.cfg.Steam.SteamCMDPath, c.cfg.Steam.InstallDir),
		ItemCount:   meta.ItemCount,
		LastUpdated: meta.LastUpdated,
		Source:      meta.Source,
	}, nil
}

// TestInstallation checks that steamcmd resolves and starts.
func (c *Client) TestInstallation(ctx context.Context) Installation {
	result := Installation{
		SteamCMD:   deps.ResolveSteamCMD(c.cfg.Steam.SteamCMDPath, c.cfg.Steam.InstallDir),
		InstallDir: c.cfg.Steam.InstallDir,
	}
	if dir, ok := LocateItemsDir(c.cfg.Steam.InstallDir); ok {
		result.ItemsDir = dir
	}
	if !result.SteamCMD.Available {
		result.Error = result.SteamCMD.Detail
		return result
	}
	testCtx, cancel := context.WithTimeout(ctx, installTestTimeout)
	defer cancel()
	if err := c.tool.exec.Run(testCtx, result.SteamCMD.Command, []string{"+quit"}, nil); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Executable = true
	return result
}

// Syncing reports whether a sync is in flight.
func (c *Client) Syncing() bool {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()
	return c.syncing
}

// Sync downloads the game assets and rebuilds the item database from them.
// It blocks until the run finishes; a second concurrent call fails with a
// state error.
func (c *Client) Sync(ctx context.Context) (Result, error) {
	c.syncMu.Lock()
	if c.syncing {
		c.syncMu.Unlock()
		return Result{}, services.Wrap(services.ErrState, "steam", "sync", "sync already running", nil)
	}
	c.syncing = true
	c.syncMu.Unlock()
	defer func() {
		c.syncMu.Lock()
		c.syncing = false
		c.syncMu.Unlock()
	}()

	start := time.Now()
	result := Result{RunID: uuid.NewString(), Status: StatusFailed}
	logger := c.logger.With(logging.String(logging.FieldCorrelationID, result.RunID))
	logger.Info("sync started", logging.String(logging.FieldEventType, "sync_start"))

	err := c.sync(ctx, logger, &result)
	result.DurationSeconds = time.Since(start).Seconds()
	if err != nil {
		result.Error = services.Message(err)
		logging.ErrorWithContext(logger, "sync failed", "sync_failed",
			logging.String(logging.FieldErrorHint, "check steam login and steamcmd output"),
			logging.Error(err),
		)
		return result, err
	}
	result.Status = StatusOK
	logger.Info("sync finished",
		logging.String(logging.FieldEventType, "sync_complete"),
		logging.Int("items_fetched", result.ItemsFetched),
		logging.Int("images_fetched", result.ImagesFetched),
		logging.Duration("sync_duration", time.Since(start)),
	)
	return result, nil
}

func (c *Client) sync(ctx context.Context, logger *slog.Logger, result *Result) error {
	if c.tool.credentials().Username == "" {
		if session, err := c.sessions.Load(); err == nil && session.LoggedIn && session.Username != "" {
			c.tool.Remember(Credentials{Username: session.Username})
		}
	}

	c.report(Progress{Stage: "downloading", Percent: 0, Message: "running steamcmd"})
	fetched, err := c.fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, services.ErrSync) {
			return err
		}
		return services.Wrap(services.ErrSync, "steam", "fetch", "download item content", err)
	}

	c.report(Progress{Stage: "importing", Percent: 100, Message: "reading item definitions"})
	recs, imported, err := ImportBundles(fetched.ItemsDir)
	if err != nil {
		return services.Wrap(services.ErrSync, "steam", "import", "read item definitions", err)
	}
	result.Skipped = imported.Skipped
	if err := c.store.ReplaceAll(recs, items.Metadata{Source: "steamcmd"}); err != nil {
		return err
	}
	result.ItemsFetched = len(recs)

	images, err := fileutil.CopyMatching(fetched.ItemsDir, c.cfg.ImagesDir(), "*.png")
	result.ImagesFetched = images
	if err != nil {
		return services.Wrap(services.ErrIO, "steam", "images", "copy item images", err)
	}

	craftingPath := c.cfg.CraftingDataPath()
	if _, statErr := os.Stat(craftingPath); statErr != nil {
		logger.Debug("no crafting data to merge", logging.String("crafting_path", craftingPath))
		return nil
	}
	c.report(Progress{Stage: "merging", Percent: 100, Message: "merging crafting data"})
	src, err := recipes.LoadSource(craftingPath)
	if err != nil {
		logging.WarnWithContext(logger, "crafting data unreadable", "recipes_skipped",
			logging.String(logging.FieldErrorHint, "regenerate the crafting data file"),
			logging.String(logging.FieldImpact, "items keep empty ingredient lists"),
			logging.Error(err),
		)
		return nil
	}
	report, err := recipes.Merge(c.store, src, nil)
	if err != nil {
		return err
	}
	result.Recipes = &report
	logger.Info("recipes merged",
		logging.Int("matched", report.Matched),
		logging.Int("unmatched", report.Unmatched),
		logging.Int("updated", report.Updated),
	)
	return nil
}

func (c *Client) report(p Progress) {
	if c.progress != nil {
		c.progress(p)
	}
}

// ResetDatabase removes the item database, images, the default crafting
// data file, and the login session.
func (c *Client) ResetDatabase() error {
	if c.Syncing() {
		return services.Wrap(services.ErrState, "steam", "reset", "sync in progress", nil)
	}
	if err := c.store.Clear(); err != nil {
		return err
	}
	var errs []error
	if err := os.RemoveAll(c.cfg.ImagesDir()); err != nil {
		errs = append(errs, fmt.Errorf("remove images: %w", err))
	}
	defaultCrafting := (&config.Config{Paths: c.cfg.Paths}).CraftingDataPath()
	if err := os.Remove(defaultCrafting); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove crafting data: %w", err))
	}
	if err := c.Logout(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return services.Wrap(services.ErrIO, "steam", "reset", "remove data files", err)
	}
	c.logger.Info("item database reset", logging.String(logging.FieldEventType, "database_reset"))
	return nil
}
