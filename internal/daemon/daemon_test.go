package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rustactions/internal/config"
	"rustactions/internal/daemon"
	"rustactions/internal/dispatch"
	"rustactions/internal/history"
	"rustactions/internal/input"
	"rustactions/internal/items"
	"rustactions/internal/keybinds"
	"rustactions/internal/logging"
	"rustactions/internal/steam"
	"rustactions/internal/testsupport"
)

type harness struct {
	cfg    *config.Config
	daemon *daemon.Daemon
	items  *items.Store
	binds  *keybinds.Manager
	rec    *input.Recorder
}

type noFetch struct{}

// blockingFetch holds Fetch open until released or its context ends.
type blockingFetch struct {
	entered chan context.Context
	release chan struct{}
}

func newBlockingFetch() *blockingFetch {
	return &blockingFetch{entered: make(chan context.Context, 1), release: make(chan struct{})}
}

func (f *blockingFetch) Fetch(ctx context.Context) (steam.FetchResult, error) {
	f.entered <- ctx
	select {
	case <-ctx.Done():
		return steam.FetchResult{}, ctx.Err()
	case <-f.release:
		return steam.FetchResult{}, errors.New("no content")
	}
}

func (noFetch) Fetch(context.Context) (steam.FetchResult, error) {
	return steam.FetchResult{}, context.Canceled
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	return newHarnessWithFetcher(t, cfg, noFetch{})
}

func newHarnessWithFetcher(t *testing.T, cfg *config.Config, fetcher steam.Fetcher) *harness {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	logger := logging.NewNop()
	store := testsupport.MustOpenItems(t, cfg, testsupport.SampleItems()...)
	binds, err := keybinds.New(cfg.Paths.KeysCfg, logger)
	if err != nil {
		t.Fatalf("keybinds.New: %v", err)
	}
	if _, err := binds.Generate(store.List(items.Filter{})); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	rec := input.NewRecorder(nil)
	rec.SetWindowTitle("Rust")
	kb, err := input.NewKeyboard(rec, input.Timing{}, "f1", "Rust", logger)
	if err != nil {
		t.Fatalf("NewKeyboard: %v", err)
	}

	deps := daemon.Deps{Items: store, Binds: binds}
	opts := []dispatch.Option{dispatch.WithClipboard(&input.MemoryClipboard{})}
	if cfg.History.Enabled {
		hist, err := history.Open(cfg.HistoryPath(), cfg.History.MaxRows)
		if err != nil {
			t.Fatalf("history.Open: %v", err)
		}
		deps.History = hist
		opts = append(opts, dispatch.WithRecorder(hist))
	}
	deps.Dispatcher = dispatch.New(kb, binds, store, dispatch.Settings{
		AntiAFKInterval: time.Hour,
		StackInterval:   time.Hour,
		StackIterations: 1,
	}, logger, opts...)
	deps.Steam = steam.NewClient(cfg, store, logger, steam.WithFetcher(fetcher))

	d, err := daemon.New(cfg, deps, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return &harness{cfg: cfg, daemon: d, items: store, binds: binds, rec: rec}
}

func TestNewRequiresDeps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Deps{}, logging.NewNop()); err == nil {
		t.Fatal("expected error for missing deps")
	}
}

func TestDaemonStartStop(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := h.daemon.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := h.daemon.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.Address == "" || status.ItemCount != len(testsupport.SampleItems()) {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.InputBackend != input.BackendNone || status.Focus != input.FocusGame {
		t.Fatalf("unexpected input status %+v", status)
	}
	if len(status.Tasks) != 2 {
		t.Fatalf("expected two tasks, got %+v", status.Tasks)
	}

	if err := h.daemon.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	h.daemon.Stop()
	if h.daemon.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newHarness(t, cfg)
	second := newHarness(t, cfg)
	ctx := context.Background()

	if err := first.daemon.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.daemon.Start(ctx); err == nil {
		t.Fatal("expected second daemon to fail while the lock is held")
	}
	first.daemon.Stop()
	if err := second.daemon.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.daemon.Stop()
}

func TestRegenerateCraftBindsFollowsStore(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	rope := items.Record{ItemID: "rope", Name: "Rope", Category: "Resources", StackSize: 50, NumericID: 1414245522,
		Ingredients: []items.Ingredient{{ItemID: "wood", Quantity: 5}}}
	if _, err := h.items.Upsert(rope); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, ok := h.binds.CraftBinding("rope"); ok {
		t.Fatal("craft bind should not exist before regeneration")
	}
	n, err := h.daemon.RegenerateCraftBinds()
	if err != nil {
		t.Fatalf("RegenerateCraftBinds: %v", err)
	}
	if n != len(h.binds.CraftBinds()) || n < 4 {
		t.Fatalf("generated %d binds, manager holds %d", n, len(h.binds.CraftBinds()))
	}
	if _, ok := h.binds.CraftBinding("rope"); !ok {
		t.Fatal("expected craft bind for rope")
	}
}

func TestSyncFailureReturnsError(t *testing.T) {
	h := newHarness(t, testsupport.NewConfig(t))
	result, err := h.daemon.Sync(context.Background())
	if err == nil {
		t.Fatal("expected sync to fail without content")
	}
	if result.Status == "" {
		t.Fatalf("expected a result status, got %+v", result)
	}
	if h.items.Len() != len(testsupport.SampleItems()) {
		t.Fatal("failed sync must not change the store")
	}
}

func TestSyncSurvivesClientDisconnect(t *testing.T) {
	fetcher := newBlockingFetch()
	h := newHarnessWithFetcher(t, testsupport.NewConfig(t), fetcher)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/steam/sync", nil).WithContext(reqCtx)
	rr := httptest.NewRecorder()
	served := make(chan struct{})
	go func() {
		h.daemon.Handler().ServeHTTP(rr, req)
		close(served)
	}()

	var fetchCtx context.Context
	select {
	case fetchCtx = <-fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("sync never reached the fetcher")
	}
	cancelReq()
	time.Sleep(50 * time.Millisecond)
	if err := fetchCtx.Err(); err != nil {
		t.Fatalf("client disconnect cancelled the sync: %v", err)
	}

	close(fetcher.release)
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after the fetch finished")
	}
}

func TestDaemonStopCancelsDetachedSync(t *testing.T) {
	fetcher := newBlockingFetch()
	h := newHarnessWithFetcher(t, testsupport.NewConfig(t), fetcher)
	if err := h.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.daemon.SyncDetached(context.Background())
		done <- err
	}()
	select {
	case <-fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("sync never reached the fetcher")
	}

	h.daemon.Stop()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected the sync to fail once the daemon stopped")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon stop did not cancel the sync")
	}
}
