package steam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"rustactions/internal/config"
	"rustactions/internal/logging"
	"rustactions/internal/services"
	"rustactions/internal/testsupport"
)

type stubExecutor struct {
	mu    sync.Mutex
	calls [][]string
	lines []string
	err   error
}

func (s *stubExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	s.mu.Lock()
	s.calls = append(s.calls, append([]string{binary}, args...))
	lines := slices.Clone(s.lines)
	err := s.err
	s.mu.Unlock()
	for _, line := range lines {
		if onLine != nil {
			onLine(line)
		}
	}
	return err
}

func (s *stubExecutor) lastCall() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

type stubFetcher struct {
	dir     string
	err     error
	release chan struct{}
	started chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context) (FetchResult, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return FetchResult{}, ctx.Err()
		}
	}
	if f.err != nil {
		return FetchResult{}, f.err
	}
	return FetchResult{ItemsDir: f.dir}, nil
}

func newTestClient(t *testing.T, cfg *config.Config, opts ...ClientOption) *Client {
	t.Helper()
	store := testsupport.MustOpenItems(t, cfg)
	return NewClient(cfg, store, logging.NewNop(), opts...)
}

func writeSampleBundle(t *testing.T, cfg *config.Config) string {
	t.Helper()
	return testsupport.WriteBundle(t, cfg.Steam.InstallDir, map[string]map[string]any{
		"wood":         {"itemid": -151838493, "shortname": "wood", "Name": "Wood", "Category": "resources", "stacksize": 1000},
		"stonehatchet": {"itemid": -262590403, "shortname": "stonehatchet", "Name": "Stone Hatchet", "Description": "Chops trees.", "Category": "TOOL"},
		"hatchet":      {"itemid": 1326180354, "shortname": "hatchet", "Name": "Hatchet", "Category": "Tool"},
	})
}

func TestLoginForwardsPasswordButNeverPersistsIt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &stubExecutor{lines: []string{"Logging in user 'rustfan' to Steam Public...OK"}}
	client := newTestClient(t, cfg, WithCommandExecutor(runner))

	session, err := client.Login(context.Background(), Credentials{Username: " rustfan ", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !session.LoggedIn || session.Username != "rustfan" {
		t.Fatalf("unexpected session: %+v", session)
	}
	call := runner.lastCall()
	if !slices.Contains(call, "hunter2") || call[len(call)-1] != "+quit" {
		t.Fatalf("expected password forwarded to steamcmd, got %v", call)
	}

	data, err := os.ReadFile(cfg.SessionPath())
	if err != nil {
		t.Fatalf("read session: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Fatalf("password persisted in session file: %s", data)
	}
	info, err := os.Stat(cfg.SessionPath())
	if err != nil {
		t.Fatalf("stat session: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 session file, got %o", info.Mode().Perm())
	}

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.LoggedIn || status.Username != "rustfan" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newTestClient(t, cfg, WithCommandExecutor(&stubExecutor{}))
	_, err := client.Login(context.Background(), Credentials{Username: "rustfan"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoginFailureInOutputIsSyncError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &stubExecutor{lines: []string{"Logging in user 'rustfan' to Steam Public...", "FAILED login with result code Invalid Password"}}
	client := newTestClient(t, cfg, WithCommandExecutor(runner))

	_, err := client.Login(context.Background(), Credentials{Username: "rustfan", Password: "wrong"})
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid Password") {
		t.Fatalf("expected cause in error, got %v", err)
	}
	if _, statErr := os.Stat(cfg.SessionPath()); !os.IsNotExist(statErr) {
		t.Fatalf("failed login must not write a session, stat err=%v", statErr)
	}
}

func TestFetchMissingBinary(t *testing.T) {
	tool := NewSteamCMD("steamcmd", t.TempDir(), 252490, logging.NewNop(),
		WithExecutor(&stubExecutor{err: fmt.Errorf("start command: %w", exec.ErrNotFound)}))
	tool.Remember(Credentials{Username: "rustfan"})

	_, err := tool.Fetch(context.Background())
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	if !strings.Contains(services.Message(err), "steamcmd binary not found") {
		t.Fatalf("unexpected message: %q", services.Message(err))
	}
}

func TestFetchBuildsArgsAndReportsProgress(t *testing.T) {
	installDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(installDir, "Bundles", "items"), 0o755); err != nil {
		t.Fatal(err)
	}
	runner := &stubExecutor{lines: []string{
		" Update state (0x61) downloading, progress: 12.50 (100 / 800)",
		" Update state (0x61) downloading, progress: 14.00 (112 / 800)",
		" Update state (0x81) verifying update, progress: 50.00 (400 / 800)",
		"Success! App '252490' fully installed.",
	}}
	var progress []Progress
	tool := NewSteamCMD("steamcmd", installDir, 252490, logging.NewNop(),
		WithExecutor(runner),
		WithProgress(func(p Progress) { progress = append(progress, p) }))
	tool.Remember(Credentials{Username: "rustfan"})

	result, err := tool.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.ItemsDir != filepath.Join(installDir, "Bundles", "items") {
		t.Fatalf("unexpected items dir %q", result.ItemsDir)
	}
	want := []string{"steamcmd", "+force_install_dir", installDir, "+login", "rustfan", "+app_update", "252490", "validate", "+quit"}
	if !slices.Equal(runner.lastCall(), want) {
		t.Fatalf("args = %v, want %v", runner.lastCall(), want)
	}
	if len(progress) != 2 || progress[0].Stage != "downloading" || progress[1].Stage != "verifying update" {
		t.Fatalf("expected sampled progress, got %+v", progress)
	}
}

func TestFetchWithoutLogin(t *testing.T) {
	tool := NewSteamCMD("steamcmd", t.TempDir(), 252490, logging.NewNop(), WithExecutor(&stubExecutor{}))
	if _, err := tool.Fetch(context.Background()); !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error without login, got %v", err)
	}
}

func TestFailureCauseExitCodes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh to produce exit codes")
	}
	cases := map[int]string{5: "steam error 5", 8: "steam error 8", 10: "steam error 10", 3: "exited with code 3"}
	for code, want := range cases {
		err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
		if got := failureCause(fmt.Errorf("wait command: %w", err), "", "steamcmd"); !strings.Contains(got, want) {
			t.Fatalf("code %d: got %q, want %q", code, got, want)
		}
	}
	if got := failureCause(nil, "FAILED (No Connection)", "steamcmd"); got != "FAILED (No Connection)" {
		t.Fatalf("expected failed line as cause, got %q", got)
	}
}

func TestCommandExecutorSurvivesOversizedLine(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh to produce output")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	script := "head -c 2000000 /dev/zero | tr '\\0' a; echo; head -c 200000 /dev/zero | tr '\\0' b; echo"

	err := commandExecutor{}.Run(ctx, "sh", []string{"-c", script}, func(string) {})
	if err == nil || !strings.Contains(err.Error(), "scan output") {
		t.Fatalf("expected scan error for an oversized line, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("executor hung on undrained output")
	}
}

func TestMaskArgs(t *testing.T) {
	creds := Credentials{Username: "rustfan", Password: "hunter2", GuardCode: "AB12C"}
	masked := maskArgs(loginArgs(creds), creds)
	if slices.Contains(masked, "hunter2") || slices.Contains(masked, "AB12C") {
		t.Fatalf("secrets not masked: %v", masked)
	}
	if masked[1] != "rustfan" {
		t.Fatalf("username should stay visible: %v", masked)
	}
}

func TestCachedLoginSucceeded(t *testing.T) {
	cases := []struct {
		name  string
		lines []string
		want  bool
	}{
		{"cached", []string{"Logging in using cached credentials."}, true},
		{"user ok", []string{"Logging in user 'rustfan' to Steam Public...OK"}, true},
		{"prompt", []string{"Logging in user 'rustfan'", "password:"}, false},
		{"not found", []string{"Cached credentials not found."}, false},
		{"unclear", []string{"Steam Console Client"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cachedLoginSucceeded(tc.lines, "rustfan"); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestImportBundles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJSON(t, filepath.Join(dir, "a.json"), map[string]any{"itemid": 1, "shortname": "rifle.ak", "Name": "Assault Rifle", "Category": "weapon", "stacksize": 1})
	testsupport.WriteJSON(t, filepath.Join(dir, "b.json"), map[string]any{"itemid": 2, "shortname": "rifle.ak.ice", "Name": "Assault Rifle", "Category": "weapon"})
	testsupport.WriteJSON(t, filepath.Join(dir, "c.json"), map[string]any{"itemid": 3, "shortname": "note"})
	testsupport.WriteFile(t, filepath.Join(dir, "broken.json"), "{")

	recs, report, err := ImportBundles(dir)
	if err != nil {
		t.Fatalf("ImportBundles: %v", err)
	}
	if report.Files != 4 || report.Items != 3 || report.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if recs[0].ItemID != "assault_rifle" || recs[0].Category != "Weapon" || recs[0].Image != "rifle.ak.png" {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}
	if recs[1].ItemID != "assault_rifle_rifle.ak.ice" {
		t.Fatalf("expected shortname disambiguation, got %q", recs[1].ItemID)
	}
	if recs[2].Name != "c" || recs[2].Category != uncategorized || recs[2].StackSize != 1 {
		t.Fatalf("expected fallbacks for sparse definition, got %+v", recs[2])
	}

	if _, _, err := ImportBundles(t.TempDir()); err == nil {
		t.Fatal("expected error for empty bundle directory")
	}
}

func TestImportBundlesFlattensMultilineNames(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteJSON(t, filepath.Join(dir, "a.json"), map[string]any{"itemid": 7, "shortname": "sign", "Name": "Sign\nbind w quit", "Description": "two\nlines"})

	recs, _, err := ImportBundles(dir)
	if err != nil {
		t.Fatalf("ImportBundles: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "Sign bind w quit" || recs[0].Description != "two lines" {
		t.Fatalf("unexpected record: %+v", recs)
	}
	if err := recs[0].Validate(); err != nil {
		t.Fatalf("expected flattened record to validate: %v", err)
	}
}

func TestSyncImportsItemsImagesAndRecipes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	itemsDir := writeSampleBundle(t, cfg)
	testsupport.WriteJSON(t, cfg.CraftingDataPath(), map[string]any{
		"recipes": []any{
			map[string]any{"item_id": -262590403, "shortname": "stonehatchet", "craft_time": 30, "user_craftable": true,
				"ingredients": []any{map[string]any{"item_id": -151838493, "amount": 200}}},
			map[string]any{"item_id": 42, "shortname": "missing.item"},
		},
	})
	var stages []string
	client := newTestClient(t, cfg,
		WithFetcher(&stubFetcher{dir: itemsDir}),
		WithProgressFunc(func(p Progress) { stages = append(stages, p.Stage) }))

	result, err := client.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.Status != StatusOK || result.ItemsFetched != 3 || result.ImagesFetched != 3 || result.RunID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Recipes == nil || result.Recipes.Matched != 1 || result.Recipes.Unmatched != 1 {
		t.Fatalf("unexpected recipe report: %+v", result.Recipes)
	}
	rec, err := client.store.Get("stone_hatchet")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(rec.Ingredients) != 1 || rec.Ingredients[0].ItemID != "wood" || rec.Category != "Tool" {
		t.Fatalf("unexpected synced record: %+v", rec)
	}
	if _, err := os.Stat(filepath.Join(cfg.ImagesDir(), "wood.png")); err != nil {
		t.Fatalf("expected image copied: %v", err)
	}
	if client.store.Metadata().Source != "steamcmd" {
		t.Fatalf("expected source metadata, got %+v", client.store.Metadata())
	}
	if !slices.Equal(stages, []string{"downloading", "importing", "merging"}) {
		t.Fatalf("unexpected stages: %v", stages)
	}
}

func TestSyncFailureReportsStatusFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetchErr := services.Wrap(services.ErrSync, "steam", "fetch", "steam error 8: account has no subscription for this app", nil)
	client := newTestClient(t, cfg, WithFetcher(&stubFetcher{err: fetchErr}))

	result, err := client.Sync(context.Background())
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	if result.Status != StatusFailed || !strings.Contains(result.Error, "no subscription") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSyncWrapsRawFetchErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newTestClient(t, cfg, WithFetcher(&stubFetcher{err: context.DeadlineExceeded}))

	result, err := client.Sync(context.Background())
	if !errors.Is(err, services.ErrSync) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected sync error wrapping the cause, got %v", err)
	}
	if services.HTTPStatus(err) != 502 {
		t.Fatalf("expected 502 for a failed download, got %d", services.HTTPStatus(err))
	}
	if result.Status != StatusFailed || result.Error == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSyncRejectsConcurrentRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	fetcher := &stubFetcher{dir: writeSampleBundle(t, cfg), release: make(chan struct{}), started: make(chan struct{})}
	client := newTestClient(t, cfg, WithFetcher(fetcher))

	done := make(chan error, 1)
	go func() {
		_, err := client.Sync(context.Background())
		done <- err
	}()
	select {
	case <-fetcher.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first sync did not start")
	}
	if !client.Syncing() {
		t.Fatal("expected syncing flag during run")
	}
	if _, err := client.Sync(context.Background()); !services.IsState(err) {
		t.Fatalf("expected state error for concurrent sync, got %v", err)
	}
	if err := client.ResetDatabase(); !services.IsState(err) {
		t.Fatalf("expected reset to be refused during sync, got %v", err)
	}
	close(fetcher.release)
	if err := <-done; err != nil {
		t.Fatalf("first sync: %v", err)
	}
	if client.Syncing() {
		t.Fatal("expected syncing flag cleared")
	}
}

func TestResetDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	client := newTestClient(t, cfg, WithFetcher(&stubFetcher{dir: writeSampleBundle(t, cfg)}))
	if _, err := client.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	testsupport.WriteFile(t, cfg.CraftingDataPath(), `{"recipes":[]}`)
	if err := client.sessions.Save(Session{Username: "rustfan", LoggedIn: true}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	if err := client.ResetDatabase(); err != nil {
		t.Fatalf("ResetDatabase: %v", err)
	}
	if client.store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", client.store.Len())
	}
	for _, path := range []string{cfg.ImagesDir(), cfg.CraftingDataPath(), cfg.SessionPath()} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed, stat err=%v", path, err)
		}
	}
}

func TestTestInstallation(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("steamcmd"))
	writeSampleBundle(t, cfg)
	runner := &stubExecutor{}
	client := newTestClient(t, cfg, WithCommandExecutor(runner))

	result := client.TestInstallation(context.Background())
	if !result.SteamCMD.Available || !result.Executable || result.ItemsDir == "" {
		t.Fatalf("unexpected installation report: %+v", result)
	}
	if call := runner.lastCall(); len(call) != 2 || call[1] != "+quit" {
		t.Fatalf("expected +quit probe, got %v", call)
	}

	runner.err = errors.New("boom")
	if result := client.TestInstallation(context.Background()); result.Executable || result.Error == "" {
		t.Fatalf("expected failed probe, got %+v", result)
	}
}
