package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"rustactions/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("RUSTACTIONS_API_TOKEN", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, "Documents", "Rust-Actions")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:5000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if !filepath.IsAbs(cfg.Paths.KeysCfg) {
		t.Fatalf("expected absolute keys.cfg path, got %q", cfg.Paths.KeysCfg)
	}
	if cfg.Steam.AppID != 252490 {
		t.Fatalf("unexpected app id: %d", cfg.Steam.AppID)
	}
	if cfg.Input.Backend != "auto" {
		t.Fatalf("unexpected input backend: %q", cfg.Input.Backend)
	}
	if cfg.ItemDatabasePath() != filepath.Join(wantData, "itemDatabase.json") {
		t.Fatalf("unexpected item database path: %q", cfg.ItemDatabasePath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.ImagesDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := struct {
		Paths struct {
			DataDir  string `toml:"data_dir"`
			KeysCfg  string `toml:"keys_cfg"`
			APIBind  string `toml:"api_bind"`
			APIToken string `toml:"api_token"`
		} `toml:"paths"`
		Input struct {
			Backend    string `toml:"backend"`
			ConsoleKey string `toml:"console_key"`
		} `toml:"input"`
		Tasks struct {
			AntiAFKInterval int `toml:"anti_afk_interval"`
			StackInterval   int `toml:"stack_interval"`
			StackIterations int `toml:"stack_iterations"`
		} `toml:"tasks"`
	}{}
	payload.Paths.DataDir = "~/rust-data"
	payload.Paths.KeysCfg = "~/rust/cfg/keys.cfg"
	payload.Paths.APIBind = "127.0.0.1:6000"
	payload.Paths.APIToken = " secret "
	payload.Input.Backend = " NONE "
	payload.Input.ConsoleKey = "F2"
	payload.Tasks.AntiAFKInterval = 30
	payload.Tasks.StackInterval = 2
	payload.Tasks.StackIterations = 50

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to be used, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "rust-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.KeysCfg != filepath.Join(tempHome, "rust", "cfg", "keys.cfg") {
		t.Fatalf("unexpected keys cfg: %q", cfg.Paths.KeysCfg)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected trimmed api token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Input.Backend != "none" || cfg.Input.ConsoleKey != "f2" {
		t.Fatalf("expected normalized input settings, got %+v", cfg.Input)
	}
	if cfg.AntiAFKInterval().Seconds() != 30 {
		t.Fatalf("unexpected anti-afk interval: %s", cfg.AntiAFKInterval())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cases := map[string]string{
		"backend":    "[input]\nbackend = \"telepathy\"\n",
		"interval":   "[tasks]\nanti_afk_interval = 0\n",
		"iterations": "[tasks]\nstack_iterations = 5000\n",
		"bind":       "[paths]\napi_bind = \"nonsense\"\n",
		"log format": "[logging]\nformat = \"xml\"\n",
		"ntfy topic": "[notifications]\nntfy_topic = \"not a url\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RUSTACTIONS_API_TOKEN", "from-env")
	t.Setenv("STEAM_USERNAME", "gabe")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "from-env" {
		t.Fatalf("expected api token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Steam.Username != "gabe" {
		t.Fatalf("expected steam username from env, got %q", cfg.Steam.Username)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[paths]") {
		t.Fatalf("sample config missing [paths] section")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestNotificationDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[notifications]\nntfy_topic = \" https://ntfy.sh/rust \"\nrequest_timeout = 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/rust" {
		t.Fatalf("expected trimmed topic, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Notifications.RequestTimeout != 10 {
		t.Fatalf("expected default timeout, got %d", cfg.Notifications.RequestTimeout)
	}
}

func TestContinuousStackBurstFitsInterval(t *testing.T) {
	cfg := config.Default()
	// Three stack items per iteration, each a held combo.
	burst := time.Duration(cfg.Tasks.StackIterations*3) * cfg.ComboHold()
	if burst >= cfg.StackInterval() {
		t.Fatalf("default burst %s does not fit the %s stack interval", burst, cfg.StackInterval())
	}
}
