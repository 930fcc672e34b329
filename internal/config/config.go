package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, file, and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	KeysCfg  string `toml:"keys_cfg"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Steam contains configuration for the steamcmd content sync.
type Steam struct {
	SteamCMDPath string `toml:"steamcmd_path"`
	InstallDir   string `toml:"install_dir"`
	AppID        int    `toml:"app_id"`
	Username     string `toml:"username"`
	// SyncTimeout bounds a sync run in seconds. Zero leaves it unbounded.
	SyncTimeout  int    `toml:"sync_timeout"`
	CraftingData string `toml:"crafting_data"`
}

// Input contains configuration for synthetic keyboard input.
type Input struct {
	// Backend selects the injector: "auto", "xdotool", "sendinput", or "none".
	Backend       string `toml:"backend"`
	ConsoleKey    string `toml:"console_key"`
	KeyHoldMS     int    `toml:"key_hold_ms"`
	ComboHoldMS   int    `toml:"combo_hold_ms"`
	TypeDelayMS   int    `toml:"type_delay_ms"`
	ReloadDelayMS int    `toml:"reload_delay_ms"`
	GameWindow    string `toml:"game_window"`
}

// Tasks contains configuration for repeating background actions.
type Tasks struct {
	AntiAFKInterval int `toml:"anti_afk_interval"`
	StackInterval   int `toml:"stack_interval"`
	StackIterations int `toml:"stack_iterations"`
}

// History contains configuration for the action history database.
type History struct {
	Enabled bool `toml:"enabled"`
	MaxRows int  `toml:"max_rows"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	// NtfyTopic is the full topic URL. Empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ActionFailures bool   `toml:"action_failures"`
}

// Config encapsulates all configuration values for rustactions.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories, keys.cfg location, and API bind address
//   - Steam: steamcmd location, install directory, and sync settings
//   - Input: injector backend and key timing
//   - Tasks: anti-AFK and continuous stack intervals
//   - History: sqlite action log
//   - Logging: log format, level, and retention
//   - Notifications: ntfy topic for sync and failure alerts
type Config struct {
	Paths   Paths   `toml:"paths"`
	Steam   Steam   `toml:"steam"`
	Input   Input   `toml:"input"`
	Tasks   Tasks   `toml:"tasks"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rustactions.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.ImagesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ItemDatabasePath returns the location of the item store JSON document.
func (c *Config) ItemDatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "itemDatabase.json")
}

// ImagesDir returns the directory holding item images copied during sync.
func (c *Config) ImagesDir() string {
	return filepath.Join(c.Paths.DataDir, "images")
}

// SessionPath returns the steam session state file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Paths.DataDir, "steam_session.json")
}

// CraftingDataPath returns the crafting data document merged after a sync.
func (c *Config) CraftingDataPath() string {
	if strings.TrimSpace(c.Steam.CraftingData) != "" {
		return c.Steam.CraftingData
	}
	return filepath.Join(c.Paths.DataDir, "craftingData.json")
}

// HistoryPath returns the action history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "rustactionsd.lock")
}

// SteamCMDBinary returns the steamcmd executable to invoke.
func (c *Config) SteamCMDBinary() string {
	if strings.TrimSpace(c.Steam.SteamCMDPath) != "" {
		return c.Steam.SteamCMDPath
	}
	return "steamcmd"
}

// KeyHold returns the hold duration for single key taps.
func (c *Config) KeyHold() time.Duration {
	return time.Duration(c.Input.KeyHoldMS) * time.Millisecond
}

// ComboHold returns the hold duration for key combinations.
func (c *Config) ComboHold() time.Duration {
	return time.Duration(c.Input.ComboHoldMS) * time.Millisecond
}

// TypeDelay returns the pause between typed chunks and before Enter.
func (c *Config) TypeDelay() time.Duration {
	return time.Duration(c.Input.TypeDelayMS) * time.Millisecond
}

// ReloadDelay returns the pause after asking the game to re-exec keys.cfg.
func (c *Config) ReloadDelay() time.Duration {
	return time.Duration(c.Input.ReloadDelayMS) * time.Millisecond
}

// AntiAFKInterval returns the anti-AFK re-trigger period.
func (c *Config) AntiAFKInterval() time.Duration {
	return time.Duration(c.Tasks.AntiAFKInterval) * time.Second
}

// StackInterval returns the continuous stack re-trigger period.
func (c *Config) StackInterval() time.Duration {
	return time.Duration(c.Tasks.StackInterval) * time.Second
}

// SyncTimeout returns the optional sync deadline; zero means none.
func (c *Config) SyncTimeout() time.Duration {
	return time.Duration(c.Steam.SyncTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
