package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSteam(); err != nil {
		return err
	}
	c.normalizeInput()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.KeysCfg) == "" {
		c.Paths.KeysCfg = defaultKeysCfgPath()
	}
	if c.Paths.KeysCfg, err = expandPath(c.Paths.KeysCfg); err != nil {
		return fmt.Errorf("paths.keys_cfg: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("RUSTACTIONS_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeSteam() error {
	var err error
	c.Steam.SteamCMDPath = strings.TrimSpace(c.Steam.SteamCMDPath)
	if c.Steam.SteamCMDPath != "" && strings.ContainsAny(c.Steam.SteamCMDPath, `/\~`) {
		if c.Steam.SteamCMDPath, err = expandPath(c.Steam.SteamCMDPath); err != nil {
			return fmt.Errorf("steam.steamcmd_path: %w", err)
		}
	}
	if strings.TrimSpace(c.Steam.InstallDir) == "" {
		c.Steam.InstallDir = defaultSteamInstallDir
	}
	if c.Steam.InstallDir, err = expandPath(c.Steam.InstallDir); err != nil {
		return fmt.Errorf("steam.install_dir: %w", err)
	}
	if c.Steam.CraftingData, err = expandPath(strings.TrimSpace(c.Steam.CraftingData)); err != nil {
		return fmt.Errorf("steam.crafting_data: %w", err)
	}
	if c.Steam.AppID == 0 {
		c.Steam.AppID = defaultRustAppID
	}
	c.Steam.Username = strings.TrimSpace(c.Steam.Username)
	if c.Steam.Username == "" {
		if value, ok := os.LookupEnv("STEAM_USERNAME"); ok {
			c.Steam.Username = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeInput() {
	c.Input.Backend = strings.ToLower(strings.TrimSpace(c.Input.Backend))
	if c.Input.Backend == "" {
		c.Input.Backend = defaultInputBackend
	}
	c.Input.ConsoleKey = strings.ToLower(strings.TrimSpace(c.Input.ConsoleKey))
	if c.Input.ConsoleKey == "" {
		c.Input.ConsoleKey = defaultConsoleKey
	}
	c.Input.GameWindow = strings.TrimSpace(c.Input.GameWindow)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func defaultKeysCfgPath() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files (x86)\Steam\steamapps\common\Rust\cfg\keys.cfg`
	}
	return "~/.local/share/Steam/steamapps/common/Rust/cfg/keys.cfg"
}
