package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateInput(); err != nil {
		return err
	}
	if err := c.validateTasks(); err != nil {
		return err
	}
	if err := c.validateSteam(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	u, err := url.Parse(topic)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.KeysCfg == "" {
		return errors.New("paths.keys_cfg must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateInput() error {
	switch c.Input.Backend {
	case "auto", "xdotool", "sendinput", "none":
	default:
		return fmt.Errorf("input.backend: unsupported value %q (want auto, xdotool, sendinput, or none)", c.Input.Backend)
	}
	if err := ensureNonNegativeMap(map[string]int{
		"input.key_hold_ms":     c.Input.KeyHoldMS,
		"input.combo_hold_ms":   c.Input.ComboHoldMS,
		"input.type_delay_ms":   c.Input.TypeDelayMS,
		"input.reload_delay_ms": c.Input.ReloadDelayMS,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTasks() error {
	if c.Tasks.AntiAFKInterval <= 0 {
		return errors.New("tasks.anti_afk_interval must be positive (seconds)")
	}
	if c.Tasks.StackInterval <= 0 {
		return errors.New("tasks.stack_interval must be positive (seconds)")
	}
	if c.Tasks.StackIterations <= 0 || c.Tasks.StackIterations > 1000 {
		return errors.New("tasks.stack_iterations must be between 1 and 1000")
	}
	return nil
}

func (c *Config) validateSteam() error {
	if c.Steam.AppID <= 0 {
		return errors.New("steam.app_id must be positive")
	}
	if c.Steam.SyncTimeout < 0 {
		return errors.New("steam.sync_timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}
	return nil
}
