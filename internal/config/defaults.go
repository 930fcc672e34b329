package config

const (
	defaultConfigPath      = "~/.config/rustactions/config.toml"
	defaultDataDir         = "~/Documents/Rust-Actions"
	defaultLogDir          = "~/.local/share/rustactions/logs"
	defaultAPIBind         = "127.0.0.1:5000"
	defaultSteamInstallDir = "~/Documents/Rust-Actions/steamcmd/rust"
	defaultRustAppID       = 252490
	defaultInputBackend    = "auto"
	defaultConsoleKey      = "f1"
	defaultKeyHoldMS       = 50
	defaultComboHoldMS     = 100
	defaultTypeDelayMS     = 10
	defaultReloadDelayMS   = 250
	defaultGameWindow      = "Rust"
	defaultAntiAFKInterval = 60
	defaultStackInterval   = 5
	defaultStackIterations = 10
	defaultHistoryMaxRows  = 10000
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultRetentionDays   = 30
	defaultNotifyTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Steam: Steam{
			InstallDir: defaultSteamInstallDir,
			AppID:      defaultRustAppID,
		},
		Input: Input{
			Backend:       defaultInputBackend,
			ConsoleKey:    defaultConsoleKey,
			KeyHoldMS:     defaultKeyHoldMS,
			ComboHoldMS:   defaultComboHoldMS,
			TypeDelayMS:   defaultTypeDelayMS,
			ReloadDelayMS: defaultReloadDelayMS,
			GameWindow:    defaultGameWindow,
		},
		Tasks: Tasks{
			AntiAFKInterval: defaultAntiAFKInterval,
			StackInterval:   defaultStackInterval,
			StackIterations: defaultStackIterations,
		},
		History: History{
			Enabled: true,
			MaxRows: defaultHistoryMaxRows,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
