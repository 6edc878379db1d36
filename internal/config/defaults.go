package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: Version,
		Bus: BusConfig{
			Service:            "org.fcitx.Fcitx5.Voice",
			Path:               "/org/fcitx/Fcitx5/Voice",
			Interface:          "org.fcitx.Fcitx5.Voice",
			CallTimeoutMs:      1000,
			DispatchIntervalMs: 100,
			SignalBuffer:       64,
		},
		Hotkey: HotkeyConfig{
			Toggle: "shift+space",
		},
		Notify: NotifyConfig{
			ErrorDurationMs:   5000,
			FailureDurationMs: 5000,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          filepath.Join(PlatformDataDir(), "history.db"),
			RetentionDays: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// DefaultPath returns the platform default config file path.
func DefaultPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - Linux:   ~/.local/share/voxinput/
//   - macOS:   ~/Library/Application Support/voxinput/
//
// Falls back to ~/.voxinput if platform detection fails.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return fallbackDir()
		}
		return filepath.Join(home, "Library", "Application Support", "voxinput")
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fallbackDir()
			}
			dataHome = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(dataHome, "voxinput")
	}
}

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - Linux:   ~/.config/voxinput/
//   - macOS:   ~/Library/Application Support/voxinput/
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return PlatformDataDir()
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fallbackDir()
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "voxinput")
	}
}

func fallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".voxinput"
	}
	return filepath.Join(home, ".voxinput")
}
