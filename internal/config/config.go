// Package config handles configuration loading, validation and hot
// reloading for voxinput.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete client configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Bus configures daemon addressing and dispatch behavior.
	Bus BusConfig `toml:"bus" json:"bus" yaml:"bus"`

	// Hotkey configures the toggle trigger.
	Hotkey HotkeyConfig `toml:"hotkey" json:"hotkey" yaml:"hotkey"`

	// Notify configures status notification durations.
	Notify NotifyConfig `toml:"notify" json:"notify" yaml:"notify"`

	// History configures the transcript history store.
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`

	// Logging configures structured log output.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// BusConfig addresses the transcription daemon. The defaults are the fixed
// protocol constants; overriding them is meant for tests pointing at a
// fake daemon.
type BusConfig struct {
	// Service is the daemon's well-known bus name.
	Service string `toml:"service" json:"service" yaml:"service"`

	// Path is the daemon's object path.
	Path string `toml:"path" json:"path" yaml:"path"`

	// Interface is the method and signal interface name.
	Interface string `toml:"interface" json:"interface" yaml:"interface"`

	// CallTimeoutMs bounds StartRecording/StopRecording/GetStatus calls.
	CallTimeoutMs int `toml:"call_timeout_ms" json:"call_timeout_ms" yaml:"call_timeout_ms"`

	// DispatchIntervalMs is the polling fallback interval that bounds
	// event latency when the reactor misses channel wakeups.
	DispatchIntervalMs int `toml:"dispatch_interval_ms" json:"dispatch_interval_ms" yaml:"dispatch_interval_ms"`

	// SignalBuffer is the inbound signal queue depth.
	SignalBuffer int `toml:"signal_buffer" json:"signal_buffer" yaml:"signal_buffer"`
}

// HotkeyConfig holds the toggle trigger combination.
type HotkeyConfig struct {
	// Toggle is a modifier+key combination, e.g. "shift+space". Only key
	// presses trigger; releases are ignored.
	Toggle string `toml:"toggle" json:"toggle" yaml:"toggle"`
}

// NotifyConfig holds notification timing.
type NotifyConfig struct {
	// ErrorDurationMs is how long daemon-reported errors stay on screen.
	ErrorDurationMs int `toml:"error_duration_ms" json:"error_duration_ms" yaml:"error_duration_ms"`

	// FailureDurationMs is how long start/stop failure messages stay.
	FailureDurationMs int `toml:"failure_duration_ms" json:"failure_duration_ms" yaml:"failure_duration_ms"`
}

// HistoryConfig holds the transcript history store settings.
type HistoryConfig struct {
	// Enabled turns committed-utterance history on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`

	// RetentionDays is how long entries are kept; Prune removes older
	// ones. Zero keeps everything.
	RetentionDays int `toml:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stderr", "stdout", "file" or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output includes "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// CallTimeout returns the bounded remote call timeout.
func (b BusConfig) CallTimeout() time.Duration {
	return time.Duration(b.CallTimeoutMs) * time.Millisecond
}

// DispatchInterval returns the polling fallback interval.
func (b BusConfig) DispatchInterval() time.Duration {
	return time.Duration(b.DispatchIntervalMs) * time.Millisecond
}

// ErrorDuration returns the daemon error notification duration.
func (n NotifyConfig) ErrorDuration() time.Duration {
	return time.Duration(n.ErrorDurationMs) * time.Millisecond
}

// FailureDuration returns the toggle-failure notification duration.
func (n NotifyConfig) FailureDuration() time.Duration {
	return time.Duration(n.FailureDurationMs) * time.Millisecond
}

// Load reads a config file (TOML, YAML or JSON by extension), applies
// environment overrides, and validates the result against both the JSON
// schema and the semantic rules.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// LoadOrDefault behaves like Load but substitutes the defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
	} else if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.ValidateSchema(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
	}
	return cfg, nil
}

// ApplyEnvOverrides overlays VOXINPUT_* environment variables onto the
// configuration, e.g. VOXINPUT_LOGGING_LEVEL=debug or
// VOXINPUT_BUS_CALLTIMEOUTMS=2000.
func (c *Config) ApplyEnvOverrides() error {
	return envconfig.Process("voxinput", c)
}

// Validate checks semantic constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Version <= 0 || c.Version > Version {
		return fmt.Errorf("unsupported config version %d", c.Version)
	}
	if c.Bus.Service == "" {
		return errors.New("bus.service must not be empty")
	}
	if !strings.HasPrefix(c.Bus.Path, "/") {
		return fmt.Errorf("bus.path %q must be an absolute object path", c.Bus.Path)
	}
	if !strings.Contains(c.Bus.Interface, ".") {
		return fmt.Errorf("bus.interface %q must be a dotted interface name", c.Bus.Interface)
	}
	if c.Bus.CallTimeoutMs <= 0 {
		return errors.New("bus.call_timeout_ms must be positive")
	}
	if c.Bus.DispatchIntervalMs <= 0 {
		return errors.New("bus.dispatch_interval_ms must be positive")
	}
	if c.Hotkey.Toggle == "" {
		return errors.New("hotkey.toggle must not be empty")
	}
	if c.Notify.ErrorDurationMs < 0 || c.Notify.FailureDurationMs < 0 {
		return errors.New("notify durations must not be negative")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history.path required when history is enabled")
	}
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must not be negative")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "debug", "info", "warn", "warning", "error":
		return s, nil
	default:
		return "", fmt.Errorf("unknown logging.level %q", s)
	}
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}
