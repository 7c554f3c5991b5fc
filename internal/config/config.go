// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/themed/internal/model"
)

// Default configuration values.
const (
	DefaultFallback     = model.AppearanceLight
	DefaultPollInterval = 2 * time.Second
	DefaultHistoryKeep  = 500
	DefaultHookTimeout  = 5 * time.Second
	DefaultLogLevel     = "info"
)

// Config represents the themed configuration.
// Loaded from ~/.config/themed/config.toml
type Config struct {
	Detect DetectConfig `toml:"detect"`
	Store  StoreConfig  `toml:"store"`
	Apply  ApplyConfig  `toml:"apply"`
	DBus   DBusConfig   `toml:"dbus"`
	Log    LogConfig    `toml:"log"`
}

// DetectConfig selects the OS appearance detectors.
type DetectConfig struct {
	Portal       bool     `toml:"portal"`        // XDG Desktop Portal color-scheme
	Env          bool     `toml:"env"`           // GTK_THEME environment variable
	Gsettings    bool     `toml:"gsettings"`     // gsettings org.gnome.desktop.interface
	Fallback     string   `toml:"fallback"`      // "light" or "dark" when nothing answers
	PollInterval Duration `toml:"poll_interval"` // used when no detector pushes changes
}

// StoreConfig contains persistence settings.
type StoreConfig struct {
	StateFile   string `toml:"state_file"`   // Empty = $XDG_STATE_HOME/themed/state.json
	HistoryKeep int    `toml:"history_keep"` // 0 = unlimited
}

// ApplyConfig contains presentation-layer settings.
type ApplyConfig struct {
	MarkerFile  string       `toml:"marker_file"` // Empty = $XDG_STATE_HOME/themed/appearance
	HookTimeout Duration     `toml:"hook_timeout"`
	Hooks       []HookConfig `toml:"hooks"`
}

// HookConfig is a command run when the effective appearance changes.
type HookConfig struct {
	Name    string   `toml:"name"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// DBusConfig controls the exported control interface.
type DBusConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Detect: DetectConfig{
			Portal:       true,
			Env:          true,
			Gsettings:    true,
			Fallback:     string(DefaultFallback),
			PollInterval: Duration(DefaultPollInterval),
		},
		Store: StoreConfig{
			StateFile:   "",
			HistoryKeep: DefaultHistoryKeep,
		},
		Apply: ApplyConfig{
			MarkerFile:  "",
			HookTimeout: Duration(DefaultHookTimeout),
			Hooks:       nil,
		},
		DBus: DBusConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "themed", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := model.ParseAppearance(c.Detect.Fallback); err != nil {
		return fmt.Errorf("detect.fallback: %w", err)
	}
	if c.Detect.PollInterval.Duration() < 100*time.Millisecond {
		return fmt.Errorf("detect.poll_interval must be at least 100ms, got %s", c.Detect.PollInterval.Duration())
	}
	if c.Store.HistoryKeep < 0 {
		return fmt.Errorf("store.history_keep must not be negative, got %d", c.Store.HistoryKeep)
	}
	if c.Apply.HookTimeout.Duration() <= 0 {
		return fmt.Errorf("apply.hook_timeout must be positive, got %s", c.Apply.HookTimeout.Duration())
	}

	names := make(map[string]bool)
	for i, h := range c.Apply.Hooks {
		if strings.TrimSpace(h.Command) == "" {
			return fmt.Errorf("apply.hooks[%d]: command is required", i)
		}
		if h.Name != "" {
			if names[h.Name] {
				return fmt.Errorf("apply.hooks[%d]: duplicate name %q", i, h.Name)
			}
			names[h.Name] = true
		}
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// FallbackAppearance returns the parsed fallback appearance.
func (c *Config) FallbackAppearance() model.Appearance {
	a, err := model.ParseAppearance(c.Detect.Fallback)
	if err != nil {
		return DefaultFallback
	}
	return a
}

// StateFilePath returns the configured state file, expanding ~.
// Empty means the caller should use the store default.
func (c *Config) StateFilePath() string {
	return expandPath(c.Store.StateFile)
}

// MarkerFilePath returns the configured marker file, expanding ~.
// Empty means the caller should use the default next to the state file.
func (c *Config) MarkerFilePath() string {
	return expandPath(c.Apply.MarkerFile)
}

// ParseLevel converts a log level name to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", level)
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
