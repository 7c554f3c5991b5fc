package daemon

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jmylchreest/themed/internal/config"
)

// DefaultConfigPollInterval is how often the config file's mtime is checked.
const DefaultConfigPollInterval = time.Second

// ConfigWatcher watches the config file for changes and validates new configs.
// An invalid file is reported and the current config is kept.
type ConfigWatcher struct {
	mu     sync.RWMutex
	logger *slog.Logger

	configPath  string
	lastModTime time.Time

	currentConfig *config.Config
	pollInterval  time.Duration

	onReloadCallback func(newConfig *config.Config)
	onErrorCallback  func(err error)
}

// NewConfigWatcher creates a new ConfigWatcher for the config file at path.
func NewConfigWatcher(path string, initial *config.Config, logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &ConfigWatcher{
		logger:        logger,
		configPath:    path,
		currentConfig: initial,
		pollInterval:  DefaultConfigPollInterval,
	}
	if info, err := os.Stat(path); err == nil {
		w.lastModTime = info.ModTime()
	}
	return w
}

// SetPollInterval sets the polling interval for file changes.
func (w *ConfigWatcher) SetPollInterval(interval time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pollInterval = interval
}

// SetReloadCallback sets the callback to invoke when config is successfully reloaded.
func (w *ConfigWatcher) SetReloadCallback(callback func(newConfig *config.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReloadCallback = callback
}

// SetErrorCallback sets the callback to invoke when config reload fails validation.
func (w *ConfigWatcher) SetErrorCallback(callback func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onErrorCallback = callback
}

// GetCurrentConfig returns the current valid configuration.
func (w *ConfigWatcher) GetCurrentConfig() *config.Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentConfig
}

// Run polls the config file until ctx is cancelled.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	w.mu.RLock()
	interval := w.pollInterval
	w.mu.RUnlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Debug("config watcher started", "path", w.configPath, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("config watcher stopped")
			return nil
		case <-ticker.C:
			w.checkForChanges()
		}
	}
}

// checkForChanges reloads the config if the file has been modified.
func (w *ConfigWatcher) checkForChanges() {
	info, err := os.Stat(w.configPath)
	if err != nil {
		// File might not exist yet or was deleted
		if !os.IsNotExist(err) {
			w.logger.Debug("failed to stat config file", "path", w.configPath, "error", err)
		}
		return
	}

	w.mu.RLock()
	lastModTime := w.lastModTime
	w.mu.RUnlock()

	modTime := info.ModTime()
	if !modTime.After(lastModTime) {
		return
	}

	w.mu.Lock()
	w.lastModTime = modTime
	w.mu.Unlock()

	w.reload()
}

func (w *ConfigWatcher) reload() {
	cfg, err := config.LoadConfig(w.configPath)

	w.mu.Lock()
	onReload := w.onReloadCallback
	onError := w.onErrorCallback
	if err == nil {
		w.currentConfig = cfg
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("config reload failed, keeping current config", "path", w.configPath, "error", err)
		if onError != nil {
			onError(err)
		}
		return
	}

	w.logger.Info("config reloaded", "path", w.configPath)
	if onReload != nil {
		onReload(cfg)
	}
}
