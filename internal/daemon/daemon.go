package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/themed/internal/config"
	"github.com/jmylchreest/themed/internal/dbus"
	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/store"
	"github.com/jmylchreest/themed/internal/theme"
)

// SourceDBus is the transition source for changes made over D-Bus.
const SourceDBus = "dbus"

// controlServer is the exported control interface. *dbus.Server
// satisfies it.
type controlServer interface {
	SignalEmitter
	Start() error
	Stop() error
}

// Options configures a Daemon.
type Options struct {
	Config     *config.Config
	ConfigPath string // watched for hot-reload; empty disables it

	// StatePath overrides the state file location.
	StatePath string
	// Ephemeral keeps the preference in memory only.
	Ephemeral bool
	// Appearance forces the OS appearance, skipping detectors.
	Appearance model.Appearance

	Logger *slog.Logger
}

// Daemon owns the resolver for a session and wires it to the
// persistence, detection and presentation components.
type Daemon struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	kv        theme.Store
	fileStore *store.FileStore
	history   *store.History
	notifier  OSNotifier
	resolver  *theme.Resolver

	marker   *MarkerApplier
	hooks    *HookApplier
	recorder *Recorder
	server   controlServer

	stateWatcher  *store.FileWatcher
	configWatcher *ConfigWatcher

	ready chan struct{}
}

// New builds a daemon. Nothing observable happens until Run.
func New(opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	d := &Daemon{cfg: cfg, opts: opts, logger: logger, ready: make(chan struct{})}

	statePath := opts.StatePath
	if statePath == "" {
		statePath = cfg.StateFilePath()
	}
	if statePath == "" {
		p, err := store.StateFilePath()
		if err != nil {
			return nil, fmt.Errorf("failed to get state path: %w", err)
		}
		statePath = p
	}

	if opts.Ephemeral {
		d.kv = store.NewMemoryStore()
	} else {
		d.fileStore = store.NewFileStore(statePath)
		d.kv = d.fileStore

		history, err := store.OpenHistory(store.HistoryPathFor(statePath))
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		d.history = history
	}

	markerPath := cfg.MarkerFilePath()
	if markerPath == "" {
		markerPath = filepath.Join(filepath.Dir(statePath), "appearance")
	}

	d.notifier = NewNotifier(cfg, opts.Appearance, logger)
	d.resolver = theme.NewResolver(d.kv, d.notifier, logger)

	d.marker = NewMarkerApplier(markerPath, logger)
	d.hooks = NewHookApplier(cfg.Apply.Hooks, cfg.Apply.HookTimeout.Duration(), logger)
	appliers := []Applier{d.marker, d.hooks}

	if d.history != nil {
		d.recorder = NewRecorder(d.history, d.fileStore, SourceDBus, cfg.Store.HistoryKeep, logger)
		appliers = append(appliers, d.recorder)
	}
	if cfg.DBus.Enabled {
		server := dbus.NewServer(d.resolver, logger)
		d.server = server
		appliers = append(appliers, NewSignalApplier(server, logger))
	}
	Register(d.resolver, appliers...)

	if opts.ConfigPath != "" {
		d.configWatcher = NewConfigWatcher(opts.ConfigPath, cfg, logger)
		d.configWatcher.SetReloadCallback(d.applyConfig)
	}

	return d, nil
}

// Resolver returns the session resolver.
func (d *Daemon) Resolver() *theme.Resolver {
	return d.resolver
}

// MarkerPath returns the appearance marker file path.
func (d *Daemon) MarkerPath() string {
	return d.marker.Path()
}

// Hooks returns the hook applier.
func (d *Daemon) Hooks() *HookApplier {
	return d.hooks
}

// Ready is closed once Run has started every component.
func (d *Daemon) Ready() <-chan struct{} {
	return d.ready
}

// Run starts the session and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	// The server goes first so the initial AppearanceChanged reaches the bus.
	if d.server != nil {
		if err := d.server.Start(); err != nil {
			d.logger.Warn("D-Bus control interface unavailable", "error", err)
			d.server = nil
		}
	}

	d.resolver.Initialize()
	d.logger.Info("theme resolved",
		"preference", d.resolver.Preference(),
		"appearance", d.resolver.Effective(),
		"source", d.notifier.Source())

	if d.fileStore != nil {
		watcher, err := store.NewFileWatcher(d.fileStore.Path(), d.resolver.Reload, d.logger)
		if err != nil {
			d.logger.Warn("failed to create state watcher", "error", err)
		} else if err := watcher.Start(); err != nil {
			d.logger.Warn("failed to start state watcher", "error", err)
			_ = watcher.Stop()
		} else {
			d.stateWatcher = watcher
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.hooks.Run(gctx)
	})
	if d.configWatcher != nil {
		g.Go(func() error {
			return d.configWatcher.Run(gctx)
		})
	}

	d.logger.Info("themed ready")
	close(d.ready)
	<-gctx.Done()

	err := g.Wait()
	d.shutdown()
	return err
}

func (d *Daemon) shutdown() {
	if d.stateWatcher != nil {
		if err := d.stateWatcher.Stop(); err != nil {
			d.logger.Warn("error stopping state watcher", "error", err)
		}
	}
	if d.server != nil {
		if err := d.server.Stop(); err != nil {
			d.logger.Warn("error stopping D-Bus server", "error", err)
		}
	}
	d.resolver.Teardown()
	if err := d.notifier.Close(); err != nil {
		d.logger.Warn("error closing appearance notifier", "error", err)
	}
	if d.history != nil {
		if err := d.history.Close(); err != nil {
			d.logger.Warn("error closing history", "error", err)
		}
	}
	d.logger.Info("themed stopped")
}

// applyConfig applies the hot-reloadable parts of a new config.
// Detector and D-Bus settings need a restart.
func (d *Daemon) applyConfig(cfg *config.Config) {
	d.hooks.SetHooks(cfg.Apply.Hooks, cfg.Apply.HookTimeout.Duration())
	if d.recorder != nil {
		d.recorder.SetKeep(cfg.Store.HistoryKeep)
	}
	d.logger.Info("hooks reloaded", "count", len(cfg.Apply.Hooks))
}
