package daemon

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/themed/internal/config"
	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/theme"
)

// Applier reflects an applied change onto the presentation layer.
type Applier interface {
	Apply(change theme.Change)
}

// Register subscribes every applier to the resolver in order.
// Returns a function that unregisters all of them.
func Register(r *theme.Resolver, appliers ...Applier) func() {
	cancels := make([]func(), 0, len(appliers))
	for _, a := range appliers {
		cancels = append(cancels, r.OnChange(a.Apply))
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// MarkerApplier writes the effective appearance to a marker file.
// Other programs read or watch this file to follow the appearance.
type MarkerApplier struct {
	path   string
	logger *slog.Logger
}

// NewMarkerApplier creates a MarkerApplier writing to path.
func NewMarkerApplier(path string, logger *slog.Logger) *MarkerApplier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkerApplier{path: path, logger: logger}
}

// Path returns the marker file path.
func (m *MarkerApplier) Path() string {
	return m.path
}

// Apply writes "light\n" or "dark\n" when the content would change.
func (m *MarkerApplier) Apply(change theme.Change) {
	content := []byte(change.Appearance.String() + "\n")
	if existing, err := os.ReadFile(m.path); err == nil && bytes.Equal(existing, content) {
		return
	}

	if err := writeAtomic(m.path, content); err != nil {
		m.logger.Warn("failed to write appearance marker", "path", m.path, "error", err)
		return
	}
	m.logger.Debug("appearance marker written", "path", m.path, "appearance", change.Appearance)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Hook environment variables.
const (
	EnvAppearance = "THEMED_APPEARANCE"
	EnvPreference = "THEMED_PREFERENCE"
	EnvTrigger    = "THEMED_TRIGGER"
)

// hookQueueSize bounds pending hook runs; older changes are superseded anyway.
const hookQueueSize = 8

// CommandRunner runs one hook command.
type CommandRunner func(ctx context.Context, command string, args []string, env []string) error

// HookApplier runs user commands when the effective appearance changes.
// Commands run on a single worker goroutine so they never overlap and
// never block the resolver.
type HookApplier struct {
	mu      sync.RWMutex
	hooks   []config.HookConfig
	timeout time.Duration

	queue  chan theme.Change
	run    CommandRunner
	logger *slog.Logger
}

// NewHookApplier creates a HookApplier for the given hooks.
func NewHookApplier(hooks []config.HookConfig, timeout time.Duration, logger *slog.Logger) *HookApplier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = config.DefaultHookTimeout
	}
	return &HookApplier{
		hooks:   hooks,
		timeout: timeout,
		queue:   make(chan theme.Change, hookQueueSize),
		run:     execCommand,
		logger:  logger,
	}
}

// SetRunner replaces the command runner.
func (h *HookApplier) SetRunner(run CommandRunner) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.run = run
}

// SetHooks swaps the hook list. Used by config hot-reload.
func (h *HookApplier) SetHooks(hooks []config.HookConfig, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = hooks
	if timeout > 0 {
		h.timeout = timeout
	}
}

// Hooks returns the current hook list.
func (h *HookApplier) Hooks() []config.HookConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hooks
}

// Apply queues the hooks for a change of appearance.
func (h *HookApplier) Apply(change theme.Change) {
	if !change.Changed {
		return
	}
	select {
	case h.queue <- change:
	default:
		h.logger.Warn("hook queue full, dropping change", "appearance", change.Appearance)
	}
}

// Run executes queued hooks until ctx is cancelled.
func (h *HookApplier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-h.queue:
			h.runAll(ctx, change)
		}
	}
}

// runAll runs every hook for one change. Failures are logged.
func (h *HookApplier) runAll(ctx context.Context, change theme.Change) {
	h.mu.RLock()
	hooks := h.hooks
	timeout := h.timeout
	run := h.run
	h.mu.RUnlock()

	env := append(os.Environ(),
		EnvAppearance+"="+change.Appearance.String(),
		EnvPreference+"="+change.Preference.String(),
		EnvTrigger+"="+string(change.Trigger),
	)

	for _, hook := range hooks {
		name := hook.Name
		if name == "" {
			name = hook.Command
		}

		hookCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		err := run(hookCtx, hook.Command, hook.Args, env)
		cancel()

		if err != nil {
			h.logger.Warn("hook failed", "hook", name, "error", err)
			continue
		}
		h.logger.Debug("hook completed", "hook", name, "duration", time.Since(start))
	}
}

func execCommand(ctx context.Context, command string, args []string, env []string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Env = env
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			return fmt.Errorf("%w: %s", err, bytes.TrimSpace(output))
		}
		return err
	}
	return nil
}

// SignalEmitter broadcasts applied appearances.
type SignalEmitter interface {
	EmitAppearanceChanged(preference model.Preference, appearance model.Appearance, trigger model.Trigger) error
}

// SignalApplier emits AppearanceChanged for every applied change.
type SignalApplier struct {
	emitter SignalEmitter
	logger  *slog.Logger
}

// NewSignalApplier creates a SignalApplier.
func NewSignalApplier(emitter SignalEmitter, logger *slog.Logger) *SignalApplier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalApplier{emitter: emitter, logger: logger}
}

// Apply emits the signal. The server may not be started yet; that is not an error.
func (s *SignalApplier) Apply(change theme.Change) {
	if err := s.emitter.EmitAppearanceChanged(change.Preference, change.Appearance, change.Trigger); err != nil {
		s.logger.Debug("AppearanceChanged not emitted", "error", err)
	}
}

// TransitionLog is an append-only transition history.
type TransitionLog interface {
	Append(t model.Transition) error
	Prune(keep int) (int, error)
}

// TransitionSink records the most recent transition.
type TransitionSink interface {
	SetTransition(t *model.Transition) error
}

// SourceDaemon is the transition source for changes the daemon applies itself.
const SourceDaemon = "themed"

// Recorder writes transitions to the history log.
type Recorder struct {
	mu         sync.Mutex
	history    TransitionLog
	sink       TransitionSink
	keep       int
	userSource string
	logger     *slog.Logger
}

// NewRecorder creates a Recorder. userSource names the origin of user
// triggers (e.g. "cli", "dbus", "tui"). sink may be nil.
func NewRecorder(history TransitionLog, sink TransitionSink, userSource string, keep int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		history:    history,
		sink:       sink,
		keep:       keep,
		userSource: userSource,
		logger:     logger,
	}
}

// SetKeep changes the number of transitions kept on prune.
func (r *Recorder) SetKeep(keep int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keep = keep
}

// Apply records preference or appearance changes.
// Session start and externally written preferences are not recorded here;
// the process that wrote the preference records it.
func (r *Recorder) Apply(change theme.Change) {
	switch change.Trigger {
	case model.TriggerInit, model.TriggerExternal:
		return
	}
	if !change.Changed && change.Previous == change.Preference {
		return
	}

	source := SourceDaemon
	if change.Trigger == model.TriggerUser {
		source = r.userSource
	}

	t, err := model.NewTransition(change.Previous, change.Preference, change.Appearance, change.Trigger, source)
	if err != nil {
		r.logger.Warn("failed to create transition", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.history.Append(*t); err != nil {
		r.logger.Warn("failed to append transition", "error", err)
		return
	}
	if r.sink != nil {
		if err := r.sink.SetTransition(t); err != nil {
			r.logger.Warn("failed to record last transition", "error", err)
		}
	}
	if r.keep > 0 {
		if removed, err := r.history.Prune(r.keep); err != nil {
			r.logger.Warn("failed to prune history", "error", err)
		} else if removed > 0 {
			r.logger.Debug("pruned history", "removed", removed)
		}
	}
}
