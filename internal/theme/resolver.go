package theme

import (
	"log/slog"
	"sync"

	"github.com/jmylchreest/themed/internal/model"
)

// StoreKey is the key the preference is persisted under.
const StoreKey = "theme"

// Store persists the preference string.
type Store interface {
	// Get returns the stored value and whether one exists.
	Get(key string) (string, bool)
	// Set stores a value.
	Set(key, value string) error
}

// Subscription is an active OS appearance observer registration.
type Subscription interface {
	Cancel()
}

// Notifier reports the OS-level appearance and its changes.
type Notifier interface {
	// Query returns a synchronous snapshot of the OS appearance.
	Query() model.Appearance
	// Subscribe registers onChange for OS appearance changes.
	Subscribe(onChange func()) Subscription
}

// Change is delivered to observers each time an appearance is applied.
type Change struct {
	Preference model.Preference
	Previous   model.Preference
	Appearance model.Appearance
	// Changed is true when Appearance differs from the previously applied
	// appearance, or on the first apply of the session.
	Changed    bool
	Trigger    model.Trigger
}

// observer wraps a callback to enable pointer comparison for removal.
type observer struct {
	fn func(Change)
}

// Resolver owns the theme preference and its effective appearance.
// Entry points are serialized from computing a change through delivering
// it, so observers see changes in the order they were applied. Observers
// run without the state lock held and may call the getters, but must not
// call entry points.
type Resolver struct {
	// dispatchMu is held by an entry point until its observers return.
	// Lock order: dispatchMu, then mu.
	dispatchMu sync.Mutex
	mu         sync.Mutex
	store    Store
	notifier Notifier
	logger   *slog.Logger

	preference model.Preference
	effective  model.Appearance
	applied    bool

	sub         Subscription
	initialized bool
	// tracking is set once the first apply is done; OS callbacks
	// arriving earlier are dropped.
	tracking  bool
	observers []*observer
}

// NewResolver creates a resolver over the given store and notifier.
// Initialize must be called before the resolver tracks the OS.
func NewResolver(store Store, notifier Notifier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:      store,
		notifier:   notifier,
		logger:     logger,
		preference: model.DefaultPreference,
		effective:  model.AppearanceLight,
	}
}

// Initialize loads the stored preference, applies it and starts observing
// OS appearance changes. A second call is ignored.
func (r *Resolver) Initialize() {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	if r.initialized {
		r.mu.Unlock()
		r.logger.Warn("resolver already initialized")
		return
	}
	r.initialized = true
	r.mu.Unlock()

	// Subscribe before the first query so a change in between is not lost.
	sub := r.notifier.Subscribe(r.onOSAppearanceChanged)

	r.mu.Lock()
	r.sub = sub
	r.preference = r.loadPreference()
	change := r.applyLocked(r.preference, model.TriggerInit)
	r.tracking = true
	r.mu.Unlock()

	r.logger.Debug("resolver initialized",
		"preference", change.Preference,
		"appearance", change.Appearance)
	r.notify(change)
}

// SetPreference persists p and applies the resulting appearance.
// Unknown values are a caller error and are ignored.
func (r *Resolver) SetPreference(p model.Preference) {
	if !p.Valid() {
		r.logger.Warn("ignoring invalid preference", "preference", string(p))
		return
	}

	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	change := r.setLocked(p)
	r.mu.Unlock()

	r.notify(change)
}

// Toggle switches to the explicit opposite of the current appearance.
// This always leaves system tracking, even if the OS already matches.
func (r *Resolver) Toggle() {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	change := r.setLocked(r.effective.Opposite().Preference())
	r.mu.Unlock()

	r.notify(change)
}

// setLocked persists and applies p. Caller must hold the lock.
func (r *Resolver) setLocked(p model.Preference) Change {
	if err := r.store.Set(StoreKey, p.String()); err != nil {
		r.logger.Warn("failed to persist preference", "preference", p, "error", err)
	}
	previous := r.preference
	r.preference = p
	return r.applyLocked(previous, model.TriggerUser)
}

// Reload re-reads the stored preference, adopting a value written by
// another process. Nothing is written back.
func (r *Resolver) Reload() {
	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	stored := r.loadPreference()
	if stored == r.preference {
		r.mu.Unlock()
		return
	}
	previous := r.preference
	r.preference = stored
	change := r.applyLocked(previous, model.TriggerExternal)
	r.mu.Unlock()

	r.logger.Info("adopted external preference", "preference", stored, "appearance", change.Appearance)
	r.notify(change)
}

// Teardown cancels the OS appearance subscription.
func (r *Resolver) Teardown() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.tracking = false
	r.mu.Unlock()

	if sub != nil {
		sub.Cancel()
		r.logger.Debug("resolver torn down")
	}
}

// Preference returns the current preference.
func (r *Resolver) Preference() model.Preference {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.preference
}

// Effective returns the currently applied appearance.
func (r *Resolver) Effective() model.Appearance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.effective
}

// Mode returns whether the resolver follows the OS.
func (r *Resolver) Mode() model.Mode {
	return model.ModeOf(r.Preference())
}

// OnChange registers an observer for applied changes.
// Returns a function to unregister it.
func (r *Resolver) OnChange(fn func(Change)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	wrapper := &observer{fn: fn}
	r.observers = append(r.observers, wrapper)

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, o := range r.observers {
			if o == wrapper {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				return
			}
		}
	}
}

// onOSAppearanceChanged is invoked by the notifier.
func (r *Resolver) onOSAppearanceChanged() {
	// Dropped while Initialize holds dispatchMu: its own query follows.
	r.mu.Lock()
	tracking := r.tracking
	r.mu.Unlock()
	if !tracking {
		return
	}

	r.dispatchMu.Lock()
	defer r.dispatchMu.Unlock()

	r.mu.Lock()
	if r.preference != model.PreferenceSystem {
		r.mu.Unlock()
		return
	}
	change := r.applyLocked(r.preference, model.TriggerSystem)
	r.mu.Unlock()

	if change.Changed {
		r.logger.Info("system appearance changed", "appearance", change.Appearance)
	}
	r.notify(change)
}

// resolve maps a preference to an appearance.
func (r *Resolver) resolve(p model.Preference) model.Appearance {
	if a, ok := p.Appearance(); ok {
		return a
	}
	return r.notifier.Query()
}

// loadPreference reads the store, defaulting to System.
// Caller must hold the lock.
func (r *Resolver) loadPreference() model.Preference {
	raw, ok := r.store.Get(StoreKey)
	if !ok {
		return model.DefaultPreference
	}
	p, err := model.ParseStoredPreference(raw)
	if err != nil {
		r.logger.Debug("stored preference invalid, using default", "value", raw)
		return model.DefaultPreference
	}
	return p
}

// applyLocked recomputes the effective appearance and builds the change.
// Caller must hold the lock.
func (r *Resolver) applyLocked(previous model.Preference, trigger model.Trigger) Change {
	appearance := r.resolve(r.preference)
	changed := !r.applied || appearance != r.effective
	r.effective = appearance
	r.applied = true

	return Change{
		Preference: r.preference,
		Previous:   previous,
		Appearance: appearance,
		Changed:    changed,
		Trigger:    trigger,
	}
}

// notify invokes observers outside the lock.
func (r *Resolver) notify(change Change) {
	r.mu.Lock()
	observers := make([]*observer, len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	for _, o := range observers {
		o.fn(change)
	}
}
