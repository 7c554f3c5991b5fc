package theme

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themed/internal/model"
)

// fakeStore implements Store and records writes.
type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
	writes []string
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *fakeStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, value)
	if s.err != nil {
		return s.err
	}
	s.values[key] = value
	return nil
}

// fakeNotifier implements Notifier with a settable OS appearance.
type fakeNotifier struct {
	mu        sync.Mutex
	os        model.Appearance
	handlers  map[int]func()
	nextID    int
	cancelled int
}

func newFakeNotifier(os model.Appearance) *fakeNotifier {
	return &fakeNotifier{os: os, handlers: make(map[int]func())}
}

func (n *fakeNotifier) Query() model.Appearance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.os
}

func (n *fakeNotifier) Subscribe(onChange func()) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.handlers[id] = onChange
	return &fakeSubscription{n: n, id: id}
}

// set changes the OS appearance and fires subscribers.
func (n *fakeNotifier) set(a model.Appearance) {
	n.mu.Lock()
	n.os = a
	handlers := make([]func(), 0, len(n.handlers))
	for _, h := range n.handlers {
		handlers = append(handlers, h)
	}
	n.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

func (n *fakeNotifier) subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.handlers)
}

type fakeSubscription struct {
	n  *fakeNotifier
	id int
}

func (s *fakeSubscription) Cancel() {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	delete(s.n.handlers, s.id)
	s.n.cancelled++
}

func newTestResolver(t *testing.T, os model.Appearance) (*Resolver, *fakeStore, *fakeNotifier) {
	t.Helper()
	store := newFakeStore()
	notifier := newFakeNotifier(os)
	return NewResolver(store, notifier, nil), store, notifier
}

func TestInitialize_DefaultsToSystem(t *testing.T) {
	r, _, _ := newTestResolver(t, model.AppearanceDark)
	r.Initialize()
	defer r.Teardown()

	assert.Equal(t, model.PreferenceSystem, r.Preference())
	assert.Equal(t, model.AppearanceDark, r.Effective())
	assert.Equal(t, model.ModeTracking, r.Mode())
}

func TestInitialize_MalformedStoredValue(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceLight)
	store.values[StoreKey] = "blue"

	r.Initialize()
	defer r.Teardown()

	assert.Equal(t, model.PreferenceSystem, r.Preference())
	assert.Equal(t, model.AppearanceLight, r.Effective())
	assert.Empty(t, store.writes, "initialize should not rewrite the stored value")
}

func TestInitialize_NonCanonicalStoredValue(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceLight)
	store.values[StoreKey] = " DARK "

	r.Initialize()
	defer r.Teardown()

	assert.Equal(t, model.PreferenceSystem, r.Preference())
	assert.Equal(t, model.AppearanceLight, r.Effective())
}

// lateNotifier changes the OS appearance while Subscribe registers,
// without a callback, as a change arriving just before registration.
type lateNotifier struct {
	*fakeNotifier
	next model.Appearance
}

func (n *lateNotifier) Subscribe(onChange func()) Subscription {
	sub := n.fakeNotifier.Subscribe(onChange)
	n.fakeNotifier.mu.Lock()
	n.fakeNotifier.os = n.next
	n.fakeNotifier.mu.Unlock()
	return sub
}

func TestInitialize_ChangeDuringSubscribe(t *testing.T) {
	notifier := &lateNotifier{fakeNotifier: newFakeNotifier(model.AppearanceLight), next: model.AppearanceDark}
	r := NewResolver(newFakeStore(), notifier, nil)

	r.Initialize()
	defer r.Teardown()

	assert.Equal(t, model.AppearanceDark, r.Effective())
}

// syncNotifier fires the callback from inside Subscribe.
type syncNotifier struct {
	*fakeNotifier
}

func (n *syncNotifier) Subscribe(onChange func()) Subscription {
	sub := n.fakeNotifier.Subscribe(onChange)
	onChange()
	return sub
}

func TestInitialize_SynchronousCallbackDropped(t *testing.T) {
	r := NewResolver(newFakeStore(), &syncNotifier{newFakeNotifier(model.AppearanceDark)}, nil)

	var changes []Change
	r.OnChange(func(c Change) { changes = append(changes, c) })

	done := make(chan struct{})
	go func() {
		r.Initialize()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Initialize deadlocked on a synchronous callback")
	}
	defer r.Teardown()

	require.Len(t, changes, 1)
	assert.Equal(t, model.TriggerInit, changes[0].Trigger)
	assert.Equal(t, model.AppearanceDark, changes[0].Appearance)
}

func TestInitialize_OnlyOnce(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	r.Initialize()
	defer r.Teardown()

	assert.Equal(t, 1, notifier.subscribers())
}

func TestSetPreference_ExplicitIgnoresOS(t *testing.T) {
	for _, p := range []model.Preference{model.PreferenceLight, model.PreferenceDark} {
		for _, os := range []model.Appearance{model.AppearanceLight, model.AppearanceDark} {
			t.Run(string(p)+"/os="+string(os), func(t *testing.T) {
				r, _, _ := newTestResolver(t, os)
				r.Initialize()
				defer r.Teardown()

				r.SetPreference(p)

				want, _ := p.Appearance()
				assert.Equal(t, want, r.Effective())
				assert.Equal(t, model.ModeExplicit, r.Mode())
			})
		}
	}
}

func TestSetPreference_SystemFollowsOS(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceDark)
	r.Initialize()
	defer r.Teardown()

	r.SetPreference(model.PreferenceLight)
	require.Equal(t, model.AppearanceLight, r.Effective())

	r.SetPreference(model.PreferenceSystem)
	assert.Equal(t, notifier.Query(), r.Effective())
	assert.Equal(t, model.AppearanceDark, r.Effective())
}

func TestOSChange_WhileTracking(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	defer r.Teardown()

	notifier.set(model.AppearanceDark)
	assert.Equal(t, model.AppearanceDark, r.Effective())

	notifier.set(model.AppearanceLight)
	assert.Equal(t, model.AppearanceLight, r.Effective())
}

func TestOSChange_WhileExplicit(t *testing.T) {
	tests := []model.Preference{model.PreferenceLight, model.PreferenceDark}

	for _, p := range tests {
		t.Run(string(p), func(t *testing.T) {
			r, _, notifier := newTestResolver(t, model.AppearanceLight)
			r.Initialize()
			defer r.Teardown()

			r.SetPreference(p)
			before := r.Effective()

			notifier.set(model.AppearanceDark)
			notifier.set(model.AppearanceLight)
			notifier.set(model.AppearanceDark)

			assert.Equal(t, before, r.Effective())
		})
	}
}

func TestSetPreference_Idempotent(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	defer r.Teardown()

	r.SetPreference(model.PreferenceDark)
	pref, eff := r.Preference(), r.Effective()

	r.SetPreference(model.PreferenceDark)

	assert.Equal(t, pref, r.Preference())
	assert.Equal(t, eff, r.Effective())
	assert.Equal(t, []string{"dark", "dark"}, store.writes)
}

func TestRoundTrip(t *testing.T) {
	store := newFakeStore()
	notifier := newFakeNotifier(model.AppearanceLight)

	first := NewResolver(store, notifier, nil)
	first.Initialize()
	first.SetPreference(model.PreferenceDark)
	first.Teardown()

	second := NewResolver(store, notifier, nil)
	second.Initialize()
	defer second.Teardown()

	assert.Equal(t, model.PreferenceDark, second.Preference())
	assert.Equal(t, model.AppearanceDark, second.Effective())
}

func TestToggle_FromSystemDark(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceDark)
	r.Initialize()
	defer r.Teardown()

	r.Toggle()

	assert.Equal(t, model.AppearanceLight, r.Effective())
	assert.Equal(t, model.PreferenceLight, r.Preference())
	assert.Equal(t, model.ModeExplicit, r.Mode())
	assert.Equal(t, "light", store.values[StoreKey])
}

func TestToggle_Alternates(t *testing.T) {
	r, _, _ := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	defer r.Teardown()

	r.Toggle()
	assert.Equal(t, model.PreferenceDark, r.Preference())
	r.Toggle()
	assert.Equal(t, model.PreferenceLight, r.Preference())
}

func TestTeardown_CancelsSubscription(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	require.Equal(t, 1, notifier.subscribers())

	r.Teardown()
	r.Teardown()

	assert.Equal(t, 0, notifier.subscribers())
	assert.Equal(t, 1, notifier.cancelled)

	// No longer tracking after teardown.
	notifier.set(model.AppearanceDark)
	assert.Equal(t, model.AppearanceLight, r.Effective())
}

func TestSetPreference_InvalidIgnored(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	defer r.Teardown()

	r.SetPreference(model.Preference("blue"))

	assert.Equal(t, model.PreferenceSystem, r.Preference())
	assert.Empty(t, store.writes)
}

func TestSetPreference_StoreFailureStillApplies(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceLight)
	store.err = errors.New("disk full")
	r.Initialize()
	defer r.Teardown()

	r.SetPreference(model.PreferenceDark)

	assert.Equal(t, model.PreferenceDark, r.Preference())
	assert.Equal(t, model.AppearanceDark, r.Effective())
}

func TestReload_AdoptsExternalValue(t *testing.T) {
	r, store, _ := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	defer r.Teardown()

	var changes []Change
	r.OnChange(func(c Change) { changes = append(changes, c) })

	store.values[StoreKey] = "dark"
	r.Reload()

	assert.Equal(t, model.PreferenceDark, r.Preference())
	assert.Equal(t, model.AppearanceDark, r.Effective())
	assert.Empty(t, store.writes, "reload must not write back")
	require.Len(t, changes, 1)
	assert.Equal(t, model.TriggerExternal, changes[0].Trigger)
	assert.Equal(t, model.PreferenceSystem, changes[0].Previous)

	// Unchanged store is a no-op.
	r.Reload()
	assert.Len(t, changes, 1)
}

func TestOnChange_ReceivesChanges(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceLight)

	var changes []Change
	unregister := r.OnChange(func(c Change) { changes = append(changes, c) })

	r.Initialize()
	defer r.Teardown()

	r.SetPreference(model.PreferenceLight)
	notifier.set(model.AppearanceDark) // ignored while explicit
	r.SetPreference(model.PreferenceSystem)

	require.Len(t, changes, 3)

	assert.Equal(t, model.TriggerInit, changes[0].Trigger)
	assert.True(t, changes[0].Changed, "first apply is always a change")

	assert.Equal(t, model.TriggerUser, changes[1].Trigger)
	assert.False(t, changes[1].Changed, "system light to explicit light keeps the appearance")
	assert.Equal(t, model.PreferenceSystem, changes[1].Previous)

	assert.Equal(t, model.PreferenceSystem, changes[2].Preference)
	assert.Equal(t, model.AppearanceDark, changes[2].Appearance)
	assert.True(t, changes[2].Changed)

	unregister()
	r.SetPreference(model.PreferenceLight)
	assert.Len(t, changes, 3)
}

func TestOnChange_ObserverMayReadState(t *testing.T) {
	r, _, _ := newTestResolver(t, model.AppearanceLight)

	var seen model.Appearance
	r.OnChange(func(Change) { seen = r.Effective() })

	r.Initialize()
	defer r.Teardown()
	r.SetPreference(model.PreferenceDark)

	assert.Equal(t, model.AppearanceDark, seen)
}

func TestConcurrentEntryPoints(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceLight)

	var mu sync.Mutex
	var observed []Change
	r.OnChange(func(c Change) {
		mu.Lock()
		observed = append(observed, c)
		mu.Unlock()
	})

	r.Initialize()
	defer r.Teardown()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				r.Toggle()
			} else {
				r.SetPreference(model.PreferenceSystem)
			}
		}()
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				notifier.set(model.AppearanceDark)
			} else {
				notifier.set(model.AppearanceLight)
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, observed)

	// Delivered in the order applied: each change starts from the
	// preference the previous one left.
	for i := 1; i < len(observed); i++ {
		assert.Equal(t, observed[i-1].Preference, observed[i].Previous, "change %d", i)
	}

	last := observed[len(observed)-1]
	assert.Equal(t, r.Preference(), last.Preference)
	assert.Equal(t, r.Effective(), last.Appearance)
}

func TestObserversSeeChangesInApplyOrder(t *testing.T) {
	r, _, notifier := newTestResolver(t, model.AppearanceLight)
	r.Initialize()
	defer r.Teardown()

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var last Change
	r.OnChange(func(c Change) {
		if c.Trigger == model.TriggerSystem {
			close(entered)
			<-release
		}
		mu.Lock()
		last = c
		mu.Unlock()
	})

	osDone := make(chan struct{})
	go func() {
		notifier.set(model.AppearanceDark)
		close(osDone)
	}()
	<-entered

	setDone := make(chan struct{})
	go func() {
		r.SetPreference(model.PreferenceLight)
		close(setDone)
	}()

	select {
	case <-setDone:
		t.Fatal("SetPreference applied while an earlier change was still being delivered")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-osDone
	<-setDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, model.AppearanceLight, r.Effective())
	assert.Equal(t, r.Effective(), last.Appearance)
	assert.Equal(t, model.TriggerUser, last.Trigger)
}
