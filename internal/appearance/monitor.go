package appearance

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/theme"
)

const (
	// SourceFallback indicates no detector provided the appearance.
	SourceFallback = "fallback"

	// DefaultPollInterval is used when no detector can push changes.
	DefaultPollInterval = 2 * time.Second
)

// Monitor implements theme.Notifier over a set of detectors.
// Query asks detectors by descending priority; Subscribe uses push-capable
// detectors and falls back to polling.
type Monitor struct {
	mu           sync.Mutex
	logger       *slog.Logger
	detectors    []Detector
	fallback     model.Appearance
	pollInterval time.Duration

	lastSource string

	subs   map[int]func()
	nextID int

	// Active while there is at least one subscriber.
	sourceCancels []func()
	stopPoll      chan struct{}
	pollDone      chan struct{}
}

// NewMonitor creates a monitor. fallback is reported when no detector answers.
func NewMonitor(fallback model.Appearance, logger *slog.Logger, detectors ...Detector) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if !fallback.Valid() {
		fallback = model.AppearanceLight
	}

	sorted := make([]Detector, len(detectors))
	copy(sorted, detectors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})

	return &Monitor{
		logger:       logger,
		detectors:    sorted,
		fallback:     fallback,
		pollInterval: DefaultPollInterval,
		lastSource:   SourceFallback,
		subs:         make(map[int]func()),
	}
}

// SetPollInterval sets the polling interval used without a change source.
// Takes effect on the next first subscription.
func (m *Monitor) SetPollInterval(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if interval > 0 {
		m.pollInterval = interval
	}
}

// Query returns the current OS appearance.
func (m *Monitor) Query() model.Appearance {
	a, source := m.detect()

	m.mu.Lock()
	m.lastSource = source
	m.mu.Unlock()

	return a
}

// Source returns the name of the detector that answered the last Query.
func (m *Monitor) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSource
}

// Detectors returns the registered detector names in priority order.
func (m *Monitor) Detectors() []string {
	names := make([]string, 0, len(m.detectors))
	for _, d := range m.detectors {
		names = append(names, d.Name())
	}
	return names
}

func (m *Monitor) detect() (model.Appearance, string) {
	for _, d := range m.detectors {
		if !d.Available() {
			continue
		}
		if a, ok := d.Detect(); ok {
			return a, d.Name()
		}
	}
	return m.fallback, SourceFallback
}

// Subscribe registers onChange for OS appearance changes.
func (m *Monitor) Subscribe(onChange func()) theme.Subscription {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = onChange
	first := len(m.subs) == 1
	m.mu.Unlock()

	if first {
		m.start()
	}

	return &subscription{cancel: func() { m.unsubscribe(id) }}
}

func (m *Monitor) unsubscribe(id int) {
	m.mu.Lock()
	if _, ok := m.subs[id]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.subs, id)
	last := len(m.subs) == 0
	m.mu.Unlock()

	if last {
		m.stop()
	}
}

// start hooks up change sources, or the poll loop when none is available.
func (m *Monitor) start() {
	var cancels []func()
	for _, d := range m.detectors {
		src, ok := d.(ChangeSource)
		if !ok || !src.Available() {
			continue
		}
		cancel, err := src.Subscribe(m.fire)
		if err != nil {
			m.logger.Warn("failed to subscribe to appearance source", "source", d.Name(), "error", err)
			continue
		}
		m.logger.Debug("subscribed to appearance source", "source", d.Name())
		cancels = append(cancels, cancel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sourceCancels = cancels
	if len(cancels) > 0 {
		return
	}

	m.stopPoll = make(chan struct{})
	m.pollDone = make(chan struct{})
	go m.pollLoop(m.pollInterval, m.stopPoll, m.pollDone)
	m.logger.Debug("polling appearance", "interval", m.pollInterval)
}

func (m *Monitor) stop() {
	m.mu.Lock()
	cancels := m.sourceCancels
	m.sourceCancels = nil
	stopPoll, pollDone := m.stopPoll, m.pollDone
	m.stopPoll, m.pollDone = nil, nil
	m.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if stopPoll != nil {
		close(stopPoll)
		<-pollDone
	}
}

func (m *Monitor) pollLoop(interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last, _ := m.detect()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			current, source := m.detect()
			if current == last {
				continue
			}
			last = current
			m.logger.Debug("polled appearance changed", "appearance", current, "source", source)
			m.fire()
		}
	}
}

// fire invokes all subscribers outside the lock.
func (m *Monitor) fire() {
	m.mu.Lock()
	handlers := make([]func(), 0, len(m.subs))
	for _, h := range m.subs {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h()
	}
}

type subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel unregisters the subscription. Safe to call more than once.
func (s *subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Static is a notifier with a fixed appearance that never changes.
type Static struct {
	Appearance model.Appearance
}

// Query returns the fixed appearance.
func (s Static) Query() model.Appearance {
	if !s.Appearance.Valid() {
		return model.AppearanceLight
	}
	return s.Appearance
}

// Subscribe returns a subscription that never fires.
func (Static) Subscribe(func()) theme.Subscription {
	return &subscription{cancel: func() {}}
}

var (
	_ theme.Notifier = (*Monitor)(nil)
	_ theme.Notifier = Static{}
)
