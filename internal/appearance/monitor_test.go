package appearance

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themed/internal/model"
)

// mockDetector implements Detector for testing.
type mockDetector struct {
	mu         sync.Mutex
	name       string
	priority   int
	available  bool
	appearance model.Appearance
	detectOk   bool
}

func (m *mockDetector) Name() string    { return m.name }
func (m *mockDetector) Priority() int   { return m.priority }
func (m *mockDetector) Available() bool { return m.available }

func (m *mockDetector) Detect() (model.Appearance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appearance, m.detectOk
}

func (m *mockDetector) set(a model.Appearance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appearance = a
	m.detectOk = true
}

// mockSource implements ChangeSource for testing.
type mockSource struct {
	mockDetector
	handlers  []func()
	cancelled int
	err       error
}

func (m *mockSource) Subscribe(onChange func()) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.handlers = append(m.handlers, onChange)
	return func() { m.cancelled++ }, nil
}

func (m *mockSource) emit(a model.Appearance) {
	m.set(a)
	for _, h := range m.handlers {
		h()
	}
}

func TestMonitor_QueryPriority(t *testing.T) {
	low := &mockDetector{name: "low", priority: 10, available: true, appearance: model.AppearanceDark, detectOk: true}
	high := &mockDetector{name: "high", priority: 100, available: true, appearance: model.AppearanceLight, detectOk: true}

	m := NewMonitor(model.AppearanceDark, nil, low, high)

	assert.Equal(t, model.AppearanceLight, m.Query())
	assert.Equal(t, "high", m.Source())
	assert.Equal(t, []string{"high", "low"}, m.Detectors())
}

func TestMonitor_SkipsUnavailableAndFailing(t *testing.T) {
	unavailable := &mockDetector{name: "unavailable", priority: 100, available: false, appearance: model.AppearanceLight, detectOk: true}
	failing := &mockDetector{name: "failing", priority: 50, available: true, detectOk: false}
	working := &mockDetector{name: "working", priority: 10, available: true, appearance: model.AppearanceDark, detectOk: true}

	m := NewMonitor(model.AppearanceLight, nil, unavailable, failing, working)

	assert.Equal(t, model.AppearanceDark, m.Query())
	assert.Equal(t, "working", m.Source())
}

func TestMonitor_Fallback(t *testing.T) {
	tests := []struct {
		name     string
		fallback model.Appearance
		expected model.Appearance
	}{
		{"light", model.AppearanceLight, model.AppearanceLight},
		{"dark", model.AppearanceDark, model.AppearanceDark},
		{"invalid defaults to light", model.Appearance("purple"), model.AppearanceLight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(tt.fallback, nil)
			assert.Equal(t, tt.expected, m.Query())
			assert.Equal(t, SourceFallback, m.Source())
		})
	}
}

func TestMonitor_SubscribeUsesChangeSource(t *testing.T) {
	src := &mockSource{mockDetector: mockDetector{name: "portal", priority: 100, available: true, appearance: model.AppearanceLight, detectOk: true}}
	m := NewMonitor(model.AppearanceLight, nil, src)

	var calls atomic.Int32
	sub := m.Subscribe(func() { calls.Add(1) })

	src.emit(model.AppearanceDark)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, model.AppearanceDark, m.Query())

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 1, src.cancelled)

	src.emit(model.AppearanceLight)
	assert.Equal(t, int32(1), calls.Load())
}

func TestMonitor_SharesSourceAcrossSubscribers(t *testing.T) {
	src := &mockSource{mockDetector: mockDetector{name: "portal", priority: 100, available: true, detectOk: false}}
	m := NewMonitor(model.AppearanceLight, nil, src)

	var a, b atomic.Int32
	subA := m.Subscribe(func() { a.Add(1) })
	subB := m.Subscribe(func() { b.Add(1) })
	require.Len(t, src.handlers, 1, "source should be subscribed once")

	src.emit(model.AppearanceDark)
	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())

	subA.Cancel()
	assert.Equal(t, 0, src.cancelled)
	subB.Cancel()
	assert.Equal(t, 1, src.cancelled)
}

func TestMonitor_PollsWithoutChangeSource(t *testing.T) {
	det := &mockDetector{name: "env", priority: 20, available: true, appearance: model.AppearanceLight, detectOk: true}
	m := NewMonitor(model.AppearanceLight, nil, det)
	m.SetPollInterval(10 * time.Millisecond)

	var calls atomic.Int32
	sub := m.Subscribe(func() { calls.Add(1) })
	defer sub.Cancel()

	det.set(model.AppearanceDark)

	assert.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestMonitor_FailedSourceFallsBackToPolling(t *testing.T) {
	src := &mockSource{
		mockDetector: mockDetector{name: "portal", priority: 100, available: true, appearance: model.AppearanceLight, detectOk: true},
		err:          errors.New("no bus"),
	}
	m := NewMonitor(model.AppearanceLight, nil, src)
	m.SetPollInterval(10 * time.Millisecond)

	var calls atomic.Int32
	sub := m.Subscribe(func() { calls.Add(1) })
	defer sub.Cancel()

	src.set(model.AppearanceDark)

	assert.Eventually(t, func() bool { return calls.Load() >= 1 },
		time.Second, 5*time.Millisecond)
}

func TestStatic(t *testing.T) {
	s := Static{Appearance: model.AppearanceDark}
	assert.Equal(t, model.AppearanceDark, s.Query())

	sub := s.Subscribe(func() { t.Fatal("static notifier must never fire") })
	sub.Cancel()

	assert.Equal(t, model.AppearanceLight, Static{}.Query())
}
