package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/themed/internal/model"
)

const (
	portalDest              = "org.freedesktop.portal.Desktop"
	portalPath              = "/org/freedesktop/portal/desktop"
	portalSettingsInterface = "org.freedesktop.portal.Settings"

	// AppearanceNamespace is the portal settings namespace for appearance keys.
	AppearanceNamespace = "org.freedesktop.appearance"
	// ColorSchemeKey is the portal settings key for the light/dark preference.
	ColorSchemeKey = "color-scheme"

	detectorNamePortal = "portal"
	priorityPortal     = 100

	portalCallTimeout = 2 * time.Second
)

// ErrPortalUnavailable is returned when the settings portal cannot be reached.
var ErrPortalUnavailable = errors.New("settings portal unavailable")

// Portal reads and follows the XDG Desktop Portal color-scheme setting.
// It satisfies appearance.ChangeSource. A Portal without a reachable portal
// is still usable and reports itself unavailable.
type Portal struct {
	mu        sync.Mutex
	conn      *dbus.Conn
	logger    *slog.Logger
	supported bool

	handlers map[int]func()
	nextID   int
	sigCh    chan *dbus.Signal
}

// NewPortal connects to the session bus and probes the settings portal.
func NewPortal(logger *slog.Logger) *Portal {
	if logger == nil {
		logger = slog.Default()
	}

	p := &Portal{
		logger:   logger,
		handlers: make(map[int]func()),
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		logger.Debug("portal: cannot connect to D-Bus session bus", "error", err)
		return p
	}
	p.conn = conn

	scheme, err := p.ColorScheme()
	if err != nil {
		logger.Debug("portal: settings interface not available", "error", err)
		return p
	}

	p.supported = true
	logger.Debug("portal: settings available", "color_scheme", scheme.String())
	return p
}

// Name implements appearance.Detector.
func (*Portal) Name() string {
	return detectorNamePortal
}

// Priority implements appearance.Detector.
func (*Portal) Priority() int {
	return priorityPortal
}

// Available implements appearance.Detector.
func (p *Portal) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

// Detect implements appearance.Detector. "No preference" is not an answer.
func (p *Portal) Detect() (model.Appearance, bool) {
	scheme, err := p.ColorScheme()
	if err != nil {
		p.logger.Debug("portal: failed to read color-scheme", "error", err)
		return "", false
	}
	return scheme.Appearance()
}

// ColorScheme reads the current color-scheme setting.
// ReadOne is tried first; the deprecated Read is used on older portals.
func (p *Portal) ColorScheme() (ColorScheme, error) {
	if p.conn == nil {
		return ColorSchemeNoPreference, ErrPortalUnavailable
	}

	ctx, cancel := context.WithTimeout(context.Background(), portalCallTimeout)
	defer cancel()

	obj := p.conn.Object(portalDest, portalPath)

	var value dbus.Variant
	err := obj.CallWithContext(ctx, portalSettingsInterface+".ReadOne", 0,
		AppearanceNamespace, ColorSchemeKey).Store(&value)
	if err != nil {
		// ReadOne might not be available (portal version < 2)
		if readErr := obj.CallWithContext(ctx, portalSettingsInterface+".Read", 0,
			AppearanceNamespace, ColorSchemeKey).Store(&value); readErr != nil {
			return ColorSchemeNoPreference, fmt.Errorf("portal read %s %s: %w", AppearanceNamespace, ColorSchemeKey, readErr)
		}
	}

	scheme, ok := colorSchemeFromValue(value)
	if !ok {
		return ColorSchemeNoPreference, fmt.Errorf("unexpected color-scheme value type %s", value.Signature())
	}
	return scheme, nil
}

// Subscribe implements appearance.ChangeSource.
// onChange is called from a dedicated goroutine for every color-scheme change.
func (p *Portal) Subscribe(onChange func()) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.supported || p.conn == nil {
		return nil, ErrPortalUnavailable
	}

	if len(p.handlers) == 0 {
		if err := p.conn.AddMatchSignal(p.matchOptions()...); err != nil {
			return nil, fmt.Errorf("failed to add SettingChanged match: %w", err)
		}
		p.sigCh = make(chan *dbus.Signal, 16)
		p.conn.Signal(p.sigCh)
		go p.dispatch(p.sigCh)
	}

	id := p.nextID
	p.nextID++
	p.handlers[id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() { p.unsubscribe(id) })
	}, nil
}

func (p *Portal) unsubscribe(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.handlers, id)
	if len(p.handlers) > 0 || p.sigCh == nil {
		return
	}

	if err := p.conn.RemoveMatchSignal(p.matchOptions()...); err != nil {
		p.logger.Warn("portal: failed to remove SettingChanged match", "error", err)
	}
	p.conn.RemoveSignal(p.sigCh)
	close(p.sigCh)
	p.sigCh = nil
}

func (p *Portal) matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(portalPath),
		dbus.WithMatchInterface(portalSettingsInterface),
		dbus.WithMatchMember("SettingChanged"),
		dbus.WithMatchArg(0, AppearanceNamespace),
	}
}

// dispatch delivers color-scheme changes to handlers.
func (p *Portal) dispatch(ch <-chan *dbus.Signal) {
	for sig := range ch {
		changed, ok := parseSettingChanged(sig)
		if !ok || !changed.isColorScheme() {
			continue
		}

		scheme, _ := colorSchemeFromValue(changed.Value)
		p.logger.Debug("portal: color-scheme changed", "color_scheme", scheme.String())

		p.mu.Lock()
		handlers := make([]func(), 0, len(p.handlers))
		for _, h := range p.handlers {
			handlers = append(handlers, h)
		}
		p.mu.Unlock()

		for _, h := range handlers {
			h()
		}
	}
}

// Close releases the portal connection.
func (p *Portal) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.supported = false
	if p.sigCh != nil {
		p.conn.RemoveSignal(p.sigCh)
		close(p.sigCh)
		p.sigCh = nil
	}
	p.handlers = make(map[int]func())

	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
