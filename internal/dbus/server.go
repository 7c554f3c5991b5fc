package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/themed/internal/model"
)

const (
	// DBusInterface is the themed control interface name.
	DBusInterface = "io.github.jmylchreest.Themed1"
	// DBusPath is the themed object path.
	DBusPath = "/io/github/jmylchreest/Themed1"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.Themed1"

	// ErrorInvalidPreference is the D-Bus error name for unknown preferences.
	ErrorInvalidPreference = DBusInterface + ".Error.InvalidPreference"
)

// Controller is the preference state the server exposes.
// theme.Resolver satisfies it.
type Controller interface {
	Preference() model.Preference
	Effective() model.Appearance
	SetPreference(p model.Preference)
	Toggle()
}

// Server exports the io.github.jmylchreest.Themed1 interface.
type Server struct {
	conn       *dbus.Conn
	logger     *slog.Logger
	controller Controller

	mu      sync.RWMutex
	running bool
}

// NewServer creates a server that forwards method calls to controller.
func NewServer(controller Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		controller: controller,
		logger:     logger,
	}
}

// Start connects to the session bus and exports the control interface.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: themedMethods(),
				Signals: themedSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.conn = conn
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus server started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, DBusPath, DBusInterface)
		_ = s.conn.Export(nil, DBusPath, "org.freedesktop.DBus.Introspectable")
		// Don't close the connection as it's shared (SessionBus)
	}

	s.logger.Info("D-Bus server stopped")
	return nil
}

// GetPreference returns the stored preference.
// D-Bus method: GetPreference() -> s
func (s *Server) GetPreference() (string, *dbus.Error) {
	return s.controller.Preference().String(), nil
}

// GetAppearance returns the effective appearance.
// D-Bus method: GetAppearance() -> s
func (s *Server) GetAppearance() (string, *dbus.Error) {
	return s.controller.Effective().String(), nil
}

// SetPreference changes the preference.
// D-Bus method: SetPreference(s) -> nothing
func (s *Server) SetPreference(preference string) *dbus.Error {
	p, err := model.ParsePreference(preference)
	if err != nil {
		s.logger.Debug("SetPreference rejected", "preference", preference)
		return dbus.NewError(ErrorInvalidPreference, []any{err.Error()})
	}

	s.logger.Debug("SetPreference called", "preference", p)
	s.controller.SetPreference(p)
	return nil
}

// Toggle switches to the opposite explicit appearance and returns it.
// D-Bus method: Toggle() -> s
func (s *Server) Toggle() (string, *dbus.Error) {
	s.logger.Debug("Toggle called")
	s.controller.Toggle()
	return s.controller.Effective().String(), nil
}

func themedMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "GetPreference",
			Args: []introspect.Arg{
				{Name: "preference", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "GetAppearance",
			Args: []introspect.Arg{
				{Name: "appearance", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "SetPreference",
			Args: []introspect.Arg{
				{Name: "preference", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Toggle",
			Args: []introspect.Arg{
				{Name: "appearance", Type: "s", Direction: "out"},
			},
		},
	}
}

func themedSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "AppearanceChanged",
			Args: []introspect.Arg{
				{Name: "preference", Type: "s"},
				{Name: "appearance", Type: "s"},
				{Name: "trigger", Type: "s"},
			},
		},
	}
}
