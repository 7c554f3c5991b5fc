package dbus

import (
	"fmt"

	"github.com/jmylchreest/themed/internal/model"
)

// EmitAppearanceChanged emits the AppearanceChanged signal.
// This signal is emitted every time the daemon applies an appearance.
func (s *Server) EmitAppearanceChanged(preference model.Preference, appearance model.Appearance, trigger model.Trigger) error {
	s.mu.RLock()
	conn := s.conn
	running := s.running
	s.mu.RUnlock()

	if conn == nil || !running {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := conn.Emit(DBusPath, DBusInterface+".AppearanceChanged",
		preference.String(), appearance.String(), string(trigger))
	if err != nil {
		return fmt.Errorf("failed to emit AppearanceChanged signal: %w", err)
	}

	s.logger.Debug("emitted AppearanceChanged signal",
		"preference", preference, "appearance", appearance, "trigger", trigger)
	return nil
}
