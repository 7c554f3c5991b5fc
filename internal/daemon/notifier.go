package daemon

import (
	"log/slog"

	"github.com/jmylchreest/themed/internal/appearance"
	"github.com/jmylchreest/themed/internal/config"
	"github.com/jmylchreest/themed/internal/dbus"
	"github.com/jmylchreest/themed/internal/model"
	"github.com/jmylchreest/themed/internal/theme"
)

// SourceOverride names the appearance source when it is forced.
const SourceOverride = "override"

// OSNotifier is the resolver's notifier plus what status output needs.
type OSNotifier interface {
	theme.Notifier
	// Source names the detector that answered the last query.
	Source() string
	// Close releases detector resources.
	Close() error
}

// NewNotifier builds the OS appearance notifier from config.
// A valid forced appearance skips detection entirely.
func NewNotifier(cfg *config.Config, forced model.Appearance, logger *slog.Logger) OSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if forced.Valid() {
		logger.Debug("appearance forced", "appearance", forced)
		return staticNotifier{Static: appearance.Static{Appearance: forced}}
	}

	var (
		detectors []appearance.Detector
		portal    *dbus.Portal
	)
	if cfg.Detect.Portal {
		portal = dbus.NewPortal(logger)
		if portal.Available() {
			detectors = append(detectors, portal)
		}
	}
	if cfg.Detect.Env {
		detectors = append(detectors, appearance.NewEnvDetector())
	}
	if cfg.Detect.Gsettings {
		detectors = append(detectors, appearance.NewGsettingsDetector())
	}

	monitor := appearance.NewMonitor(cfg.FallbackAppearance(), logger, detectors...)
	monitor.SetPollInterval(cfg.Detect.PollInterval.Duration())
	logger.Debug("appearance detectors", "detectors", monitor.Detectors())

	return &monitorNotifier{Monitor: monitor, portal: portal}
}

type monitorNotifier struct {
	*appearance.Monitor
	portal *dbus.Portal
}

func (m *monitorNotifier) Close() error {
	if m.portal != nil {
		return m.portal.Close()
	}
	return nil
}

type staticNotifier struct {
	appearance.Static
}

func (staticNotifier) Source() string { return SourceOverride }
func (staticNotifier) Close() error   { return nil }
