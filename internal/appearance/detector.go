// Package appearance reports the OS light/dark appearance. It combines
// prioritized detectors into a single notifier the resolver can query and
// subscribe to.
package appearance

import (
	"os"
	"os/exec"
	"strings"

	"github.com/jmylchreest/themed/internal/model"
)

// Detector probes one source of the OS color-scheme preference.
type Detector interface {
	// Name returns a human-readable name for this detector.
	Name() string

	// Priority returns the detector's priority.
	// Higher values are checked first.
	Priority() int

	// Available returns true if this detector can be used.
	Available() bool

	// Detect returns the detected appearance and whether detection succeeded.
	Detect() (model.Appearance, bool)
}

// ChangeSource is a detector that can push change notifications.
type ChangeSource interface {
	Detector

	// Subscribe registers onChange and returns a function to unregister it.
	Subscribe(onChange func()) (func(), error)
}

const (
	detectorNameEnv = "GTK_THEME"
	priorityEnv     = 20

	detectorNameGsettings = "gsettings"
	priorityGsettings     = 10
)

// EnvDetector detects the appearance from the GTK_THEME environment variable.
type EnvDetector struct {
	getenv func(string) string
}

// NewEnvDetector creates a new environment variable-based detector.
func NewEnvDetector() *EnvDetector {
	return &EnvDetector{getenv: os.Getenv}
}

func (*EnvDetector) Name() string  { return detectorNameEnv }
func (*EnvDetector) Priority() int { return priorityEnv }

// Available returns true if GTK_THEME is set.
func (d *EnvDetector) Available() bool {
	return d.getenv("GTK_THEME") != ""
}

// Detect reports dark if GTK_THEME names a dark variant (e.g. "Adwaita:dark").
func (d *EnvDetector) Detect() (model.Appearance, bool) {
	gtkTheme := d.getenv("GTK_THEME")
	if gtkTheme == "" {
		return "", false
	}
	if strings.Contains(strings.ToLower(gtkTheme), "dark") {
		return model.AppearanceDark, true
	}
	return model.AppearanceLight, true
}

// GsettingsDetector reads org.gnome.desktop.interface color-scheme.
type GsettingsDetector struct {
	run func() ([]byte, error)
}

// NewGsettingsDetector creates a new gsettings-based detector.
func NewGsettingsDetector() *GsettingsDetector {
	return &GsettingsDetector{
		run: func() ([]byte, error) {
			return exec.Command("gsettings", "get", "org.gnome.desktop.interface", "color-scheme").Output()
		},
	}
}

func (*GsettingsDetector) Name() string  { return detectorNameGsettings }
func (*GsettingsDetector) Priority() int { return priorityGsettings }

// Available returns true if the gsettings command is on PATH.
func (*GsettingsDetector) Available() bool {
	_, err := exec.LookPath("gsettings")
	return err == nil
}

// Detect parses output like "'prefer-dark'". "default" is no answer.
func (d *GsettingsDetector) Detect() (model.Appearance, bool) {
	output, err := d.run()
	if err != nil {
		return "", false
	}
	return parseGsettings(string(output))
}

func parseGsettings(output string) (model.Appearance, bool) {
	result := strings.Trim(strings.TrimSpace(output), `'"`)
	switch result {
	case "prefer-dark":
		return model.AppearanceDark, true
	case "prefer-light":
		return model.AppearanceLight, true
	default:
		return "", false
	}
}
