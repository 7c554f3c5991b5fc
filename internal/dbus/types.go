package dbus

import (
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/themed/internal/model"
)

// ColorScheme is the org.freedesktop.appearance color-scheme value.
// These values are defined by the XDG Desktop Portal Settings interface.
type ColorScheme uint32

const (
	// ColorSchemeNoPreference means the user has no light/dark preference.
	ColorSchemeNoPreference ColorScheme = 0
	// ColorSchemePreferDark means the user prefers a dark appearance.
	ColorSchemePreferDark ColorScheme = 1
	// ColorSchemePreferLight means the user prefers a light appearance.
	ColorSchemePreferLight ColorScheme = 2
)

// String returns the string representation of the color scheme.
func (c ColorScheme) String() string {
	switch c {
	case ColorSchemePreferDark:
		return "prefer-dark"
	case ColorSchemePreferLight:
		return "prefer-light"
	default:
		return "default"
	}
}

// Appearance maps the color scheme to an appearance.
// Returns false for no preference.
func (c ColorScheme) Appearance() (model.Appearance, bool) {
	switch c {
	case ColorSchemePreferDark:
		return model.AppearanceDark, true
	case ColorSchemePreferLight:
		return model.AppearanceLight, true
	default:
		return "", false
	}
}

// colorSchemeFromValue decodes a portal setting value. The deprecated Read
// method wraps the value in an extra variant, so nested variants are
// unwrapped. Unknown values are treated as no preference.
func colorSchemeFromValue(v any) (ColorScheme, bool) {
	for {
		variant, ok := v.(dbus.Variant)
		if !ok {
			break
		}
		v = variant.Value()
	}

	var raw uint32
	switch val := v.(type) {
	case uint32:
		raw = val
	case int32:
		raw = uint32(val)
	case byte:
		raw = uint32(val)
	default:
		return ColorSchemeNoPreference, false
	}

	if raw > uint32(ColorSchemePreferLight) {
		return ColorSchemeNoPreference, true
	}
	return ColorScheme(raw), true
}

// settingChanged is a parsed org.freedesktop.portal.Settings.SettingChanged signal.
type settingChanged struct {
	Namespace string
	Key       string
	Value     any
}

// parseSettingChanged extracts (namespace, key, value) from a signal body.
func parseSettingChanged(sig *dbus.Signal) (settingChanged, bool) {
	if sig == nil || sig.Name != portalSettingsInterface+".SettingChanged" || len(sig.Body) < 3 {
		return settingChanged{}, false
	}
	namespace, ok := sig.Body[0].(string)
	if !ok {
		return settingChanged{}, false
	}
	key, ok := sig.Body[1].(string)
	if !ok {
		return settingChanged{}, false
	}
	return settingChanged{Namespace: namespace, Key: key, Value: sig.Body[2]}, true
}

// isColorScheme reports whether the setting is the appearance color-scheme.
func (s settingChanged) isColorScheme() bool {
	return s.Namespace == AppearanceNamespace && s.Key == ColorSchemeKey
}
