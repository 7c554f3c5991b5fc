package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/themed/internal/model"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text    string `json:"text"`
	Alt     string `json:"alt,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
	Class   string `json:"class,omitempty"`
}

// WaybarFormatter writes a single-line Waybar custom module status.
//
// Use it with a custom module like:
//
//	"custom/theme": {
//	  "exec": "themectl status",
//	  "interval": 5,
//	  "return-type": "json",
//	  "format": "{alt}: {}",
//	  "on-click": "themectl toggle -q"
//	}
type WaybarFormatter struct{}

// NewWaybarFormatter creates a new Waybar formatter.
func NewWaybarFormatter() *WaybarFormatter {
	return &WaybarFormatter{}
}

// NewWaybarStatus builds the Waybar payload for a status.
// alt is the preference so icons can distinguish system tracking;
// class is the effective appearance.
func NewWaybarStatus(s *Status) WaybarStatus {
	lines := []string{
		fmt.Sprintf("Preference: %s", s.Preference),
		fmt.Sprintf("Appearance: %s", s.Appearance),
	}
	if s.Source != "" && s.Mode == model.ModeTracking {
		lines = append(lines, fmt.Sprintf("Source: %s", s.Source))
	}
	if s.LastChange != nil {
		lines = append(lines, fmt.Sprintf("Changed: %s", relativeTime(s.LastChange.Timestamp)))
	}

	return WaybarStatus{
		Text:    s.Appearance.String(),
		Alt:     s.Preference.String(),
		Tooltip: strings.Join(lines, "\n"),
		Class:   s.Appearance.String(),
	}
}

// FormatStatus writes the Waybar JSON on one line.
func (f *WaybarFormatter) FormatStatus(w io.Writer, s *Status) error {
	data, err := json.Marshal(NewWaybarStatus(s))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// FormatHistory is not supported by Waybar output.
func (f *WaybarFormatter) FormatHistory(io.Writer, []model.Transition) error {
	return fmt.Errorf("waybar history: %w", ErrUnsupported)
}
