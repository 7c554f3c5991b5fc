// Package output provides output formatters for theme status and history.
package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/themed/internal/model"
)

// ErrUnsupported is returned when a format cannot render the requested data.
var ErrUnsupported = errors.New("unsupported by this format")

// Status is a snapshot of the resolver state.
type Status struct {
	Preference model.Preference  `json:"preference" yaml:"preference"`
	Appearance model.Appearance  `json:"appearance" yaml:"appearance"`
	Mode       model.Mode        `json:"mode" yaml:"mode"`
	Source     string            `json:"source" yaml:"source"`
	LastChange *model.Transition `json:"last_change,omitempty" yaml:"last_change,omitempty"`
}

// Formatter formats theme status and transition history for output.
type Formatter interface {
	// FormatStatus writes the current status.
	FormatStatus(w io.Writer, s *Status) error
	// FormatHistory writes transitions in the given order.
	FormatHistory(w io.Writer, transitions []model.Transition) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain    FormatType = "plain"
	FormatJSON     FormatType = "json"
	FormatYAML     FormatType = "yaml"
	FormatWaybar   FormatType = "waybar"
	FormatTemplate FormatType = "template"
)

// FormatTypes returns all known format names.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatWaybar, FormatTemplate}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template string // Template for the template format
	Color    bool   // Style plain output with ANSI colors
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatPlain, "":
		return NewPlainFormatter(opts), nil
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatWaybar:
		return NewWaybarFormatter(), nil
	case FormatTemplate:
		return NewTemplateFormatter(opts.Template)
	default:
		return nil, fmt.Errorf("unknown format %q, must be one of: %v", format, FormatTypes())
	}
}

// relativeTime returns a human-readable relative time string.
func relativeTime(timestamp int64) string {
	if timestamp == 0 {
		return "never"
	}
	return humanize.Time(time.Unix(timestamp, 0))
}
