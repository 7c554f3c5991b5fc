package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmylchreest/themed/internal/model"
)

// PlainFormatter formats status and history as plain text.
type PlainFormatter struct {
	opts FormatterOptions

	labelStyle lipgloss.Style
	valueStyle lipgloss.Style
	dimStyle   lipgloss.Style
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{
		opts:       opts,
		labelStyle: lipgloss.NewStyle(),
		valueStyle: lipgloss.NewStyle(),
		dimStyle:   lipgloss.NewStyle(),
	}
	if opts.Color {
		f.labelStyle = f.labelStyle.Foreground(lipgloss.Color("8"))
		f.valueStyle = f.valueStyle.Bold(true).Foreground(lipgloss.Color("12"))
		f.dimStyle = f.dimStyle.Foreground(lipgloss.Color("8"))
	}
	return f
}

// FormatStatus writes one "label: value" line per field.
func (f *PlainFormatter) FormatStatus(w io.Writer, s *Status) error {
	var sb strings.Builder

	f.line(&sb, "preference", fmt.Sprintf("%s %s", f.valueStyle.Render(s.Preference.String()),
		f.dimStyle.Render("("+string(s.Mode)+")")))
	f.line(&sb, "appearance", f.valueStyle.Render(s.Appearance.String()))
	if s.Source != "" {
		f.line(&sb, "source", s.Source)
	}
	if s.LastChange != nil {
		f.line(&sb, "changed", fmt.Sprintf("%s %s", relativeTime(s.LastChange.Timestamp),
			f.dimStyle.Render("("+describeTransition(s.LastChange)+")")))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *PlainFormatter) line(sb *strings.Builder, label, value string) {
	sb.WriteString(f.labelStyle.Render(fmt.Sprintf("%-12s", label+":")))
	sb.WriteString(value)
	sb.WriteString("\n")
}

// FormatHistory writes one line per transition.
func (f *PlainFormatter) FormatHistory(w io.Writer, transitions []model.Transition) error {
	for i := range transitions {
		t := &transitions[i]
		line := fmt.Sprintf("%s  %-16s %s %s\n",
			f.dimStyle.Render(t.ID),
			relativeTime(t.Timestamp),
			f.valueStyle.Render(t.Appearance.String()),
			f.dimStyle.Render("("+describeTransition(t)+")"),
		)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// describeTransition returns e.g. "system -> dark, user via cli".
func describeTransition(t *model.Transition) string {
	var sb strings.Builder
	if t.PreferenceChanged() && t.From != "" {
		sb.WriteString(fmt.Sprintf("%s -> %s", t.From, t.To))
	} else {
		sb.WriteString(t.To.String())
	}
	sb.WriteString(", ")
	sb.WriteString(string(t.Trigger))
	if t.Source != "" {
		sb.WriteString(" via ")
		sb.WriteString(t.Source)
	}
	return sb.String()
}
