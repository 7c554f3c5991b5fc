package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jmylchreest/themed/internal/model"
)

// DefaultStatusTemplate is used by the template format when none is given.
const DefaultStatusTemplate = "{{.Appearance}}"

// TemplateFormatter renders status and history through a text/template.
// Status templates see a Status; history templates are executed once per
// transition and see a model.Transition.
type TemplateFormatter struct {
	template *template.Template
}

// NewTemplateFormatter parses tmpl. A missing trailing newline is added.
func NewTemplateFormatter(tmpl string) (*TemplateFormatter, error) {
	if tmpl == "" {
		tmpl = DefaultStatusTemplate
	}
	if !strings.HasSuffix(tmpl, "\n") {
		tmpl += "\n"
	}

	t, err := template.New("output").Funcs(templateFuncs()).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &TemplateFormatter{template: t}, nil
}

// FormatStatus executes the template against the status.
func (f *TemplateFormatter) FormatStatus(w io.Writer, s *Status) error {
	return f.template.Execute(w, s)
}

// FormatHistory executes the template once per transition.
func (f *TemplateFormatter) FormatHistory(w io.Writer, transitions []model.Transition) error {
	for i := range transitions {
		if err := f.template.Execute(w, &transitions[i]); err != nil {
			return err
		}
	}
	return nil
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"reltime": relativeTime,
		"upper": func(v any) string {
			return strings.ToUpper(fmt.Sprint(v))
		},
		"pick": func(a model.Appearance, light, dark string) string {
			if a == model.AppearanceDark {
				return dark
			}
			return light
		},
	}
}
