package output

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/themed/internal/model"
)

// YAMLFormatter formats status and history as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// FormatStatus writes the status as a YAML document.
func (f *YAMLFormatter) FormatStatus(w io.Writer, s *Status) error {
	return encodeYAML(w, s)
}

// FormatHistory writes transitions as a YAML sequence.
func (f *YAMLFormatter) FormatHistory(w io.Writer, transitions []model.Transition) error {
	if transitions == nil {
		transitions = []model.Transition{}
	}
	return encodeYAML(w, transitions)
}

func encodeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
