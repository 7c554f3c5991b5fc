package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/themed/internal/model"
)

// JSONFormatter formats status and history as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// FormatStatus writes the status as a JSON object.
func (f *JSONFormatter) FormatStatus(w io.Writer, s *Status) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// FormatHistory writes transitions as a JSON array.
func (f *JSONFormatter) FormatHistory(w io.Writer, transitions []model.Transition) error {
	if transitions == nil {
		transitions = []model.Transition{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(transitions)
}
