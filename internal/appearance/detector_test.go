package appearance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/themed/internal/model"
)

func TestEnvDetector(t *testing.T) {
	tests := []struct {
		value     string
		available bool
		expected  model.Appearance
	}{
		{"", false, ""},
		{"Adwaita:dark", true, model.AppearanceDark},
		{"Breeze-Dark", true, model.AppearanceDark},
		{"Adwaita", true, model.AppearanceLight},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			d := &EnvDetector{getenv: func(string) string { return tt.value }}
			assert.Equal(t, tt.available, d.Available())

			a, ok := d.Detect()
			assert.Equal(t, tt.available, ok)
			assert.Equal(t, tt.expected, a)
		})
	}
}

func TestParseGsettings(t *testing.T) {
	tests := []struct {
		output   string
		expected model.Appearance
		ok       bool
	}{
		{"'prefer-dark'\n", model.AppearanceDark, true},
		{"'prefer-light'\n", model.AppearanceLight, true},
		{"'default'\n", "", false},
		{"", "", false},
		{`"prefer-dark"`, model.AppearanceDark, true},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			a, ok := parseGsettings(tt.output)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, a)
		})
	}
}

func TestGsettingsDetector_CommandFailure(t *testing.T) {
	d := &GsettingsDetector{run: func() ([]byte, error) { return nil, errors.New("not found") }}
	_, ok := d.Detect()
	assert.False(t, ok)
}

func TestGsettingsDetector_Detect(t *testing.T) {
	d := &GsettingsDetector{run: func() ([]byte, error) { return []byte("'prefer-dark'\n"), nil }}
	a, ok := d.Detect()
	assert.True(t, ok)
	assert.Equal(t, model.AppearanceDark, a)
	assert.Equal(t, "gsettings", d.Name())
	assert.Equal(t, priorityGsettings, d.Priority())
}
