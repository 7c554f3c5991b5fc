package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themed/internal/model"
)

func transition(id string, from, to model.Preference, a model.Appearance, tr model.Trigger, source string, age time.Duration) model.Transition {
	return model.Transition{
		ID:         id,
		From:       from,
		To:         to,
		Appearance: a,
		Trigger:    tr,
		Source:     source,
		Timestamp:  time.Now().Add(-age).Unix(),
	}
}

func sampleTransitions() []model.Transition {
	return []model.Transition{
		transition("01A", model.PreferenceSystem, model.PreferenceDark, model.AppearanceDark, model.TriggerUser, "cli", 5*time.Hour),
		transition("01B", model.PreferenceDark, model.PreferenceSystem, model.AppearanceLight, model.TriggerUser, "tui", 2*time.Hour),
		transition("01C", model.PreferenceSystem, model.PreferenceSystem, model.AppearanceDark, model.TriggerSystem, "themed", 30*time.Minute),
		transition("01D", model.PreferenceSystem, model.PreferenceLight, model.AppearanceLight, model.TriggerUser, "dbus", 10*time.Minute),
	}
}

func ids(ts []model.Transition) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter_Empty(t *testing.T) {
	assert.Empty(t, Filter(nil, FilterOptions{}))
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		opts FilterOptions
		want []string
	}{
		{"no filters", FilterOptions{}, []string{"01A", "01B", "01C", "01D"}},
		{"since", FilterOptions{Since: time.Hour}, []string{"01C", "01D"}},
		{"trigger", FilterOptions{Trigger: model.TriggerSystem}, []string{"01C"}},
		{"source", FilterOptions{Source: "tui"}, []string{"01B"}},
		{"appearance", FilterOptions{Appearance: model.AppearanceLight}, []string{"01B", "01D"}},
		{"limit", FilterOptions{Limit: 2}, []string{"01A", "01B"}},
		{"combined", FilterOptions{Trigger: model.TriggerUser, Since: 3 * time.Hour}, []string{"01B", "01D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(sampleTransitions(), tt.opts)))
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		hasError bool
	}{
		{"0", 0, false},
		{"", 0, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"invalid", 0, true},
		{"xd", 0, true},
		{"xw", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseDuration(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseTrigger(t *testing.T) {
	tr, err := ParseTrigger(" System ")
	require.NoError(t, err)
	assert.Equal(t, model.TriggerSystem, tr)

	_, err = ParseTrigger("cron")
	assert.Error(t, err)
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []string{
		"nooperator",
		"colour=dark",
		"source~=(",
		"to>dark",
		"timestamp>soon",
	}

	for _, expr := range tests {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseFilter(expr)
			assert.Error(t, err)
		})
	}
}

func TestFilterWithExpr(t *testing.T) {
	tests := []struct {
		expr string
		want []string
	}{
		{"", []string{"01A", "01B", "01C", "01D"}},
		{"to=system", []string{"01B", "01C"}},
		{"from!=system", []string{"01B"}},
		{"trigger=system,appearance=dark", []string{"01C"}},
		{"source~=^(cli|tui)$", []string{"01A", "01B"}},
		{"src~BU", []string{"01D"}},
		{"timestamp>1h", []string{"01C", "01D"}},
		{"timestamp<=1h", []string{"01A", "01B"}},
		{"pref=LIGHT", []string{"01D"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			expr, err := ParseFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(FilterWithExpr(sampleTransitions(), expr)))
		})
	}
}
