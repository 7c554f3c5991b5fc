package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/themed/internal/model"
)

func TestLookupByID(t *testing.T) {
	ts := []model.Transition{
		{ID: "01HX1AAA", Source: "cli"},
		{ID: "01HX2BBB", Source: "tui"},
		{ID: "01HX2CCC", Source: "dbus"},
	}

	t.Run("exact", func(t *testing.T) {
		got, err := LookupByID(ts, "01HX2BBB")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "tui", got.Source)
	})

	t.Run("unique prefix, any case", func(t *testing.T) {
		got, err := LookupByID(ts, "01hx1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "cli", got.Source)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := LookupByID(ts, "01HX2")
		assert.Error(t, err)
	})

	t.Run("not found", func(t *testing.T) {
		got, err := LookupByID(ts, "ZZZ")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty", func(t *testing.T) {
		got, err := LookupByID(ts, "")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestLookupByIndex(t *testing.T) {
	ts := sampleTransitions()

	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"first", 1, "01A"},
		{"last", 4, "01D"},
		{"zero", 0, ""},
		{"negative", -1, ""},
		{"past end", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LookupByIndex(ts, tt.index)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestUniqueSources(t *testing.T) {
	ts := append(sampleTransitions(), model.Transition{ID: "01E", Source: "cli"}, model.Transition{ID: "01F"})
	assert.Equal(t, []string{"cli", "dbus", "themed", "tui"}, UniqueSources(ts))
	assert.Empty(t, UniqueSources(nil))
}
