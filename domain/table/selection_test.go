package table

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomca/domain/core"
)

func wideTable(t *testing.T) *CategoricalTable {
	t.Helper()
	tbl, err := FromRows(
		[]string{"Sample", "SIX2", "Aggressiveness", "SIX1", "TP53"},
		[][]string{
			{"s1", "0", "Aggressive", "1", "wt"},
			{"s2", "1", "Hypo Aggressive", "0", "mut"},
		},
	)
	require.NoError(t, err)
	return tbl
}

func TestSelection_Prefix(t *testing.T) {
	tbl := wideTable(t)

	sel := Selection{ClassField: "Aggressiveness", MarkerPrefix: "SIX"}
	out, err := sel.Apply(tbl)
	require.NoError(t, err)

	assert.Equal(t, "Aggressiveness", out.ClassField())
	assert.Equal(t, []string{"SIX2", "SIX1"}, out.MarkerFields())
	assert.Equal(t, "Aggressiveness", out.Field(0).Name)
	assert.Equal(t, []string{"1", "0"}, out.Column(2))
}

func TestSelection_ExplicitListKeepsOrder(t *testing.T) {
	tbl := wideTable(t)

	sel := Selection{
		ClassField:   "Aggressiveness",
		ClassLevels:  []string{"Aggressive", "Moderately Aggressive", "Hypo Aggressive"},
		MarkerFields: []string{"TP53", "SIX1"},
	}
	out, err := sel.Apply(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"TP53", "SIX1"}, out.MarkerFields())
	assert.Equal(t, sel.ClassLevels, out.Field(0).Levels)
	assert.False(t, out.Field(1).Declared())
}

func TestSelection_EmptyPrefixTakesAllButClass(t *testing.T) {
	tbl := wideTable(t)

	markers, err := Selection{ClassField: "Aggressiveness"}.Markers(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sample", "SIX2", "SIX1", "TP53"}, markers)
}

func TestSelection_Errors(t *testing.T) {
	tbl := wideTable(t)

	tests := []struct {
		name string
		sel  Selection
	}{
		{"unknown class", Selection{ClassField: "Grade"}},
		{"unknown marker", Selection{ClassField: "Aggressiveness", MarkerFields: []string{"SIX9"}}},
		{"class as marker", Selection{ClassField: "Aggressiveness", MarkerFields: []string{"Aggressiveness"}}},
		{"prefix matches nothing", Selection{ClassField: "Aggressiveness", MarkerPrefix: "BRCA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.sel.Apply(tbl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrInvalidTable))
		})
	}
}

func TestFromRows(t *testing.T) {
	tbl, err := FromRows([]string{" A ", "B"}, [][]string{{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, "A", tbl.Field(0).Name)

	_, err = FromRows([]string{"A", "B"}, [][]string{{"x"}})
	assert.True(t, errors.Is(err, core.ErrInvalidTable), "short row leaves a missing value")

	_, err = FromRows([]string{"A"}, [][]string{{"x", "y"}})
	assert.True(t, errors.Is(err, core.ErrInvalidTable))
}
