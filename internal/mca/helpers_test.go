package mca

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gomca/domain/table"
)

// sixRowTable is the two-field scenario: class {A, B} three rows each,
// marker {X, Y, Z} with A leaning to X and B leaning to Z.
func sixRowTable(t *testing.T) *table.CategoricalTable {
	t.Helper()
	tbl, err := table.New(
		[]table.Field{{Name: "Class"}, {Name: "Marker"}},
		[][]string{
			{"A", "X"},
			{"A", "X"},
			{"A", "Y"},
			{"B", "Y"},
			{"B", "Z"},
			{"B", "Z"},
		},
		table.WithClassField("Class"),
	)
	require.NoError(t, err)
	return tbl
}

func mustTable(t *testing.T, fields []table.Field, records [][]string) *table.CategoricalTable {
	t.Helper()
	tbl, err := table.New(fields, records)
	require.NoError(t, err)
	return tbl
}
