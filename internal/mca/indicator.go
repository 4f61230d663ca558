package mca

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"gomca/domain/core"
	"gomca/domain/table"
)

// Column identifies one indicator column as a (field, level) pair
type Column struct {
	Field string `json:"field"`
	Level string `json:"level"`
}

// String renders the column the way tabular tools label dummy columns
func (c Column) String() string {
	return c.Field + "_" + c.Level
}

// FieldBlock is the contiguous range [Start, End) of indicator columns owned by one field
type FieldBlock struct {
	Field string `json:"field"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Indicator is the one-hot encoding of a table together with the quantities
// the factorization needs. Factorize and Diagnose only read it; callers that
// share an Indicator must not modify its matrices or slices.
type Indicator struct {
	Columns      []Column
	Blocks       []FieldBlock
	Counts       []int      // observations per column
	Matrix       *mat.Dense // rows × columns, entries 0 or 1
	RowMasses    []float64
	ColumnMasses []float64
	Residuals    *mat.Dense // chi-square standardized residuals
}

// Dims returns the number of rows and indicator columns
func (ind *Indicator) Dims() (rows, cols int) {
	return ind.Matrix.Dims()
}

// NumFields returns the number of categorical fields encoded
func (ind *Indicator) NumFields() int {
	return len(ind.Blocks)
}

// Block returns the column block of a field by name
func (ind *Indicator) Block(field string) (FieldBlock, bool) {
	for _, b := range ind.Blocks {
		if b.Field == field {
			return b, true
		}
	}
	return FieldBlock{}, false
}

// Build encodes t as an indicator matrix and derives masses and residuals
func (e *Engine) Build(t *table.CategoricalTable) (*Indicator, error) {
	n, q := t.NumRows(), t.NumFields()
	if n == 0 {
		return nil, core.NewEmptyTableError(q)
	}

	var (
		columns []Column
		blocks  []FieldBlock
		counts  []int
		// lookup[j][level] is the indicator column of that level of field j
		lookup = make([]map[string]int, q)
	)

	for j := 0; j < q; j++ {
		field := t.Field(j)
		levels, freq, err := observedLevels(t, j, field)
		if err != nil {
			return nil, err
		}
		if len(levels) < 2 {
			return nil, core.NewDegenerateFieldError(field.Name, len(levels))
		}

		start := len(columns)
		lookup[j] = make(map[string]int, len(levels))
		for _, lvl := range levels {
			lookup[j][lvl] = len(columns)
			columns = append(columns, Column{Field: field.Name, Level: lvl})
			counts = append(counts, freq[lvl])
		}
		blocks = append(blocks, FieldBlock{Field: field.Name, Start: start, End: len(columns)})
	}

	cols := len(columns)
	if cells := n * cols; cells > e.config.MaxCells {
		return nil, core.NewCapacityError("indicator cells", cells, e.config.MaxCells)
	}

	data := make([]float64, n*cols)
	for i := 0; i < n; i++ {
		for j := 0; j < q; j++ {
			data[i*cols+lookup[j][t.Value(i, j)]] = 1
		}
	}
	matrix := mat.NewDense(n, cols, data)

	rowMasses := make([]float64, n)
	for i := range rowMasses {
		rowMasses[i] = 1 / float64(n)
	}
	total := float64(n * q)
	colMasses := make([]float64, cols)
	for c, cnt := range counts {
		colMasses[c] = float64(cnt) / total
	}

	return &Indicator{
		Columns:      columns,
		Blocks:       blocks,
		Counts:       counts,
		Matrix:       matrix,
		RowMasses:    rowMasses,
		ColumnMasses: colMasses,
		Residuals:    standardizedResiduals(matrix, rowMasses, colMasses, total),
	}, nil
}

// observedLevels returns the levels of field j that occur in t, in column order,
// and how often each occurs
func observedLevels(t *table.CategoricalTable, j int, field table.Field) ([]string, map[string]int, error) {
	freq := make(map[string]int)
	var declared map[string]bool
	if field.Declared() {
		declared = make(map[string]bool, len(field.Levels))
		for _, lvl := range field.Levels {
			declared[lvl] = true
		}
	}

	for i := 0; i < t.NumRows(); i++ {
		v := t.Value(i, j)
		if declared != nil && !declared[v] {
			return nil, nil, core.NewUnknownLevelError(field.Name, i, v)
		}
		freq[v]++
	}

	var levels []string
	if declared != nil {
		seen := make(map[string]bool, len(field.Levels))
		for _, lvl := range field.Levels {
			if freq[lvl] > 0 && !seen[lvl] {
				levels = append(levels, lvl)
				seen[lvl] = true
			}
		}
	} else {
		levels = make([]string, 0, len(freq))
		for lvl := range freq {
			levels = append(levels, lvl)
		}
		sort.Strings(levels)
	}
	return levels, freq, nil
}

// standardizedResiduals computes (x_ij/N - r_i c_j) / sqrt(r_i c_j)
func standardizedResiduals(x *mat.Dense, r, c []float64, total float64) *mat.Dense {
	n, cols := x.Dims()
	s := mat.NewDense(n, cols, nil)
	s.Apply(func(i, j int, v float64) float64 {
		expected := r[i] * c[j]
		return (v/total - expected) / math.Sqrt(expected)
	}, x)
	return s
}
