package mca

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"gomca/domain/core"
	"gomca/internal/testkit"
)

func TestFactorize_SixRowScenario(t *testing.T) {
	ind, err := Build(sixRowTable(t))
	require.NoError(t, err)

	fac, err := Factorize(ind, 2)
	require.NoError(t, err)

	r, c := fac.RowCoordinates.Dims()
	assert.Equal(t, [2]int{6, 2}, [2]int{r, c})
	r, c = fac.ColumnCoordinates.Dims()
	assert.Equal(t, [2]int{5, 2}, [2]int{r, c})
	require.Len(t, fac.ExplainedInertia, 2)

	for _, v := range fac.ExplainedInertia {
		assert.Greater(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Greater(t, fac.ExplainedInertia[0], fac.ExplainedInertia[1])

	// With two fields the MCA inertias are (1±ρ)/2 plus 1/2, where ρ² = 2/3 is
	// the inertia of the 2×3 contingency table; total inertia is (J-Q)/Q = 1.5.
	rho := math.Sqrt(2.0 / 3.0)
	assert.InDelta(t, 1.5, fac.TotalInertia, 1e-12)
	assert.InDelta(t, (1+rho)/2, fac.Eigenvalues[0], 1e-9)
	assert.InDelta(t, 0.5, fac.Eigenvalues[1], 1e-9)
	assert.InDelta(t, (1+rho)/3, fac.ExplainedInertia[0], 1e-9)
	assert.InDelta(t, 1.0/3, fac.ExplainedInertia[1], 1e-9)
	assert.Empty(t, fac.Ties)
}

func TestFactorize_RowAxesAreMassOrthogonal(t *testing.T) {
	cfg := testkit.DefaultConfig()
	cfg.Rows = 150
	tbl, err := testkit.Generate(cfg)
	require.NoError(t, err)

	ind, err := Build(tbl)
	require.NoError(t, err)
	fac, err := Factorize(ind, 4)
	require.NoError(t, err)

	for a := 0; a < fac.Components; a++ {
		fa := mat.Col(nil, a, fac.RowCoordinates)
		weighted := make([]float64, len(fa))
		floats.MulTo(weighted, fa, ind.RowMasses)

		// centred, with weighted variance equal to the principal inertia
		assert.InDelta(t, 0, floats.Sum(weighted), 1e-10)
		assert.InDelta(t, fac.Eigenvalues[a], floats.Dot(weighted, fa), 1e-10)

		for b := a + 1; b < fac.Components; b++ {
			fb := mat.Col(nil, b, fac.RowCoordinates)
			assert.InDelta(t, 0, floats.Dot(weighted, fb), 1e-10, "axes %d,%d", a, b)
			// equal row masses make the unweighted correlation vanish too
			assert.InDelta(t, 0, stat.Correlation(fa, fb, nil), 1e-8, "axes %d,%d", a, b)
		}
	}
}

func TestFactorize_ColumnsAreBarycentresOfRows(t *testing.T) {
	ind, err := Build(sixRowTable(t))
	require.NoError(t, err)
	fac, err := Factorize(ind, 2)
	require.NoError(t, err)

	// g_ja = mean of f_ia over rows carrying level j, divided by σ_a
	rows, cols := ind.Dims()
	for a := 0; a < fac.Components; a++ {
		for j := 0; j < cols; j++ {
			var sum float64
			for i := 0; i < rows; i++ {
				sum += ind.Matrix.At(i, j) * fac.RowCoordinates.At(i, a)
			}
			want := sum / float64(ind.Counts[j]) / fac.SingularValues[a]
			assert.InDelta(t, want, fac.ColumnCoordinates.At(j, a), 1e-9, "column %s axis %d", ind.Columns[j], a)
		}
	}
}

func TestFactorize_ExplainedInertiaBounds(t *testing.T) {
	for _, seed := range []int64{3, 11, 2024} {
		cfg := testkit.DefaultConfig()
		cfg.Seed = seed
		tbl, err := testkit.Generate(cfg)
		require.NoError(t, err)

		analysis, err := Analyze(tbl, 5)
		require.NoError(t, err)
		fac := analysis.Factorization

		var sum float64
		for a, v := range fac.ExplainedInertia {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
			if a > 0 {
				assert.LessOrEqual(t, v, fac.ExplainedInertia[a-1]+1e-15)
			}
			sum += v
		}
		assert.LessOrEqual(t, sum, 1.0+1e-12)
		cum := fac.CumulativeInertia()
		assert.InDelta(t, sum, cum[len(cum)-1], 1e-12)
	}
}

func TestFactorize_TotalInertiaIsNotTruncated(t *testing.T) {
	tbl, err := testkit.Generate(testkit.DefaultConfig())
	require.NoError(t, err)
	ind, err := Build(tbl)
	require.NoError(t, err)

	one, err := Factorize(ind, 1)
	require.NoError(t, err)
	three, err := Factorize(ind, 3)
	require.NoError(t, err)

	// (J - Q) / Q for an indicator matrix
	_, cols := ind.Dims()
	q := float64(ind.NumFields())
	assert.InDelta(t, (float64(cols)-q)/q, one.TotalInertia, 1e-9)
	assert.Equal(t, one.TotalInertia, three.TotalInertia)
	assert.Equal(t, one.ExplainedInertia[0], three.ExplainedInertia[0])
}

func TestFactorize_Deterministic(t *testing.T) {
	tbl, err := testkit.Generate(testkit.DefaultConfig())
	require.NoError(t, err)

	first, err := Analyze(tbl, 2)
	require.NoError(t, err)
	second, err := Analyze(tbl, 2)
	require.NoError(t, err)

	assert.Equal(t, first.Indicator.Columns, second.Indicator.Columns)
	assert.True(t, mat.Equal(first.Factorization.RowCoordinates, second.Factorization.RowCoordinates))
	assert.True(t, mat.Equal(first.Factorization.ColumnCoordinates, second.Factorization.ColumnCoordinates))
	assert.Equal(t, first.Factorization.ExplainedInertia, second.Factorization.ExplainedInertia)
}

func TestFactorize_SignConvention(t *testing.T) {
	tbl, err := testkit.Generate(testkit.DefaultConfig())
	require.NoError(t, err)
	analysis, err := Analyze(tbl, 3)
	require.NoError(t, err)

	// equal row masses make the largest |F| row the largest |U| row
	fac := analysis.Factorization
	for a := 0; a < fac.Components; a++ {
		col := mat.Col(nil, a, fac.RowCoordinates)
		best := 0
		for i := range col {
			if math.Abs(col[i]) > math.Abs(col[best]) {
				best = i
			}
		}
		assert.Greater(t, col[best], 0.0, "axis %d", a)
	}
}

func TestFactorize_InvalidComponentCount(t *testing.T) {
	ind, err := Build(sixRowTable(t))
	require.NoError(t, err)

	// min(6, 5) - 1 = 4
	for _, k := range []int{-1, 0, 5, 6} {
		_, err := Factorize(ind, k)
		assert.ErrorIs(t, err, core.ErrInvalidComponentCount, "k=%d", k)
	}
	_, err = Factorize(ind, 4)
	assert.NoError(t, err)

	engine := NewEngine(Config{MaxComponents: 1})
	_, err = engine.Factorize(ind, 2)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
	_, err = engine.Analyze(sixRowTable(t), 2)
	assert.ErrorIs(t, err, core.ErrCapacityExceeded)
}

func TestFactorize_SingularInput(t *testing.T) {
	ind := &Indicator{
		Columns:      []Column{{"f", "a"}, {"f", "b"}, {"g", "a"}},
		Blocks:       []FieldBlock{{"f", 0, 2}, {"g", 2, 3}},
		Counts:       []int{2, 1, 3},
		Matrix:       mat.NewDense(3, 3, nil),
		RowMasses:    []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		ColumnMasses: []float64{1.0 / 3, 1.0 / 6, 0.5},
		Residuals:    mat.NewDense(3, 3, nil),
	}

	_, err := Factorize(ind, 1)
	assert.ErrorIs(t, err, core.ErrSingularInput)
}

func TestTiedAxes(t *testing.T) {
	assert.Equal(t, []int{1}, tiedAxes([]float64{0.9, 0.5, 0.5 * (1 - 1e-13), 0.1}))
	assert.Empty(t, tiedAxes([]float64{0.9, 0.5, 0.1}))
	assert.Empty(t, tiedAxes([]float64{0, 0}))
}

func TestAxisSign(t *testing.T) {
	assert.Equal(t, -1.0, axisSign([]float64{0.1, -0.7, 0.5}))
	assert.Equal(t, 1.0, axisSign([]float64{0.1, 0.7, -0.5}))
	// first entry wins on exact magnitude ties
	assert.Equal(t, 1.0, axisSign([]float64{0.5, -0.5}))
}

func TestFactorize_LeavesIndicatorUntouched(t *testing.T) {
	ind, err := Build(sixRowTable(t))
	require.NoError(t, err)

	matrix := mat.DenseCopyOf(ind.Matrix)
	residuals := mat.DenseCopyOf(ind.Residuals)
	rowMasses := append([]float64(nil), ind.RowMasses...)
	colMasses := append([]float64(nil), ind.ColumnMasses...)
	counts := append([]int(nil), ind.Counts...)
	columns := append([]Column(nil), ind.Columns...)

	first, err := Factorize(ind, 2)
	require.NoError(t, err)
	Diagnose(ind, first)
	second, err := Factorize(ind, 2)
	require.NoError(t, err)

	assert.True(t, mat.Equal(matrix, ind.Matrix))
	assert.True(t, mat.Equal(residuals, ind.Residuals))
	assert.Equal(t, rowMasses, ind.RowMasses)
	assert.Equal(t, colMasses, ind.ColumnMasses)
	assert.Equal(t, counts, ind.Counts)
	assert.Equal(t, columns, ind.Columns)
	assert.True(t, mat.Equal(first.RowCoordinates, second.RowCoordinates))
}
