package mca

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gomca/domain/core"
)

const (
	// TieTolerance is the relative gap below which two singular values are
	// treated as equal. Tied axes keep the order returned by the SVD.
	TieTolerance = 1e-10

	// singularTolerance is the total inertia below which the residual matrix
	// is considered to carry no structure
	singularTolerance = 1e-12
)

// Factorization holds the principal coordinates of a truncated MCA
type Factorization struct {
	Components        int
	SingularValues    []float64  // σ_1 ≥ … ≥ σ_k
	Eigenvalues       []float64  // σ², the principal inertias
	TotalInertia      float64    // Σ s_ij², over every axis
	ExplainedInertia  []float64  // σ_j² / TotalInertia
	RowCoordinates    *mat.Dense // rows × k
	ColumnCoordinates *mat.Dense // columns × k
	Ties              []int      // axes whose singular value ties the next one
}

// Factorize extracts the leading components of ind's residual matrix
func (e *Engine) Factorize(ind *Indicator, components int) (*Factorization, error) {
	rows, cols := ind.Residuals.Dims()
	if components < 1 || components > min(rows, cols)-1 {
		return nil, core.NewInvalidComponentCountError(components, rows, cols)
	}
	if components > e.config.MaxComponents {
		return nil, core.NewCapacityError("components", components, e.config.MaxComponents)
	}

	// Total inertia via the trace identity tr(SᵀS) = Σ σ², before any truncation.
	total := frobeniusSquared(ind.Residuals)
	if !(total > singularTolerance) {
		return nil, core.NewSingularInputError("total inertia is zero")
	}

	var svd mat.SVD
	if ok := svd.Factorize(ind.Residuals, mat.SVDThin); !ok {
		return nil, core.NewSingularInputError("SVD did not converge")
	}
	values := svd.Values(nil)
	if values[0] <= math.Sqrt(singularTolerance) {
		return nil, core.NewSingularInputError("no non-zero singular values")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	k := components
	rowCoords := mat.NewDense(rows, k, nil)
	colCoords := mat.NewDense(cols, k, nil)
	sigma := make([]float64, k)
	eigen := make([]float64, k)
	explained := make([]float64, k)

	for a := 0; a < k; a++ {
		sigma[a] = values[a]
		eigen[a] = values[a] * values[a]
		explained[a] = math.Min(1, eigen[a]/total)

		sign := axisSign(mat.Col(nil, a, &u))
		scale := sign * sigma[a]
		for i := 0; i < rows; i++ {
			rowCoords.Set(i, a, scale*u.At(i, a)/math.Sqrt(ind.RowMasses[i]))
		}
		for j := 0; j < cols; j++ {
			colCoords.Set(j, a, scale*v.At(j, a)/math.Sqrt(ind.ColumnMasses[j]))
		}
	}

	return &Factorization{
		Components:        k,
		SingularValues:    sigma,
		Eigenvalues:       eigen,
		TotalInertia:      total,
		ExplainedInertia:  explained,
		RowCoordinates:    rowCoords,
		ColumnCoordinates: colCoords,
		Ties:              tiedAxes(values[:min(k+1, len(values))]),
	}, nil
}

// RowPoint returns the coordinates of row i
func (f *Factorization) RowPoint(i int) []float64 {
	return mat.Row(nil, i, f.RowCoordinates)
}

// ColumnPoint returns the coordinates of indicator column j
func (f *Factorization) ColumnPoint(j int) []float64 {
	return mat.Row(nil, j, f.ColumnCoordinates)
}

// CumulativeInertia returns the running sum of ExplainedInertia
func (f *Factorization) CumulativeInertia() []float64 {
	out := make([]float64, len(f.ExplainedInertia))
	floats.CumSum(out, f.ExplainedInertia)
	return out
}

// axisSign returns -1 when the largest-magnitude entry of vec is negative.
// The first such entry wins on exact ties.
func axisSign(vec []float64) float64 {
	best := 0
	for i := range vec {
		if math.Abs(vec[i]) > math.Abs(vec[best]) {
			best = i
		}
	}
	if vec[best] < 0 {
		return -1
	}
	return 1
}

// tiedAxes lists a where values[a] and values[a+1] agree within TieTolerance
func tiedAxes(values []float64) []int {
	var ties []int
	for a := 0; a+1 < len(values); a++ {
		if values[a] > 0 && (values[a]-values[a+1])/values[a] < TieTolerance {
			ties = append(ties, a)
		}
	}
	return ties
}

func frobeniusSquared(m *mat.Dense) float64 {
	r, c := m.Dims()
	var sum float64
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		sum += floats.Dot(row[:c], row[:c])
	}
	return sum
}
