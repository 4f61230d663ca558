package mca

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AxisSummary describes one retained axis
type AxisSummary struct {
	Axis        int     `json:"axis"`
	Eigenvalue  float64 `json:"eigenvalue"`
	Explained   float64 `json:"explained"`
	Cumulative  float64 `json:"cumulative"`
	RowMean     float64 `json:"row_mean"`     // mass-weighted, 0 for a centred solution
	RowVariance float64 `json:"row_variance"` // mass-weighted, equals the eigenvalue
}

// LevelCount is the frequency of one level within its field
type LevelCount struct {
	Level string  `json:"level"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// FieldProfile summarizes the level distribution of one field
type FieldProfile struct {
	Field    string       `json:"field"`
	Levels   []LevelCount `json:"levels"`
	MinShare float64      `json:"min_share"`
	MaxShare float64      `json:"max_share"`
	Entropy  float64      `json:"entropy"` // nats
}

// Diagnostics holds the interpretation aids that accompany the coordinates
type Diagnostics struct {
	Axes                []AxisSummary
	RowContributions    *mat.Dense // rows × k, each column sums to 1
	ColumnContributions *mat.Dense // columns × k, each column sums to 1
	FieldContributions  map[string][]float64
	RowCos2             *mat.Dense // squared cosine of each row with each axis
	ColumnCos2          *mat.Dense
	Fields              []FieldProfile
}

// Diagnose derives contributions, squared cosines and per-axis summaries
func Diagnose(ind *Indicator, fac *Factorization) *Diagnostics {
	rows, cols := ind.Dims()
	k := fac.Components
	cumulative := fac.CumulativeInertia()

	d := &Diagnostics{
		Axes:                make([]AxisSummary, k),
		RowContributions:    mat.NewDense(rows, k, nil),
		ColumnContributions: mat.NewDense(cols, k, nil),
		FieldContributions:  make(map[string][]float64, len(ind.Blocks)),
		RowCos2:             mat.NewDense(rows, k, nil),
		ColumnCos2:          mat.NewDense(cols, k, nil),
		Fields:              profileFields(ind),
	}

	// Squared distance of each profile to the centroid, over every axis
	rowDist := make([]float64, rows)
	colDist := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			s := ind.Residuals.At(i, j)
			rowDist[i] += s * s
			colDist[j] += s * s
		}
	}
	for i := range rowDist {
		rowDist[i] /= ind.RowMasses[i]
	}
	for j := range colDist {
		colDist[j] /= ind.ColumnMasses[j]
	}

	for a := 0; a < k; a++ {
		coords := mat.Col(nil, a, fac.RowCoordinates)
		mean, variance := stat.PopMeanVariance(coords, ind.RowMasses)
		d.Axes[a] = AxisSummary{
			Axis:        a + 1,
			Eigenvalue:  fac.Eigenvalues[a],
			Explained:   fac.ExplainedInertia[a],
			Cumulative:  cumulative[a],
			RowMean:     mean,
			RowVariance: variance,
		}

		lambda := fac.Eigenvalues[a]
		for i := 0; i < rows; i++ {
			f := fac.RowCoordinates.At(i, a)
			d.RowContributions.Set(i, a, safeDiv(ind.RowMasses[i]*f*f, lambda))
			d.RowCos2.Set(i, a, safeDiv(f*f, rowDist[i]))
		}
		for j := 0; j < cols; j++ {
			g := fac.ColumnCoordinates.At(j, a)
			d.ColumnContributions.Set(j, a, safeDiv(ind.ColumnMasses[j]*g*g, lambda))
			d.ColumnCos2.Set(j, a, safeDiv(g*g, colDist[j]))
		}
	}

	for _, b := range ind.Blocks {
		per := make([]float64, k)
		for a := 0; a < k; a++ {
			col := mat.Col(nil, a, d.ColumnContributions)
			per[a] = floats.Sum(col[b.Start:b.End])
		}
		d.FieldContributions[b.Field] = per
	}
	return d
}

func profileFields(ind *Indicator) []FieldProfile {
	rows, _ := ind.Dims()
	profiles := make([]FieldProfile, 0, len(ind.Blocks))
	for _, b := range ind.Blocks {
		p := FieldProfile{Field: b.Field}
		shares := make(stats.Float64Data, 0, b.End-b.Start)
		for j := b.Start; j < b.End; j++ {
			share := float64(ind.Counts[j]) / float64(rows)
			p.Levels = append(p.Levels, LevelCount{
				Level: ind.Columns[j].Level,
				Count: ind.Counts[j],
				Share: share,
			})
			shares = append(shares, share)
		}
		p.MinShare, _ = stats.Min(shares)
		p.MaxShare, _ = stats.Max(shares)
		// Entropy normalizes its input in place
		p.Entropy, _ = stats.Entropy(append(stats.Float64Data(nil), shares...))
		profiles = append(profiles, p)
	}
	return profiles
}

func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}
