// Package biplot turns an MCA solution into a drawable figure description.
//
// A Figure holds only plain values: point positions, arrow tips, colours and
// legend entries. Renderers in adapters/ consume it; nothing here draws.
package biplot

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"gomca/domain/core"
	"gomca/internal/mca"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// LabelScale places arrow text just beyond the arrow tip.
const LabelScale = 1.1

// Point is one observation in the factor plane.
type Point struct {
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Class string      `json:"class"`
	Color color.NRGBA `json:"-"`
}

// Arrow points from the origin to the most distant level of a marker field.
type Arrow struct {
	Field string      `json:"field"`
	Level string      `json:"level"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	TextX float64     `json:"text_x"`
	TextY float64     `json:"text_y"`
	Color color.NRGBA `json:"-"`
}

// LegendEntry is a coloured label.
type LegendEntry struct {
	Label string      `json:"label"`
	Color color.NRGBA `json:"-"`
}

// Legend groups entries under a title.
type Legend struct {
	Title   string        `json:"title"`
	Entries []LegendEntry `json:"entries"`
}

// Figure is a self-contained biplot description.
type Figure struct {
	Title        string  `json:"title"`
	XLabel       string  `json:"x_label"`
	YLabel       string  `json:"y_label"`
	Points       []Point `json:"points"`
	Arrows       []Arrow `json:"arrows"`
	CircleRadius float64 `json:"circle_radius"`
	Extent       float64 `json:"extent"` // both axes span [-Extent, Extent]
	ClassLegend  Legend  `json:"class_legend"`
	MarkerLegend Legend  `json:"marker_legend"`
}

// Input carries everything the figure needs. Coordinates are read, never kept.
type Input struct {
	RowCoordinates    mat.Matrix
	RowLabels         []string
	ColumnCoordinates mat.Matrix
	Columns           []mca.Column
	ExplainedInertia  []float64
	ClassTitle        string
	// ClassLevels fixes the legend and colour order; when empty, order of
	// first appearance in RowLabels is used.
	ClassLevels []string
	// MarkerFields selects which fields get an arrow; when empty, every
	// field other than ClassTitle does.
	MarkerFields []string
}

// New builds a figure from the first two axes of a solution.
func New(in Input) (*Figure, error) {
	if in.RowCoordinates == nil || in.ColumnCoordinates == nil {
		return nil, core.NewInvalidTableError("biplot needs row and column coordinates")
	}
	n, k := in.RowCoordinates.Dims()
	if k < 2 {
		return nil, core.NewInvalidTableError(fmt.Sprintf("biplot needs two axes, got %d", k))
	}
	if len(in.RowLabels) != n {
		return nil, core.NewInvalidTableError(fmt.Sprintf("%d row labels for %d rows", len(in.RowLabels), n))
	}
	j, ck := in.ColumnCoordinates.Dims()
	if j != len(in.Columns) || ck < 2 {
		return nil, core.NewInvalidTableError(fmt.Sprintf("%d column labels for %d columns", len(in.Columns), j))
	}
	if len(in.ExplainedInertia) < 2 {
		return nil, core.NewInvalidTableError("explained inertia needs two axes")
	}

	classes := in.ClassLevels
	if len(classes) == 0 {
		classes = firstAppearance(in.RowLabels)
	}
	classColors := classPalette(len(classes))
	colorOf := make(map[string]color.NRGBA, len(classes))
	fig := &Figure{
		XLabel:       axisTitle(1, in.ExplainedInertia[0]),
		YLabel:       axisTitle(2, in.ExplainedInertia[1]),
		CircleRadius: 1,
		ClassLegend:  Legend{Title: in.ClassTitle},
		MarkerLegend: Legend{Title: "Markers"},
	}
	for i, c := range classes {
		colorOf[c] = classColors[i]
		fig.ClassLegend.Entries = append(fig.ClassLegend.Entries, LegendEntry{Label: c, Color: classColors[i]})
	}

	extent := fig.CircleRadius
	fig.Points = make([]Point, n)
	for i := 0; i < n; i++ {
		c, ok := colorOf[in.RowLabels[i]]
		if !ok {
			return nil, core.NewUnknownLevelError(in.ClassTitle, i, in.RowLabels[i])
		}
		p := Point{X: in.RowCoordinates.At(i, 0), Y: in.RowCoordinates.At(i, 1), Class: in.RowLabels[i], Color: c}
		extent = math.Max(extent, math.Max(math.Abs(p.X), math.Abs(p.Y)))
		fig.Points[i] = p
	}

	markers := in.MarkerFields
	if len(markers) == 0 {
		markers = fieldsExcept(in.Columns, in.ClassTitle)
	}
	markerColors := markerPalette(len(markers))
	for m, field := range markers {
		best, bestNorm := -1, -1.0
		for col, c := range in.Columns {
			if c.Field != field {
				continue
			}
			x, y := in.ColumnCoordinates.At(col, 0), in.ColumnCoordinates.At(col, 1)
			if norm := math.Hypot(x, y); norm > bestNorm {
				best, bestNorm = col, norm
			}
		}
		if best < 0 {
			return nil, core.NewInvalidTableError(fmt.Sprintf("marker field %q has no columns", field))
		}
		x, y := in.ColumnCoordinates.At(best, 0), in.ColumnCoordinates.At(best, 1)
		a := Arrow{
			Field: field,
			Level: in.Columns[best].Level,
			X:     x,
			Y:     y,
			TextX: x * LabelScale,
			TextY: y * LabelScale,
			Color: markerColors[m],
		}
		extent = math.Max(extent, math.Max(math.Abs(a.TextX), math.Abs(a.TextY)))
		fig.Arrows = append(fig.Arrows, a)
		fig.MarkerLegend.Entries = append(fig.MarkerLegend.Entries, LegendEntry{Label: field, Color: a.Color})
	}

	fig.Extent = extent * 1.05
	fig.Title = fmt.Sprintf("MCA Biplot: %s vs %s", in.ClassTitle, strings.Join(markers, ", "))
	return fig, nil
}

// FromAnalysis builds a figure from an engine result. rowLabels are the class
// level of each observation.
func FromAnalysis(a *mca.Analysis, rowLabels []string, classField string, classLevels, markers []string) (*Figure, error) {
	if a == nil || a.Factorization == nil || a.Indicator == nil {
		return nil, core.NewInvalidTableError("biplot needs a completed analysis")
	}
	return New(Input{
		RowCoordinates:    a.Factorization.RowCoordinates,
		RowLabels:         rowLabels,
		ColumnCoordinates: a.Factorization.ColumnCoordinates,
		Columns:           a.Indicator.Columns,
		ExplainedInertia:  a.Factorization.ExplainedInertia,
		ClassTitle:        classField,
		ClassLevels:       classLevels,
		MarkerFields:      markers,
	})
}

func axisTitle(axis int, explained float64) string {
	return fmt.Sprintf("MCA Dimension %d (%.1f%%)", axis, explained*100)
}

func firstAppearance(labels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func fieldsExcept(columns []mca.Column, exclude string) []string {
	var out []string
	for _, c := range columns {
		if c.Field == exclude || (len(out) > 0 && out[len(out)-1] == c.Field) {
			continue
		}
		out = append(out, c.Field)
	}
	return out
}

// classPalette spreads n colours over a blue-to-red diverging map.
func classPalette(n int) []color.NRGBA {
	cmap := moreland.SmoothBlueRed()
	cmap.SetMax(1)
	cmap.SetMin(0)
	out := make([]color.NRGBA, n)
	for i := range out {
		v := 0.5
		if n > 1 {
			v = float64(i) / float64(n-1)
		}
		c, err := cmap.At(v)
		if err != nil {
			c = color.Gray{Y: 128}
		}
		out[i] = toNRGBA(c)
	}
	return out
}

// markerPalette returns n evenly spaced hues.
func markerPalette(n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	if n == 0 {
		return out
	}
	if n == 1 {
		out[0] = toNRGBA(palette.HSVA{H: 0, S: 0.65, V: 0.85, A: 1})
		return out
	}
	end := palette.Hue(float64(n-1) / float64(n))
	for i, c := range palette.Rainbow(n, palette.Red, end, 0.65, 0.85, 1).Colors() {
		out[i] = toNRGBA(c)
	}
	return out
}

func toNRGBA(c color.Color) color.NRGBA {
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
