// Package render draws biplot figures with gonum/plot.
package render

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gomca/internal/biplot"
	apperrors "gomca/internal/errors"
	"gomca/ports"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Supported output formats
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

const circleSegments = 120

var (
	axisColor   = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	circleColor = color.NRGBA{R: 160, G: 160, B: 160, A: 255}
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer draws a figure to SVG or PNG. The zero value is not usable; use New.
type Renderer struct {
	Width  vg.Length
	Height vg.Length
	Format string
}

// New returns a renderer for the given format with the default 12×10 inch canvas
func New(format string) (*Renderer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatSVG, FormatPNG:
	default:
		return nil, apperrors.ValidationError(fmt.Sprintf("unsupported plot format %q", format))
	}
	return &Renderer{Width: 12 * vg.Inch, Height: 10 * vg.Inch, Format: format}, nil
}

// Render writes fig to w.
func (r *Renderer) Render(ctx context.Context, fig *biplot.Figure, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := Plot(fig)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(r.Width, r.Height, r.Format)
	if err != nil {
		return apperrors.Wrap(err, "failed to prepare plot canvas")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return apperrors.Wrap(err, "failed to write plot")
	}
	return nil
}

// RenderFile writes fig to path, creating parent directories.
func (r *Renderer) RenderFile(ctx context.Context, fig *biplot.Figure, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.Wrapf(err, "failed to create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return apperrors.Wrapf(err, "failed to create %s", path)
	}
	if err := r.Render(ctx, fig, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Plot converts a figure into a gonum plot.
func Plot(fig *biplot.Figure) (*plot.Plot, error) {
	if fig == nil {
		return nil, apperrors.ValidationError("no figure to render")
	}
	p := plot.New()
	p.Title.Text = fig.Title
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	p.Add(plotter.NewGrid())

	extent := fig.Extent
	if extent <= 0 {
		extent = 1
	}

	for _, axis := range [][2]plotter.XY{
		{{X: -extent, Y: 0}, {X: extent, Y: 0}},
		{{X: 0, Y: -extent}, {X: 0, Y: extent}},
	} {
		l, err := plotter.NewLine(plotter.XYs{axis[0], axis[1]})
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to draw zero axis")
		}
		l.LineStyle.Color = axisColor
		l.LineStyle.Width = vg.Points(0.8)
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(l)
	}

	if fig.CircleRadius > 0 {
		circle := make(plotter.XYs, circleSegments+1)
		for i := range circle {
			theta := 2 * math.Pi * float64(i) / circleSegments
			circle[i] = plotter.XY{X: fig.CircleRadius * math.Cos(theta), Y: fig.CircleRadius * math.Sin(theta)}
		}
		l, err := plotter.NewLine(circle)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to draw reference circle")
		}
		l.LineStyle.Color = circleColor
		l.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(l)
	}

	p.Legend.Add(fig.ClassLegend.Title)
	for _, entry := range fig.ClassLegend.Entries {
		var xys plotter.XYs
		for _, pt := range fig.Points {
			if pt.Class == entry.Label {
				xys = append(xys, plotter.XY{X: pt.X, Y: pt.Y})
			}
		}
		if len(xys) == 0 {
			continue
		}
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to draw class %s", entry.Label)
		}
		s.GlyphStyle.Color = withAlpha(entry.Color, 178)
		s.GlyphStyle.Radius = vg.Points(3.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(entry.Label, s)
	}

	p.Legend.Add(fig.MarkerLegend.Title)
	for _, a := range fig.Arrows {
		lines, err := arrowLines(a, extent)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			p.Add(l)
		}
		p.Legend.Add(a.Field, lines[0])

		labels, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: a.TextX, Y: a.TextY}},
			Labels: []string{a.Field},
		})
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to label %s", a.Field)
		}
		for i := range labels.TextStyle {
			labels.TextStyle[i].Color = a.Color
			labels.TextStyle[i].XAlign = -0.5
			labels.TextStyle[i].YAlign = -0.5
		}
		p.Add(labels)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.X.Min, p.X.Max = -extent, extent
	p.Y.Min, p.Y.Max = -extent, extent
	return p, nil
}

// arrowLines returns the shaft followed by the two head strokes.
func arrowLines(a biplot.Arrow, extent float64) ([]*plotter.Line, error) {
	tip := plotter.XY{X: a.X, Y: a.Y}
	segments := []plotter.XYs{{{X: 0, Y: 0}, tip}}

	length := math.Hypot(a.X, a.Y)
	if length > 0 {
		head := math.Min(0.03*extent, 0.5*length)
		ux, uy := a.X/length, a.Y/length
		bx, by := a.X-head*ux, a.Y-head*uy
		px, py := -uy*head*0.5, ux*head*0.5
		segments = append(segments,
			plotter.XYs{{X: bx + px, Y: by + py}, tip},
			plotter.XYs{{X: bx - px, Y: by - py}, tip},
		)
	}

	out := make([]*plotter.Line, 0, len(segments))
	for _, seg := range segments {
		l, err := plotter.NewLine(seg)
		if err != nil {
			return nil, apperrors.Wrapf(err, "failed to draw arrow for %s", a.Field)
		}
		l.LineStyle.Color = a.Color
		l.LineStyle.Width = vg.Points(1.5)
		out = append(out, l)
	}
	return out, nil
}

func withAlpha(c color.NRGBA, alpha uint8) color.NRGBA {
	c.A = alpha
	return c
}
