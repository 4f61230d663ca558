// Package report writes analysis results as JSON, CSV, markdown and HTML.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gomca/app"
	apperrors "gomca/internal/errors"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// WriteJSON writes the full result, indented
func WriteJSON(w io.Writer, res *app.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return apperrors.Wrap(err, "failed to encode result")
	}
	return nil
}

// WriteCoordinatesCSV writes one line per row point and one per column point:
// kind, label, field, level, dim1..dimk
func WriteCoordinatesCSV(w io.Writer, res *app.AnalysisResult) error {
	cw := csv.NewWriter(w)
	header := []string{"kind", "label", "field", "level"}
	for a := 1; a <= res.Components; a++ {
		header = append(header, "dim"+strconv.Itoa(a))
	}
	if err := cw.Write(header); err != nil {
		return apperrors.Wrap(err, "failed to write CSV header")
	}

	for i, coords := range res.RowCoordinates {
		rec := []string{"row", strconv.Itoa(i), res.ClassField, res.RowLabels[i]}
		if err := cw.Write(append(rec, formatFloats(coords)...)); err != nil {
			return apperrors.Wrapf(err, "failed to write row %d", i)
		}
	}
	for j, coords := range res.ColumnCoordinates {
		c := res.Columns[j]
		rec := []string{"column", c.String(), c.Field, c.Level}
		if err := cw.Write(append(rec, formatFloats(coords)...)); err != nil {
			return apperrors.Wrapf(err, "failed to write column %s", c)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders a human-readable summary. plotPath is linked when non-empty.
func Markdown(res *app.AnalysisResult, plotPath string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# MCA: %s vs %s\n\n", res.ClassField, strings.Join(res.MarkerFields, ", "))
	fmt.Fprintf(&b, "- Run: `%s`\n", res.RunID)
	fmt.Fprintf(&b, "- Source: `%s`\n", res.Source)
	fmt.Fprintf(&b, "- Fingerprint: `%s`\n", res.Fingerprint)
	fmt.Fprintf(&b, "- Observations: %d, indicator columns: %d\n", res.Rows, len(res.Columns))
	fmt.Fprintf(&b, "- Total inertia: %.4f\n\n", res.TotalInertia)

	if plotPath != "" {
		fmt.Fprintf(&b, "![MCA biplot](%s)\n\n", plotPath)
	}

	b.WriteString("## Axes\n\n")
	b.WriteString("| Axis | Eigenvalue | Explained | Cumulative |\n")
	b.WriteString("|---:|---:|---:|---:|\n")
	for _, ax := range res.Diagnostics.Axes {
		fmt.Fprintf(&b, "| %d | %.4f | %.1f%% | %.1f%% |\n", ax.Axis, ax.Eigenvalue, ax.Explained*100, ax.Cumulative*100)
	}
	if len(res.Ties) > 0 {
		fmt.Fprintf(&b, "\nAxes with tied singular values: %v\n", res.Ties)
	}

	b.WriteString("\n## Field contributions\n\n")
	b.WriteString("| Field |")
	for a := 1; a <= res.Components; a++ {
		fmt.Fprintf(&b, " Dim %d |", a)
	}
	b.WriteString("\n|---|")
	b.WriteString(strings.Repeat("---:|", res.Components))
	b.WriteString("\n")
	fields := append([]string{res.ClassField}, res.MarkerFields...)
	for _, f := range fields {
		fmt.Fprintf(&b, "| %s |", f)
		for _, v := range res.Diagnostics.FieldContributions[f] {
			fmt.Fprintf(&b, " %.1f%% |", v*100)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n## Levels\n\n")
	b.WriteString("| Field | Level | Count | Share |\n")
	b.WriteString("|---|---|---:|---:|\n")
	for _, fp := range res.Diagnostics.Fields {
		for _, lc := range fp.Levels {
			fmt.Fprintf(&b, "| %s | %s | %d | %.1f%% |\n", fp.Field, lc.Level, lc.Count, lc.Share*100)
		}
	}
	return b.Bytes()
}

// HTML converts the markdown report into a standalone page
func HTML(res *app.AnalysisResult, plotPath string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Title: "MCA " + res.RunID.String(),
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(Markdown(res, plotPath), p, r)
}

func formatFloats(xs []float64) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return out
}
