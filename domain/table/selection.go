package table

import (
	"fmt"
	"strings"

	"gomca/domain/core"
)

// Selection picks the class field and the marker fields to analyze.
// Markers come from MarkerFields when set, otherwise from every field whose
// name starts with MarkerPrefix (every non-class field when the prefix is empty).
type Selection struct {
	ClassField   string   `json:"class_field"`
	ClassLevels  []string `json:"class_levels,omitempty"`
	MarkerFields []string `json:"marker_fields,omitempty"`
	MarkerPrefix string   `json:"marker_prefix,omitempty"`
}

// Markers resolves the marker field names against t, in table order for
// prefix selection and in the given order for an explicit list.
func (s Selection) Markers(t *CategoricalTable) ([]string, error) {
	if len(s.MarkerFields) > 0 {
		for _, name := range s.MarkerFields {
			if name == s.ClassField {
				return nil, core.NewInvalidTableError(fmt.Sprintf("class field %q cannot also be a marker", name))
			}
			if _, ok := t.FieldIndex(name); !ok {
				return nil, core.NewInvalidTableError(fmt.Sprintf("unknown marker field %q", name))
			}
		}
		return append([]string(nil), s.MarkerFields...), nil
	}

	var out []string
	for _, f := range t.fields {
		if f.Name == s.ClassField || !strings.HasPrefix(f.Name, s.MarkerPrefix) {
			continue
		}
		out = append(out, f.Name)
	}
	if len(out) == 0 {
		return nil, core.NewInvalidTableError(fmt.Sprintf("no marker fields match prefix %q", s.MarkerPrefix))
	}
	return out, nil
}

// Apply returns a table holding the class field followed by the selected
// markers. Declared class levels replace any levels already on the field.
func (s Selection) Apply(t *CategoricalTable) (*CategoricalTable, error) {
	ci, ok := t.FieldIndex(s.ClassField)
	if !ok {
		return nil, core.NewInvalidTableError(fmt.Sprintf("class field %q is not a table field", s.ClassField))
	}
	markers, err := s.Markers(t)
	if err != nil {
		return nil, err
	}

	cols := append([]int{ci}, make([]int, len(markers))...)
	fields := make([]Field, len(cols))
	fields[0] = t.Field(ci)
	if len(s.ClassLevels) > 0 {
		fields[0].Levels = append([]string(nil), s.ClassLevels...)
	}
	for k, name := range markers {
		j, _ := t.FieldIndex(name)
		cols[k+1] = j
		fields[k+1] = t.Field(j)
	}

	records := make([][]string, len(t.records))
	for i, rec := range t.records {
		row := make([]string, len(cols))
		for k, j := range cols {
			row[k] = rec[j]
		}
		records[i] = row
	}
	return New(fields, records, WithClassField(s.ClassField))
}

// FromRows builds a table from a header row and string records, as read from
// CSV, a spreadsheet or a query. Values are trimmed; a short row is padded
// with empty values so the missing cell is reported by field name.
func FromRows(headers []string, rows [][]string, opts ...Option) (*CategoricalTable, error) {
	fields := make([]Field, len(headers))
	for i, h := range headers {
		fields[i] = Field{Name: strings.TrimSpace(h)}
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) > len(headers) {
			return nil, core.NewInvalidTableError(fmt.Sprintf("row %d has %d values, expected %d", i, len(row), len(headers)))
		}
		rec := make([]string, len(headers))
		copy(rec, row)
		records[i] = rec
	}
	return New(fields, records, opts...)
}
