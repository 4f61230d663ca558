package table

import (
	"fmt"
	"strings"

	"gomca/domain/core"
)

// Field describes one categorical column.
// Levels is optional; when set it is the closed level set of the field and
// fixes the order of the field's indicator columns.
type Field struct {
	Name   string   `json:"name"`
	Levels []string `json:"levels,omitempty"`
}

// Declared reports whether the field carries a closed level set
func (f Field) Declared() bool {
	return len(f.Levels) > 0
}

// CategoricalTable is an immutable, row-ordered table of categorical values.
// Every record has exactly one non-empty value per field.
type CategoricalTable struct {
	fields     []Field
	records    [][]string
	classField string
	index      map[string]int
}

// Option configures a table at construction time
type Option func(*CategoricalTable) error

// WithClassField marks the field used to label rows (e.g. aggressiveness)
func WithClassField(name string) Option {
	return func(t *CategoricalTable) error {
		if _, ok := t.index[name]; !ok {
			return core.NewInvalidTableError(fmt.Sprintf("class field %q is not a table field", name))
		}
		t.classField = name
		return nil
	}
}

// New validates and copies fields and records into a table.
// A table with zero records is valid here; the indicator builder rejects it.
func New(fields []Field, records [][]string, opts ...Option) (*CategoricalTable, error) {
	if len(fields) == 0 {
		return nil, core.NewInvalidTableError("no fields")
	}

	t := &CategoricalTable{
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, core.NewInvalidTableError(fmt.Sprintf("field %d has an empty name", i))
		}
		if _, dup := t.index[name]; dup {
			return nil, core.NewInvalidTableError(fmt.Sprintf("duplicate field %q", name))
		}
		t.index[name] = i
		t.fields[i] = Field{Name: name, Levels: append([]string(nil), f.Levels...)}
	}

	t.records = make([][]string, len(records))
	for r, rec := range records {
		if len(rec) != len(fields) {
			return nil, core.NewInvalidTableError(fmt.Sprintf("row %d has %d values, expected %d", r, len(rec), len(fields)))
		}
		row := make([]string, len(rec))
		for j, v := range rec {
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, core.NewInvalidTableError(fmt.Sprintf("row %d field %q is missing a value", r, t.fields[j].Name))
			}
			row[j] = v
		}
		t.records[r] = row
	}

	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// NumRows returns the number of records
func (t *CategoricalTable) NumRows() int { return len(t.records) }

// NumFields returns the number of fields
func (t *CategoricalTable) NumFields() int { return len(t.fields) }

// Fields returns a copy of the field definitions in declaration order
func (t *CategoricalTable) Fields() []Field {
	out := make([]Field, len(t.fields))
	for i, f := range t.fields {
		out[i] = Field{Name: f.Name, Levels: append([]string(nil), f.Levels...)}
	}
	return out
}

// Field returns the definition of field j
func (t *CategoricalTable) Field(j int) Field {
	f := t.fields[j]
	return Field{Name: f.Name, Levels: append([]string(nil), f.Levels...)}
}

// FieldIndex returns the position of a field by name
func (t *CategoricalTable) FieldIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Value returns the level of field j in row i
func (t *CategoricalTable) Value(i, j int) string {
	return t.records[i][j]
}

// Column returns a copy of every value of field j
func (t *CategoricalTable) Column(j int) []string {
	out := make([]string, len(t.records))
	for i, rec := range t.records {
		out[i] = rec[j]
	}
	return out
}

// ClassField returns the name of the class field, or "" if none was set
func (t *CategoricalTable) ClassField() string { return t.classField }

// ClassLabels returns the class level of every row.
// Without a class field every label is empty.
func (t *CategoricalTable) ClassLabels() []string {
	j, ok := t.index[t.classField]
	if !ok {
		return make([]string, len(t.records))
	}
	return t.Column(j)
}

// MarkerFields returns every field except the class field
func (t *CategoricalTable) MarkerFields() []string {
	out := make([]string, 0, len(t.fields))
	for _, f := range t.fields {
		if f.Name != t.classField {
			out = append(out, f.Name)
		}
	}
	return out
}

// Select returns a new table restricted to the named fields, in the given order.
// The class field is kept only if it is among names.
func (t *CategoricalTable) Select(names ...string) (*CategoricalTable, error) {
	cols := make([]int, len(names))
	fields := make([]Field, len(names))
	for k, name := range names {
		j, ok := t.index[name]
		if !ok {
			return nil, core.NewInvalidTableError(fmt.Sprintf("unknown field %q", name))
		}
		cols[k] = j
		fields[k] = t.fields[j]
	}

	records := make([][]string, len(t.records))
	for i, rec := range t.records {
		row := make([]string, len(cols))
		for k, j := range cols {
			row[k] = rec[j]
		}
		records[i] = row
	}

	var opts []Option
	for _, name := range names {
		if name == t.classField {
			opts = append(opts, WithClassField(name))
		}
	}
	return New(fields, records, opts...)
}
