package ports

import (
	"context"
	"io"

	"gomca/domain/table"
	"gomca/internal/biplot"
)

// TableSource loads a categorical table from some backing store.
// Implementations must return freshly allocated tables.
type TableSource interface {
	Load(ctx context.Context) (*table.CategoricalTable, error)
	// Name identifies the source in logs and results (file path, query label, ...)
	Name() string
}

// Renderer draws a biplot figure. It performs no numeric work.
type Renderer interface {
	Render(ctx context.Context, fig *biplot.Figure, w io.Writer) error
}

// StaticSource serves an already built table.
type StaticSource struct {
	Label string
	Table *table.CategoricalTable
}

// Load returns the wrapped table
func (s StaticSource) Load(ctx context.Context) (*table.CategoricalTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Table, nil
}

// Name returns the source label
func (s StaticSource) Name() string { return s.Label }
