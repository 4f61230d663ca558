package app

import (
	"context"
	"time"

	"gomca/domain/core"
	"gomca/domain/table"
	"gomca/internal"
	"gomca/internal/biplot"
	apperrors "gomca/internal/errors"
	"gomca/internal/mca"
	"gomca/ports"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// DefaultConcurrency bounds RunBatch when no limit is configured
const DefaultConcurrency = 4

// AnalysisRequest defines what to analyze in a loaded table
type AnalysisRequest struct {
	Components int             `json:"components"`
	Selection  table.Selection `json:"selection"`
}

// AnalysisResult is the complete, self-describing output of one run
type AnalysisResult struct {
	RunID             core.RunID        `json:"run_id"`
	Source            string            `json:"source"`
	Fingerprint       core.Hash         `json:"fingerprint"`
	ClassField        string            `json:"class_field"`
	MarkerFields      []string          `json:"marker_fields"`
	Rows              int               `json:"rows"`
	Components        int               `json:"components"`
	Columns           []mca.Column      `json:"columns"`
	RowLabels         []string          `json:"row_labels"`
	SingularValues    []float64         `json:"singular_values"`
	Eigenvalues       []float64         `json:"eigenvalues"`
	TotalInertia      float64           `json:"total_inertia"`
	ExplainedInertia  []float64         `json:"explained_inertia"`
	CumulativeInertia []float64         `json:"cumulative_inertia"`
	Ties              []int             `json:"ties,omitempty"`
	RowCoordinates    [][]float64       `json:"row_coordinates"`
	ColumnCoordinates [][]float64       `json:"column_coordinates"`
	Diagnostics       DiagnosticsReport `json:"diagnostics"`
	CreatedAt         time.Time         `json:"created_at"`
	RuntimeMs         int64             `json:"runtime_ms"`

	Analysis *mca.Analysis  `json:"-"`
	Figure   *biplot.Figure `json:"-"` // nil when fewer than two axes were extracted
}

// DiagnosticsReport is the serializable form of mca.Diagnostics
type DiagnosticsReport struct {
	Axes                []mca.AxisSummary    `json:"axes"`
	RowContributions    [][]float64          `json:"row_contributions"`
	ColumnContributions [][]float64          `json:"column_contributions"`
	FieldContributions  map[string][]float64 `json:"field_contributions"`
	RowCos2             [][]float64          `json:"row_cos2"`
	ColumnCos2          [][]float64          `json:"column_cos2"`
	Fields              []mca.FieldProfile   `json:"fields"`
}

// Record summarizes the result for a RunStore
func (r *AnalysisResult) Record() ports.RunRecord {
	return ports.RunRecord{
		RunID:            r.RunID,
		Source:           r.Source,
		Fingerprint:      r.Fingerprint,
		ClassField:       r.ClassField,
		MarkerFields:     append([]string(nil), r.MarkerFields...),
		Rows:             r.Rows,
		Columns:          len(r.Columns),
		Components:       r.Components,
		TotalInertia:     r.TotalInertia,
		ExplainedInertia: append([]float64(nil), r.ExplainedInertia...),
		CreatedAt:        r.CreatedAt,
	}
}

// AnalysisService runs MCA over table sources
type AnalysisService struct {
	engine      *mca.Engine
	logger      *internal.Logger
	store       ports.RunStore
	concurrency int
}

// ServiceOption configures an AnalysisService
type ServiceOption func(*AnalysisService)

// WithRunStore persists a summary of every successful run
func WithRunStore(store ports.RunStore) ServiceOption {
	return func(s *AnalysisService) { s.store = store }
}

// WithConcurrency bounds the number of tables RunBatch analyzes at once
func WithConcurrency(n int) ServiceOption {
	return func(s *AnalysisService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger replaces the default logger
func WithLogger(logger *internal.Logger) ServiceOption {
	return func(s *AnalysisService) { s.logger = logger }
}

// NewAnalysisService creates an analysis service around engine
func NewAnalysisService(engine *mca.Engine, opts ...ServiceOption) *AnalysisService {
	s := &AnalysisService{
		engine:      engine,
		logger:      internal.DefaultLogger,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the configured run store, or nil
func (s *AnalysisService) Store() ports.RunStore { return s.store }

// Run loads one table and analyzes it
func (s *AnalysisService) Run(ctx context.Context, source ports.TableSource, req AnalysisRequest) (*AnalysisResult, error) {
	tbl, err := source.Load(ctx)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to load %s", source.Name())
	}
	return s.Analyze(ctx, source.Name(), tbl, req)
}

// Analyze runs the engine on an already loaded table
func (s *AnalysisService) Analyze(ctx context.Context, name string, tbl *table.CategoricalTable, req AnalysisRequest) (*AnalysisResult, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := req.Components
	if k == 0 {
		k = mca.DefaultComponents
	}

	sel := req.Selection
	if sel.ClassField == "" {
		sel.ClassField = tbl.ClassField()
	}
	selected, err := sel.Apply(tbl)
	if err != nil {
		return nil, err
	}
	markers := selected.MarkerFields()
	s.logger.Debug("analyzing %s: %d rows, class %s, %d markers, k=%d", name, selected.NumRows(), sel.ClassField, len(markers), k)

	a, err := s.engine.Analyze(selected, k)
	if err != nil {
		switch {
		case core.IsInputError(err):
			s.logger.Warn("rejected table %s: %v", name, err)
		case core.IsFactorizationError(err):
			s.logger.Warn("cannot factorize %s with k=%d: %v", name, k, err)
		default:
			s.logger.Error("analysis of %s failed: %v", name, err)
		}
		return nil, err
	}

	res := newResult(name, selected, markers, a)
	if k >= 2 {
		fig, err := biplot.FromAnalysis(a, res.RowLabels, res.ClassField, sel.ClassLevels, markers)
		if err != nil {
			return nil, err
		}
		res.Figure = fig
	}
	res.RuntimeMs = time.Since(start).Milliseconds()

	if s.store != nil {
		if err := s.store.Save(ctx, res.Record()); err != nil {
			return nil, apperrors.Wrapf(err, "failed to save run %s", res.RunID)
		}
	}

	s.logger.Info("run %s on %s: %d×%d indicator, explained %v", res.RunID, name, res.Rows, len(res.Columns), res.ExplainedInertia)
	return res, nil
}

// RunBatch analyzes every source concurrently. Results keep the order of
// sources; the first failure cancels the remaining runs and is returned.
func (s *AnalysisService) RunBatch(ctx context.Context, sources []ports.TableSource, req AnalysisRequest) ([]*AnalysisResult, error) {
	results := make([]*AnalysisResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			res, err := s.Run(gctx, src, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newResult(name string, tbl *table.CategoricalTable, markers []string, a *mca.Analysis) *AnalysisResult {
	fac := a.Factorization
	d := a.Diagnostics
	res := &AnalysisResult{
		RunID:             core.NewRunID(),
		Source:            name,
		ClassField:        tbl.ClassField(),
		MarkerFields:      markers,
		Rows:              tbl.NumRows(),
		Components:        fac.Components,
		Columns:           append([]mca.Column(nil), a.Indicator.Columns...),
		RowLabels:         tbl.ClassLabels(),
		SingularValues:    append([]float64(nil), fac.SingularValues...),
		Eigenvalues:       append([]float64(nil), fac.Eigenvalues...),
		TotalInertia:      fac.TotalInertia,
		ExplainedInertia:  append([]float64(nil), fac.ExplainedInertia...),
		CumulativeInertia: fac.CumulativeInertia(),
		Ties:              append([]int(nil), fac.Ties...),
		RowCoordinates:    rows(fac.RowCoordinates),
		ColumnCoordinates: rows(fac.ColumnCoordinates),
		Diagnostics: DiagnosticsReport{
			Axes:                d.Axes,
			RowContributions:    rows(d.RowContributions),
			ColumnContributions: rows(d.ColumnContributions),
			FieldContributions:  d.FieldContributions,
			RowCos2:             rows(d.RowCos2),
			ColumnCos2:          rows(d.ColumnCos2),
			Fields:              d.Fields,
		},
		CreatedAt: time.Now().UTC(),
		Analysis:  a,
	}
	res.Fingerprint = fingerprint(res)
	return res
}

// fingerprint covers column identities, coordinates and inertia so two runs
// share a fingerprint only when their numeric output is bit-identical.
func fingerprint(res *AnalysisResult) core.Hash {
	var fp core.Fingerprint
	for _, c := range res.Columns {
		fp.AddString(c.Field)
		fp.AddString(c.Level)
	}
	for _, row := range res.RowCoordinates {
		fp.AddFloats(row...)
	}
	for _, row := range res.ColumnCoordinates {
		fp.AddFloats(row...)
	}
	fp.AddFloats(res.ExplainedInertia...)
	return fp.Sum()
}

func rows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
