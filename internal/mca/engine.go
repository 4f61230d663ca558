package mca

import (
	"gomca/domain/core"
	"gomca/domain/table"
)

// DefaultComponents is the number of axes a standard biplot needs
const DefaultComponents = 2

// Config bounds the size of a single analysis
type Config struct {
	MaxComponents int // upper bound on requested axes
	MaxCells      int // upper bound on rows × indicator columns
}

// DefaultConfig returns limits suitable for a few thousand samples
// with dozens of marker fields
func DefaultConfig() Config {
	return Config{
		MaxComponents: 10,
		MaxCells:      4_000_000,
	}
}

// Engine runs MCA under a fixed Config
type Engine struct {
	config Config
}

// NewEngine creates an engine; non-positive limits fall back to the defaults
func NewEngine(config Config) *Engine {
	def := DefaultConfig()
	if config.MaxComponents <= 0 {
		config.MaxComponents = def.MaxComponents
	}
	if config.MaxCells <= 0 {
		config.MaxCells = def.MaxCells
	}
	return &Engine{config: config}
}

// Config returns the limits the engine enforces
func (e *Engine) Config() Config { return e.config }

// Analysis is the complete output of one MCA run
type Analysis struct {
	Indicator     *Indicator
	Factorization *Factorization
	Diagnostics   *Diagnostics
}

// Analyze builds the indicator matrix and factorizes it.
// It returns either a complete analysis or an error, never a partial result.
func (e *Engine) Analyze(t *table.CategoricalTable, components int) (*Analysis, error) {
	if components > e.config.MaxComponents {
		return nil, core.NewCapacityError("components", components, e.config.MaxComponents)
	}

	ind, err := e.Build(t)
	if err != nil {
		return nil, err
	}

	fac, err := e.Factorize(ind, components)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Indicator:     ind,
		Factorization: fac,
		Diagnostics:   Diagnose(ind, fac),
	}, nil
}

var defaultEngine = NewEngine(DefaultConfig())

// Build runs the indicator builder with default limits
func Build(t *table.CategoricalTable) (*Indicator, error) {
	return defaultEngine.Build(t)
}

// Factorize runs the factorization engine with default limits
func Factorize(ind *Indicator, components int) (*Factorization, error) {
	return defaultEngine.Factorize(ind, components)
}

// Analyze runs the whole pipeline with default limits
func Analyze(t *table.CategoricalTable, components int) (*Analysis, error) {
	return defaultEngine.Analyze(t, components)
}
