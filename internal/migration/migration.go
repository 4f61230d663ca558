package migration

import (
	"context"

	"gomca/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db sqlx.ExecerContext) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
	steps   []step
}

type step struct {
	name string
	sql  string
}

var _ Migrator = (*MigrationRunner)(nil)

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
		steps: []step{
			{name: "mca_runs table", sql: createRunsTable},
			{name: "mca_runs indexes", sql: createRunsIndexes},
		},
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Statements returns the SQL executed by Run, in order
func (r *MigrationRunner) Statements() []string {
	out := make([]string, len(r.steps))
	for i, s := range r.steps {
		out[i] = s.sql
	}
	return out
}

// Run executes all database migrations in order. Every statement is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db sqlx.ExecerContext) error {
	for _, s := range r.steps {
		if _, err := db.ExecContext(ctx, s.sql); err != nil {
			return errors.Wrapf(err, "failed to create %s", s.name)
		}
	}
	return nil
}

const createRunsTable = `
	CREATE TABLE IF NOT EXISTS mca_runs (
		run_id UUID PRIMARY KEY,
		source TEXT NOT NULL,
		fingerprint CHAR(64) NOT NULL,
		class_field TEXT NOT NULL,
		marker_fields TEXT[] NOT NULL DEFAULT '{}',
		row_count INTEGER NOT NULL,
		column_count INTEGER NOT NULL,
		components INTEGER NOT NULL,
		total_inertia DOUBLE PRECISION NOT NULL,
		explained_inertia DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

const createRunsIndexes = `
	CREATE INDEX IF NOT EXISTS idx_mca_runs_fingerprint ON mca_runs(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_mca_runs_created_at ON mca_runs(created_at DESC)
`
