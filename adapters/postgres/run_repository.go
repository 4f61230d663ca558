package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gomca/domain/core"
	apperrors "gomca/internal/errors"
	"gomca/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// runRow mirrors the mca_runs table
type runRow struct {
	RunID            string          `db:"run_id"`
	Source           string          `db:"source"`
	Fingerprint      string          `db:"fingerprint"`
	ClassField       string          `db:"class_field"`
	MarkerFields     pq.StringArray  `db:"marker_fields"`
	RowCount         int             `db:"row_count"`
	ColumnCount      int             `db:"column_count"`
	Components       int             `db:"components"`
	TotalInertia     float64         `db:"total_inertia"`
	ExplainedInertia pq.Float64Array `db:"explained_inertia"`
	CreatedAt        time.Time       `db:"created_at"`
}

func toRow(rec ports.RunRecord) runRow {
	return runRow{
		RunID:            rec.RunID.String(),
		Source:           rec.Source,
		Fingerprint:      rec.Fingerprint.String(),
		ClassField:       rec.ClassField,
		MarkerFields:     pq.StringArray(rec.MarkerFields),
		RowCount:         rec.Rows,
		ColumnCount:      rec.Columns,
		Components:       rec.Components,
		TotalInertia:     rec.TotalInertia,
		ExplainedInertia: pq.Float64Array(rec.ExplainedInertia),
		CreatedAt:        rec.CreatedAt,
	}
}

func (r runRow) record() ports.RunRecord {
	return ports.RunRecord{
		RunID:            core.RunID(r.RunID),
		Source:           r.Source,
		Fingerprint:      core.Hash(r.Fingerprint),
		ClassField:       r.ClassField,
		MarkerFields:     []string(r.MarkerFields),
		Rows:             r.RowCount,
		Columns:          r.ColumnCount,
		Components:       r.Components,
		TotalInertia:     r.TotalInertia,
		ExplainedInertia: []float64(r.ExplainedInertia),
		CreatedAt:        r.CreatedAt,
	}
}

const runColumns = `run_id, source, fingerprint, class_field, marker_fields, row_count,
	column_count, components, total_inertia, explained_inertia, created_at`

// RunRepository implements ports.RunStore for PostgreSQL
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunStore {
	return &RunRepository{db: db}
}

// Save inserts a run summary; saving the same run twice is a no-op
func (r *RunRepository) Save(ctx context.Context, rec ports.RunRecord) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO mca_runs (`+runColumns+`)
		VALUES (:run_id, :source, :fingerprint, :class_field, :marker_fields, :row_count,
			:column_count, :components, :total_inertia, :explained_inertia, :created_at)
		ON CONFLICT (run_id) DO NOTHING
	`, toRow(rec))
	if err != nil {
		return apperrors.DatabaseError("failed to save run", err)
	}
	return nil
}

// Get retrieves a run summary by ID
func (r *RunRepository) Get(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM mca_runs WHERE run_id = $1`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("run " + id.String())
		}
		return nil, apperrors.DatabaseError("failed to get run", err)
	}
	rec := row.record()
	return &rec, nil
}

// List returns the most recent run summaries
func (r *RunRepository) List(ctx context.Context, limit int) ([]ports.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+runColumns+` FROM mca_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list runs", err)
	}
	out := make([]ports.RunRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

// Connect opens a PostgreSQL connection and applies migrations
func Connect(ctx context.Context, url string, migrate func(context.Context, sqlx.ExecerContext) error) (*sqlx.DB, error) {
	if url == "" {
		return nil, apperrors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to connect to database", err)
	}
	if migrate != nil {
		if err := migrate(ctx, db); err != nil {
			db.Close()
			return nil, apperrors.Wrap(err, "database migration failed")
		}
	}
	return db, nil
}
