package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomca/domain/core"
	apperrors "gomca/internal/errors"
	"gomca/ports"
)

var runColumnNames = []string{
	"run_id", "source", "fingerprint", "class_field", "marker_fields", "row_count",
	"column_count", "components", "total_inertia", "explained_inertia", "created_at",
}

func newMockRepository(t *testing.T) (ports.RunStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRunRepository(sqlx.NewDb(db, "postgres")), mock
}

func sampleRecord() ports.RunRecord {
	return ports.RunRecord{
		RunID:            core.NewRunID(),
		Source:           "samples.csv",
		Fingerprint:      core.NewHash([]byte("samples")),
		ClassField:       "Aggressiveness",
		MarkerFields:     []string{"SIX1", "SIX2"},
		Rows:             90,
		Columns:          7,
		Components:       2,
		TotalInertia:     2.5,
		ExplainedInertia: []float64{0.25, 0.125},
		CreatedAt:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRunRepository_Save(t *testing.T) {
	repo, mock := newMockRepository(t)
	rec := sampleRecord()

	mock.ExpectExec(`INSERT INTO mca_runs .* ON CONFLICT \(run_id\) DO NOTHING`).
		WithArgs(rec.RunID.String(), rec.Source, rec.Fingerprint.String(), rec.ClassField,
			sqlmock.AnyArg(), rec.Rows, rec.Columns, rec.Components, rec.TotalInertia,
			sqlmock.AnyArg(), rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_SaveError(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(`INSERT INTO mca_runs`).WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_Get(t *testing.T) {
	repo, mock := newMockRepository(t)
	rec := sampleRecord()

	mock.ExpectQuery(`SELECT .* FROM mca_runs WHERE run_id = \$1`).
		WithArgs(rec.RunID.String()).
		WillReturnRows(sqlmock.NewRows(runColumnNames).AddRow(
			rec.RunID.String(), rec.Source, rec.Fingerprint.String(), rec.ClassField,
			[]byte("{SIX1,SIX2}"), int64(rec.Rows), int64(rec.Columns), int64(rec.Components),
			rec.TotalInertia, []byte("{0.25,0.125}"), rec.CreatedAt,
		))

	got, err := repo.Get(context.Background(), rec.RunID)
	require.NoError(t, err)
	assert.Equal(t, rec, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_GetMissing(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := core.NewRunID()

	mock.ExpectQuery(`SELECT .* FROM mca_runs WHERE run_id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(runColumnNames))

	_, err := repo.Get(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_List(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"explicit limit", 5, 5},
		{"default limit", 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			rec := sampleRecord()

			mock.ExpectQuery(`SELECT .* FROM mca_runs ORDER BY created_at DESC LIMIT \$1`).
				WithArgs(tt.wantLimit).
				WillReturnRows(sqlmock.NewRows(runColumnNames).AddRow(
					rec.RunID.String(), rec.Source, rec.Fingerprint.String(), rec.ClassField,
					"{SIX1,SIX2}", int64(rec.Rows), int64(rec.Columns), int64(rec.Components),
					rec.TotalInertia, "{0.25,0.125}", rec.CreatedAt,
				))

			recs, err := repo.List(context.Background(), tt.limit)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, rec, recs[0])
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
