package ports

import (
	"context"
	"time"

	"gomca/domain/core"
)

// RunRecord is the persisted summary of one analysis run
type RunRecord struct {
	RunID            core.RunID `json:"run_id"`
	Source           string     `json:"source"`
	Fingerprint      core.Hash  `json:"fingerprint"`
	ClassField       string     `json:"class_field"`
	MarkerFields     []string   `json:"marker_fields"`
	Rows             int        `json:"rows"`
	Columns          int        `json:"columns"`
	Components       int        `json:"components"`
	TotalInertia     float64    `json:"total_inertia"`
	ExplainedInertia []float64  `json:"explained_inertia"`
	CreatedAt        time.Time  `json:"created_at"`
}

// RunStore persists run summaries. Results themselves are written as files.
type RunStore interface {
	Save(ctx context.Context, rec RunRecord) error
	Get(ctx context.Context, id core.RunID) (*RunRecord, error)
	List(ctx context.Context, limit int) ([]RunRecord, error)
}
