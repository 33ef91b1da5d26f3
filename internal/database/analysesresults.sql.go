package database

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const createOrUpdateAnalysesResults = `-- name: CreateOrUpdateAnalysesResults :exec
INSERT INTO analyses_results (
results, job_id)
VALUES ( $1, $2)
ON CONFLICT (job_id)
DO UPDATE SET
    results = EXCLUDED.results,
    updated_at = CURRENT_TIMESTAMP
`

type CreateOrUpdateAnalysesResultsParams struct {
	Results json.RawMessage
	JobID   uuid.UUID
}

func (q *Queries) CreateOrUpdateAnalysesResults(ctx context.Context, arg CreateOrUpdateAnalysesResultsParams) error {
	_, err := q.db.ExecContext(ctx, createOrUpdateAnalysesResults, arg.Results, arg.JobID)
	return err
}

const getAnalysesResultsByJob = `-- name: GetAnalysesResultsByJob :one
SELECT id, job_id, results, created_at, updated_at FROM analyses_results WHERE job_id=$1
`

func (q *Queries) GetAnalysesResultsByJob(ctx context.Context, jobID uuid.UUID) (AnalysesResult, error) {
	row := q.db.QueryRowContext(ctx, getAnalysesResultsByJob, jobID)
	var i AnalysesResult
	err := row.Scan(
		&i.ID,
		&i.JobID,
		&i.Results,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
