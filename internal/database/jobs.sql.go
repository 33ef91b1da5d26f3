package database

import (
	"context"

	"github.com/google/uuid"
)

const updateJobStatus = `-- name: UpdateJobStatus :exec
UPDATE jobs
SET status=$1
WHERE id=$2
`

type UpdateJobStatusParams struct {
	Status string
	ID     uuid.UUID
}

func (q *Queries) UpdateJobStatus(ctx context.Context, arg UpdateJobStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateJobStatus, arg.Status, arg.ID)
	return err
}

const getJob = `-- name: GetJob :one
SELECT id, user_id, name, status, job_title, job_description, created_at FROM jobs WHERE id=$1
`

func (q *Queries) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	row := q.db.QueryRowContext(ctx, getJob, id)
	var i Job
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Status,
		&i.JobTitle,
		&i.JobDescription,
		&i.CreatedAt,
	)
	return i, err
}

const createJob = `-- name: CreateJob :one
INSERT INTO jobs (user_id, name, job_title, job_description)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, name, status, job_title, job_description, created_at
`

type CreateJobParams struct {
	UserID         uuid.UUID
	Name           string
	JobTitle       string
	JobDescription string
}

func (q *Queries) CreateJob(ctx context.Context, arg CreateJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, createJob, arg.UserID, arg.Name, arg.JobTitle, arg.JobDescription)
	var i Job
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Status,
		&i.JobTitle,
		&i.JobDescription,
		&i.CreatedAt,
	)
	return i, err
}
