package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a queued job. Job intake normally happens upstream; this
// exists for tooling and fixtures.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	input, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("encode job input: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertThumbnailJob, job.ID, job.OwnerID, input)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectThumbnailJob, jobID)
	var (
		job   domain.Job
		input []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&input,
		&job.Status,
		&job.ProgressPercent,
		&job.PhaseMessage,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &job.Input); err != nil {
			return nil, fmt.Errorf("decode job input: %w", err)
		}
	}
	return &job, nil
}

// SaveProgress persists the job's status fields. The query keeps the
// greater of the stored and incoming progress, ignores terminal rows and
// drops writes that would move status back to an earlier stage.
func (r *JobRepositoryPG) SaveProgress(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateThumbnailJobProgress,
		job.ID,
		string(job.Status),
		job.ProgressPercent,
		job.PhaseMessage,
		job.ErrorMessage,
	)
	return err
}

// ListStalled returns ids of unfinished jobs untouched since before.
func (r *JobRepositoryPG) ListStalled(ctx context.Context, before time.Time, limit int) ([]string, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListStalledThumbnailJobs, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
