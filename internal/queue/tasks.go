// Package queue schedules Advance calls on asynq so unfinished jobs keep
// moving without a client polling them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"thumbgen/internal/infra"
)

const (
	TypeAdvance  = "thumbnail:advance"
	DefaultQueue = "thumbnails"
)

// AdvancePayload is the task body.
type AdvancePayload struct {
	JobID string `json:"jobId"`
}

func NewAdvanceTask(jobID string) (*asynq.Task, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("queue: job id is required")
	}
	data, err := json.Marshal(AdvancePayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAdvance, data), nil
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules advance tasks.
type Enqueuer struct {
	client taskClient
	queue  string
	slot   time.Duration
	now    func() time.Time
	logger *infra.Logger
}

// NewEnqueuer wraps an asynq client. slot is the dedup window: at most one
// advance per job is scheduled per slot.
func NewEnqueuer(client taskClient, queue string, slot time.Duration, logger *infra.Logger) *Enqueuer {
	if queue == "" {
		queue = DefaultQueue
	}
	if slot <= 0 {
		slot = 5 * time.Second
	}
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Enqueuer{client: client, queue: queue, slot: slot, now: time.Now, logger: logger}
}

// EnqueueAdvance schedules an advance for jobID after delay. A task already
// scheduled for the same slot is treated as success.
func (e *Enqueuer) EnqueueAdvance(ctx context.Context, jobID string, delay time.Duration) error {
	task, err := NewAdvanceTask(jobID)
	if err != nil {
		return err
	}
	runAt := e.now().Add(delay)
	taskID := fmt.Sprintf("advance:%s:%d", jobID, runAt.Truncate(e.slot).Unix())
	opts := []asynq.Option{
		asynq.Queue(e.queue),
		asynq.TaskID(taskID),
		asynq.MaxRetry(3),
		asynq.Timeout(5 * time.Minute),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	if _, err := e.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			e.logger.Debug().Str("job_id", jobID).Str("task_id", taskID).Msg("queue: advance already scheduled")
			return nil
		}
		return fmt.Errorf("enqueue advance for %s: %w", jobID, err)
	}
	return nil
}
