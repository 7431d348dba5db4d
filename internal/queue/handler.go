package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/pipeline"
)

// Advancer is the orchestrator entry point.
type Advancer interface {
	Advance(ctx context.Context, jobID string) (pipeline.Result, error)
}

type scheduler interface {
	EnqueueAdvance(ctx context.Context, jobID string, delay time.Duration) error
}

// Handler processes advance tasks and re-schedules the job until it is
// terminal.
type Handler struct {
	advancer Advancer
	next     scheduler
	poll     time.Duration
	logger   *infra.Logger
}

func NewHandler(advancer Advancer, next scheduler, poll time.Duration, logger *infra.Logger) *Handler {
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Handler{advancer: advancer, next: next, poll: poll, logger: logger}
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAdvance, h.ProcessTask)
}

func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload AdvancePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.JobID == "" {
		return fmt.Errorf("queue: bad advance payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := h.advancer.Advance(ctx, payload.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.logger.Warn().Str("job_id", payload.JobID).Msg("queue: job vanished, dropping task")
			return fmt.Errorf("job %s: %w", payload.JobID, asynq.SkipRetry)
		}
		return err
	}

	h.logger.Debug().
		Str("job_id", res.JobID).
		Str("status", string(res.Status)).
		Int("progress", res.ProgressPercent).
		Bool("busy", res.Busy).
		Msg("queue: advance task done")

	if res.Status.Terminal() || h.next == nil {
		return nil
	}
	if err := h.next.EnqueueAdvance(ctx, payload.JobID, h.poll); err != nil {
		// The stalled-job sweep picks the job up again.
		h.logger.Error().Err(err).Str("job_id", payload.JobID).Msg("queue: reschedule failed")
	}
	return nil
}
