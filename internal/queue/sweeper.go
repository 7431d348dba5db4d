package queue

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"thumbgen/internal/infra"
)

type stalledLister interface {
	ListStalled(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// Sweeper re-enqueues unfinished jobs whose last update is older than
// staleAfter, covering lost tasks and crashed workers.
type Sweeper struct {
	jobs       stalledLister
	next       scheduler
	staleAfter time.Duration
	limit      int
	now        func() time.Time
	logger     *infra.Logger

	cron *gocron.Scheduler
}

func NewSweeper(jobs stalledLister, next scheduler, staleAfter time.Duration, logger *infra.Logger) *Sweeper {
	if logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	if staleAfter <= 0 {
		staleAfter = 3 * time.Minute
	}
	return &Sweeper{jobs: jobs, next: next, staleAfter: staleAfter, limit: 100, now: time.Now, logger: logger}
}

// Sweep enqueues one advance per stalled job and returns how many were
// scheduled.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ids, err := s.jobs.ListStalled(ctx, s.now().Add(-s.staleAfter), s.limit)
	if err != nil {
		return 0, fmt.Errorf("list stalled jobs: %w", err)
	}
	scheduled := 0
	for _, id := range ids {
		if err := s.next.EnqueueAdvance(ctx, id, 0); err != nil {
			s.logger.Error().Err(err).Str("job_id", id).Msg("sweeper: enqueue failed")
			continue
		}
		scheduled++
	}
	if scheduled > 0 {
		s.logger.Info().Int("jobs", scheduled).Msg("sweeper: rescheduled stalled jobs")
	}
	return scheduled, nil
}

// Start runs Sweep every interval until Stop. Overlapping runs are skipped.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) error {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	_, err := cron.Every(interval).Do(func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error().Err(err).Msg("sweeper: run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweeper: %w", err)
	}
	cron.StartAsync()
	s.cron = cron
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
