package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"thumbgen/internal/catalog"
	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/providers/image"
	"thumbgen/internal/ranking"
	"thumbgen/internal/storage"
)

// Deps are the orchestrator's collaborators. Locker and Notifier are
// optional.
type Deps struct {
	Jobs      domain.JobRepository
	Variants  domain.VariantRepository
	Store     storage.Store
	Planner   Planner
	Generator image.Generator
	Renderer  Renderer
	Catalog   *catalog.Catalog
	Locker    Locker
	Notifier  Notifier
	Logger    *infra.Logger
	Now       func() time.Time
	NewID     func() string
}

// Orchestrator owns job state. Status changes only happen inside Advance.
type Orchestrator struct {
	cfg       Config
	jobs      domain.JobRepository
	variants  domain.VariantRepository
	store     storage.Store
	planner   Planner
	generator image.Generator
	renderer  Renderer
	catalog   *catalog.Catalog
	ranking   *ranking.Engine
	locker    Locker
	notifier  Notifier
	logger    *infra.Logger
	now       func() time.Time
	newID     func() string
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Jobs == nil || deps.Variants == nil:
		return nil, errors.New("pipeline: repositories are required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	case deps.Planner == nil:
		return nil, errors.New("pipeline: planner is required")
	case deps.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	case deps.Renderer == nil:
		return nil, errors.New("pipeline: renderer is required")
	}
	o := &Orchestrator{
		cfg:       cfg.withDefaults(),
		jobs:      deps.Jobs,
		variants:  deps.Variants,
		store:     deps.Store,
		planner:   deps.Planner,
		generator: deps.Generator,
		renderer:  deps.Renderer,
		catalog:   deps.Catalog,
		locker:    deps.Locker,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if o.catalog == nil {
		o.catalog = catalog.Default()
	}
	o.ranking = ranking.NewEngine(o.catalog)
	if o.logger == nil {
		l := infra.Logger(zerolog.New(io.Discard))
		o.logger = &l
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// Advance runs whichever stages are outstanding for jobID within the call
// budget. Terminal jobs are returned unchanged without any writes. Errors
// returned here are infrastructure failures; a job that fails is reported
// through Result.Status instead.
func (o *Orchestrator) Advance(ctx context.Context, jobID string) (Result, error) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	if job.Status.Terminal() {
		return resultOf(job), nil
	}

	if o.locker != nil {
		unlock, acquired, err := o.locker.TryLock(ctx, lockKey(jobID), o.cfg.LockTTL)
		if err != nil {
			return Result{}, fmt.Errorf("lock job %s: %w", jobID, err)
		}
		if !acquired {
			res := resultOf(job)
			res.Busy = true
			return res, nil
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				o.logger.Warn().Err(err).Str("job_id", jobID).Msg("pipeline: unlock failed")
			}
		}()
		// Another holder may have finished the job between the read and the lock.
		if job, err = o.jobs.GetByID(ctx, jobID); err != nil {
			return Result{}, err
		}
		if job.Status.Terminal() {
			return resultOf(job), nil
		}
	}

	before := resultOf(job)
	started := o.now()
	runErr := o.run(ctx, job, newBudget(o.cfg, o.now))
	if runErr != nil {
		if !isFatal(runErr) {
			return Result{}, runErr
		}
		o.logger.Error().Err(runErr).Str("job_id", job.ID).Msg("pipeline: job failed")
		if err := job.Fail(runErr); err != nil {
			return Result{}, err
		}
		if err := o.jobs.SaveProgress(ctx, job); err != nil {
			return Result{}, fmt.Errorf("persist failed job %s: %w", job.ID, err)
		}
	}

	res := resultOf(job)
	o.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(res.Status)).
		Int("progress", res.ProgressPercent).
		Dur("elapsed", o.now().Sub(started)).
		Msg("pipeline: advanced")
	if o.notifier != nil && res != before {
		if err := o.notifier.JobAdvanced(ctx, res); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: notify failed")
		}
	}
	return res, nil
}

func lockKey(jobID string) string {
	return "thumbgen:advance:" + jobID
}

// run is one sequential pass. Returning nil with a non-terminal job means the
// budget ran out and the next call continues.
func (o *Orchestrator) run(ctx context.Context, job *domain.Job, b *budget) error {
	input := job.Input
	input.Normalize()

	variants, err := o.variants.ListByJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list variants: %w", err)
	}

	// Variant rows decide what is left to do. A job past planning with no
	// rows is re-planned in place; status never steps back.
	if len(variants) == 0 {
		if job.Status == domain.JobStatusQueued {
			if err := o.transition(ctx, job, domain.JobStatusPlanning, 0, "Planning concepts"); err != nil {
				return err
			}
		}
		if variants, err = o.plan(ctx, job, input); err != nil {
			return err
		}
	}
	if job.Status == domain.JobStatusQueued || job.Status == domain.JobStatusPlanning {
		if err := o.transition(ctx, job, domain.JobStatusGenerating, progressPlanned, fmt.Sprintf("Planned %d concepts", len(variants))); err != nil {
			return err
		}
	}

	if input.Style.AllowAIBase && job.Status == domain.JobStatusGenerating {
		done, err := o.generate(ctx, job, variants, b)
		if err != nil || !done {
			return err
		}
	}

	if job.Status != domain.JobStatusRendering {
		if err := o.transition(ctx, job, domain.JobStatusRendering, progressGenerated, "Rendering thumbnails"); err != nil {
			return err
		}
	}
	done, err := o.render(ctx, job, variants, b)
	if err != nil || !done {
		return err
	}
	return o.transition(ctx, job, domain.JobStatusCompleted, progressCompleted, fmt.Sprintf("Completed %d thumbnails", len(variants)))
}

// transition is the only place job status is changed and persisted during a
// run. A rejected transition fails the job rather than retrying forever.
func (o *Orchestrator) transition(ctx context.Context, job *domain.Job, next domain.JobStatus, progress int, phase string) error {
	if err := job.Transition(next, progress, phase); err != nil {
		return &fatalError{err: err}
	}
	if err := o.jobs.SaveProgress(ctx, job); err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return nil
}

// stageProgress interpolates progress inside [from, to] by completed items.
func stageProgress(from, to, done, total int) int {
	if total <= 0 {
		return to
	}
	return from + (to-from)*done/total
}
