// Package pipeline drives thumbnail jobs through planning, base image
// generation and compositing across repeated Advance calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thumbgen/internal/compositor"
	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/providers/image"
)

// Progress checkpoints. Generation spans planned..generated and rendering
// spans generated..100.
const (
	progressPlanned   = 20
	progressGenerated = 70
	progressCompleted = 100
)

// Planner produces candidate concept plans for a job.
type Planner interface {
	GeneratePlans(ctx context.Context, input domain.JobInput, desiredCount int) ([]domain.ConceptPlan, error)
}

// Renderer composes final thumbnails.
type Renderer interface {
	RenderWithBase(ctx context.Context, base []byte, spec compositor.RenderSpec) ([]byte, error)
	RenderFallback(ctx context.Context, spec compositor.RenderSpec) ([]byte, error)
}

// Locker provides optional per-job mutual exclusion across processes.
type Locker interface {
	// TryLock returns acquired=false without error when another holder owns key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

// Notifier is told about every Advance that changed the job.
type Notifier interface {
	JobAdvanced(ctx context.Context, res Result) error
}

// Config bounds the work one Advance call performs.
type Config struct {
	CandidateCount    int
	MaxPerConcept     int
	BatchSize         int
	BatchesPerAdvance int
	TimeBudget        time.Duration
	LockTTL           time.Duration
}

// ConfigFrom maps the loaded pipeline settings.
func ConfigFrom(pc infra.PipelineConfig) Config {
	return Config{
		CandidateCount:    pc.CandidateCount,
		MaxPerConcept:     pc.MaxPerConcept,
		BatchSize:         pc.BatchSize,
		BatchesPerAdvance: pc.BatchesPerAdvance,
		TimeBudget:        pc.TimeBudget,
		LockTTL:           pc.LockTTL,
	}
}

func (c Config) withDefaults() Config {
	if c.CandidateCount <= 0 {
		c.CandidateCount = 12
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 2
	}
	if c.BatchesPerAdvance <= 0 {
		c.BatchesPerAdvance = 3
	}
	if c.TimeBudget <= 0 {
		c.TimeBudget = 45 * time.Second
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 2 * time.Minute
	}
	return c
}

// Result is the externally visible job state after an Advance call.
type Result struct {
	JobID           string           `json:"jobId"`
	Status          domain.JobStatus `json:"status"`
	ProgressPercent int              `json:"progressPercent"`
	PhaseMessage    string           `json:"phaseMessage,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
	// Busy is set when another caller held the job lock and no work ran.
	Busy bool `json:"-"`
}

func resultOf(job *domain.Job) Result {
	return Result{
		JobID:           job.ID,
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		PhaseMessage:    job.PhaseMessage,
		ErrorMessage:    job.ErrorMessage,
	}
}

// fatalError marks failures that terminate the job rather than the call.
type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(format string, args ...any) error {
	return &fatalError{err: fmt.Errorf(format, args...)}
}

func isFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

var errEmptyImage = errors.New("generator returned no image")

// compile-time checks for the production collaborators.
var (
	_ Renderer        = (*compositor.Compositor)(nil)
	_ image.Generator = image.SyntheticGenerator{}
)
