package domain

import (
	"context"
	"time"
)

// JobRepository persists job state. Only the orchestrator writes through it.
type JobRepository interface {
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// SaveProgress persists status, progress, phase and error message.
	// Implementations must never lower the stored progress.
	SaveProgress(ctx context.Context, job *Job) error
	// ListStalled returns non-terminal job ids not updated since before.
	ListStalled(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// VariantRepository persists variants.
type VariantRepository interface {
	// ListByJob returns the job's variants in rank order.
	ListByJob(ctx context.Context, jobID string) ([]Variant, error)
	// CreateAll inserts the planned variants. If the job already has
	// variants, nothing is inserted and the call still succeeds.
	CreateAll(ctx context.Context, jobID string, variants []Variant) error
	// SetBaseImage records the base key only if none is set yet.
	SetBaseImage(ctx context.Context, variantID, key string) error
	// MarkBaseFailed records a failed base attempt only if no key is set.
	MarkBaseFailed(ctx context.Context, variantID, reason string) error
	// SetFinalImage records the final key only if none is set yet.
	SetFinalImage(ctx context.Context, variantID, key string, path RenderPath, renderErr string) error
}
