package pipeline

import "time"

// budget caps how many batches one Advance runs. The wall-clock limit is
// soft: it is checked before starting a batch, never during one.
type budget struct {
	maxBatches int
	used       int
	deadline   time.Time
	now        func() time.Time
}

func newBudget(cfg Config, now func() time.Time) *budget {
	return &budget{maxBatches: cfg.BatchesPerAdvance, deadline: now().Add(cfg.TimeBudget), now: now}
}

// take reserves the next batch. The first batch of a call always runs so
// every call makes progress.
func (b *budget) take() bool {
	if b.used >= b.maxBatches {
		return false
	}
	if b.used > 0 && !b.now().Before(b.deadline) {
		return false
	}
	b.used++
	return true
}
