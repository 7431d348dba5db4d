package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusPlanning   JobStatus = "planning"
	JobStatusGenerating JobStatus = "generating"
	JobStatusRendering  JobStatus = "rendering"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// stageOrder is the forward ordering of non-failed states.
var stageOrder = map[JobStatus]int{
	JobStatusQueued:     0,
	JobStatusPlanning:   1,
	JobStatusGenerating: 2,
	JobStatusRendering:  3,
	JobStatusCompleted:  4,
}

// Terminal reports whether no further Advance work is possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	if s == JobStatusFailed {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// CanTransition reports whether moving from s to next keeps the state machine
// monotonic: forward (or staying put) through the stage order, or to failed
// from any non-terminal state.
func (s JobStatus) CanTransition(next JobStatus) bool {
	if s.Terminal() {
		return s == next
	}
	if next == JobStatusFailed {
		return true
	}
	from, okFrom := stageOrder[s]
	to, okTo := stageOrder[next]
	return okFrom && okTo && to >= from
}

// Job is one thumbnail-generation request. Status, progress and messages are
// only mutated through Transition and Fail.
type Job struct {
	ID              string
	OwnerID         string
	Input           JobInput
	Status          JobStatus
	ProgressPercent int
	PhaseMessage    string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Transition moves the job to next, raising progress to at least progress and
// replacing the phase message. Progress never decreases.
func (j *Job) Transition(next JobStatus, progress int, phase string) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	if progress > 100 {
		progress = 100
	}
	if progress > j.ProgressPercent {
		j.ProgressPercent = progress
	}
	if phase != "" {
		j.PhaseMessage = phase
	}
	return nil
}

// Fail marks the job failed with the causing message. Failing a terminal job
// is rejected.
func (j *Job) Fail(cause error) error {
	if j.Status.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, JobStatusFailed)
	}
	j.Status = JobStatusFailed
	j.PhaseMessage = "Failed"
	if cause != nil {
		j.ErrorMessage = cause.Error()
	}
	return nil
}
