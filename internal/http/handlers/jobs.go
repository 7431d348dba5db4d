package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"thumbgen/internal/domain"
	"thumbgen/internal/middleware"
)

type advanceResponse struct {
	JobID           string           `json:"jobId"`
	Status          domain.JobStatus `json:"status"`
	ProgressPercent *int             `json:"progressPercent,omitempty"`
	PhaseMessage    string           `json:"phaseMessage,omitempty"`
	ErrorMessage    string           `json:"errorMessage,omitempty"`
}

// AdvanceJob runs one Advance for a job owned by the caller. Missing and
// foreign jobs are indistinguishable to the caller.
func (a *App) AdvanceJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobId")
	if _, err := uuid.Parse(jobID); err != nil {
		a.error(w, http.StatusNotFound, "job not found")
		return
	}
	owner := middleware.UserIDFromContext(ctx)

	job, err := a.Jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("http: load job")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}
	if owner == "" || job.OwnerID != owner {
		a.error(w, http.StatusNotFound, "job not found")
		return
	}

	res, err := a.Advancer.Advance(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("http: advance job")
		a.error(w, http.StatusInternalServerError, "advance failed, retry later")
		return
	}

	resp := advanceResponse{JobID: res.JobID, Status: res.Status}
	if res.Status == domain.JobStatusFailed {
		resp.ErrorMessage = res.ErrorMessage
	} else {
		progress := res.ProgressPercent
		resp.ProgressPercent = &progress
		resp.PhaseMessage = res.PhaseMessage
	}
	a.json(w, http.StatusOK, resp)
}
