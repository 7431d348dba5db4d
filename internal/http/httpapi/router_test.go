package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"thumbgen/internal/domain"
	"thumbgen/internal/http/handlers"
	"thumbgen/internal/http/httpapi"
	"thumbgen/internal/middleware"
	"thumbgen/internal/pipeline"
)

const secret = "test-secret"

type stubJobs struct {
	jobs map[string]*domain.Job
	err  error
}

func (s stubJobs) GetByID(_ context.Context, id string) (*domain.Job, error) {
	if s.err != nil {
		return nil, s.err
	}
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

type stubAdvancer struct {
	res   pipeline.Result
	err   error
	calls int
}

func (s *stubAdvancer) Advance(_ context.Context, jobID string) (pipeline.Result, error) {
	s.calls++
	res := s.res
	res.JobID = jobID
	return res, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newServer(jobs stubJobs, adv *stubAdvancer, db handlers.Pinger) http.Handler {
	app := &handlers.App{
		Logger:    zerolog.Nop(),
		Jobs:      jobs,
		Advancer:  adv,
		DB:        db,
		JWTSecret: secret,
	}
	return httpapi.NewRouter(app, httpapi.Options{RateLimitPerMin: 100})
}

func bearer(t *testing.T, user string) string {
	t.Helper()
	token, err := middleware.SignJWT(secret, user, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + token
}

func TestAdvanceEndpoint(t *testing.T) {
	jobID := uuid.NewString()
	jobs := stubJobs{jobs: map[string]*domain.Job{jobID: {ID: jobID, OwnerID: "owner-1", Status: domain.JobStatusGenerating}}}

	tests := []struct {
		name       string
		path       string
		user       string
		advancer   *stubAdvancer
		wantStatus int
		wantCalls  int
		check      func(t *testing.T, body map[string]any)
	}{
		{
			name:       "in progress",
			path:       "/v1/jobs/" + jobID + "/advance",
			user:       "owner-1",
			advancer:   &stubAdvancer{res: pipeline.Result{Status: domain.JobStatusRendering, ProgressPercent: 84, PhaseMessage: "Rendering thumbnails (2/4)"}},
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "rendering" || body["progressPercent"] != float64(84) || body["jobId"] != jobID {
					t.Fatalf("unexpected body: %v", body)
				}
				if _, ok := body["errorMessage"]; ok {
					t.Fatalf("errorMessage should be absent: %v", body)
				}
			},
		},
		{
			name:       "failed job",
			path:       "/v1/jobs/" + jobID + "/advance",
			user:       "owner-1",
			advancer:   &stubAdvancer{res: pipeline.Result{Status: domain.JobStatusFailed, ProgressPercent: 20, ErrorMessage: "planning: quota"}},
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any) {
				if body["status"] != "failed" || body["errorMessage"] != "planning: quota" {
					t.Fatalf("unexpected body: %v", body)
				}
				if _, ok := body["progressPercent"]; ok {
					t.Fatalf("progressPercent should be absent: %v", body)
				}
			},
		},
		{
			name:       "queued job reports zero progress",
			path:       "/v1/jobs/" + jobID + "/advance",
			user:       "owner-1",
			advancer:   &stubAdvancer{res: pipeline.Result{Status: domain.JobStatusQueued, Busy: true}},
			wantStatus: http.StatusOK,
			wantCalls:  1,
			check: func(t *testing.T, body map[string]any) {
				if body["progressPercent"] != float64(0) {
					t.Fatalf("unexpected body: %v", body)
				}
			},
		},
		{name: "not owner", path: "/v1/jobs/" + jobID + "/advance", user: "intruder", advancer: &stubAdvancer{}, wantStatus: http.StatusNotFound},
		{name: "unknown job", path: "/v1/jobs/" + uuid.NewString() + "/advance", user: "owner-1", advancer: &stubAdvancer{}, wantStatus: http.StatusNotFound},
		{name: "malformed id", path: "/v1/jobs/not-a-uuid/advance", user: "owner-1", advancer: &stubAdvancer{}, wantStatus: http.StatusNotFound},
		{name: "no token", path: "/v1/jobs/" + jobID + "/advance", advancer: &stubAdvancer{}, wantStatus: http.StatusUnauthorized},
		{
			name:       "infrastructure error",
			path:       "/v1/jobs/" + jobID + "/advance",
			user:       "owner-1",
			advancer:   &stubAdvancer{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
			wantCalls:  1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(jobs, tc.advancer, nil)
			req := httptest.NewRequest(http.MethodPost, tc.path, nil)
			if tc.user != "" {
				req.Header.Set("Authorization", bearer(t, tc.user))
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.advancer.calls != tc.wantCalls {
				t.Fatalf("advance calls = %d, want %d", tc.advancer.calls, tc.wantCalls)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatal("missing X-Request-ID")
			}
			if tc.check != nil {
				var body map[string]any
				if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
					t.Fatalf("decode body: %v", err)
				}
				tc.check(t, body)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		db   handlers.Pinger
		want int
	}{
		{"no db", nil, http.StatusOK},
		{"db ok", stubPinger{}, http.StatusOK},
		{"db down", stubPinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(stubJobs{}, &stubAdvancer{}, tc.db)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
