package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/pipeline"
)

// Advancer runs one Advance call for a job.
type Advancer interface {
	Advance(ctx context.Context, jobID string) (pipeline.Result, error)
}

// JobReader loads jobs for the ownership check.
type JobReader interface {
	GetByID(ctx context.Context, jobID string) (*domain.Job, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Config    *infra.Config
	Logger    infra.Logger
	Jobs      JobReader
	Advancer  Advancer
	DB        Pinger
	JWTSecret string
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
