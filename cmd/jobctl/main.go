// Command jobctl creates thumbnail jobs and drives them by hand.
//
//	jobctl create -owner <id> -title "..." [-variants 4] [-ai-base] [-enqueue]
//	jobctl status -id <job>
//	jobctl advance -id <job>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"thumbgen/internal/adapter/repo"
	"thumbgen/internal/bootstrap"
	"thumbgen/internal/domain"
	"thumbgen/internal/infra"
	"thumbgen/internal/queue"
)

func main() {
	if len(os.Args) < 2 {
		exitWithError(errors.New("usage: jobctl <create|status|advance> [flags]"))
	}
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger("cli", "").With().Str("cmd", "jobctl").Logger()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "create":
		err = runCreate(cfg, logger, args)
	case "status":
		err = runStatus(cfg, logger, args)
	case "advance":
		err = runAdvance(cfg, logger, args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		exitWithError(err)
	}
}

func runCreate(cfg *infra.Config, logger infra.Logger, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	owner := fs.String("owner", "", "owner user id")
	title := fs.String("title", "", "video title")
	topic := fs.String("topic", "", "optional topic description")
	variants := fs.Int("variants", domain.DefaultVariantCount, "number of thumbnails to produce")
	palette := fs.String("palette", "", "palette (bold, dark, bright, pastel, mono)")
	locale := fs.String("locale", "", "overlay locale (BCP 47)")
	emphasis := fs.String("emphasis", "", "optional emphasis keyword")
	aiBase := fs.Bool("ai-base", false, "generate AI base images")
	enqueue := fs.Bool("enqueue", false, "schedule the job on the worker queue")
	_ = fs.Parse(args)

	if strings.TrimSpace(*owner) == "" {
		return errors.New("-owner is required")
	}
	input := domain.JobInput{
		Title:        *title,
		Topic:        *topic,
		VariantCount: *variants,
		Style: domain.StyleFlags{
			AllowAIBase: *aiBase,
			Palette:     strings.ToLower(strings.TrimSpace(*palette)),
			Locale:      strings.TrimSpace(*locale),
			Emphasis:    strings.TrimSpace(*emphasis),
		},
	}
	input.Normalize()
	if err := input.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	job := &domain.Job{ID: uuid.NewString(), OwnerID: strings.TrimSpace(*owner), Input: input, Status: domain.JobStatusQueued}
	if err := repo.NewJobRepository(infra.NewSQLRunner(pool, logger)).Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	fmt.Println(job.ID)

	if !*enqueue {
		return nil
	}
	if cfg.RedisAddr == "" {
		return errors.New("-enqueue needs REDIS_ADDR")
	}
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer client.Close()
	return queue.NewEnqueuer(client, queue.DefaultQueue, 0, &logger).EnqueueAdvance(ctx, job.ID, 0)
}

type variantView struct {
	ID          string            `json:"id"`
	Rank        int               `json:"rank"`
	Base        string            `json:"base,omitempty"`
	BaseError   string            `json:"baseError,omitempty"`
	Final       string            `json:"final,omitempty"`
	RenderPath  domain.RenderPath `json:"renderPath,omitempty"`
	RenderError string            `json:"renderError,omitempty"`
}

func runStatus(cfg *infra.Config, logger infra.Logger, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	id := fs.String("id", "", "job id")
	_ = fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	job, err := repo.NewJobRepository(runner).GetByID(ctx, *id)
	if err != nil {
		return err
	}
	variants, err := repo.NewVariantRepository(runner).ListByJob(ctx, *id)
	if err != nil {
		return err
	}
	views := make([]variantView, 0, len(variants))
	for _, v := range variants {
		views = append(views, variantView{
			ID: v.ID, Rank: v.Rank, Base: v.BaseImageKey, BaseError: v.BaseError,
			Final: v.FinalImageKey, RenderPath: v.RenderPath, RenderError: v.RenderError,
		})
	}
	return printJSON(map[string]any{
		"jobId":           job.ID,
		"status":          job.Status,
		"progressPercent": job.ProgressPercent,
		"phaseMessage":    job.PhaseMessage,
		"errorMessage":    job.ErrorMessage,
		"variants":        views,
	})
}

func runAdvance(cfg *infra.Config, logger infra.Logger, args []string) error {
	fs := flag.NewFlagSet("advance", flag.ExitOnError)
	id := fs.String("id", "", "job id")
	_ = fs.Parse(args)

	ctx := context.Background()
	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.Orchestrator.Advance(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
