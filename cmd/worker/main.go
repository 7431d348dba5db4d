package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"thumbgen/internal/bootstrap"
	"thumbgen/internal/infra"
	"thumbgen/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)
	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("worker: REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: bootstrap failed")
	}
	defer rt.Close()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	enqueuer := queue.NewEnqueuer(client, queue.DefaultQueue, rt.Pipeline.PollInterval, &logger)
	handler := queue.NewHandler(rt.Orchestrator, enqueuer, rt.Pipeline.PollInterval, &logger)

	mux := asynq.NewServeMux()
	handler.Register(mux)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues:      map[string]int{queue.DefaultQueue: 1},
		Logger:      queue.AsynqLogger{L: &logger},
	})
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker: asynq server failed")
	}

	sweeper := queue.NewSweeper(rt.Jobs, enqueuer, rt.Pipeline.StaleAfter, &logger)
	if _, err := sweeper.Sweep(ctx); err != nil {
		logger.Warn().Err(err).Msg("worker: initial sweep failed")
	}
	if err := sweeper.Start(ctx, rt.Pipeline.SweepInterval); err != nil {
		logger.Fatal().Err(err).Msg("worker: sweeper failed")
	}

	logger.Info().Msg("worker: started")
	<-ctx.Done()

	sweeper.Stop()
	srv.Shutdown()
	logger.Info().Msg("worker: stopped")
}
