// Package bootstrap wires configuration into the pipeline for the api and
// worker binaries.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"thumbgen/internal/adapter/repo"
	"thumbgen/internal/catalog"
	"thumbgen/internal/compositor"
	"thumbgen/internal/events"
	"thumbgen/internal/infra"
	"thumbgen/internal/infra/credentials"
	"thumbgen/internal/lock"
	"thumbgen/internal/pipeline"
	"thumbgen/internal/planner"
	"thumbgen/internal/providers/genai"
	"thumbgen/internal/providers/image"
	"thumbgen/internal/providers/qwen"
	"thumbgen/internal/storage"
)

// Runtime holds the long-lived dependencies of a process.
type Runtime struct {
	Config       *infra.Config
	Pipeline     infra.PipelineConfig
	Logger       infra.Logger
	Pool         *pgxpool.Pool
	SQL          *infra.SQLRunner
	Jobs         *repo.JobRepositoryPG
	Variants     *repo.VariantRepositoryPG
	Credentials  *credentials.Store
	Redis        *redis.Client
	NATS         *nats.Conn
	Orchestrator *pipeline.Orchestrator

	closers []func()
}

// New connects to every configured backend and builds the orchestrator.
// Redis and NATS are optional; without them the lock and progress events are
// disabled.
func New(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Runtime, error) {
	pc, err := infra.LoadPipelineConfig(cfg.PipelineConfig)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.LoadFile(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Config: cfg, Pipeline: pc, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.Pool = pool
	rt.closers = append(rt.closers, pool.Close)
	rt.SQL = infra.NewSQLRunner(pool, logger)
	rt.Jobs = repo.NewJobRepository(rt.SQL)
	rt.Variants = repo.NewVariantRepository(rt.SQL)
	rt.Credentials = credentials.NewStore(rt.SQL)

	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	plan, err := NewPlanner(ctx, cfg, rt.Credentials, cat, &rt.Logger)
	if err != nil {
		return nil, err
	}
	if closer, isCloser := plan.(interface{ Close() error }); isCloser {
		rt.closers = append(rt.closers, func() { _ = closer.Close() })
	}
	gen, err := NewGenerator(ctx, cfg, rt.Credentials, &rt.Logger)
	if err != nil {
		return nil, err
	}
	comp, err := compositor.New()
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Jobs:      rt.Jobs,
		Variants:  rt.Variants,
		Store:     store,
		Planner:   plan,
		Generator: gen,
		Renderer:  comp,
		Catalog:   cat,
		Notifier:  events.Nop{},
		Logger:    &rt.Logger,
	}

	if cfg.RedisAddr != "" {
		rt.Redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		rt.closers = append(rt.closers, func() { _ = rt.Redis.Close() })
		if err := rt.Redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.Locker = lock.NewRedisLocker(rt.Redis)
	} else {
		logger.Warn().Msg("bootstrap: REDIS_ADDR not set, advance calls are not mutually excluded")
	}

	if cfg.NATSURL != "" {
		conn, err := events.Connect(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		rt.NATS = conn
		rt.closers = append(rt.closers, conn.Close)
		deps.Notifier = events.NewNATSPublisher(conn)
	}

	orch, err := pipeline.New(pipeline.ConfigFrom(pc), deps)
	if err != nil {
		return nil, err
	}
	rt.Orchestrator = orch

	logger.Info().
		Str("storage", cfg.StorageDriver).
		Str("planner", plan.Name()).
		Str("image_provider", gen.Name()).
		Int("concepts", len(cat.IDs())).
		Msg("bootstrap: pipeline ready")
	ok = true
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// NewStore builds the configured storage driver.
func NewStore(ctx context.Context, cfg *infra.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "", "fs":
		return storage.NewFileStore(cfg.StoragePath)
	case "s3":
		return storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
			PathStyle:       cfg.S3.PathStyle,
		})
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    cfg.Minio.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// keyResolver is satisfied by *credentials.Store; a nil store only reads the
// environment.
type keyResolver interface {
	Resolve(ctx context.Context, provider, envKey string) (string, error)
}

// NewPlanner resolves the provider key and builds the configured planner.
func NewPlanner(ctx context.Context, cfg *infra.Config, keys keyResolver, cat *catalog.Catalog, logger *infra.Logger) (planner.Planner, error) {
	pcfg := planner.Config{Provider: cfg.PlannerProvider, Catalog: cat}
	switch cfg.PlannerProvider {
	case planner.ProviderGemini, "":
		key, err := keys.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("resolve gemini key: %w", err)
		}
		pcfg.Gemini = planner.GeminiOptions{APIKey: key, Model: cfg.GeminiModel, Logger: logger}
	case planner.ProviderOpenAI, "groq":
		key, err := keys.Resolve(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("resolve openai key: %w", err)
		}
		pcfg.OpenAI = planner.OpenAIOptions{
			APIKey:       key,
			Model:        cfg.OpenAIModel,
			BaseURL:      cfg.OpenAIBaseURL,
			Organization: cfg.OpenAIOrg,
			Logger:       logger,
		}
	}
	return planner.New(ctx, pcfg)
}

// NewGenerator resolves the provider key and builds the image generator.
func NewGenerator(ctx context.Context, cfg *infra.Config, keys keyResolver, logger *infra.Logger) (image.Generator, error) {
	icfg := image.Config{Provider: cfg.ImageProvider}
	switch cfg.ImageProvider {
	case image.ProviderGemini, "":
		key, err := keys.Resolve(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("resolve gemini key: %w", err)
		}
		icfg.Gemini = genai.Options{APIKey: key, BaseURL: cfg.GeminiBaseURL, Model: cfg.GeminiImageModel, Logger: logger}
	case image.ProviderQwen:
		key, err := keys.Resolve(ctx, credentials.ProviderQwen, cfg.QwenAPIKey)
		if err != nil {
			return nil, fmt.Errorf("resolve qwen key: %w", err)
		}
		icfg.Qwen = qwen.Options{APIKey: key, BaseURL: cfg.QwenBaseURL, Model: cfg.QwenModel, Logger: logger}
	}
	return image.New(icfg)
}
