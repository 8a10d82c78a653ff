// Package di wires the application with go.uber.org/dig. Commands ask for
// either the agent graph (LLM, telemetry, pipelines) or the full server graph.
package di

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httplog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"ada-engine/internal/adapter/httpapi"
	"ada-engine/internal/application/port/output"
	"ada-engine/internal/infrastructure/config"
	"ada-engine/internal/infrastructure/llm/openai"
	"ada-engine/internal/infrastructure/logger"
	"ada-engine/internal/infrastructure/observability"
	"ada-engine/internal/infrastructure/postgres"
	"ada-engine/internal/infrastructure/redisqueue"
	"ada-engine/internal/infrastructure/supabase"
	"ada-engine/internal/usecase/access"
	"ada-engine/internal/usecase/apikey"
	"ada-engine/internal/usecase/ingestion"
	"ada-engine/internal/usecase/pipeline"
)

type Container struct {
	Config    config.Config
	Logger    output.LoggerPort
	Telemetry *observability.Provider
	LLM       *openai.Adapter
	Pipelines *pipeline.Pipelines

	// Set by NewServerContainer only.
	Router http.Handler
	APIKey *apikey.Service

	closers *closers
}

type closers struct {
	fns []func(ctx context.Context) error
}

func (c *closers) add(fn func(ctx context.Context) error) {
	c.fns = append(c.fns, fn)
}

// NewAgentContainer builds what a single pipeline run needs.
func NewAgentContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	return build(ctx, cfg, false)
}

// NewServerContainer adds persistence, identity and the HTTP router.
func NewServerContainer(ctx context.Context, cfg config.Config) (*Container, error) {
	return build(ctx, cfg, true)
}

func build(ctx context.Context, cfg config.Config, server bool) (*Container, error) {
	cl := &closers{}
	d := dig.New()

	providers := []any{
		func() context.Context { return ctx },
		func() config.Config { return cfg },
		func() *closers { return cl },
		newLogger,
		newTelemetry,
		func(p *observability.Provider) output.TracerPort { return p.Tracer() },
		func(p *observability.Provider) output.MetricsPort { return p.Metrics() },
		newLLM,
		newPipelines,
	}
	if server {
		providers = append(providers,
			newDatabase,
			newRedis,
			newIdentity,
			newAPIKeyService,
			newAccessChecker,
			newIngestionService,
			newRouter,
		)
	}

	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, fmt.Errorf("register provider: %w", err)
		}
	}

	c := &Container{Config: cfg, closers: cl}
	err := d.Invoke(func(
		log output.LoggerPort,
		telemetry *observability.Provider,
		llm *openai.Adapter,
		pipelines *pipeline.Pipelines,
	) {
		c.Logger = log
		c.Telemetry = telemetry
		c.LLM = llm
		c.Pipelines = pipelines
	})
	if err == nil && server {
		err = d.Invoke(func(router http.Handler, keys *apikey.Service) {
			c.Router = router
			c.APIKey = keys
		})
	}
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("build container: %w", dig.RootCause(err))
	}
	return c, nil
}

// Close releases resources in reverse order of creation.
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	for i := len(c.closers.fns) - 1; i >= 0; i-- {
		if err := c.closers.fns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.Config, cl *closers) (output.LoggerPort, error) {
	log, err := logger.NewLoggerAdapter(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	cl.add(func(context.Context) error { return log.Close() })
	return log, nil
}

func newTelemetry(ctx context.Context, cfg config.Config, log output.LoggerPort, cl *closers) (*observability.Provider, error) {
	p, err := observability.New(ctx, observability.Config{
		ServiceName:  cfg.Tracing.ServiceName,
		Environment:  cfg.AppEnv,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		Insecure:     cfg.Tracing.Insecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start telemetry: %w", err)
	}
	cl.add(p.Shutdown)
	return p, nil
}

func newLLM(cfg config.Config, log output.LoggerPort, tracer output.TracerPort) *openai.Adapter {
	temperature := cfg.LLM.Temperature
	return openai.NewAdapter(openai.Config{
		APIKey:               cfg.LLM.APIKey,
		BaseURL:              cfg.LLM.BaseURL,
		Model:                cfg.LLM.Model,
		EmbeddingModel:       cfg.LLM.EmbeddingModel,
		SearchModel:          cfg.LLM.SearchModel,
		Temperature:          &temperature,
		MaxRequestsPerMinute: cfg.LLM.MaxRPM,
		LogRequests:          cfg.LLM.LogRequests,
		Logger:               log,
		Tracer:               tracer,
	})
}

func newPipelines(cfg config.Config, llm *openai.Adapter, log output.LoggerPort, tracer output.TracerPort, metrics output.MetricsPort) (*pipeline.Pipelines, error) {
	b := pipeline.NewBuilder(pipeline.Deps{
		LLM:        llm,
		Structured: llm,
		Searcher:   llm,
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		Logger:     log,
		Tracer:     tracer,
		Metrics:    metrics,
	})

	pipelines, err := b.Load(cfg.PipelinesFile)
	if err != nil {
		return nil, err
	}
	log.Info("Pipelines loaded", "count", pipelines.Len(), "file", cfg.PipelinesFile)
	return pipelines, nil
}

func newDatabase(ctx context.Context, cfg config.Config, log output.LoggerPort, cl *closers) (*sql.DB, error) {
	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	cl.add(func(context.Context) error { return db.Close() })

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		log.Info("Database schema applied")
	}
	return db, nil
}

func newRedis(cfg config.Config, cl *closers) *redis.Client {
	client := redisqueue.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	cl.add(func(context.Context) error { return client.Close() })
	return client
}

func newIdentity(cfg config.Config, log output.LoggerPort) *supabase.Client {
	return supabase.New(supabase.Config{
		ProjectURL: cfg.Supabase.ProjectURL,
		ProjectKey: cfg.Supabase.ProjectKey,
		JWTSecret:  cfg.Supabase.JWTSecret,
	}, nil, log.WithField("component", "supabase"))
}

func newAPIKeyService(cfg config.Config, db *sql.DB, log output.LoggerPort) (*apikey.Service, error) {
	hasher, err := apikey.NewHasher(cfg.Keys.BackendSecret)
	if err != nil {
		return nil, err
	}
	return apikey.NewService(postgres.NewAPIKeyStore(db), hasher, cfg.Keys.IngestionKeyHashed, log), nil
}

func newAccessChecker(db *sql.DB, identity *supabase.Client, log output.LoggerPort) *access.Checker {
	return access.NewChecker(postgres.NewProjectStore(db), identity, log)
}

func newIngestionService(cfg config.Config, db *sql.DB, client *redis.Client, log output.LoggerPort) *ingestion.Service {
	return ingestion.NewService(postgres.NewIngestionTaskStore(db), redisqueue.New(client, cfg.Redis.Queue), log)
}

func newRouter(
	cfg config.Config,
	identity *supabase.Client,
	checker *access.Checker,
	keys *apikey.Service,
	tasks *ingestion.Service,
	pipelines *pipeline.Pipelines,
	log output.LoggerPort,
) http.Handler {
	level := "info"
	if cfg.Development() {
		level = "debug"
	}
	accessLog := httplog.NewLogger(cfg.Tracing.ServiceName, httplog.Options{
		JSON:     !cfg.Development(),
		LogLevel: level,
		Concise:  true,
	}).With().Str("env", cfg.AppEnv).Logger()

	return httpapi.NewRouter(httpapi.Deps{
		Identity:  identity,
		Access:    checker,
		APIKeys:   keys,
		Ingestion: tasks,
		Pipelines: pipelines,
		Logger:    log.WithField("component", "http"),
	}, httpapi.Options{
		AccessLog:      &accessLog,
		QuietRoutes:    []string{"/health"},
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	})
}
