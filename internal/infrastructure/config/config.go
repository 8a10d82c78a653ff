package config

import (
	"fmt"
	"time"

	"ada-engine/internal/infrastructure/env"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTP     HTTPConfig
	LLM      LLMConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Supabase SupabaseConfig
	Keys     KeysConfig
	Tracing  TracingConfig

	PipelinesFile string
}

type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxBodyBytes    int64
}

type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	SearchModel    string
	Temperature    float32
	MaxRPM         int
	LogRequests    bool
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	Migrate      bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

type SupabaseConfig struct {
	ProjectURL string
	ProjectKey string
	JWTSecret  string
}

type KeysConfig struct {
	BackendSecret      string
	IngestionKeyHashed string
}

type TracingConfig struct {
	OTLPEndpoint string
	Insecure     bool
	ServiceName  string
	SampleRatio  float64
}

func (c Config) Development() bool {
	return c.AppEnv == "dev" || c.AppEnv == "local"
}

// Load reads the environment. Only the provider key is needed by every
// command; server-only settings are checked by ValidateServer.
func Load(e *env.EnvService) (Config, error) {
	if err := e.Require("OPENAI_API_KEY"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:   e.AppEnv(),
		LogLevel: e.GetWithDefault("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Addr:            e.GetWithDefault("HTTP_ADDR", ":8000"),
			ReadTimeout:     e.GetDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    e.GetDuration("HTTP_WRITE_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: e.GetDuration("HTTP_SHUTDOWN_TIMEOUT", 15*time.Second),
			RateLimitRPS:    e.GetFloat("HTTP_RATE_LIMIT_RPS", 10),
			RateLimitBurst:  e.GetInt("HTTP_RATE_LIMIT_BURST", 20),
			MaxBodyBytes:    int64(e.GetInt("HTTP_MAX_BODY_BYTES", 1<<20)),
		},
		LLM: LLMConfig{
			APIKey:         e.Get("OPENAI_API_KEY"),
			BaseURL:        e.Get("OPENAI_BASE_URL"),
			Model:          e.GetWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingModel: e.GetWithDefault("OPENAI_EMBEDDING_MODEL", "text-embedding-3-large"),
			SearchModel:    e.GetWithDefault("OPENAI_SEARCH_MODEL", "gpt-4o-mini-search-preview"),
			Temperature:    float32(e.GetFloat("OPENAI_TEMPERATURE", 0.3)),
			MaxRPM:         e.GetInt("LLM_MAX_RPM", 0),
			LogRequests:    e.GetBool("LLM_LOG_REQUESTS", false),
		},
		Database: DatabaseConfig{
			URL:          e.Get("DATABASE_URL"),
			MaxOpenConns: e.GetInt("DATABASE_MAX_OPEN_CONNS", 10),
			Migrate:      e.GetBool("DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     e.GetWithDefault("REDIS_ADDR", "localhost:6379"),
			Password: e.Get("REDIS_PASSWORD"),
			DB:       e.GetInt("REDIS_DB", 0),
			Queue:    e.GetWithDefault("REDIS_INGESTION_QUEUE", "ada:ingestion_tasks"),
		},
		Supabase: SupabaseConfig{
			ProjectURL: e.Get("SUPABASE_PROJECT_URL"),
			ProjectKey: e.Get("SUPABASE_PROJECT_KEY"),
			JWTSecret:  e.Get("SUPABASE_JWT_SECRET"),
		},
		Keys: KeysConfig{
			BackendSecret:      e.Get("BACKEND_SECRET_KEY"),
			IngestionKeyHashed: e.Get("INGESTION_API_KEY_HASHED"),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: e.Get("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     e.GetBool("OTEL_EXPORTER_OTLP_INSECURE", false),
			ServiceName:  e.GetWithDefault("OTEL_SERVICE_NAME", "ada-engine"),
			SampleRatio:  e.GetFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		PipelinesFile: e.Get("PIPELINES_FILE"),
	}

	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be within [0, 2], got %v", cfg.LLM.Temperature)
	}

	return cfg, nil
}

// ValidateServer checks the settings the HTTP API cannot start without.
func ValidateServer(e *env.EnvService) error {
	return e.Require("DATABASE_URL", "SUPABASE_PROJECT_URL", "SUPABASE_PROJECT_KEY", "BACKEND_SECRET_KEY")
}
