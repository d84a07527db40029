package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"jobtracker-backend/internal/coverletters"
	"jobtracker-backend/internal/generation"
	"jobtracker-backend/internal/llm"
	"jobtracker-backend/internal/llm/anthropic"
	"jobtracker-backend/internal/llm/gemini"
	"jobtracker-backend/internal/llm/openai"
	"jobtracker-backend/internal/modifications"
	"jobtracker-backend/internal/prompts"
	"jobtracker-backend/internal/services/health"
	"jobtracker-backend/internal/shared/config"
	"jobtracker-backend/internal/shared/server"
	"jobtracker-backend/internal/shared/server/middleware"
	"jobtracker-backend/internal/shared/storage/db"
	"jobtracker-backend/internal/shared/storage/object"
	localstore "jobtracker-backend/internal/shared/storage/object/local"
	s3store "jobtracker-backend/internal/shared/storage/object/s3"
	"jobtracker-backend/internal/shared/telemetry"
	"jobtracker-backend/internal/sources"
	"jobtracker-backend/internal/tailoring"
	"jobtracker-backend/internal/usage"
	"jobtracker-backend/internal/versions"
)

const (
	usageBuffer       = 256
	templateCacheTTL  = 10 * time.Minute
	redisPingDeadline = 2 * time.Second
)

var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-3-5-haiku-latest",
	"gemini":    "gemini-2.0-flash",
}

// App holds shared dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Redis         *redis.Client
	Store         object.ObjectStore
	Gateway       *llm.Gateway
	Usage         *usage.AsyncRecorder
	Prompts       *prompts.Service
	Resolver      *prompts.Resolver
	Sources       sources.Store
	Versions      *versions.Manager
	Tailoring     *tailoring.Service
	CoverLetters  *coverletters.Service
	HealthService *health.Service
}

// Build prepares dependencies, seeds default templates and wires routes.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	llmCfg, err := LLMConfig(cfg.LLM)
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}

	// The store holds no connections, so it is built before the pool.
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Redis:  buildRedis(ctx, cfg),
		Store:  store,
	}

	var usageStore usage.Store = usage.NewMemoryStore()
	if sqlDB != nil {
		usageStore = usage.NewPGStore(sqlDB)
	}
	app.Usage = usage.NewAsyncRecorder(usageStore, usageBuffer)

	app.Gateway, err = llm.NewGateway(provider, llmCfg, llm.WithUsageRecorder(app.Usage))
	if err != nil {
		app.Close()
		return nil, err
	}

	if err := buildServices(ctx, app); err != nil {
		app.Close()
		return nil, err
	}

	app.HealthService = health.NewService(app.DB, app.Redis)
	var limiter middleware.Limiter = middleware.NewMemoryLimiter(nil)
	if app.Redis != nil {
		limiter = middleware.NewRedisLimiter(app.Redis)
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		Health:         app.HealthService,
		PromptHandler:  prompts.NewHandler(app.Prompts),
		TailorHandler:  tailoring.NewHandler(app.Tailoring),
		LetterHandler:  coverletters.NewHandler(app.CoverLetters),
		UsageHandler:   usage.NewHandler(usageStore),
		GenerationRate: limiter,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"provider":     llmCfg.Provider,
		"model":        llmCfg.Model,
		"database":     sqlDB != nil,
		"cache":        app.Redis != nil,
		"object_store": cfg.ObjectStoreType,
	})
	return app, nil
}

// Close flushes pending usage events and releases connections.
func (a *App) Close() {
	if a.Usage != nil {
		a.Usage.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// LLMConfig converts raw settings into the gateway configuration.
func LLMConfig(raw config.LLMConfig) (llm.Config, error) {
	model := strings.TrimSpace(raw.Model)
	if model == "" {
		model = defaultModels[raw.Provider]
	}
	return llm.Config{
		Provider:          raw.Provider,
		Model:             model,
		MaxTokens:         raw.MaxTokens,
		Temperature:       raw.Temperature,
		Timeout:           raw.Timeout,
		MaxRetries:        raw.MaxRetries,
		RequestsPerMinute: raw.RequestsPerMinute,
	}.Validate()
}

// NewProvider builds the client for the configured provider. Missing
// credentials are reported as llm.ErrInvalidConfig.
func NewProvider(ctx context.Context, raw config.LLMConfig) (llm.Provider, error) {
	if strings.TrimSpace(raw.APIKey()) == "" {
		return nil, fmt.Errorf("%w: no API key for provider %q", llm.ErrInvalidConfig, raw.Provider)
	}
	var (
		p   llm.Provider
		err error
	)
	switch raw.Provider {
	case "anthropic":
		p, err = anthropic.NewClient(raw.AnthropicAPIKey, raw.AnthropicBaseURL)
	case "gemini":
		p, err = gemini.NewClient(ctx, raw.GeminiAPIKey)
	case "openai":
		p, err = openai.NewClient(raw.OpenAIAPIKey, raw.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", llm.ErrInvalidConfig, raw.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrInvalidConfig, err)
	}
	return p, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_fallback", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.FromConfig(cfg.DB))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_fallback", map[string]any{"reason": "connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildRedis(ctx context.Context, cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, redisPingDeadline)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		telemetry.Warn("bootstrap.cache_disabled", map[string]any{"addr": addr, "error": err})
		_ = client.Close()
		return nil
	}
	if cfg.Tracing.Enabled {
		if err := redisotel.InstrumentTracing(client); err != nil {
			telemetry.Warn("bootstrap.redis_tracing_failed", map[string]any{"error": err})
		}
	}
	return client
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, s3store.Config{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			KMSKeyID: cfg.SSEKMSKeyID,
			Endpoint: cfg.S3Endpoint,
		})
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(ctx context.Context, app *App) error {
	var (
		promptRepo  prompts.Repo
		sourceStore sources.Store
		versionRepo versions.Store
	)
	if app.DB != nil {
		promptRepo = &prompts.PGRepo{DB: app.DB}
		sourceStore = sources.NewPGStore(app.DB)
		versionRepo = versions.NewPGStore(app.DB)
	} else {
		promptRepo = prompts.NewMemoryRepo()
		sourceStore = sources.NewMemoryStore()
		versionRepo = versions.NewMemoryStore()
	}

	var cache prompts.Cache
	if app.Redis != nil {
		cache = prompts.NewRedisCache(app.Redis, templateCacheTTL)
	}
	app.Resolver = prompts.NewResolver(promptRepo, cache)
	if err := prompts.Seed(ctx, promptRepo, app.Resolver); err != nil {
		return fmt.Errorf("seed templates: %w", err)
	}
	app.Prompts = prompts.NewService(promptRepo)
	app.Sources = sourceStore
	app.Versions = versions.NewManager(versionRepo, nil)

	loader := sources.NewTextLoader(sourceStore, app.Store)
	runner := generation.NewRunner(app.Resolver, app.Gateway, generation.NewDiagnostics(app.Store))

	app.Tailoring = &tailoring.Service{
		Sources: loader,
		Runner:  runner,
		Sanitizer: modifications.Sanitizer{
			MaxBytes:              app.Config.Content.MaxStructuredBytes,
			CaseInsensitiveDedupe: app.Config.Content.DedupeCaseInsensitive,
		},
		Versions: app.Versions,
		Usage:    app.Prompts,
	}
	app.CoverLetters = &coverletters.Service{
		Sources:  loader,
		Runner:   runner,
		Versions: app.Versions,
		Usage:    app.Prompts,
	}
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
