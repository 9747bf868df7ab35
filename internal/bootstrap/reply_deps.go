package bootstrap

import (
	"context"
	"fmt"
	"time"

	"reply_server/adapter/out/persistence"
	"reply_server/config"
	"reply_server/core/agent/llm"
	"reply_server/core/port/out"
	"reply_server/core/service/reply"
	"reply_server/core/service/settings"
	"reply_server/core/service/thread"
	"reply_server/infra/database"
	"reply_server/pkg/cache"
	"reply_server/pkg/crypto"
	"reply_server/pkg/logger"
	"reply_server/pkg/ratelimit"

	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config   *config.Config
	Postgres *database.Postgres
	Redis    *redis.Client

	// Repositories
	SettingsRepo out.SettingsRepository

	// Services
	LLMClient       *llm.Client
	SettingsService *settings.Service
	ReplyService    *reply.Service
	ThreadBuilder   *thread.Builder

	RateLimiter ratelimit.Limiter
}

// NewDependencies connects the storage the configured settings backend
// needs and builds the services on top of it.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Redis is optional unless it backs settings; it also backs the rate limiter.
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL, nil)
		if err != nil {
			if cfg.SettingsBackend == config.BackendRedis {
				return nil, func() {}, fmt.Errorf("redis: %w", err)
			}
			logger.WithError(err).Warn("Redis unavailable, falling back to in-memory rate limiting")
		} else {
			deps.Redis = rdb
			cleanups = append(cleanups, func() { _ = rdb.Close() })
			logger.Info("Connected to Redis")
		}
	}

	if cfg.SettingsBackend == config.BackendPostgres {
		pg, err := database.NewPostgres(ctx, cfg.DatabaseURL, nil)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("postgres: %w", err)
		}
		deps.Postgres = pg
		cleanups = append(cleanups, pg.Close)
		logger.Info("Connected to PostgreSQL")
	}

	repo, err := newSettingsRepository(ctx, cfg, deps)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	deps.SettingsRepo, err = withEncryption(cfg, repo)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}

	deps.LLMClient = newLLMClient(cfg)

	cacheCfg := settings.DefaultCacheConfig()
	if cfg.SettingsCacheTTL > 0 {
		cacheCfg.TTL = cfg.SettingsCacheTTL
	}
	deps.SettingsService = settings.NewService(deps.SettingsRepo, cacheCfg)
	deps.ReplyService = reply.NewService(deps.LLMClient, deps.SettingsService, cfg.LLMModel)
	deps.ThreadBuilder = thread.NewBuilder(thread.DefaultMaxMessages)

	if cfg.RateLimitPerMin > 0 {
		if deps.Redis != nil {
			deps.RateLimiter = ratelimit.NewSlidingWindowLimiter(deps.Redis, cfg.RateLimitPerMin, time.Minute)
		} else {
			deps.RateLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerMin, time.Minute)
		}
	}

	logger.Info("Dependencies initialized (settings backend: %s)", cfg.SettingsBackend)
	return deps, cleanup, nil
}

func newLLMClient(cfg *config.Config) *llm.Client {
	return llm.NewClient(llm.ClientConfig{
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.LLMTimeout(),
	})
}

// withEncryption wraps repo so API keys are encrypted at rest when a key is configured.
func withEncryption(cfg *config.Config, repo out.SettingsRepository) (out.SettingsRepository, error) {
	if cfg.SettingsEncryptionKey == "" {
		return repo, nil
	}
	enc, err := crypto.NewEncryptor(cfg.SettingsEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("settings encryption: %w", err)
	}
	return persistence.NewEncryptedSettingsRepository(repo, enc), nil
}

func newSettingsRepository(ctx context.Context, cfg *config.Config, deps *Dependencies) (out.SettingsRepository, error) {
	switch cfg.SettingsBackend {
	case config.BackendRedis:
		if deps.Redis == nil {
			return nil, fmt.Errorf("redis settings backend selected but Redis is not connected")
		}
		return persistence.NewRedisSettingsAdapter(cache.NewRedisCache(deps.Redis)), nil
	case config.BackendPostgres:
		repo := persistence.NewPostgresSettingsAdapter(deps.Postgres.DB)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate settings table: %w", err)
		}
		return repo, nil
	case config.BackendFile:
		return persistence.NewFileSettingsAdapter(cfg.SettingsFile), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.SettingsBackend)
	}
}
