package bootstrap

import (
	"context"
	"strings"
	"time"

	"reply_server/adapter/in/http"
	"reply_server/config"
	"reply_server/infra/middleware"
	"reply_server/pkg/cache"
	"reply_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const startupTimeout = 15 * time.Second

// InitLogger configures the process-wide logger from cfg.
func InitLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:   logger.ParseLevel(cfg.LogLevel),
		Service: cfg.ServiceName,
		Console: cfg.IsDevelopment(),
	})
}

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	InitLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	deps, cleanup, err := NewDependencies(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	app := NewApp(cfg, deps)

	logger.Info("API server initialized successfully")
	return app, cleanup, nil
}

// NewApp builds the fiber application and its routes on top of deps.
func NewApp(cfg *config.Config, deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.ServiceName,
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		BodyLimit:    cfg.MaxBodyBytes,
		ReadTimeout:  30 * time.Second,
		// Completions can take most of the LLM timeout.
		WriteTimeout: cfg.LLMTimeout() + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	})

	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,X-RateLimit-Limit,X-RateLimit-Remaining,Retry-After",
		AllowCredentials: !containsWildcard(cfg.AllowedOrigins),
		MaxAge:           86400,
	}))

	// Health (no auth)
	health := http.NewHealthHandler().
		WithStats("llm_usage", func() any { return deps.LLMClient.Usage() }).
		WithStats("llm_breaker", func() any { return deps.LLMClient.BreakerState() }).
		WithStats("llm_latency", func() any { return deps.LLMClient.Latency() }).
		WithStats("settings_cache", func() any { return deps.SettingsService.CacheStats() })
	if deps.Redis != nil {
		health.WithCheck("redis", cache.NewRedisCache(deps.Redis))
	}
	if deps.Postgres != nil {
		health.WithCheck("postgres", deps.Postgres)
		health.WithStats("postgres_pool", func() any { return deps.Postgres.Stats() })
	}
	health.Register(app)

	api := app.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))
	if deps.RateLimiter != nil {
		api.Use(middleware.RateLimit(deps.RateLimiter))
	}
	api.Use(middleware.NoCache())
	api.Use(middleware.MaxBodySize(cfg.MaxBodyBytes))

	http.NewReplyHandler(deps.ReplyService, deps.ThreadBuilder).Register(api)
	http.NewSettingsHandler(deps.SettingsService).Register(api)

	if cfg.IsDevelopment() {
		RegisterDevRoutes(app, deps, cfg.DevUserID)
	}

	return app
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
