package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reply_server/config"
	"reply_server/internal/bootstrap"
	"reply_server/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Load .env file if exists (for local development)
	envErr := godotenv.Load()

	mode := flag.String("mode", "api", "Run mode: api, generate")
	userID := flag.String("user", "local", "generate: settings user to reply as")
	instruction := flag.String("instruction", "", "generate: custom instruction for the reply")
	rawMIME := flag.Bool("raw", false, "generate: stdin is a raw RFC 5322 message")
	preview := flag.Bool("preview", false, "generate: print the system prompt without calling the provider")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	bootstrap.InitLogger(cfg)
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	switch *mode {
	case "api":
		runAPI(cfg)
	case "generate":
		runGenerate(cfg, bootstrap.GenerateOptions{
			UserID:      *userID,
			Instruction: *instruction,
			RawMIME:     *rawMIME,
			Preview:     *preview,
		})
	default:
		logger.Fatal("Unknown mode: %s", *mode)
	}
}

func runAPI(cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	// Graceful shutdown with timeout
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Error("Error shutting down: %v", err)
			return
		}
		logger.Info("API server shut down gracefully")
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Error("Server stopped: %v", err)
	}
}

func runGenerate(cfg *config.Config, opts bootstrap.GenerateOptions) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.RunGenerate(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		stop()
		logger.Fatal("Failed to generate reply: %v", err)
	}
}
