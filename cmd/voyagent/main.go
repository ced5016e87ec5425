package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/voyagent/voyagent/internal/config"
	"github.com/voyagent/voyagent/internal/genai"
	"github.com/voyagent/voyagent/internal/genai/openai"
	"github.com/voyagent/voyagent/internal/server"
	"github.com/voyagent/voyagent/internal/session"
	"github.com/voyagent/voyagent/internal/store"
	"github.com/voyagent/voyagent/internal/store/memory"
	"github.com/voyagent/voyagent/internal/store/sqlite"
	"github.com/voyagent/voyagent/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer("voyagent", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	configPath := os.Getenv("VOYAGENT_CONFIG")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	recordStore, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer func() {
		if err := recordStore.Close(); err != nil {
			logger.Error("failed to close record store", slog.String("error", err.Error()))
		}
	}()

	if cfg.OpenAI.APIKey == "" {
		log.Fatal("VOYAGENT_OPENAI_API_KEY is required")
	}
	var clientOpts []openai.ClientOption
	if cfg.OpenAI.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	if cfg.OpenAI.Model != "" {
		clientOpts = append(clientOpts, openai.WithModel(cfg.OpenAI.Model))
	}
	generator := openai.NewClient(cfg.OpenAI.APIKey, clientOpts...)

	counter := genai.NewTokenCounter(cfg.OpenAI.Model)

	vocab := cfg.Assistant.Vocabulary
	handler := server.NewHandler(session.Config{
		Generator:         generator,
		Store:             recordStore,
		Logger:            logger,
		Vocabulary:        &vocab,
		MaxUserTurns:      cfg.Assistant.MaxUserTurns,
		PromptTokenBudget: cfg.Assistant.PromptTokenBudget,
		Counter:           counter,
		SystemPrompt:      cfg.Assistant.SystemPrompt,
		FallbackMessage:   cfg.Assistant.FallbackMessage,
	}, logger)

	srv := server.New(cfg.Server.Port, logger, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("voyagent started",
		slog.Int("port", cfg.Server.Port),
		slog.String("model", cfg.OpenAI.Model),
		slog.String("storage", cfg.Storage.Driver),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler.Registry().CloseAll()
	logger.Info("Shutdown complete")
}

func openStore(cfg *config.Config) (store.RecordStore, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(), nil
	default:
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		return sqlite.New(cfg.Storage.Path)
	}
}
