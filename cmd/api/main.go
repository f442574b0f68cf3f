package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jwebster45206/galgame-engine/internal/config"
	"github.com/jwebster45206/galgame-engine/internal/engine"
	"github.com/jwebster45206/galgame-engine/internal/handlers"
	"github.com/jwebster45206/galgame-engine/internal/logger"
	"github.com/jwebster45206/galgame-engine/internal/services"
	"github.com/jwebster45206/galgame-engine/internal/storage"
	"github.com/jwebster45206/galgame-engine/pkg/pending"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logg := logger.Setup(cfg)

	logg.Info("Starting Galgame Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"llm_provider", cfg.LLMProvider,
		"model", cfg.Game.Model)

	var llmService services.LLMService
	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			logg.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.Game.Model, logg)
		logg.Info("Using Anthropic LLM provider")
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logg.Error("OpenAI API key is required when using openai provider")
			os.Exit(1)
		}
		llmService = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Game.Model, logg)
		logg.Info("Using OpenAI LLM provider")
	default:
		logg.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"anthropic", "openai"})
		os.Exit(1)
	}

	var store storage.Storage
	switch strings.ToLower(cfg.StorageBackend) {
	case "redis":
		redisStore := storage.NewRedisStorage(cfg.RedisAddr, logg)
		if err := redisStore.WaitForConnection(context.Background()); err != nil {
			logg.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		store = redisStore
	case "mysql":
		mysqlStore, err := storage.NewMySQLStorage(cfg.MySQL, logg)
		if err != nil {
			logg.Error("Failed to connect to mysql", "error", err)
			os.Exit(1)
		}
		store = mysqlStore
	default:
		logg.Error("Invalid storage backend specified", "backend", cfg.StorageBackend, "supported", []string{"redis", "mysql"})
		os.Exit(1)
	}
	logg.Info("Storage connection established")

	scopes := services.NewStaticScopeConfig(cfg.Scopes)
	usage := services.NewSlogUsageRecorder(logg)
	pendingCache := pending.NewCache(pending.DefaultTTL, pending.DefaultMaxEntries)

	eng := engine.New(store, llmService, scopes, usage, pendingCache, cfg.Game, logg)
	router := handlers.NewRouter(eng, store, logg)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logg.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		logg.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logg.Info("Server exited")
}
