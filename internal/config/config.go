package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/galgame-engine/internal/services"
	"github.com/jwebster45206/galgame-engine/internal/storage"
)

// GameConfig tunes the relationship economy and the turn loop.
type GameConfig struct {
	InitialGold   int      `yaml:"initial_gold"`
	MaxGold       int      `yaml:"max_gold"`
	HistoryWindow int      `yaml:"history_window"`
	CharBudget    int      `yaml:"char_budget"`
	Model         string   `yaml:"model"`
	Temperature   *float64 `yaml:"temperature,omitempty"`
	MaxTokens     int      `yaml:"max_tokens"`
}

// Config is the full service configuration. Environment variables win
// over the YAML file; both fall back to built-in defaults.
type Config struct {
	Port        string     `yaml:"port"`
	Environment string     `yaml:"environment"`
	LogLevel    slog.Level `yaml:"-"`

	StorageBackend string              `yaml:"storage_backend"` // "redis" or "mysql"
	RedisAddr      string              `yaml:"redis_addr"`
	MySQL          storage.MySQLConfig `yaml:"mysql"`

	LLMProvider     string `yaml:"llm_provider"` // "anthropic" or "openai"
	AnthropicAPIKey string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`

	Game   GameConfig                      `yaml:"game"`
	Scopes map[string]services.ScopeConfig `yaml:"scopes"`
}

// Load reads the optional YAML file named by GALGAME_CONFIG, then
// applies environment variable overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           "8080",
		Environment:    "development",
		StorageBackend: "redis",
		RedisAddr:      "localhost:6379",
		LLMProvider:    "anthropic",
		Game: GameConfig{
			InitialGold:   100,
			MaxGold:       10000,
			HistoryWindow: 6,
			CharBudget:    24000,
			MaxTokens:     2048,
		},
	}

	if path := os.Getenv("GALGAME_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	cfg.StorageBackend = getEnv("STORAGE_BACKEND", cfg.StorageBackend)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.LLMProvider = getEnv("LLM_PROVIDER", cfg.LLMProvider)
	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.Game.Model = getEnv("MODEL_NAME", cfg.Game.Model)

	if v := os.Getenv("MYSQL_HOST"); v != "" {
		cfg.MySQL.Host = v
	}
	if v := os.Getenv("MYSQL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MYSQL_PORT %q: %w", v, err)
		}
		cfg.MySQL.Port = port
	}
	if v := os.Getenv("MYSQL_USER"); v != "" {
		cfg.MySQL.Username = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		cfg.MySQL.Password = v
	}
	if v := os.Getenv("MYSQL_DATABASE"); v != "" {
		cfg.MySQL.Database = v
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
