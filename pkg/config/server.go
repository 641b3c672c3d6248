package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// History backends.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ServerConfig is the reference service configuration, read from the
// environment.
type ServerConfig struct {
	Addr        string   `env:"LAWCHAT_ADDR" envDefault:":8001"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// LLM settings
	LLMProvider       string  `env:"LLM_PROVIDER" envDefault:"google"`
	GeminiAPIKey      string  `env:"GEMINI_API_KEY"`
	GeminiModel       string  `env:"GEMINI_MODEL" envDefault:"gemini-2.5-pro"`
	OpenRouterAPIKey  string  `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string  `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string  `env:"OPENROUTER_MODEL" envDefault:"google/gemini-2.5-pro"`
	LLMTimeoutSeconds int     `env:"LLM_TIMEOUT_SECONDS" envDefault:"120"`
	LLMTemperature    float64 `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens      int     `env:"LLM_MAX_TOKENS" envDefault:"0"`
	SystemPromptPath  string  `env:"SYSTEM_PROMPT_PATH"`

	// Storage
	HistoryBackend   string        `env:"HISTORY_BACKEND" envDefault:"sqlite"`
	SQLitePath       string        `env:"SQLITE_PATH" envDefault:"data/lawchat.db"`
	BoltPath         string        `env:"BOLT_PATH" envDefault:"data/lawchat.bolt"`
	RedisURL         string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	HistoryLimit     int           `env:"HISTORY_LIMIT" envDefault:"1000"`
	ContextMessages  int           `env:"CONTEXT_MESSAGES" envDefault:"20"`
	HistoryRetention time.Duration `env:"HISTORY_RETENTION" envDefault:"720h"`
	PruneSchedule    string        `env:"PRUNE_SCHEDULE" envDefault:"@hourly"`

	Log LogConfig
}

// LoadServer reads an optional .env file and parses the environment.
// A missing .env file is not an error.
func LoadServer(dotenvPaths ...string) (ServerConfig, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, p := range dotenvPaths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Debug("dotenv_not_found", "path", p)
				continue
			}
			return ServerConfig{}, fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return ParseServer(env.Options{})
}

// ParseServer parses the server configuration with the given env options.
// Tests pass Environment to avoid touching the process environment.
func ParseServer(opts env.Options) (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg, opts); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to parse server config: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.HistoryBackend = strings.ToLower(strings.TrimSpace(cfg.HistoryBackend))
	return cfg, nil
}

// Validate checks if the server configuration is valid
func (c ServerConfig) Validate() error {
	switch c.LLMProvider {
	case "google":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the google provider")
		}
	case "openrouter":
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required for the openrouter provider")
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	switch c.HistoryBackend {
	case BackendSQLite, BackendBolt, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("unsupported history backend: %s", c.HistoryBackend)
	}

	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got: %f", c.LLMTemperature)
	}
	if c.LLMTimeoutSeconds <= 0 {
		return fmt.Errorf("LLM_TIMEOUT_SECONDS must be positive, got: %d", c.LLMTimeoutSeconds)
	}
	if c.LLMMaxTokens < 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must not be negative, got: %d", c.LLMMaxTokens)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got: %d", c.HistoryLimit)
	}
	if c.ContextMessages < 0 {
		return fmt.Errorf("CONTEXT_MESSAGES must not be negative, got: %d", c.ContextMessages)
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION must not be negative, got: %s", c.HistoryRetention)
	}

	return c.Log.Validate()
}

// LLMTimeout returns the upstream call timeout.
func (c ServerConfig) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}
