package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BaseURLEnv overrides the configured service URL.
const BaseURLEnv = "LAWCHAT_BASE_URL"

// Config represents the client configuration
type Config struct {
	BaseURL               string `json:"base_url"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds"`
	LogLevel              string `json:"log_level"`
	LogFormat             string `json:"log_format"`
	LogFile               string `json:"log_file"`
	Theme                 string `json:"theme"`
}

// LogConfig holds the logging settings shared by the client and the server.
type LogConfig struct {
	Level  string `json:"log_level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `json:"log_format" env:"LOG_FORMAT" envDefault:"json"`
	File   string `json:"log_file" env:"LOG_FILE"`
}

var themes = map[string]bool{"purple": true, "cyan": true, "dark": true}

// Default returns a configuration with default values
func Default() Config {
	return Config{
		BaseURL:               "http://localhost:8001",
		RequestTimeoutSeconds: 120,
		LogLevel:              "info",
		LogFormat:             "json",
		LogFile:               DefaultLogPath(),
		Theme:                 "purple",
	}
}

// Load loads configuration from the specified path
// If the file doesn't exist, creates one with default values
func Load(configPath string) (Config, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return Config{}, fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(configPath, cfg); err != nil {
				return Config{}, fmt.Errorf("failed to create default config: %w", err)
			}
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	// Fields missing from older files keep their defaults.
	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the specified path
func Save(configPath string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ApplyOverrides layers the environment and the --base-url flag over the
// file values, in that order.
func (c Config) ApplyOverrides(getenv func(string) string, flagBaseURL string) Config {
	if getenv != nil {
		if v := strings.TrimSpace(getenv(BaseURLEnv)); v != "" {
			c.BaseURL = v
		}
	}
	if v := strings.TrimSpace(flagBaseURL); v != "" {
		c.BaseURL = v
	}
	return c
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got: %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url must include a host, got: %q", c.BaseURL)
	}

	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got: %d", c.RequestTimeoutSeconds)
	}

	if c.Theme != "" && !themes[c.Theme] {
		return fmt.Errorf("unsupported theme: %s", c.Theme)
	}

	return c.Logging().Validate()
}

// RequestTimeout returns the per-request timeout. Zero means none.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Logging returns the logging section of the client config.
func (c Config) Logging() LogConfig {
	return LogConfig{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile}
}

// Validate checks the level and format names.
func (l LogConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "", "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported log_level: %s", l.Level)
	}
	switch strings.ToLower(strings.TrimSpace(l.Format)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unsupported log_format: %s", l.Format)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(homeDir(), "config.json")
}

// DefaultLogPath returns the default client log file path.
func DefaultLogPath() string {
	return filepath.Join(homeDir(), "logs", "lawchat.log")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lawchat"
	}
	return filepath.Join(home, ".lawchat")
}
