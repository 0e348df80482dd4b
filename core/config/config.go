package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	OTel    OTelConfig
	Agent   AgentConfig
	Board   BoardConfig
	Session SessionConfig
	Env     string
	Port    string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

type AgentConfig struct {
	BaseURL string
	Timeout time.Duration // Per-turn bound on the remote call
}

type BoardConfig struct {
	RedisURL  string
	KeyPrefix string
}

type SessionConfig struct {
	Prefix   string
	ThreadID string // Optional: resume an existing thread instead of minting one
	NodeID   int64
}

type ServiceType string

const (
	ServiceTypeConsole ServiceType = "console"
	ServiceTypeServer  ServiceType = "server"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.console for the interactive console
//   - .env.server for the board gateway
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("CONSOLE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:  getEnv("CONSOLE_ENV", "development"),
		Port: getEnv("PORT", "8090"),
		Agent: AgentConfig{
			BaseURL: getEnv("AGENT_BASE_URL", "http://localhost:8000"),
			Timeout: getEnvDuration("AGENT_TIMEOUT", 120*time.Second),
		},
		Board: BoardConfig{
			RedisURL:  getEnv("REDIS_URL", "redis://localhost:6379/0"),
			KeyPrefix: getEnv("BOARD_KEY_PREFIX", "project_boards"),
		},
		Session: SessionConfig{
			Prefix:   getEnv("SESSION_PREFIX", "web-client"),
			ThreadID: getEnv("SESSION_THREAD_ID", ""),
			NodeID:   getEnvInt64("SNOWFLAKE_NODE_ID", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "agency-"+string(serviceType)),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
	}

	if err := cfg.Agent.validate(); err != nil {
		return Config{}, err
	}

	if cfg.Board.KeyPrefix == "" {
		return Config{}, fmt.Errorf("BOARD_KEY_PREFIX cannot be empty")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c AgentConfig) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("AGENT_BASE_URL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("AGENT_BASE_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("AGENT_BASE_URL must include a host, got %q", c.BaseURL)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
