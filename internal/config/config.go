// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Assistant providers.
const (
	ProviderGoogleAI  = "googleai"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderNone      = "none"
)

// Config holds all configuration values.
type Config struct {
	// HTTP server
	Addr   string
	WebDir string

	// Storage
	StoreDriver string
	SQLitePath  string
	DatabaseURL string
	RedisURL    string
	RedisPrefix string

	// Assistant
	LLMProvider     string
	LLMModel        string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	LLMTimeout      time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Single sign-on
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
}

// Load reads configuration from environment variables, after applying a .env
// file when one exists.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config: failed to load .env file", "error", err)
	}

	provider := strings.ToLower(getEnv("CURA_LLM_PROVIDER", ProviderGoogleAI))
	return Config{
		Addr:   getEnv("CURA_ADDR", ":8080"),
		WebDir: getEnv("CURA_WEB_DIR", "web"),

		StoreDriver: strings.ToLower(getEnv("CURA_STORE_DRIVER", DriverSQLite)),
		SQLitePath:  getEnv("CURA_SQLITE_PATH", "cura.db"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		RedisPrefix: getEnv("CURA_REDIS_PREFIX", "cura:"),

		LLMProvider:     provider,
		LLMModel:        getEnv("CURA_LLM_MODEL", defaultModel(provider)),
		GeminiAPIKey:    getEnv("API_KEY", getEnv("GEMINI_API_KEY", "")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		LLMTimeout:      getEnvAsDuration("CURA_LLM_TIMEOUT", 60*time.Second),

		LogFile:  getEnv("CURA_LOG_FILE", "cura.log"),
		LogLevel: parseLogLevel(getEnv("CURA_LOG_LEVEL", "INFO")),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", ""),
	}
}

// Validate checks that the selected store driver has what it needs and that
// the assistant provider is known.
func (c Config) Validate() error {
	var missing []string

	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			missing = append(missing, "CURA_SQLITE_PATH")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			missing = append(missing, "REDIS_URL")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported store driver: %s", c.StoreDriver)
	}

	// A provider without its key still starts; replies fall back.
	switch c.LLMProvider {
	case ProviderGoogleAI, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderNone:
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLMProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// OIDCEnabled reports whether single sign-on is fully configured.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != "" && c.OIDCClientSecret != "" && c.OIDCRedirectURL != ""
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderGoogleAI:
		return "gemini-2.5-flash"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderOllama:
		return "llama3.2"
	default:
		return ""
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
