// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.moodlemate/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model, generation parameters, stop sequences
//   - Translator: query normalization model and fallback behavior
//   - Retrieval: top-K, per-chunk context budget, rank-score decay
//   - Memory: history caps, session expiry, cleanup cadence
//   - Storage: PostgreSQL connection (see storage.go)
//   - HTTP: listen address
//   - Observability: optional OTLP trace export
//
// Security: sensitive data (passwords) are masked in MarshalJSON/String.
// Validation: range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidTopP indicates the top-p value is out of range.
	ErrInvalidTopP = errors.New("invalid top_p")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTopK indicates the retrieval depth is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidChunkBudget indicates the per-chunk context budget is out of range.
	ErrInvalidChunkBudget = errors.New("invalid chunk context budget")

	// ErrInvalidRankScoreDecay indicates the rank score decay is out of range.
	ErrInvalidRankScoreDecay = errors.New("invalid rank score decay")

	// ErrInvalidHistoryLength indicates the history length cap is out of range.
	ErrInvalidHistoryLength = errors.New("invalid max history length")

	// ErrInvalidHistoryWindow indicates the prompt history window is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")

	// ErrInvalidSessionTimeout indicates the session timeout is out of range.
	ErrInvalidSessionTimeout = errors.New("invalid session timeout")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderOllama   = "ollama"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider      string   `mapstructure:"provider" json:"provider"` // "ollama" (default), "gemini", "openai"
	ModelName     string   `mapstructure:"model_name" json:"model_name"`
	Temperature   float32  `mapstructure:"temperature" json:"temperature"`
	TopP          float32  `mapstructure:"top_p" json:"top_p"`
	MaxTokens     int      `mapstructure:"max_tokens" json:"max_tokens"`
	StopSequences []string `mapstructure:"stop_sequences" json:"stop_sequences"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Embedding configuration
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`

	// Query translator configuration
	TranslatorEnabled  bool   `mapstructure:"translator_enabled" json:"translator_enabled"`
	TranslatorModel    string `mapstructure:"translator_model" json:"translator_model"`
	TranslatorMaxChars int    `mapstructure:"translator_max_chars" json:"translator_max_chars"`

	// Retrieval configuration
	TopK              int     `mapstructure:"top_k" json:"top_k"`
	ChunkContextChars int     `mapstructure:"chunk_context_chars" json:"chunk_context_chars"`
	RankScoreDecay    float64 `mapstructure:"rank_score_decay" json:"rank_score_decay"`

	// Conversation memory configuration
	MaxHistoryLength    int           `mapstructure:"max_history_length" json:"max_history_length"`
	HistoryWindow       int           `mapstructure:"history_window" json:"history_window"`
	SessionTimeoutHours int           `mapstructure:"session_timeout_hours" json:"session_timeout_hours"`
	CleanupInterval     time.Duration `mapstructure:"cleanup_interval" json:"cleanup_interval"`

	// Storage configuration (see storage.go for helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration
	HTTPAddr string `mapstructure:"http_addr" json:"http_addr"`

	// Observability configuration (empty endpoint = tracing disabled)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".moodlemate")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over individual postgres_* settings when set
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// AI defaults
	viper.SetDefault("provider", ProviderOllama)
	viper.SetDefault("model_name", "qwen2.5:7b")
	viper.SetDefault("temperature", 0.3)
	viper.SetDefault("top_p", 0.9)
	viper.SetDefault("max_tokens", 4096)
	viper.SetDefault("stop_sequences", []string{"<|im_end|>", "<|endoftext|>", "User:", "Human:"})

	// Ollama defaults
	viper.SetDefault("ollama_host", "http://localhost:11434")

	// Embedding defaults
	viper.SetDefault("embedder_model", "nomic-embed-text")

	// Translator defaults
	viper.SetDefault("translator_enabled", true)
	viper.SetDefault("translator_model", "qwen2.5:1.5b")
	viper.SetDefault("translator_max_chars", 512)

	// Retrieval defaults
	viper.SetDefault("top_k", 5)
	viper.SetDefault("chunk_context_chars", 1000)
	viper.SetDefault("rank_score_decay", 0.1)

	// Memory defaults
	viper.SetDefault("max_history_length", 10)
	viper.SetDefault("history_window", 5)
	viper.SetDefault("session_timeout_hours", 24)
	viper.SetDefault("cleanup_interval", time.Hour)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "moodlemate")
	viper.SetDefault("postgres_password", "moodlemate_dev_password")
	viper.SetDefault("postgres_db_name", "moodlemate")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP defaults
	viper.SetDefault("http_addr", "127.0.0.1:8000")

	// Observability defaults
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("service_name", "moodlemate")
	viper.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variable overrides explicitly.
//
// NOTE: GEMINI_API_KEY and OPENAI_API_KEY are read directly by the Genkit
// provider plugins, not via Viper.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "MOODLEMATE_PROVIDER")
	mustBind("model_name", "MOODLEMATE_MODEL_NAME")
	mustBind("embedder_model", "MOODLEMATE_EMBEDDER_MODEL")
	mustBind("ollama_host", "MOODLEMATE_OLLAMA_HOST")
	mustBind("translator_model", "MOODLEMATE_TRANSLATOR_MODEL")
	mustBind("translator_enabled", "MOODLEMATE_TRANSLATOR_ENABLED")
	mustBind("http_addr", "MOODLEMATE_HTTP_ADDR")
	mustBind("otlp_endpoint", "MOODLEMATE_OTLP_ENDPOINT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks avoid accidental substring matches against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 chars or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "ollama/qwen2.5:7b", "googleai/gemini-2.5-flash", "openai/gpt-4o".
// If name already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	return c.qualifyModel(c.ModelName)
}

// FullTranslatorModelName returns the provider-qualified translator model name.
func (c *Config) FullTranslatorModelName() string {
	return c.qualifyModel(c.TranslatorModel)
}

func (c *Config) qualifyModel(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	switch c.Provider {
	case ProviderGemini:
		return ProviderGoogleAI + "/" + name
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + name
	default:
		return ProviderOllama + "/" + name
	}
}

// SessionTimeout returns the session expiry duration.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.SessionTimeoutHours) * time.Hour
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
