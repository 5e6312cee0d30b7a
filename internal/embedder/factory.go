package embedder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default embedding models per backend.
const (
	defaultOllamaModel = "nomic-embed-text"
	defaultOpenAIModel = "text-embedding-3-small"

	// defaultOllamaDimensions is the output dimension of nomic-embed-text.
	// Other Ollama models may differ; override with EMBEDDING_DIMENSIONS.
	defaultOllamaDimensions = 768
	// defaultOpenAIDimensions is the output dimension of text-embedding-3-small.
	defaultOpenAIDimensions = 1536

	defaultProvider      = "openai"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOllamaHost    = "http://localhost:11434"
	defaultAzureVersion  = "2025-04-01-preview"
)

// Config is the resolved embedding configuration.
type Config struct {
	// Provider is one of ollama, openai, azure.
	Provider string
	// Model is the embedding model, or the Azure deployment name.
	Model string
	// APIKey authenticates against openai and azure.
	APIKey string
	// Endpoint is the base URL (openai), resource endpoint (azure) or host (ollama).
	Endpoint string
	// APIVersion is the Azure OpenAI API version.
	APIVersion string
	// Dimensions requests a vector size from the provider. Zero keeps the
	// model default.
	Dimensions int
	// BatchSize is the number of texts sent per provider call.
	BatchSize int
	// MaxRetries bounds retries of a single provider call.
	MaxRetries int
	// RetryInitial is the first backoff interval.
	RetryInitial time.Duration
	// RetryMax caps the backoff interval.
	RetryMax time.Duration
	// RPS limits provider calls per second. Zero disables the limit.
	RPS float64
	// Timeout bounds each provider call. Zero disables the bound.
	Timeout time.Duration
}

// VectorSize returns the vector length stored chunks are expected to have.
// Callers that pre-configure a vector store (e.g. Qdrant collection creation)
// should use this rather than hardcoding a value.
func (c *Config) VectorSize() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	if c.Provider == "ollama" {
		return defaultOllamaDimensions
	}
	return defaultOpenAIDimensions
}

// ConfigFromEnv resolves the embedding configuration with cascading defaults
// that inherit from the chat provider configuration when embedding-specific
// overrides are not set.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER, else MODEL_PROVIDER when it can embed, else openai
//  2. Per-backend credentials are inherited from the chat provider's env vars
//  3. EMBEDDING_MODEL overrides the default model for the resolved backend
//  4. EMBEDDING_API_KEY overrides the inherited API key
//  5. EMBEDDING_ENDPOINT overrides the inherited endpoint
//  6. EMBEDDING_DIMENSIONS requests a vector size
func ConfigFromEnv() *Config {
	cfg := &Config{
		Provider:     getEnv("EMBEDDING_PROVIDER"),
		Dimensions:   getEnvInt("EMBEDDING_DIMENSIONS", 0),
		BatchSize:    getEnvInt("EMBEDDING_BATCH_SIZE", DefaultBatchSize),
		MaxRetries:   getEnvInt("EMBEDDING_MAX_RETRIES", DefaultMaxRetries),
		RetryInitial: DefaultRetryInitial,
		RetryMax:     DefaultRetryMax,
		RPS:          getEnvFloat("EMBEDDING_RPS", 0),
		Timeout:      getEnvDuration("PROVIDER_TIMEOUT", DefaultTimeout),
	}
	if cfg.Provider == "" {
		switch p := getEnv("MODEL_PROVIDER"); p {
		case "ollama", "openai", "azure":
			cfg.Provider = p
		default:
			cfg.Provider = defaultProvider
		}
	}
	cfg.Provider = strings.ToLower(cfg.Provider)

	switch cfg.Provider {
	case "ollama":
		cfg.Endpoint = firstEnv("EMBEDDING_ENDPOINT", "OLLAMA_HOST")
		if cfg.Endpoint == "" {
			cfg.Endpoint = defaultOllamaHost
		}
		cfg.Model = getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel)
	case "azure":
		cfg.APIKey = firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		cfg.Endpoint = firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
		cfg.APIVersion = getEnvOrDefault("AZURE_OPENAI_API_VERSION", defaultAzureVersion)
		cfg.Model = getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
	default:
		cfg.APIKey = firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY")
		cfg.Endpoint = firstEnv("EMBEDDING_ENDPOINT", "OPENAI_BASE_URL")
		if cfg.Endpoint == "" {
			cfg.Endpoint = defaultOpenAIBaseURL
		}
		cfg.Model = getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel)
	}
	return cfg
}

// NewClient builds the provider client for cfg. Missing credentials yield
// ErrNotConfigured; an unknown provider is a hard error.
func NewClient(cfg *Config) (Client, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaClient(&OllamaConfig{Host: strings.TrimRight(cfg.Endpoint, "/"), Model: cfg.Model}), nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY", ErrNotConfigured)
		}
		return NewOpenAIClient(&OpenAIConfig{
			BaseURL:    strings.TrimRight(cfg.Endpoint, "/"),
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "azure":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY", ErrNotConfigured)
		}
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("%w: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT", ErrNotConfigured)
		}
		return NewOpenAIClient(&OpenAIConfig{
			BaseURL:    strings.TrimRight(cfg.Endpoint, "/") + "/openai",
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Azure:      true,
			APIVersion: cfg.APIVersion,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q, valid values: ollama, openai, azure", cfg.Provider)
	}
}

// NewFromEnv builds an Adapter from the environment. A provider without
// credentials is not an error: the returned adapter is unconfigured and
// every call degrades to rag.ErrProviderUnavailable.
func NewFromEnv(log *slog.Logger) (*Adapter, *Config, error) {
	cfg := ConfigFromEnv()
	client, err := NewClient(cfg)
	switch {
	case errors.Is(err, ErrNotConfigured):
		log.Warn("embedder: provider not configured, RAG answers are disabled",
			slog.String("provider", cfg.Provider),
			slog.String("reason", err.Error()),
		)
		client = nil
	case err != nil:
		return nil, nil, err
	}
	for _, w := range Warnings(cfg) {
		log.Warn(w, slog.String("provider", cfg.Provider), slog.String("model", cfg.Model))
	}
	return NewAdapter(client, cfg), cfg, nil
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if s, err := strconv.Atoi(v); err == nil {
		return time.Duration(s) * time.Second
	}
	return fallback
}
