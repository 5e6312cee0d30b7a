// Package config loads docrag settings from an optional YAML file and a .env
// file into the process environment, and provides typed accessors over it.
// Precedence is defaults, then YAML, then .env, then the real environment:
// a variable already set is never overwritten.
//
// YAML file search order:
//  1. --config CLI flag (explicit path)
//  2. DOCRAG_CONFIG environment variable
//  3. ~/.docrag/config.yaml
//  4. ./docrag.yaml
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config mirrors the environment variables docrag reads, grouped by concern.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// ModelConfig selects and tunes the completion backend.
type ModelConfig struct {
	// Provider is one of openai, azure, ollama, ark, gemini, anthropic.
	Provider    string  `yaml:"provider"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	// Timeout bounds each provider call, as a Go duration ("60s").
	Timeout string `yaml:"timeout"`

	OpenAI    Endpoint    `yaml:"openai"`
	Azure     AzureConfig `yaml:"azure"`
	// Ollama.BaseURL maps to OLLAMA_HOST.
	Ollama    Endpoint    `yaml:"ollama"`
	Ark       Endpoint    `yaml:"ark"`
	Gemini    Endpoint    `yaml:"gemini"`
	Anthropic Endpoint    `yaml:"anthropic"`
}

// Endpoint is the common shape of a hosted model backend.
type Endpoint struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AzureConfig holds Azure OpenAI settings.
type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string  `yaml:"provider"`
	Model      string  `yaml:"model"`
	Dimensions int     `yaml:"dimensions"`
	APIKey     string  `yaml:"api_key"`
	Endpoint   string  `yaml:"endpoint"`
	BatchSize  int     `yaml:"batch_size"`
	RPS        float64 `yaml:"rps"`
	MaxRetries int     `yaml:"max_retries"`
}

// RAGConfig holds chunking and answer context settings.
type RAGConfig struct {
	ChunkSize        int  `yaml:"chunk_size"`
	// ChunkOverlap is a pointer so an explicit 0 disables overlap.
	ChunkOverlap     *int `yaml:"chunk_overlap"`
	MaxContextTokens int  `yaml:"max_context_tokens"`
}

// QdrantConfig holds the optional vector store mirror settings.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"`
	TLS        bool   `yaml:"tls"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// APIKey may list several comma-separated keys during rotation.
	APIKey      string   `yaml:"api_key"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
	GuestEmail  string   `yaml:"guest_email"`
	RateLimit   float64  `yaml:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst"`
}

// StoreConfig holds the SQLite database location.
type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig holds Langfuse settings.
type TracingConfig struct {
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
	Host      string `yaml:"host"`
}

// setting is one environment variable derived from the YAML file.
type setting struct {
	key   string
	value string
}

// settings flattens c into environment variables. Zero values are skipped so
// an absent YAML key never masks a default.
func (c *Config) settings() []setting {
	var out []setting
	str := func(key, v string) {
		if v != "" {
			out = append(out, setting{key, v})
		}
	}
	num := func(key string, v int) {
		if v != 0 {
			out = append(out, setting{key, strconv.Itoa(v)})
		}
	}
	float := func(key string, v float64) {
		if v != 0 {
			out = append(out, setting{key, strconv.FormatFloat(v, 'f', -1, 64)})
		}
	}

	m := c.Model
	str("MODEL_PROVIDER", m.Provider)
	num("MODEL_MAX_TOKENS", m.MaxTokens)
	if m.Temperature != 0 {
		str("MODEL_TEMPERATURE", strconv.FormatFloat(float64(m.Temperature), 'f', -1, 32))
	}
	str("PROVIDER_TIMEOUT", m.Timeout)
	str("OPENAI_API_KEY", m.OpenAI.APIKey)
	str("OPENAI_MODEL", m.OpenAI.Model)
	str("OPENAI_BASE_URL", m.OpenAI.BaseURL)
	str("AZURE_OPENAI_API_KEY", m.Azure.APIKey)
	str("AZURE_OPENAI_ENDPOINT", m.Azure.Endpoint)
	str("AZURE_OPENAI_DEPLOYMENT", m.Azure.Deployment)
	str("AZURE_OPENAI_API_VERSION", m.Azure.APIVersion)
	str("OLLAMA_HOST", m.Ollama.BaseURL)
	str("OLLAMA_MODEL", m.Ollama.Model)
	str("ARK_API_KEY", m.Ark.APIKey)
	str("ARK_MODEL", m.Ark.Model)
	str("ARK_BASE_URL", m.Ark.BaseURL)
	str("GOOGLE_API_KEY", m.Gemini.APIKey)
	str("GEMINI_MODEL", m.Gemini.Model)
	str("ANTHROPIC_API_KEY", m.Anthropic.APIKey)
	str("ANTHROPIC_MODEL", m.Anthropic.Model)
	str("ANTHROPIC_BASE_URL", m.Anthropic.BaseURL)

	e := c.Embedding
	str("EMBEDDING_PROVIDER", e.Provider)
	str("EMBEDDING_MODEL", e.Model)
	num("EMBEDDING_DIMENSIONS", e.Dimensions)
	str("EMBEDDING_API_KEY", e.APIKey)
	str("EMBEDDING_ENDPOINT", e.Endpoint)
	num("EMBEDDING_BATCH_SIZE", e.BatchSize)
	float("EMBEDDING_RPS", e.RPS)
	num("EMBEDDING_MAX_RETRIES", e.MaxRetries)

	num("RAG_CHUNK_SIZE", c.RAG.ChunkSize)
	if c.RAG.ChunkOverlap != nil {
		out = append(out, setting{"RAG_CHUNK_OVERLAP", strconv.Itoa(*c.RAG.ChunkOverlap)})
	}
	num("RAG_MAX_CONTEXT_TOKENS", c.RAG.MaxContextTokens)

	q := c.Qdrant
	str("QDRANT_HOST", q.Host)
	num("QDRANT_PORT", q.Port)
	str("QDRANT_COLLECTION", q.Collection)
	str("QDRANT_API_KEY", q.APIKey)
	if q.TLS {
		str("QDRANT_TLS", "true")
	}

	s := c.Server
	str("DOCRAG_HOST", s.Host)
	num("DOCRAG_PORT", s.Port)
	str("DOCRAG_API_KEY", s.APIKey)
	str("CORS_ORIGINS", strings.Join(s.CORSOrigins, ","))
	num("DOCRAG_MAX_UPLOAD_MB", s.MaxUploadMB)
	str("DOCRAG_GUEST_EMAIL", s.GuestEmail)
	float("DOCRAG_RATE_LIMIT", s.RateLimit)
	num("DOCRAG_RATE_BURST", s.RateBurst)

	str("DOCRAG_DB", c.Store.DBPath)
	str("LOG_LEVEL", c.Logging.Level)
	str("LOG_FORMAT", c.Logging.Format)
	str("LANGFUSE_PUBLIC_KEY", c.Tracing.PublicKey)
	str("LANGFUSE_SECRET_KEY", c.Tracing.SecretKey)
	str("LANGFUSE_HOST", c.Tracing.Host)
	return out
}

// Load reads the YAML config file, if one is found, and exports its values
// into the environment without overriding variables that are already set.
// It returns the path that was loaded, or "" when no file was found.
// An explicit path that does not exist is an error.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path, err := resolvePath(explicitPath)
	if err != nil {
		return "", err
	}
	if path == "" {
		log.Debug("config: no YAML config file found, using environment only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: parse %s: %w", path, err)
	}

	applied := 0
	for _, s := range cfg.settings() {
		if _, set := os.LookupEnv(s.key); set {
			continue
		}
		if err := os.Setenv(s.key, s.value); err != nil {
			return "", fmt.Errorf("config: set %s: %w", s.key, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)
	return path, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the environment. Missing files are skipped; variables that are already
// set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}

// resolvePath returns the first config file that exists.
func resolvePath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config: %w", err)
		}
		return explicit, nil
	}

	candidates := []string{os.Getenv("DOCRAG_CONFIG")}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".docrag", "config.yaml"))
	}
	candidates = append(candidates, "docrag.yaml")

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}
