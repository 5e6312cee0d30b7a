// Package audit writes one structured log record per CLI invocation with the
// command, the config file in use and the relevant environment. Secret values
// are reduced to "set" or "unset".
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// auditKeys are the environment variables recorded for every command, in
// log order.
var auditKeys = []string{
	"MODEL_PROVIDER",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
	"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
	"OLLAMA_HOST", "OLLAMA_MODEL",
	"ARK_API_KEY", "ARK_MODEL",
	"GOOGLE_API_KEY", "GEMINI_MODEL",
	"ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY", "EMBEDDING_DIMENSIONS",
	"RAG_CHUNK_SIZE", "RAG_CHUNK_OVERLAP",
	"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_API_KEY",
	"DOCRAG_API_KEY", "DOCRAG_DB", "DOCRAG_GUEST_EMAIL", "CORS_ORIGINS",
	"LOG_LEVEL", "LOG_FORMAT",
	"LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY",
}

// secretSuffixes mark a variable as secret by name.
var secretSuffixes = []string{"_API_KEY", "_SECRET_KEY", "_PUBLIC_KEY", "_TOKEN", "_PASSWORD"}

// IsSecret reports whether the value of key must never be logged.
func IsSecret(key string) bool {
	for _, s := range secretSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// LogCommandStart emits the audit record for a command invocation.
func LogCommandStart(log *slog.Logger, command, configPath string) {
	attrs := make([]slog.Attr, 0, len(auditKeys)+2)
	attrs = append(attrs,
		slog.String("command", command),
		slog.String("config_file", displayPath(configPath)),
	)
	for _, k := range auditKeys {
		attrs = append(attrs, slog.String(k, SanitiseKey(k, os.Getenv(k))))
	}
	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns the loggable form of value: "set"/"unset" for secrets,
// the value itself (or "unset") otherwise.
func SanitiseKey(key, value string) string {
	switch {
	case value == "":
		return "unset"
	case IsSecret(key):
		return "set"
	default:
		return value
	}
}

// displayPath shortens the home directory to "~" and reports "none" for an
// empty path.
func displayPath(p string) string {
	if p == "" {
		return "none"
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		if rest, ok := strings.CutPrefix(p, home); ok {
			return "~" + rest
		}
	}
	return p
}
