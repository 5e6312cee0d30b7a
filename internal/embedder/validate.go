package embedder

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// chatModelMarkers are name fragments of completion models that cannot
// produce embeddings.
var chatModelMarkers = []string{
	"gpt-4", "gpt-3.5", "gpt-35", "o1", "o3",
	"llama", "mistral", "mixtral", "gemma", "phi",
	"claude", "gemini", "command-r", "deepseek", "qwen",
}

// looksLikeChatModel reports whether model is named like a completion model
// rather than an embedding model.
func looksLikeChatModel(model string) bool {
	name := strings.ToLower(model)
	if strings.Contains(name, "embed") {
		return false
	}
	return slices.ContainsFunc(chatModelMarkers, func(m string) bool {
		return strings.Contains(name, m)
	})
}

// Warnings lists configuration problems that do not prevent start-up but
// degrade retrieval. NewFromEnv logs each one once.
func Warnings(cfg *Config) []string {
	var out []string
	chat := os.Getenv("MODEL_PROVIDER")
	if os.Getenv("EMBEDDING_PROVIDER") == "" && chat != "" && chat != cfg.Provider {
		out = append(out, fmt.Sprintf("embedder: MODEL_PROVIDER %q has no embedding API, using %s; set EMBEDDING_PROVIDER to be explicit", chat, cfg.Provider))
	}
	if looksLikeChatModel(cfg.Model) {
		out = append(out, fmt.Sprintf("embedder: EMBEDDING_MODEL %q looks like a chat model; queries will likely fail or rank poorly", cfg.Model))
	}
	if cfg.BatchSize > 2048 {
		out = append(out, "embedder: EMBEDDING_BATCH_SIZE exceeds the 2048 inputs most providers accept per call")
	}
	return out
}
