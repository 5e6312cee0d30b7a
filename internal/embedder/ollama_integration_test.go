//go:build integration

package embedder

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestOllamaClient_Integration performs a real HTTP call to a locally running
// Ollama instance to validate the adapter end-to-end.
//
// Prerequisites:
//
//	ollama pull nomic-embed-text
//	ollama serve
//
// Run with:
//
//	go test -tags=integration -run TestOllamaClient_Integration ./internal/embedder/
func TestOllamaClient_Integration(t *testing.T) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = defaultOllamaHost
	}
	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = defaultOllamaModel
	}

	a := NewAdapter(NewOllamaClient(&OllamaConfig{Host: host, Model: model}), &Config{BatchSize: 1, MaxRetries: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	texts := []string{
		"Invoices are due thirty days after the delivery date.",
		"The warranty covers manufacturing defects for two years.",
	}
	vecs := a.EmbedBatch(ctx, texts)
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d\n\nEnsure Ollama is running and %q is pulled", len(texts), len(vecs), model)
	}
	for i, v := range vecs {
		if len(v) == 0 {
			t.Errorf("embedding[%d] is empty", i)
		}
	}

	q, err := a.EmbedOne(ctx, "When do I have to pay?")
	if err != nil {
		t.Fatalf("EmbedOne() failed: %v", err)
	}
	t.Logf("model=%s dim=%d (set EMBEDDING_DIMENSIONS=%d for the Qdrant mirror)", model, len(q), len(q))
}
