package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/qdrant/go-client/qdrant"

	"github.com/54b3r/docrag-go/internal/provider"
)

// SQLitePinger probes the document database.
type SQLitePinger struct {
	db interface{ Ping(ctx context.Context) error }
}

// NewSQLitePinger constructs a SQLitePinger. *store.SQLiteStore satisfies db.
func NewSQLitePinger(db interface{ Ping(ctx context.Context) error }) *SQLitePinger {
	return &SQLitePinger{db: db}
}

// Name returns the dependency label used in readiness responses.
func (p *SQLitePinger) Name() string { return "sqlite" }

// Ping checks that the database connection is usable.
func (p *SQLitePinger) Ping(ctx context.Context) error { return p.db.Ping(ctx) }

// LLMPinger probes the chat completion backend with a zero-token request
// (a model listing where the backend has one).
type LLMPinger struct {
	cfg    *provider.Config
	client *http.Client
}

// NewLLMPinger constructs an LLMPinger for the given provider config.
// A nil client uses http.DefaultClient.
func NewLLMPinger(cfg *provider.Config, client *http.Client) *LLMPinger {
	return &LLMPinger{cfg: cfg, client: client}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return "llm:" + string(p.cfg.Backend) }

// Ping runs the provider health check.
func (p *LLMPinger) Ping(ctx context.Context) error {
	return p.cfg.HealthCheck(ctx, p.client)
}

// EmbedderPinger reports whether an embedding provider is configured.
// It never calls the provider, which would spend tokens.
type EmbedderPinger struct {
	emb interface {
		Configured() bool
		Provider() string
	}
}

// NewEmbedderPinger constructs an EmbedderPinger. *embedder.Adapter
// satisfies emb.
func NewEmbedderPinger(emb interface {
	Configured() bool
	Provider() string
}) *EmbedderPinger {
	return &EmbedderPinger{emb: emb}
}

// Name returns the dependency label used in readiness responses.
func (p *EmbedderPinger) Name() string { return "embedder:" + p.emb.Provider() }

// Ping fails when no embedding client is configured.
func (p *EmbedderPinger) Ping(context.Context) error {
	if !p.emb.Configured() {
		return fmt.Errorf("embedding provider is not configured")
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	if _, err := p.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
