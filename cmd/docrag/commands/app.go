package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/docrag-go/internal/assistant"
	"github.com/54b3r/docrag-go/internal/budget"
	"github.com/54b3r/docrag-go/internal/config"
	"github.com/54b3r/docrag-go/internal/embedder"
	"github.com/54b3r/docrag-go/internal/ingestion"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/provider"
	"github.com/54b3r/docrag-go/internal/rag"
	"github.com/54b3r/docrag-go/internal/store"
	"github.com/54b3r/docrag-go/internal/summarize"
	"github.com/54b3r/docrag-go/internal/tracing"
)

// app holds the services shared by the CLI commands and the server.
type app struct {
	log *slog.Logger

	db          *store.SQLiteStore
	embedder    *embedder.Adapter
	embedderCfg *embedder.Config
	chatModel   model.BaseChatModel
	providerCfg *provider.Config
	// mirror is nil unless QDRANT_HOST is set and reachable.
	mirror *rag.QdrantStore

	pipeline   *ingestion.Pipeline
	orch       *rag.Orchestrator
	summarizer *summarize.Summarizer
	assistant  *assistant.Assistant

	closers []func()
}

// newApp opens the store and builds every service from the environment.
// Missing provider credentials degrade the affected features instead of
// failing; a broken store or an unknown backend name is fatal.
func newApp(ctx context.Context, log *slog.Logger) (*app, error) {
	a := &app{log: log}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	a.closers = append(a.closers, tracing.Install(tracing.ConfigFromEnv(), log))

	dbPath := config.String("DOCRAG_DB", "")
	if dbPath == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		dbPath = p
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func() { _ = db.Close() })
	log.Debug("store opened", slog.String("path", dbPath))

	a.embedder, a.embedderCfg, err = embedder.NewFromEnv(log)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}

	a.chatModel, a.providerCfg, err = provider.NewFromEnv(ctx)
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		log.Warn("provider: completion model not configured; answers, summaries and chat are degraded",
			slog.String("provider", string(a.providerCfg.Backend)),
			slog.String("reason", err.Error()),
		)
		a.chatModel = nil
	case err != nil:
		return nil, fmt.Errorf("provider: %w", err)
	default:
		log.Info("provider initialised",
			slog.String("provider", string(a.providerCfg.Backend)),
			slog.String("model", a.providerCfg.ModelName()),
		)
	}

	if host := config.String("QDRANT_HOST", ""); host != "" {
		qs, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
			Host:       host,
			Port:       config.Int("QDRANT_PORT", 6334),
			Collection: config.String("QDRANT_COLLECTION", "docrag-chunks"),
			VectorSize: uint64(a.embedderCfg.VectorSize()), //nolint:gosec // vector sizes are small
			APIKey:     config.String("QDRANT_API_KEY", ""),
			UseTLS:     config.Bool("QDRANT_TLS"),
		})
		if err != nil {
			log.Warn("qdrant: mirror disabled", slog.String("host", host), slog.Any("error", err))
		} else {
			a.mirror = qs
			a.closers = append(a.closers, func() { _ = qs.Close() })
			log.Info("qdrant: mirroring chunks", slog.String("host", host))
		}
	}

	a.pipeline, err = ingestion.NewPipeline(a.embedder, a.db, a.vectorStore(), &ingestion.Config{
		ChunkSize:    config.Int("RAG_CHUNK_SIZE", rag.DefaultChunkSize),
		ChunkOverlap: config.Int("RAG_CHUNK_OVERLAP", rag.DefaultChunkOverlap),
		Progress:     func(msg string) { log.Debug(msg) },
	})
	if err != nil {
		return nil, err
	}

	synth := rag.NewSynthesizer(a.chatModel, synthesizerConfig(a.providerCfg))
	a.orch, err = rag.NewOrchestrator(a.embedder, synth, a.embedderCfg.Timeout)
	if err != nil {
		return nil, err
	}

	a.summarizer = summarize.New(a.chatModel, summarize.DefaultMaxWords)
	a.assistant = assistant.New(&assistant.Config{
		ChatModel: a.chatModel,
		History:          a.db,
		MaxContextTokens: maxContextTokens(),
		MaxTokens:        a.providerCfg.Tuning.MaxTokens,
	})

	ok = true
	return a, nil
}

// synthesizerConfig resolves answer generation settings from the provider
// tuning and RAG_MAX_CONTEXT_TOKENS.
func synthesizerConfig(p *provider.Config) *rag.SynthesizerConfig {
	return &rag.SynthesizerConfig{
		MaxContextTokens: maxContextTokens(),
		MaxTokens:        p.Tuning.MaxTokens,
		Temperature:      p.Tuning.Temperature,
	}
}

func maxContextTokens() int {
	return config.Int("RAG_MAX_CONTEXT_TOKENS", budget.DefaultMaxContextTokens)
}

// Close releases every resource in reverse acquisition order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// vectorStore returns the mirror as an interface value, nil when disabled.
func (a *app) vectorStore() rag.VectorStore {
	if a.mirror == nil {
		return nil
	}
	return a.mirror
}

// guest returns the account CLI commands act as.
func (a *app) guest(ctx context.Context) (*store.User, error) {
	return a.db.EnsureUser(ctx, guestEmail())
}

func guestEmail() string {
	return config.String("DOCRAG_GUEST_EMAIL", "guest@example.com")
}

// cliContext returns ctx carrying a logger for CLI commands. CLI output goes
// to stdout; logs stay on stderr.
func cliContext(ctx context.Context) (context.Context, *slog.Logger) {
	log := logging.New()
	return logging.WithLogger(ctx, log), log
}
