package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docrag-go/internal/assistant"
	"github.com/54b3r/docrag-go/internal/ingestion"
	"github.com/54b3r/docrag-go/internal/rag"
	"github.com/54b3r/docrag-go/internal/store"
	"github.com/54b3r/docrag-go/internal/summarize"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds a single /api/chat stream. Defaults to 5 minutes.
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// CORSOrigins lists the origins allowed to call the API from a browser.
	// "*" allows any origin. Empty disables CORS headers.
	CORSOrigins []string
	// MaxUploadBytes caps the size of an uploaded file. Defaults to 20 MiB.
	MaxUploadBytes int64
	// GuestEmail is the account every request acts as.
	// Defaults to guest@example.com.
	GuestEmail string
	// MetricsRegistry receives the server's Prometheus metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// documentStore is the persistence surface the handlers use.
// *store.SQLiteStore satisfies it; tests use an in-memory instance.
type documentStore interface {
	EnsureUser(ctx context.Context, email string) (*store.User, error)
	GetDocument(ctx context.Context, userID, id int64) (*store.Document, error)
	ListDocuments(ctx context.Context, userID int64) ([]store.Document, error)
	ScopeDocuments(ctx context.Context, userID int64) ([]rag.Document, error)
	UpdateSummary(ctx context.Context, userID, id int64, summary string) error
	DeleteDocument(ctx context.Context, userID, id int64) error
}

// ingester stores an uploaded file. *ingestion.Pipeline satisfies it.
type ingester interface {
	Ingest(ctx context.Context, userID int64, filename string, data []byte) (*ingestion.Result, error)
}

// querier answers a question over the caller's documents.
// *rag.Orchestrator satisfies it.
type querier interface {
	Query(ctx context.Context, q rag.Query, docs []rag.Document) (*rag.Answer, error)
}

// summarizer writes document summaries. *summarize.Summarizer satisfies it.
type summarizer interface {
	Summarize(ctx context.Context, text string) summarize.Summary
}

// chatter streams chat replies and checks grammar.
// *assistant.Assistant satisfies it; tests inject a fake.
type chatter interface {
	Configured() bool
	Chat(ctx context.Context, userID int64, message string, w io.Writer) error
	CheckGrammar(ctx context.Context, text string) (*assistant.GrammarResult, error)
}

// Deps bundles the application services the server exposes.
type Deps struct {
	// Store persists users, documents and conversations.
	Store documentStore
	// Pipeline ingests uploads.
	Pipeline ingester
	// Orchestrator answers document queries.
	Orchestrator querier
	// Summarizer writes document summaries.
	Summarizer summarizer
	// Assistant handles chat and grammar checks.
	Assistant chatter
	// Mirror is the optional external vector store kept in step with
	// document deletions. May be nil.
	Mirror rag.VectorStore
}

// Server is the HTTP server that exposes the document service.
type Server struct {
	// store persists users and documents.
	store documentStore
	// pipeline ingests uploads.
	pipeline ingester
	// querier answers document questions.
	querier querier
	// summarizer writes document summaries.
	summarizer summarizer
	// chat handles /api/chat and /api/grammar.
	chat chatter
	// mirror is the optional vector store mirror.
	mirror rag.VectorStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus collectors owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// errorResponse is the JSON body of every handler error.
type errorResponse struct {
	// Detail is a human-readable description of the failure.
	Detail string `json:"detail"`
}

// documentResponse describes a stored document.
type documentResponse struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"content_type,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
	Summary       string    `json:"summary,omitempty"`
	ChunkCount    int       `json:"chunk_count"`
	EmbeddedCount int       `json:"embedded_count"`
}

// summaryResponse is the JSON response for POST /api/summarize/{id}.
type summaryResponse struct {
	DocumentID int64  `json:"document_id"`
	Filename   string `json:"filename"`
	Summary    string `json:"summary"`
	// Method is "model" or "extractive".
	Method summarize.Method `json:"method"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// DocumentID restricts the search to one document when set.
	DocumentID *int64 `json:"document_id,omitempty"`
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// Message is the user's chat message.
	Message string `json:"message"`
}

// grammarRequest is the JSON body for POST /api/grammar.
type grammarRequest struct {
	// Text is the text to check.
	Text string `json:"text"`
}

// exportRequest is the JSON body for POST /api/export.
type exportRequest struct {
	// Format is json or txt.
	Format string `json:"format"`
	// DocumentIDs selects documents to export. Empty exports all of them.
	DocumentIDs []int64 `json:"document_ids,omitempty"`
}

func toDocumentResponse(d *store.Document) documentResponse {
	return documentResponse{
		ID:            d.ID,
		Filename:      d.Filename,
		ContentType:   d.ContentType,
		UploadedAt:    d.UploadedAt,
		Summary:       d.Summary,
		ChunkCount:    d.ChunkCount,
		EmbeddedCount: d.EmbeddedCount,
	}
}
