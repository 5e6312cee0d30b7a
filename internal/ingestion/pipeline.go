// Package ingestion implements the document upload pipeline.
// It extracts text from an uploaded file, chunks the content, embeds each
// chunk, persists the document with its chunk records, and mirrors the
// embedded chunks into the optional external vector store.
// This pipeline backs both POST /api/upload and the `docrag ingest` command.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/docrag-go/internal/extract"
	"github.com/54b3r/docrag-go/internal/logging"
	"github.com/54b3r/docrag-go/internal/rag"
	"github.com/54b3r/docrag-go/internal/store"
)

// ErrNoText is returned when a supported file yields no extractable text.
var ErrNoText = errors.New("ingestion: could not extract text from document")

// DocumentWriter persists an ingested document. *store.SQLiteStore
// satisfies it.
type DocumentWriter interface {
	CreateDocument(ctx context.Context, d *store.Document) error
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the maximum number of characters per document chunk.
	// Zero selects rag.DefaultChunkSize and rag.DefaultChunkOverlap.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// It is used as given whenever ChunkSize is set, so zero means no overlap.
	ChunkOverlap int

	// Progress, when set, receives human-readable progress messages.
	Progress func(msg string)
}

// Result describes a completed ingestion.
type Result struct {
	// Document is the persisted document, including its assigned ID.
	Document *store.Document

	// Chunks is the number of chunk records stored.
	Chunks int

	// Embedded is the number of chunks that received a vector.
	Embedded int

	// Mirrored reports whether the embedded chunks reached the vector store.
	Mirrored bool
}

// Pipeline orchestrates the extract → chunk → embed → persist → mirror flow
// for a single uploaded file.
type Pipeline struct {
	// embedder converts chunk texts into vectors. Failed chunks are stored
	// without one.
	embedder rag.Embedder

	// docs persists the document and its chunk records.
	docs DocumentWriter

	// mirror receives embedded chunks. Nil when no external store is configured.
	mirror rag.VectorStore

	// chunker splits extracted text.
	chunker *rag.Chunker

	// progress reports pipeline steps; never nil.
	progress func(string)
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
// mirror may be nil.
func NewPipeline(embedder rag.Embedder, docs DocumentWriter, mirror rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if docs == nil {
		return nil, fmt.Errorf("ingestion: document store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if size == 0 {
		size, overlap = rag.DefaultChunkSize, rag.DefaultChunkOverlap
	}
	chunker, err := rag.NewChunker(size, overlap)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}

	progress := cfg.Progress
	if progress == nil {
		progress = func(string) {}
	}

	return &Pipeline{
		embedder: embedder,
		docs:     docs,
		mirror:   mirror,
		chunker:  chunker,
		progress: progress,
	}, nil
}

// Ingest extracts, chunks, embeds and stores a single file for userID.
// It returns extract.ErrUnsupported for unknown file types and ErrNoText when
// the file contains no text. Embedding and mirroring failures degrade the
// result instead of failing the upload.
func (p *Pipeline) Ingest(ctx context.Context, userID int64, filename string, data []byte) (*Result, error) {
	log := logging.FromContext(ctx).With(slog.String("filename", filename))

	text, err := extract.Extract(filename, data)
	if err != nil {
		return nil, fmt.Errorf("ingestion: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	p.progress(fmt.Sprintf("extracted %d characters from %s (%s)", len([]rune(text)), filename, DetectFormat(filename)))

	chunks := p.chunker.Chunk(text)
	p.progress(fmt.Sprintf("chunked %s into %d chunks", filename, len(chunks)))

	vectors := p.embedder.EmbedBatch(ctx, chunks)
	records := rag.BuildRecords(chunks, vectors)

	doc := &store.Document{
		UserID:      userID,
		Filename:    filename,
		ContentType: extract.ContentType(filename),
		Content:     text,
		Records:     records,
	}
	if err := p.docs.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("ingestion: persist %s: %w", filename, err)
	}

	res := &Result{
		Document: doc,
		Chunks:   doc.ChunkCount,
		Embedded: doc.EmbeddedCount,
	}
	if res.Embedded < res.Chunks {
		log.Warn("ingestion: some chunks were stored without embeddings",
			slog.Int64("document_id", doc.ID),
			slog.Int("chunks", res.Chunks),
			slog.Int("embedded", res.Embedded),
		)
	}
	p.progress(fmt.Sprintf("stored %s as document %d (%d/%d chunks embedded)", filename, doc.ID, res.Embedded, res.Chunks))

	res.Mirrored = p.mirrorDocument(ctx, log, doc)
	return res, nil
}

// mirrorDocument copies the embedded chunks of doc into the vector store.
// Failures are logged and reported as false.
func (p *Pipeline) mirrorDocument(ctx context.Context, log *slog.Logger, doc *store.Document) bool {
	if p.mirror == nil {
		return false
	}
	points := make([]rag.MirrorPoint, 0, len(doc.Records))
	for i, r := range doc.Records {
		if len(r.Embedding) == 0 {
			continue
		}
		points = append(points, rag.MirrorPoint{
			DocumentID: doc.ID,
			Index:      i,
			Filename:   doc.Filename,
			Text:       r.Text,
			Vector:     r.Embedding,
		})
	}
	if len(points) == 0 {
		return false
	}
	if err := p.mirror.Upsert(ctx, points); err != nil {
		log.Warn("ingestion: vector store mirror failed",
			slog.Int64("document_id", doc.ID),
			slog.Any("error", err),
		)
		return false
	}
	p.progress(fmt.Sprintf("mirrored %d chunks of document %d", len(points), doc.ID))
	return true
}
