// Package rag implements the retrieval pipeline behind document queries:
// chunking, similarity ranking over stored chunk embeddings, answer
// synthesis, and the orchestration that ties them together.
// Embedding and completion providers are injected through the interfaces in
// this file so every stage can be exercised with fakes.
package rag

import (
	"context"
)

// TopK is the number of ranked chunks handed to the synthesizer.
const TopK = 5

// EvidenceChunks is the number of ranked chunk texts returned to the caller
// alongside an answer.
const EvidenceChunks = 3

// ChunkRecord is the persisted form of a chunk. A slice of records is stored
// as a JSON blob next to its parent document.
type ChunkRecord struct {
	// Text is the trimmed chunk text.
	Text string `json:"text"`
	// Embedding is the chunk vector. Nil when the provider produced none,
	// which keeps the chunk stored but unsearchable.
	Embedding []float32 `json:"embedding,omitempty"`
}

// Chunk is a searchable chunk together with the document that owns it.
type Chunk struct {
	// Text is the chunk text.
	Text string
	// Embedding is the chunk vector, possibly empty.
	Embedding []float32
	// DocumentID is the id of the owning document.
	DocumentID int64
	// Filename is the owning document's filename.
	Filename string
}

// Document is a document in query scope with its decoded chunk records.
type Document struct {
	// ID is the document id.
	ID int64
	// Filename is the original upload filename.
	Filename string
	// Records are the document's chunk records in chunking order.
	Records []ChunkRecord
}

// RankedChunk pairs a chunk with its cosine similarity to the query.
type RankedChunk struct {
	// Score is the cosine similarity in [-1, 1].
	Score float64
	// Chunk is the ranked chunk.
	Chunk Chunk
}

// Query is a single retrieval request.
type Query struct {
	// Text is the user's question.
	Text string
	// DocumentID restricts the search to one document when non-zero.
	DocumentID int64
}

// Answer is the result of a query.
type Answer struct {
	// Text is the answer shown to the user. Degraded outcomes carry an
	// explanatory message here rather than an error.
	Text string `json:"answer"`
	// DocumentID is the document the answer is attributed to.
	DocumentID int64 `json:"document_id"`
	// Filename is the attributed document's filename.
	Filename string `json:"filename"`
	// RelevantChunks holds the texts of the top ranked chunks.
	RelevantChunks []string `json:"relevant_chunks,omitempty"`
	// Outcome records how the query terminated.
	Outcome OutcomeKind `json:"outcome"`
}

// Embedder turns texts into vectors. It is satisfied by embedder.Adapter.
type Embedder interface {
	// EmbedBatch returns one vector per text, with nil entries for texts the
	// provider did not embed. It returns an empty slice when the provider is
	// unavailable.
	EmbedBatch(ctx context.Context, texts []string) [][]float32

	// EmbedOne embeds a single text. It returns ErrProviderUnavailable when
	// no vector could be produced.
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

// MirrorPoint is one embedded chunk replicated to an external vector store.
type MirrorPoint struct {
	// DocumentID is the owning document.
	DocumentID int64
	// Index is the chunk's position in the document.
	Index int
	// Filename is the owning document's filename.
	Filename string
	// Text is the chunk text.
	Text string
	// Vector is the chunk embedding.
	Vector []float32
}

// VectorStore is an external store that mirrors embedded chunks so other
// consumers can search them. Queries in this service never read from it.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or replaces the given points.
	Upsert(ctx context.Context, points []MirrorPoint) error

	// DeleteDocument removes every point belonging to the document.
	DeleteDocument(ctx context.Context, documentID int64) error

	// Close releases any resources held by the store.
	Close() error
}
