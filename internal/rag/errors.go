package rag

import "errors"

var (
	// ErrProviderUnavailable means the embedding or completion provider is
	// not configured or could not be reached.
	ErrProviderUnavailable = errors.New("rag: provider unavailable")

	// ErrNotFound means the query scope resolved to no documents.
	ErrNotFound = errors.New("rag: no documents found")

	// ErrNoChunks means documents exist in scope but none has chunk records.
	ErrNoChunks = errors.New("rag: no document chunks available")

	// ErrProviderRuntime wraps a failure reported by a provider mid-call.
	ErrProviderRuntime = errors.New("rag: provider runtime error")

	// ErrDimensionMismatch means every usable chunk in scope was embedded
	// with a different vector size than the query.
	ErrDimensionMismatch = errors.New("rag: embedding dimension mismatch")
)
