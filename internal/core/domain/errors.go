package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreIO indicates a vector store read or write failed.
	// Under the default (non-strict) error policy the services degrade
	// these to empty results and log them.
	ErrStoreIO = errors.New("store I/O failure")

	// ErrConnection indicates the source system is unreachable.
	ErrConnection = errors.New("connection failed")

	// ErrNoAttachment indicates a document has no PDF attachment to
	// extract text from. Per-document failure; ingestion continues.
	ErrNoAttachment = errors.New("no PDF attachment")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIngestInProgress indicates an ingestion is already running for
	// the library.
	ErrIngestInProgress = errors.New("ingestion in progress")
)
