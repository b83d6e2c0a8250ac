package driven

import (
	"context"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

// VectorStore owns the three persistent collections (libraries, documents,
// chunks) and the embedding function shared by the write and query paths.
// The same embedding model must be used for both, or similarity scores are
// meaningless.
//
// All Add operations upsert by ID: repeated calls with the same ID update
// the existing record rather than duplicating it.
//
// Similarity scores are cosine similarities clamped to [0,1]. This is the
// `similarity = 1 - distance` conversion for the cosine distance metric,
// which is the only metric the store implementations use; the conversion
// is not valid for unbounded metrics such as L2.
type VectorStore interface {
	// AddLibrary stores or updates a library record.
	AddLibrary(ctx context.Context, lib domain.Library) error

	// AddDocument stores or updates a document record.
	AddDocument(ctx context.Context, doc domain.Document) error

	// AddChunks stores chunks, embedding each chunk's text with the
	// store's embedding function. Chunks with empty text are rejected
	// with domain.ErrInvalidInput.
	AddChunks(ctx context.Context, chunks []domain.Chunk) error

	// SearchChunks embeds the query with the store's embedding function
	// and returns chunks with similarity >= threshold, joined with their
	// parent document metadata. When libraryIDs is non-empty the search
	// is restricted to chunks whose document belongs to one of those
	// libraries; a scope matching no documents yields zero results.
	// Nil or empty libraryIDs means no filter.
	SearchChunks(ctx context.Context, query string, limit int, threshold float64, libraryIDs []string) ([]domain.SearchResult, error)

	// GetLibraries returns all library records. Empty store returns an
	// empty list, not an error.
	GetLibraries(ctx context.Context) ([]domain.Library, error)

	// GetDocuments returns document records, optionally scoped to a
	// library. Empty libraryID returns all documents.
	GetDocuments(ctx context.Context, libraryID string) ([]domain.Document, error)

	// Statistics returns collection counts. Empty store returns zeros.
	Statistics(ctx context.Context) (domain.Statistics, error)

	// Close releases resources.
	Close() error
}
