package driving

import (
	"context"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

// ProgressFunc reports ingestion progress. It is called before each
// document is processed and is purely observational: it must not block
// and is never required for correctness.
type ProgressFunc func(index, total int, title, stage string)

// Ingestion stage names passed to ProgressFunc.
const (
	StageResolve = "resolve"
	StageOCR     = "ocr"
	StagePersist = "persist"
)

// IngestReport aggregates the outcome of a library ingestion.
type IngestReport struct {
	// Total is the number of documents found in the library.
	Total int

	// Processed is the number of documents ingested successfully.
	Processed int

	// Errors holds one message per failed document.
	Errors []string
}

// IngestOptions tunes a single ingestion run.
type IngestOptions struct {
	// Limit caps the number of documents processed. Zero means all.
	Limit int

	// Progress receives per-document progress events. May be nil.
	Progress ProgressFunc
}

// IngestStatus describes a running or idle ingestion.
type IngestStatus struct {
	LibraryID string
	Running   bool
	Processed int
	Errors    int
}

// IngestService orchestrates document ingestion. It owns no persistent
// state; it is a stateless orchestrator over injected collaborators.
type IngestService interface {
	// AddLibrary registers a library record in the vector store.
	// It does not touch documents or chunks.
	AddLibrary(ctx context.Context, lib driven.RemoteLibrary) error

	// IngestLibrary processes every document in a source library.
	// Individual document failures are collected in the report, not
	// raised; the context cancels the run between documents.
	IngestLibrary(ctx context.Context, libType domain.LibraryType, libraryID string, opts IngestOptions) (IngestReport, error)

	// IngestDocument processes a single document through the pipeline.
	IngestDocument(ctx context.Context, doc driven.RemoteDocument) error

	// Status reports the state of an ingestion for a library.
	Status(ctx context.Context, libraryID string) (IngestStatus, error)
}
