package domain

// Document represents a reference-library item with an indexable attachment.
// Its ID is derived from the source item key and is stable across reimports;
// re-ingesting a document upserts the existing record rather than
// duplicating it.
type Document struct {
	// ID is the unique identifier, e.g. "doc_ABCD1234".
	ID string

	// Title is the human-readable title.
	Title string

	// Authors is the ordered list of author names.
	Authors []string

	// PublicationDate is a free-form date string from the source system.
	PublicationDate string

	// DocumentType is the source system's item type tag (e.g. "journalArticle").
	DocumentType string

	// LibraryID links to the owning Library.
	LibraryID string

	// SourceKey is the source system's native item key, kept for
	// round-tripping back to the source.
	SourceKey string

	// Extra carries source-system-specific passthrough fields.
	Extra map[string]string
}

// Chunk represents a searchable passage of document text.
// A chunk's text is embedded into a fixed-dimension vector at write time by
// the embedding function owned by the vector store.
type Chunk struct {
	// ID is the unique identifier, e.g. "chunk_<uuid>".
	ID string

	// DocumentID links to the parent Document. Every chunk must reference
	// an existing document.
	DocumentID string

	// Text is the raw passage text. Must be non-empty for a meaningful
	// embedding.
	Text string

	// PageNumber is the 1-based page the passage came from.
	PageNumber int

	// Section is a human-readable section label.
	Section string

	// VersionHash marks the extracted-text version this chunk was built
	// from, used to detect stale embeddings after re-extraction.
	VersionHash string

	// Embedding is the vector representation. Populated by the vector
	// store at write time; empty on chunks produced by the chunker.
	Embedding []float32
}
