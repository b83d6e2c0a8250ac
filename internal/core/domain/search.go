package domain

// Display fallbacks for documents with missing metadata.
const (
	// UntitledDocument is shown when a document has no title.
	UntitledDocument = "Untitled Document"

	// UnknownAuthor is shown when a document has no authors.
	UnknownAuthor = "Unknown Author"
)

// MaxSnippetLength is the maximum length of a formatted result snippet.
// Longer chunk text is truncated with a trailing ellipsis.
const MaxSnippetLength = 500

// SearchOptions configures a semantic search query.
type SearchOptions struct {
	// Limit is the maximum number of results.
	Limit int

	// Threshold is the minimum similarity score in [0,1] for a result
	// to be returned.
	Threshold float64

	// LibraryIDs restricts results to chunks whose parent document
	// belongs to one of these libraries. Nil or empty means no filter;
	// a non-empty list that matches no documents yields zero results.
	LibraryIDs []string
}

// SearchResult is a scored chunk joined with its parent document's
// metadata at query time. It is derived, never persisted.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the parent document.
	DocumentID string

	// Text is the chunk text.
	Text string

	// PageNumber is the chunk's page.
	PageNumber int

	// Section is the chunk's section label.
	Section string

	// Similarity is the cosine similarity score in [0,1].
	Similarity float64

	// Document carries the parent document's metadata.
	Document Document
}

// ResultMetadata is the nested metadata block of a formatted result.
type ResultMetadata struct {
	PageNumber      int    `json:"page_number"`
	Section         string `json:"section"`
	PublicationDate string `json:"publication_date"`
	DocumentType    string `json:"document_type"`
}

// FormattedResult is the presentation shape of a search result.
type FormattedResult struct {
	// Title is the document title, or UntitledDocument.
	Title string `json:"title"`

	// Authors is the author names joined by ", ", or UnknownAuthor.
	Authors string `json:"authors"`

	// Similarity is the score rendered as an integer percentage,
	// truncated (0.695 renders as 69).
	Similarity int `json:"similarity"`

	// Text is the chunk text, truncated to MaxSnippetLength with a
	// trailing "..." when longer.
	Text string `json:"text"`

	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`

	Metadata ResultMetadata `json:"metadata"`
}

// Statistics summarises the vector store contents.
type Statistics struct {
	Libraries int `json:"libraries"`
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}
