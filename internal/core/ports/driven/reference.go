package driven

import (
	"context"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

// RemoteLibrary is a library as described by the source system.
type RemoteLibrary struct {
	// ID is the zcite library identifier, e.g. "group_5140532".
	ID string

	// Name is the display name.
	Name string

	// Type is the library kind.
	Type domain.LibraryType

	// SourceID is the source system's native identifier.
	SourceID string

	// Description is an optional free-form description.
	Description string

	// IsDefault marks the library selected by default.
	IsDefault bool
}

// RemoteDocument is a document as described by the source system,
// before ingestion.
type RemoteDocument struct {
	// ID is the zcite document identifier, e.g. "doc_ABCD1234".
	ID string

	// SourceKey is the source system's native item key.
	SourceKey string

	Title           string
	Authors         []string
	PublicationDate string
	DocumentType    string

	// LibraryID is the owning zcite library identifier.
	LibraryID string

	// HasCachedOCR indicates a stored extraction artifact exists.
	HasCachedOCR bool
}

// Attachment describes a file attached to a source item.
type Attachment struct {
	// Key is the attachment's item key.
	Key string

	// Filename is the stored file name.
	Filename string

	// ContentType is the MIME type.
	ContentType string
}

// ReferenceLibrary fetches items and attachments from the external
// reference manager. It is a thin data-source wrapper; per-call failures
// are reported as errors and interpreted by the ingestion pipeline.
type ReferenceLibrary interface {
	// TestConnection verifies the API is reachable and the key is valid.
	TestConnection(ctx context.Context) bool

	// GetLibraries lists the libraries accessible to the API key.
	GetLibraries(ctx context.Context) ([]RemoteLibrary, error)

	// GetDocuments lists documents with PDF attachments in a library.
	GetDocuments(ctx context.Context, libType domain.LibraryType, libraryID string) ([]RemoteDocument, error)

	// FindOCRArtifact locates the cached extraction artifact for an
	// item, if any. Returns domain.ErrNotFound when absent.
	FindOCRArtifact(ctx context.Context, sourceKey string) (*Attachment, error)

	// DownloadAndParseOCRArtifact fetches and decodes a cached artifact,
	// returning the extracted text and its version hash.
	DownloadAndParseOCRArtifact(ctx context.Context, att *Attachment) (text, versionHash string, err error)

	// StoreOCRArtifact uploads extracted text as a cached artifact,
	// replacing any prior artifact for the item.
	StoreOCRArtifact(ctx context.Context, sourceKey, text string) error

	// GetPDFAttachment locates the item's PDF attachment.
	// Returns domain.ErrNoAttachment when absent.
	GetPDFAttachment(ctx context.Context, sourceKey string) (*Attachment, error)

	// DownloadPDF writes the attachment's content to destPath.
	DownloadPDF(ctx context.Context, att *Attachment, destPath string) error
}

// OCRService extracts text from a PDF file.
// Treated as a pure function over the file contents; may return empty text.
type OCRService interface {
	// ProcessDocument runs text extraction on the file at path and
	// returns the UTF-8 text.
	ProcessDocument(ctx context.Context, path string) (string, error)

	// TestConnection verifies the extraction backend is reachable.
	TestConnection(ctx context.Context) bool
}
