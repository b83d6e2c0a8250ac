package domain

const unknownDescription = "Unknown"

// EmbeddingProvider identifies an embedding service provider.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderLocal is the built-in deterministic hashed embedder.
	// Works offline; the default.
	ProviderLocal EmbeddingProvider = "local"

	// ProviderOllama is a local Ollama instance.
	ProviderOllama EmbeddingProvider = "ollama"

	// ProviderOpenAI is the OpenAI cloud API.
	ProviderOpenAI EmbeddingProvider = "openai"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderLocal, ProviderOllama, ProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == ProviderOpenAI
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case ProviderLocal:
		return "Local (hashed bag-of-words, offline)"
	case ProviderOllama:
		return "Ollama (local)"
	case ProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// ChunkSettings holds text chunking configuration.
type ChunkSettings struct {
	// Size is the target chunk size in characters.
	Size int

	// Overlap is the number of characters shared between adjacent chunks.
	Overlap int
}

// OCRSettings holds text-extraction behaviour configuration.
type OCRSettings struct {
	// Store uploads extracted text back to the source system as a
	// cached artifact.
	Store bool

	// UseCached reads a previously stored artifact instead of
	// re-running extraction.
	UseCached bool

	// AlwaysRefresh forces re-extraction even when a cached artifact
	// exists.
	AlwaysRefresh bool

	// APIKey authenticates against the extraction service.
	APIKey string
}

// SearchSettings holds retrieval configuration.
type SearchSettings struct {
	// Threshold is the minimum similarity in [0,1].
	Threshold float64

	// Limit is the maximum number of results.
	Limit int

	// LibraryIDs is the selected library scope. Empty means all.
	LibraryIDs []string
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// SourceSettings holds reference-manager API configuration.
type SourceSettings struct {
	// APIKey authenticates against the source system's web API.
	APIKey string

	// DefaultGroup is the group library selected by default.
	DefaultGroup string
}

// IngestSettings holds ingestion pipeline configuration.
type IngestSettings struct {
	// Workers is the number of documents processed concurrently.
	Workers int
}

// AppSettings aggregates all application configuration.
type AppSettings struct {
	Chunk     ChunkSettings
	OCR       OCRSettings
	Search    SearchSettings
	Embedding EmbeddingSettings
	Source    SourceSettings
	Ingest    IngestSettings

	// StorePath is the filesystem root of the embedded vector store.
	// Empty means the default under the user's home directory.
	StorePath string

	// StrictErrors surfaces store I/O failures to callers instead of
	// degrading to empty results.
	StrictErrors bool
}

// DefaultAppSettings returns the documented defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Chunk: ChunkSettings{
			Size:    512,
			Overlap: 50,
		},
		OCR: OCRSettings{
			Store:         true,
			UseCached:     true,
			AlwaysRefresh: false,
		},
		Search: SearchSettings{
			Threshold:  0.7,
			Limit:      10,
			LibraryIDs: []string{},
		},
		Embedding: EmbeddingSettings{
			Provider: ProviderLocal,
		},
		Ingest: IngestSettings{
			Workers: 1,
		},
	}
}
