package services

import (
	"context"
	"os"
	"sync"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

func writeFakePDF(path string) error {
	return os.WriteFile(path, []byte("%PDF-1.4 test"), 0600)
}

// --- Shared mock implementations for service tests ---

// mockEmbedder returns engineered vectors keyed by exact text so
// similarity scores in tests are deterministic.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	if m.fallback != nil {
		return m.fallback, nil
	}
	return []float32{0, 0, 1}, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockVectorStore records writes and serves canned search results.
type mockVectorStore struct {
	mu        sync.Mutex
	libraries []domain.Library
	documents []domain.Document
	chunks    []domain.Chunk

	searchResults []domain.SearchResult
	searchErr     error
	statsErr      error
	libsErr       error
}

var _ driven.VectorStore = (*mockVectorStore)(nil)

func (m *mockVectorStore) AddLibrary(_ context.Context, lib domain.Library) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.libraries {
		if existing.ID == lib.ID {
			m.libraries[i] = lib
			return nil
		}
	}
	m.libraries = append(m.libraries, lib)
	return nil
}

func (m *mockVectorStore) AddDocument(_ context.Context, doc domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.documents {
		if existing.ID == doc.ID {
			m.documents[i] = doc
			return nil
		}
	}
	m.documents = append(m.documents, doc)
	return nil
}

func (m *mockVectorStore) AddChunks(_ context.Context, chunks []domain.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func (m *mockVectorStore) SearchChunks(
	_ context.Context, _ string, _ int, _ float64, _ []string,
) ([]domain.SearchResult, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchResults, nil
}

func (m *mockVectorStore) GetLibraries(_ context.Context) ([]domain.Library, error) {
	if m.libsErr != nil {
		return nil, m.libsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Library{}, m.libraries...), nil
}

func (m *mockVectorStore) GetDocuments(_ context.Context, libraryID string) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := []domain.Document{}
	for _, doc := range m.documents {
		if libraryID == "" || doc.LibraryID == libraryID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (m *mockVectorStore) Statistics(_ context.Context) (domain.Statistics, error) {
	if m.statsErr != nil {
		return domain.Statistics{}, m.statsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Statistics{
		Libraries: len(m.libraries),
		Documents: len(m.documents),
		Chunks:    len(m.chunks),
	}, nil
}

func (m *mockVectorStore) Close() error { return nil }

// mockReference implements driven.ReferenceLibrary with canned data and
// call counters.
type mockReference struct {
	mu sync.Mutex

	connected bool
	libraries []driven.RemoteLibrary
	libsErr   error
	documents map[string][]driven.RemoteDocument
	docsErr   error

	// Cached artifact per source key: text + version hash.
	artifacts map[string][2]string

	pdfs map[string]bool // source keys with a PDF attachment

	storedArtifacts map[string]string
	storeErr        error

	pdfDownloads    int
	artifactReads   int
	artifactLookups int
}

var _ driven.ReferenceLibrary = (*mockReference)(nil)

func newMockReference() *mockReference {
	return &mockReference{
		connected:       true,
		documents:       make(map[string][]driven.RemoteDocument),
		artifacts:       make(map[string][2]string),
		pdfs:            make(map[string]bool),
		storedArtifacts: make(map[string]string),
	}
}

func (m *mockReference) TestConnection(_ context.Context) bool { return m.connected }

func (m *mockReference) GetLibraries(_ context.Context) ([]driven.RemoteLibrary, error) {
	if m.libsErr != nil {
		return nil, m.libsErr
	}
	return append([]driven.RemoteLibrary{}, m.libraries...), nil
}

func (m *mockReference) GetDocuments(
	_ context.Context, _ domain.LibraryType, libraryID string,
) ([]driven.RemoteDocument, error) {
	if m.docsErr != nil {
		return nil, m.docsErr
	}
	return append([]driven.RemoteDocument{}, m.documents[libraryID]...), nil
}

func (m *mockReference) FindOCRArtifact(_ context.Context, sourceKey string) (*driven.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifactLookups++
	if _, ok := m.artifacts[sourceKey]; !ok {
		return nil, domain.ErrNotFound
	}
	return &driven.Attachment{Key: "art_" + sourceKey, Filename: "z-cite-ocr.txt", ContentType: "text/plain"}, nil
}

func (m *mockReference) DownloadAndParseOCRArtifact(
	_ context.Context, att *driven.Attachment,
) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artifactReads++
	for key, stored := range m.artifacts {
		if "art_"+key == att.Key {
			return stored[0], stored[1], nil
		}
	}
	return "", "", domain.ErrNotFound
}

func (m *mockReference) StoreOCRArtifact(_ context.Context, sourceKey, text string) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storedArtifacts[sourceKey] = text
	return nil
}

func (m *mockReference) GetPDFAttachment(_ context.Context, sourceKey string) (*driven.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pdfs[sourceKey] {
		return nil, domain.ErrNoAttachment
	}
	return &driven.Attachment{Key: "pdf_" + sourceKey, Filename: "paper.pdf", ContentType: "application/pdf"}, nil
}

func (m *mockReference) DownloadPDF(_ context.Context, _ *driven.Attachment, destPath string) error {
	m.mu.Lock()
	m.pdfDownloads++
	m.mu.Unlock()
	return writeFakePDF(destPath)
}

func (m *mockReference) downloads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pdfDownloads
}

func (m *mockReference) lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artifactLookups
}

// mockOCR implements driven.OCRService, recording processed paths.
type mockOCR struct {
	mu    sync.Mutex
	text  string
	err   error
	paths []string
}

var _ driven.OCRService = (*mockOCR)(nil)

func (m *mockOCR) ProcessDocument(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockOCR) TestConnection(_ context.Context) bool { return true }

// mockSettings serves a fixed settings snapshot.
type mockSettings struct {
	settings domain.AppSettings
	saved    []domain.AppSettings
}

func newMockSettings() *mockSettings {
	return &mockSettings{settings: domain.DefaultAppSettings()}
}

func (m *mockSettings) Get() (domain.AppSettings, error) { return m.settings, nil }

func (m *mockSettings) Save(settings domain.AppSettings) error {
	m.saved = append(m.saved, settings)
	m.settings = settings
	return nil
}

// mockConfigStore is an in-memory driven.ConfigStore.
type mockConfigStore struct {
	data map[string]any
}

var _ driven.ConfigStore = (*mockConfigStore)(nil)

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{data: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	if s, ok := m.data[key].(string); ok {
		return s
	}
	return ""
}

func (m *mockConfigStore) GetInt(key string) int {
	switch v := m.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	switch v := m.data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	if b, ok := m.data[key].(bool); ok {
		return b
	}
	return false
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	if s, ok := m.data[key].([]string); ok {
		return s
	}
	return nil
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockConfigStore) Load() error { return nil }
