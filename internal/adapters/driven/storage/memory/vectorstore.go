// Package memory provides an in-memory vector store used in tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// All Add operations upsert by ID.
type VectorStore struct {
	mu        sync.RWMutex
	embedder  driven.EmbeddingService
	libraries map[string]domain.Library
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk

	// chunkOrder preserves insertion order so equal-similarity results
	// are returned deterministically.
	chunkOrder []string
	libOrder   []string
	docOrder   []string
}

// NewVectorStore creates an in-memory vector store owning the given
// embedding service.
func NewVectorStore(embedder driven.EmbeddingService) *VectorStore {
	return &VectorStore{
		embedder:  embedder,
		libraries: make(map[string]domain.Library),
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
	}
}

// AddLibrary stores or updates a library record.
func (s *VectorStore) AddLibrary(_ context.Context, lib domain.Library) error {
	if lib.ID == "" {
		return fmt.Errorf("%w: library ID is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.libraries[lib.ID]; !exists {
		s.libOrder = append(s.libOrder, lib.ID)
	}
	s.libraries[lib.ID] = lib
	return nil
}

// AddDocument stores or updates a document record.
func (s *VectorStore) AddDocument(_ context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; !exists {
		s.docOrder = append(s.docOrder, doc.ID)
	}
	s.documents[doc.ID] = doc
	return nil
}

// AddChunks embeds and stores chunks, upserting by ID.
func (s *VectorStore) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, chunk := range chunks {
		if chunk.Text == "" {
			return fmt.Errorf("%w: chunk %s has empty text", domain.ErrInvalidInput, chunk.ID)
		}
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before mutating so a bad chunk never
	// leaves a partial write behind.
	for _, chunk := range chunks {
		if _, ok := s.documents[chunk.DocumentID]; !ok {
			return fmt.Errorf("%w: document %s for chunk %s", domain.ErrNotFound, chunk.DocumentID, chunk.ID)
		}
	}

	for i, chunk := range chunks {
		chunk.Embedding = embeddings[i]
		if _, exists := s.chunks[chunk.ID]; !exists {
			s.chunkOrder = append(s.chunkOrder, chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// SearchChunks embeds the query and returns chunks with similarity >=
// threshold, joined with parent document metadata, sorted by similarity
// descending with ties in insertion order.
func (s *VectorStore) SearchChunks(
	ctx context.Context, query string, limit int, threshold float64, libraryIDs []string,
) ([]domain.SearchResult, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Resolve the library scope to document IDs first. An empty scope
	// means no filter; a scope matching nothing yields zero results.
	var allowed map[string]bool
	if len(libraryIDs) > 0 {
		allowed = make(map[string]bool)
		scope := make(map[string]bool, len(libraryIDs))
		for _, id := range libraryIDs {
			scope[id] = true
		}
		for _, docID := range s.docOrder {
			if scope[s.documents[docID].LibraryID] {
				allowed[docID] = true
			}
		}
		if len(allowed) == 0 {
			return []domain.SearchResult{}, nil
		}
	}

	if limit < 0 {
		limit = 0
	}
	results := make([]domain.SearchResult, 0, limit)
	for _, chunkID := range s.chunkOrder {
		chunk := s.chunks[chunkID]
		if allowed != nil && !allowed[chunk.DocumentID] {
			continue
		}

		similarity := cosineSimilarity(queryVec, chunk.Embedding)
		if similarity < threshold {
			continue
		}

		results = append(results, domain.SearchResult{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Text:       chunk.Text,
			PageNumber: chunk.PageNumber,
			Section:    chunk.Section,
			Similarity: similarity,
			Document:   s.documents[chunk.DocumentID],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetLibraries returns all library records in insertion order.
func (s *VectorStore) GetLibraries(_ context.Context) ([]domain.Library, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	libs := make([]domain.Library, 0, len(s.libOrder))
	for _, id := range s.libOrder {
		libs = append(libs, s.libraries[id])
	}
	return libs, nil
}

// GetDocuments returns document records, optionally scoped to a library.
func (s *VectorStore) GetDocuments(_ context.Context, libraryID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		doc := s.documents[id]
		if libraryID != "" && doc.LibraryID != libraryID {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Statistics returns collection counts.
func (s *VectorStore) Statistics(_ context.Context) (domain.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.Statistics{
		Libraries: len(s.libraries),
		Documents: len(s.documents),
		Chunks:    len(s.chunks),
	}, nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

// cosineSimilarity returns the cosine similarity of two vectors clamped to
// [0,1]. This matches the `1 - distance` conversion for cosine distance;
// anti-correlated vectors clamp to zero rather than going negative.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
