package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
	"github.com/custodia-labs/zcite-cli/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// DefaultSearchLimit is used when the caller passes no limit.
const DefaultSearchLimit = 10

// highlightWindow is the number of characters of context kept on each side
// of the first query-term match.
const highlightWindow = 100

// SearchService executes semantic queries against the vector store.
type SearchService struct {
	store driven.VectorStore

	// strict surfaces store failures to callers; when false the service
	// logs and degrades to empty results.
	strict bool
}

// NewSearchService creates a new search service.
func NewSearchService(store driven.VectorStore, strict bool) *SearchService {
	return &SearchService{
		store:  store,
		strict: strict,
	}
}

// Search returns scored chunks sorted by similarity descending.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	logger.Debug("Limit: %d, threshold: %.2f, libraries: %v", limit, opts.Threshold, opts.LibraryIDs)

	results, err := s.store.SearchChunks(ctx, query, limit, opts.Threshold, opts.LibraryIDs)
	if err != nil {
		if s.strict {
			return nil, fmt.Errorf("searching chunks: %w", err)
		}
		logger.Warn("Search failed, returning no results: %v", err)
		return []domain.SearchResult{}, nil
	}

	// The store already ranks; re-sort stably in case an adapter does not.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	logger.Info("Found %d results", len(results))
	return results, nil
}

// FormatResults projects raw results into their presentation shape.
func (s *SearchService) FormatResults(results []domain.SearchResult) []domain.FormattedResult {
	formatted := make([]domain.FormattedResult, 0, len(results))
	for _, r := range results {
		title := r.Document.Title
		if title == "" {
			title = domain.UntitledDocument
		}

		authors := strings.Join(r.Document.Authors, ", ")
		if authors == "" {
			authors = domain.UnknownAuthor
		}

		formatted = append(formatted, domain.FormattedResult{
			Title:      title,
			Authors:    authors,
			Similarity: int(r.Similarity * 100),
			Text:       truncateSnippet(r.Text),
			DocumentID: r.DocumentID,
			ChunkID:    r.ChunkID,
			Metadata: domain.ResultMetadata{
				PageNumber:      r.PageNumber,
				Section:         r.Section,
				PublicationDate: r.Document.PublicationDate,
				DocumentType:    r.Document.DocumentType,
			},
		})
	}
	return formatted
}

// Highlight returns a window of text around the first query-term match
// with every in-window occurrence of that term wrapped in bold markers.
func (s *SearchService) Highlight(text, query string) string {
	lower := strings.ToLower(text)

	// Earliest match across query terms wins.
	matchIdx := -1
	matchTerm := ""
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if idx := strings.Index(lower, term); idx >= 0 && (matchIdx == -1 || idx < matchIdx) {
			matchIdx = idx
			matchTerm = term
		}
	}

	if matchIdx < 0 {
		if len(text) <= 2*highlightWindow {
			return text
		}
		return text[:runeBoundaryBefore(text, 2*highlightWindow)] + "..."
	}

	start := matchIdx - highlightWindow
	if start < 0 {
		start = 0
	}
	end := matchIdx + len(matchTerm) + highlightWindow
	if end > len(text) {
		end = len(text)
	}
	start = runeBoundaryBefore(text, start)
	end = runeBoundaryBefore(text, end)

	snippet := boldOccurrences(text[start:end], matchTerm)
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet += "..."
	}
	return snippet
}

// truncateSnippet caps chunk text at MaxSnippetLength characters, ellipsis
// included.
func truncateSnippet(text string) string {
	if utf8.RuneCountInString(text) <= domain.MaxSnippetLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:domain.MaxSnippetLength-3]) + "..."
}

// runeBoundaryBefore moves a byte offset back to the nearest rune start.
func runeBoundaryBefore(s string, idx int) int {
	for idx > 0 && idx < len(s) && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}

// boldOccurrences wraps every case-insensitive occurrence of term in "**".
func boldOccurrences(snippet, term string) string {
	if term == "" {
		return snippet
	}

	var out strings.Builder
	lower := strings.ToLower(snippet)
	for pos := 0; pos < len(snippet); {
		idx := strings.Index(lower[pos:], term)
		if idx < 0 {
			out.WriteString(snippet[pos:])
			break
		}
		idx += pos
		out.WriteString(snippet[pos:idx])
		out.WriteString("**")
		out.WriteString(snippet[idx : idx+len(term)])
		out.WriteString("**")
		pos = idx + len(term)
	}
	return out.String()
}
