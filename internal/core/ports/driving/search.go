package driving

import (
	"context"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

// SearchService executes semantic queries and shapes results for display.
type SearchService interface {
	// Search returns scored chunks sorted by similarity descending.
	// Ties keep the store-returned order.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// FormatResults projects raw results into their presentation shape.
	// Pure function: no I/O, no side effects.
	FormatResults(results []domain.SearchResult) []domain.FormattedResult

	// Highlight returns a window of text around the first query-term
	// match with the terms wrapped in bold markers.
	Highlight(text, query string) string
}
