package tui

import (
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

// searchCompleted carries formatted search results back to the model.
type searchCompleted struct {
	query   string
	results []domain.FormattedResult
	err     error
}

// statsLoaded carries index statistics for the status bar.
type statsLoaded struct {
	stats domain.Statistics
	err   error
}
