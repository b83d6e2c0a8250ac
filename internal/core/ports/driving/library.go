package driving

import (
	"context"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

// LibraryService manages imported libraries and store statistics.
type LibraryService interface {
	// List returns the libraries recorded in the vector store.
	List(ctx context.Context) ([]domain.Library, error)

	// ListRemote returns the libraries visible in the source system.
	ListRemote(ctx context.Context) ([]driven.RemoteLibrary, error)

	// Statistics returns collection counts for the store.
	Statistics(ctx context.Context) (domain.Statistics, error)

	// TestConnection verifies the source system is reachable.
	TestConnection(ctx context.Context) bool
}

// SettingsService loads and persists application settings.
type SettingsService interface {
	// Get retrieves current settings with defaults applied.
	Get() (domain.AppSettings, error)

	// Save persists settings.
	Save(settings domain.AppSettings) error
}
