package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
	"github.com/custodia-labs/zcite-cli/internal/logger"
)

// Ensure LibraryService implements the interface.
var _ driving.LibraryService = (*LibraryService)(nil)

// LibraryService manages imported libraries and store statistics.
type LibraryService struct {
	store    driven.VectorStore
	source   driven.ReferenceLibrary
	settings driving.SettingsService
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	store driven.VectorStore,
	source driven.ReferenceLibrary,
	settings driving.SettingsService,
) *LibraryService {
	return &LibraryService{
		store:    store,
		source:   source,
		settings: settings,
	}
}

// List returns the libraries recorded in the vector store.
func (s *LibraryService) List(ctx context.Context) ([]domain.Library, error) {
	libs, err := s.store.GetLibraries(ctx)
	if err != nil {
		if s.strict() {
			return nil, fmt.Errorf("listing libraries: %w", err)
		}
		logger.Warn("Listing libraries failed, returning none: %v", err)
		return []domain.Library{}, nil
	}
	return libs, nil
}

// ListRemote returns the libraries visible in the source system, with the
// configured default group marked.
func (s *LibraryService) ListRemote(ctx context.Context) ([]driven.RemoteLibrary, error) {
	libs, err := s.source.GetLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing remote libraries: %w", err)
	}

	defaultID := ""
	if settings, err := s.settings.Get(); err == nil && settings.Source.DefaultGroup != "" {
		defaultID = "group_" + settings.Source.DefaultGroup
	}

	marked := false
	for i := range libs {
		if defaultID != "" && libs[i].ID == defaultID {
			libs[i].IsDefault = true
			marked = true
		}
	}
	// With no configured group the personal library is the default.
	if !marked {
		for i := range libs {
			if libs[i].Type == domain.LibraryTypePersonal {
				libs[i].IsDefault = true
				break
			}
		}
	}

	return libs, nil
}

// Statistics returns collection counts for the store.
func (s *LibraryService) Statistics(ctx context.Context) (domain.Statistics, error) {
	stats, err := s.store.Statistics(ctx)
	if err != nil {
		if s.strict() {
			return domain.Statistics{}, fmt.Errorf("reading statistics: %w", err)
		}
		logger.Warn("Reading statistics failed, returning zeros: %v", err)
		return domain.Statistics{}, nil
	}
	return stats, nil
}

// TestConnection verifies the source system is reachable.
func (s *LibraryService) TestConnection(ctx context.Context) bool {
	return s.source.TestConnection(ctx)
}

func (s *LibraryService) strict() bool {
	settings, err := s.settings.Get()
	if err != nil {
		return false
	}
	return settings.StrictErrors
}
