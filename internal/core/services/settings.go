package services

import (
	"fmt"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Configuration keys. Dotted names map to TOML tables.
const (
	KeyChunkSize         = "chunk.size"
	KeyChunkOverlap      = "chunk.overlap"
	KeyOCRStore          = "ocr.store"
	KeyOCRUseCached      = "ocr.use_cached"
	KeyOCRAlwaysRefresh  = "ocr.always_refresh"
	KeyOCRAPIKey         = "ocr.api_key"
	KeySearchThreshold   = "search.threshold"
	KeySearchLimit       = "search.limit"
	KeySearchLibraries   = "search.libraries"
	KeyEmbeddingProvider = "embedding.provider"
	KeyEmbeddingModel    = "embedding.model"
	KeyEmbeddingBaseURL  = "embedding.base_url"
	KeyEmbeddingAPIKey   = "embedding.api_key"
	KeyZoteroAPIKey      = "zotero.api_key"
	KeyZoteroGroup       = "zotero.default_group"
	KeyIngestWorkers     = "ingest.workers"
	KeyStorePath         = "store.path"
	KeyStrictErrors      = "strict_errors"
)

// SettingsService loads and persists application settings through the
// config store, applying documented defaults for unset keys.
type SettingsService struct {
	config driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(config driven.ConfigStore) *SettingsService {
	return &SettingsService{config: config}
}

// Get retrieves current settings with defaults applied.
func (s *SettingsService) Get() (domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	if v, ok := s.config.Get(KeyChunkSize); ok {
		settings.Chunk.Size = asInt(v, settings.Chunk.Size)
	}
	if v, ok := s.config.Get(KeyChunkOverlap); ok {
		settings.Chunk.Overlap = asInt(v, settings.Chunk.Overlap)
	}
	if v, ok := s.config.Get(KeyOCRStore); ok {
		settings.OCR.Store = asBool(v, settings.OCR.Store)
	}
	if v, ok := s.config.Get(KeyOCRUseCached); ok {
		settings.OCR.UseCached = asBool(v, settings.OCR.UseCached)
	}
	if v, ok := s.config.Get(KeyOCRAlwaysRefresh); ok {
		settings.OCR.AlwaysRefresh = asBool(v, settings.OCR.AlwaysRefresh)
	}
	settings.OCR.APIKey = s.config.GetString(KeyOCRAPIKey)
	if _, ok := s.config.Get(KeySearchThreshold); ok {
		settings.Search.Threshold = s.config.GetFloat(KeySearchThreshold)
	}
	if v, ok := s.config.Get(KeySearchLimit); ok {
		settings.Search.Limit = asInt(v, settings.Search.Limit)
	}
	if _, ok := s.config.Get(KeySearchLibraries); ok {
		settings.Search.LibraryIDs = s.config.GetStringSlice(KeySearchLibraries)
	}
	if provider := s.config.GetString(KeyEmbeddingProvider); provider != "" {
		settings.Embedding.Provider = domain.EmbeddingProvider(provider)
	}
	settings.Embedding.Model = s.config.GetString(KeyEmbeddingModel)
	settings.Embedding.BaseURL = s.config.GetString(KeyEmbeddingBaseURL)
	settings.Embedding.APIKey = s.config.GetString(KeyEmbeddingAPIKey)
	settings.Source.APIKey = s.config.GetString(KeyZoteroAPIKey)
	settings.Source.DefaultGroup = s.config.GetString(KeyZoteroGroup)
	if v, ok := s.config.Get(KeyIngestWorkers); ok {
		settings.Ingest.Workers = asInt(v, settings.Ingest.Workers)
	}
	settings.StorePath = s.config.GetString(KeyStorePath)
	if v, ok := s.config.Get(KeyStrictErrors); ok {
		settings.StrictErrors = asBool(v, settings.StrictErrors)
	}

	if !settings.Embedding.Provider.IsValid() {
		return settings, fmt.Errorf("embedding provider %q: %w",
			settings.Embedding.Provider, domain.ErrInvalidInput)
	}

	return settings, nil
}

// Save persists settings.
func (s *SettingsService) Save(settings domain.AppSettings) error {
	if !settings.Embedding.Provider.IsValid() {
		return fmt.Errorf("embedding provider %q: %w",
			settings.Embedding.Provider, domain.ErrInvalidInput)
	}

	values := map[string]any{
		KeyChunkSize:         settings.Chunk.Size,
		KeyChunkOverlap:      settings.Chunk.Overlap,
		KeyOCRStore:          settings.OCR.Store,
		KeyOCRUseCached:      settings.OCR.UseCached,
		KeyOCRAlwaysRefresh:  settings.OCR.AlwaysRefresh,
		KeyOCRAPIKey:         settings.OCR.APIKey,
		KeySearchThreshold:   settings.Search.Threshold,
		KeySearchLimit:       settings.Search.Limit,
		KeySearchLibraries:   settings.Search.LibraryIDs,
		KeyEmbeddingProvider: settings.Embedding.Provider.String(),
		KeyEmbeddingModel:    settings.Embedding.Model,
		KeyEmbeddingBaseURL:  settings.Embedding.BaseURL,
		KeyEmbeddingAPIKey:   settings.Embedding.APIKey,
		KeyZoteroAPIKey:      settings.Source.APIKey,
		KeyZoteroGroup:       settings.Source.DefaultGroup,
		KeyIngestWorkers:     settings.Ingest.Workers,
		KeyStorePath:         settings.StorePath,
		KeyStrictErrors:      settings.StrictErrors,
	}

	for key, value := range values {
		if err := s.config.Set(key, value); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}
	return nil
}

// asInt normalises the int64 values TOML produces.
func asInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	default:
		return fallback
	}
}

func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}
