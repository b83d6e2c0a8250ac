// Package embedding constructs embedding services from settings.
package embedding

import (
	"fmt"

	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

// New creates the embedding service selected by settings.
// The returned instance is shared between the vector store's write and
// query paths; callers must not construct a second one with different
// settings while a store is open.
func New(settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	switch settings.Provider {
	case domain.ProviderLocal, "":
		return local.NewEmbeddingService(0), nil

	case domain.ProviderOllama:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.ProviderOpenAI:
		return openai.NewEmbeddingService(openai.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, settings.Provider)
	}
}
