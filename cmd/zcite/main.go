// Command zcite is a semantic search CLI for personal reference libraries.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/embedding"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/ocr/gemini"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/zotero"
	"github.com/custodia-labs/zcite-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/zcite-cli/internal/core/services"
)

// version is overridden by the linker in release builds.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	embedder, err := embedding.New(settings.Embedding)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	store, err := sqlite.NewStore(settings.StorePath, embedder)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	source := zotero.NewClient(settings.Source.APIKey)
	ocr := gemini.NewService(settings.OCR.APIKey)

	searchService := services.NewSearchService(store, settings.StrictErrors)
	ingestService := services.NewIngestService(store, source, ocr, settingsService)
	libraryService := services.NewLibraryService(store, source, settingsService)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Search:   searchService,
		Ingest:   ingestService,
		Library:  libraryService,
		Settings: settingsService,
	})

	return cli.Execute()
}
