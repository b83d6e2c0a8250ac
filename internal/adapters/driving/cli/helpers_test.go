package cli

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
)

// cliSearchMock implements driving.SearchService with canned results.
type cliSearchMock struct {
	results []domain.SearchResult
	err     error
	queries []string
	opts    []domain.SearchOptions
}

func (m *cliSearchMock) Search(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.queries = append(m.queries, query)
	m.opts = append(m.opts, opts)
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *cliSearchMock) FormatResults(results []domain.SearchResult) []domain.FormattedResult {
	out := make([]domain.FormattedResult, len(results))
	for i, r := range results {
		title := r.Document.Title
		if title == "" {
			title = domain.UntitledDocument
		}
		authors := strings.Join(r.Document.Authors, ", ")
		if authors == "" {
			authors = domain.UnknownAuthor
		}
		out[i] = domain.FormattedResult{
			Title:      title,
			Authors:    authors,
			Similarity: int(r.Similarity * 100),
			Text:       r.Text,
			DocumentID: r.DocumentID,
			ChunkID:    r.ChunkID,
			Metadata: domain.ResultMetadata{
				PageNumber: r.PageNumber,
				Section:    r.Section,
			},
		}
	}
	return out
}

func (m *cliSearchMock) Highlight(text, _ string) string { return text }

// cliIngestMock implements driving.IngestService.
type cliIngestMock struct {
	added  []driven.RemoteLibrary
	report driving.IngestReport
	err    error
}

func (m *cliIngestMock) AddLibrary(_ context.Context, lib driven.RemoteLibrary) error {
	m.added = append(m.added, lib)
	return nil
}

func (m *cliIngestMock) IngestLibrary(
	_ context.Context, _ domain.LibraryType, _ string, opts driving.IngestOptions,
) (driving.IngestReport, error) {
	if m.err != nil {
		return driving.IngestReport{}, m.err
	}
	if opts.Progress != nil {
		for i := 0; i < m.report.Total; i++ {
			opts.Progress(i, m.report.Total, "Doc", driving.StagePersist)
		}
	}
	return m.report, nil
}

func (m *cliIngestMock) IngestDocument(_ context.Context, _ driven.RemoteDocument) error {
	return nil
}

func (m *cliIngestMock) Status(_ context.Context, libraryID string) (driving.IngestStatus, error) {
	return driving.IngestStatus{LibraryID: libraryID}, nil
}

// cliLibraryMock implements driving.LibraryService.
type cliLibraryMock struct {
	libraries []domain.Library
	remote    []driven.RemoteLibrary
	stats     domain.Statistics
	connected bool
}

func (m *cliLibraryMock) List(_ context.Context) ([]domain.Library, error) {
	return m.libraries, nil
}

func (m *cliLibraryMock) ListRemote(_ context.Context) ([]driven.RemoteLibrary, error) {
	return m.remote, nil
}

func (m *cliLibraryMock) Statistics(_ context.Context) (domain.Statistics, error) {
	return m.stats, nil
}

func (m *cliLibraryMock) TestConnection(_ context.Context) bool { return m.connected }

// cliSettingsMock implements driving.SettingsService.
type cliSettingsMock struct {
	settings domain.AppSettings
	saved    []domain.AppSettings
}

func (m *cliSettingsMock) Get() (domain.AppSettings, error) { return m.settings, nil }

func (m *cliSettingsMock) Save(settings domain.AppSettings) error {
	m.saved = append(m.saved, settings)
	m.settings = settings
	return nil
}

// testServices bundles the mocks wired by setupTestServices.
type testServices struct {
	search   *cliSearchMock
	ingest   *cliIngestMock
	library  *cliLibraryMock
	settings *cliSettingsMock
}

// setupTestServices replaces the package services with mocks and returns
// them with a cleanup that restores the previous wiring.
func setupTestServices() (*testServices, func()) {
	services := &testServices{
		search: &cliSearchMock{},
		ingest: &cliIngestMock{},
		library: &cliLibraryMock{
			libraries: []domain.Library{
				{ID: "group_1", Name: "Lab", Type: domain.LibraryTypeShared, LastSyncAt: time.Now()},
			},
			remote: []driven.RemoteLibrary{
				{ID: "user_1", Name: "My Library", Type: domain.LibraryTypePersonal, IsDefault: true},
				{ID: "group_1", Name: "Lab", Type: domain.LibraryTypeShared},
			},
			stats:     domain.Statistics{Libraries: 1, Documents: 2, Chunks: 3},
			connected: true,
		},
		settings: &cliSettingsMock{settings: domain.DefaultAppSettings()},
	}

	oldSearch, oldIngest := searchService, ingestService
	oldLibrary, oldSettings := libraryService, settingsService

	SetServices(Services{
		Search:   services.search,
		Ingest:   services.ingest,
		Library:  services.library,
		Settings: services.settings,
	})

	return services, func() {
		searchService, ingestService = oldSearch, oldIngest
		libraryService, settingsService = oldLibrary, oldSettings
	}
}
