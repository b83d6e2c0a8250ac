package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/zcite-cli/internal/chunker"
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
	"github.com/custodia-labs/zcite-cli/internal/logger"
	"github.com/custodia-labs/zcite-cli/internal/textnorm"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the document ingestion pipeline: resolve extracted
// text (cached artifact or PDF download + OCR), optionally write the
// extraction back to the source, then persist the document and its chunks.
type IngestService struct {
	store    driven.VectorStore
	source   driven.ReferenceLibrary
	ocr      driven.OCRService
	settings driving.SettingsService

	// Status tracking
	mu     sync.RWMutex
	active map[string]*driving.IngestStatus
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	store driven.VectorStore,
	source driven.ReferenceLibrary,
	ocr driven.OCRService,
	settings driving.SettingsService,
) *IngestService {
	return &IngestService{
		store:    store,
		source:   source,
		ocr:      ocr,
		settings: settings,
		active:   make(map[string]*driving.IngestStatus),
	}
}

// AddLibrary registers a library record in the vector store. Documents and
// chunks are untouched.
func (s *IngestService) AddLibrary(ctx context.Context, lib driven.RemoteLibrary) error {
	return s.store.AddLibrary(ctx, domain.Library{
		ID:          lib.ID,
		Name:        lib.Name,
		Type:        lib.Type,
		SourceID:    lib.SourceID,
		Description: lib.Description,
	})
}

// IngestLibrary processes every document in a source library. Individual
// document failures are collected in the report; cancellation stops the
// run between documents.
func (s *IngestService) IngestLibrary(
	ctx context.Context, libType domain.LibraryType, libraryID string, opts driving.IngestOptions,
) (driving.IngestReport, error) {
	if !s.markRunning(libraryID) {
		return driving.IngestReport{}, fmt.Errorf("library %s: %w", libraryID, domain.ErrIngestInProgress)
	}
	defer s.markDone(libraryID)

	settings, err := s.settings.Get()
	if err != nil {
		return driving.IngestReport{}, fmt.Errorf("loading settings: %w", err)
	}

	logger.Section("Library Ingestion")
	logger.Info("Ingesting library %s", libraryID)

	docs, err := s.source.GetDocuments(ctx, libType, libraryID)
	if err != nil {
		return driving.IngestReport{}, fmt.Errorf("listing documents: %w", err)
	}
	if opts.Limit > 0 && len(docs) > opts.Limit {
		docs = docs[:opts.Limit]
	}

	report := driving.IngestReport{Total: len(docs)}
	split := s.newChunker(settings)

	workers := settings.Ingest.Workers
	if workers < 1 {
		workers = 1
	}

	type job struct {
		index int
		doc   driven.RemoteDocument
	}

	var (
		wg       sync.WaitGroup
		reportMu sync.Mutex
	)
	jobs := make(chan job)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue // drain remaining jobs after cancellation
				}

				err := s.ingestOne(ctx, j.doc, settings, split, func(stage string) {
					if opts.Progress != nil {
						opts.Progress(j.index, report.Total, j.doc.Title, stage)
					}
				})

				reportMu.Lock()
				if err != nil {
					title := j.doc.Title
					if title == "" {
						title = j.doc.SourceKey
					}
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", title, err))
				} else {
					report.Processed++
				}
				s.updateStatus(libraryID, report.Processed, len(report.Errors))
				reportMu.Unlock()
			}
		}()
	}

feed:
	for i, doc := range docs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- job{index: i, doc: doc}:
		}
	}
	close(jobs)
	wg.Wait()

	s.touchLibrary(ctx, libraryID)
	logger.Info("Ingested %d/%d documents (%d errors)", report.Processed, report.Total, len(report.Errors))

	return report, ctx.Err()
}

// IngestDocument processes a single document through the pipeline.
func (s *IngestService) IngestDocument(ctx context.Context, doc driven.RemoteDocument) error {
	settings, err := s.settings.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	return s.ingestOne(ctx, doc, settings, s.newChunker(settings), nil)
}

// Status reports the state of an ingestion for a library.
func (s *IngestService) Status(_ context.Context, libraryID string) (driving.IngestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if status, ok := s.active[libraryID]; ok {
		return *status, nil
	}
	return driving.IngestStatus{LibraryID: libraryID}, nil
}

// ingestOne runs the pipeline for a single document. progress may be nil.
func (s *IngestService) ingestOne(
	ctx context.Context,
	doc driven.RemoteDocument,
	settings domain.AppSettings,
	split *chunker.Chunker,
	progress func(stage string),
) error {
	report := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}
	report(driving.StageResolve)

	var text, versionHash string

	// Step 1: prefer the cached extraction artifact. The listing
	// already reports whether one exists, so documents without it skip
	// the lookup round-trip.
	if settings.OCR.UseCached && !settings.OCR.AlwaysRefresh && doc.HasCachedOCR {
		text, versionHash = s.cachedText(ctx, doc.SourceKey)
	}

	// Steps 2-4: download the PDF, extract, optionally write back.
	if strings.TrimSpace(text) == "" {
		report(driving.StageOCR)

		extracted, err := s.extractFromPDF(ctx, doc)
		if err != nil {
			return err
		}
		text = textnorm.Clean(extracted)
		versionHash = chunker.Hash(text)

		if settings.OCR.Store {
			if err := s.source.StoreOCRArtifact(ctx, doc.SourceKey, text); err != nil {
				// Write-back is an optimisation; the ingest itself
				// proceeds on local text.
				logger.Warn("Storing extraction artifact for %s failed: %v", doc.SourceKey, err)
			}
		}
	}

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text extracted for %s", doc.SourceKey)
	}
	if versionHash == "" {
		versionHash = chunker.Hash(text)
	}

	// Step 5: persist document and chunks.
	report(driving.StagePersist)

	if err := s.store.AddDocument(ctx, domain.Document{
		ID:              doc.ID,
		Title:           doc.Title,
		Authors:         doc.Authors,
		PublicationDate: doc.PublicationDate,
		DocumentType:    doc.DocumentType,
		LibraryID:       doc.LibraryID,
		SourceKey:       doc.SourceKey,
	}); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	chunks := split.Split(doc.ID, text, versionHash)
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks produced for %s", doc.SourceKey)
	}
	if err := s.store.AddChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}

	logger.Debug("Ingested %s: %d chunks", doc.ID, len(chunks))
	return nil
}

// cachedText fetches the stored extraction artifact, if any. Failures
// degrade to re-extraction rather than failing the document.
func (s *IngestService) cachedText(ctx context.Context, sourceKey string) (string, string) {
	att, err := s.source.FindOCRArtifact(ctx, sourceKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Looking up cached extraction for %s failed: %v", sourceKey, err)
		}
		return "", ""
	}

	text, versionHash, err := s.source.DownloadAndParseOCRArtifact(ctx, att)
	if err != nil {
		logger.Warn("Cached extraction for %s unreadable, re-extracting: %v", sourceKey, err)
		return "", ""
	}

	logger.Debug("Using cached extraction for %s", sourceKey)
	return text, versionHash
}

// extractFromPDF downloads the document's PDF to a temp file and runs text
// extraction on it. The temp file is removed on every path.
func (s *IngestService) extractFromPDF(ctx context.Context, doc driven.RemoteDocument) (string, error) {
	att, err := s.source.GetPDFAttachment(ctx, doc.SourceKey)
	if err != nil {
		return "", fmt.Errorf("resolving PDF: %w", err)
	}

	tmp, err := os.CreateTemp("", "zcite-*.pdf")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := s.source.DownloadPDF(ctx, att, path); err != nil {
		return "", fmt.Errorf("downloading PDF: %w", err)
	}

	text, err := s.ocr.ProcessDocument(ctx, path)
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	return text, nil
}

func (s *IngestService) newChunker(settings domain.AppSettings) *chunker.Chunker {
	return chunker.New(
		chunker.WithChunkSize(settings.Chunk.Size),
		chunker.WithOverlap(settings.Chunk.Overlap),
	)
}

// markRunning records an active ingestion; returns false when one is
// already running for the library.
func (s *IngestService) markRunning(libraryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.active[libraryID]; ok && status.Running {
		return false
	}
	s.active[libraryID] = &driving.IngestStatus{LibraryID: libraryID, Running: true}
	return true
}

func (s *IngestService) markDone(libraryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.active[libraryID]; ok {
		status.Running = false
	}
}

func (s *IngestService) updateStatus(libraryID string, processed, errCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.active[libraryID]; ok {
		status.Processed = processed
		status.Errors = errCount
	}
}

// touchLibrary stamps the library's last sync time. Best effort.
func (s *IngestService) touchLibrary(ctx context.Context, libraryID string) {
	libs, err := s.store.GetLibraries(ctx)
	if err != nil {
		return
	}
	for _, lib := range libs {
		if lib.ID == libraryID {
			lib.LastSyncAt = time.Now().UTC()
			if err := s.store.AddLibrary(ctx, lib); err != nil {
				logger.Debug("Updating last sync time for %s failed: %v", libraryID, err)
			}
			return
		}
	}
}
