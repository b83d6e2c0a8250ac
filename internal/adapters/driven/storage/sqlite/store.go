package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/zcite-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

// Store is a SQLite-backed vector store. It holds the three collections
// (libraries, documents, chunks) and embeds chunk text at write time with
// the injected embedding service.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingService
}

var _ driven.VectorStore = (*Store)(nil)

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.zcite/data.
func NewStore(dataDir string, embedder driven.EmbeddingService) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".zcite", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "zcite.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:       db,
		path:     dbPath,
		embedder: embedder,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// AddLibrary stores or updates a library record.
func (s *Store) AddLibrary(ctx context.Context, lib domain.Library) error {
	if lib.ID == "" {
		return fmt.Errorf("library id is empty: %w", domain.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO libraries (id, name, type, source_id, description, auto_update, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			source_id = excluded.source_id,
			description = excluded.description,
			auto_update = excluded.auto_update,
			last_sync_at = excluded.last_sync_at
	`, lib.ID, lib.Name, string(lib.Type), lib.SourceID, lib.Description,
		lib.AutoUpdate, nullTime(lib.LastSyncAt))

	if err != nil {
		return fmt.Errorf("saving library: %w", err)
	}
	return nil
}

// AddDocument stores or updates a document record.
func (s *Store) AddDocument(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document id is empty: %w", domain.ErrInvalidInput)
	}

	authorsJSON, err := json.Marshal(doc.Authors)
	if err != nil {
		return fmt.Errorf("marshalling authors: %w", err)
	}
	extraJSON, err := json.Marshal(doc.Extra)
	if err != nil {
		return fmt.Errorf("marshalling extra: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, authors, publication_date, document_type, library_id, source_key, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			authors = excluded.authors,
			publication_date = excluded.publication_date,
			document_type = excluded.document_type,
			library_id = excluded.library_id,
			source_key = excluded.source_key,
			extra = excluded.extra
	`, doc.ID, doc.Title, string(authorsJSON), doc.PublicationDate,
		doc.DocumentType, doc.LibraryID, doc.SourceKey, string(extraJSON))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// AddChunks embeds each chunk's text and stores or updates the chunk rows
// in a single transaction.
func (s *Store) AddChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			return fmt.Errorf("chunk %s has empty text: %w", chunk.ID, domain.ErrInvalidInput)
		}
		if err := s.documentExists(ctx, chunk.DocumentID); err != nil {
			return err
		}
		texts[i] = chunk.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks: %w",
			len(embeddings), len(chunks), domain.ErrEmbeddingUnavailable)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, text, page_number, section, version_hash, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			text = excluded.text,
			page_number = excluded.page_number,
			section = excluded.section,
			version_hash = excluded.version_hash,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, chunk := range chunks {
		embeddingBlob := float32SliceToBytes(embeddings[i])

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Text,
			chunk.PageNumber, chunk.Section, chunk.VersionHash, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SearchChunks embeds the query and brute-force scans candidate chunk rows,
// returning those with similarity >= threshold joined with parent document
// metadata, sorted by similarity descending.
func (s *Store) SearchChunks(
	ctx context.Context, query string, limit int, threshold float64, libraryIDs []string,
) ([]domain.SearchResult, error) {
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	// An empty scope means no filter; a non-empty scope restricts the
	// join to documents in those libraries, and matching nothing simply
	// yields zero rows.
	sqlQuery := `
		SELECT c.id, c.document_id, c.text, c.page_number, c.section, c.embedding,
			d.title, d.authors, d.publication_date, d.document_type, d.library_id, d.source_key, d.extra
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
	`
	var args []any
	if len(libraryIDs) > 0 {
		placeholders := strings.Repeat("?,", len(libraryIDs))
		sqlQuery += " WHERE d.library_id IN (" + placeholders[:len(placeholders)-1] + ")"
		for _, id := range libraryIDs {
			args = append(args, id)
		}
	}
	sqlQuery += " ORDER BY c.rowid"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	if limit < 0 {
		limit = 0
	}
	results := make([]domain.SearchResult, 0, limit)
	for rows.Next() {
		var (
			result        domain.SearchResult
			embeddingBlob []byte
			authorsJSON   string
			extraJSON     string
		)
		if err := rows.Scan(&result.ChunkID, &result.DocumentID, &result.Text,
			&result.PageNumber, &result.Section, &embeddingBlob,
			&result.Document.Title, &authorsJSON, &result.Document.PublicationDate,
			&result.Document.DocumentType, &result.Document.LibraryID,
			&result.Document.SourceKey, &extraJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		result.Document.ID = result.DocumentID
		if err := json.Unmarshal([]byte(authorsJSON), &result.Document.Authors); err != nil {
			return nil, fmt.Errorf("unmarshaling authors: %w", err)
		}
		if err := json.Unmarshal([]byte(extraJSON), &result.Document.Extra); err != nil {
			return nil, fmt.Errorf("unmarshaling extra: %w", err)
		}

		result.Similarity = cosineSimilarity(queryVec, bytesToFloat32Slice(embeddingBlob))
		if result.Similarity < threshold {
			continue
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetLibraries returns all library records.
func (s *Store) GetLibraries(ctx context.Context) ([]domain.Library, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, source_id, description, auto_update, last_sync_at
		FROM libraries ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying libraries: %w", err)
	}
	defer rows.Close()

	libs := []domain.Library{}
	for rows.Next() {
		var lib domain.Library
		var libType string
		var lastSync sql.NullTime
		if err := rows.Scan(&lib.ID, &lib.Name, &libType, &lib.SourceID,
			&lib.Description, &lib.AutoUpdate, &lastSync); err != nil {
			return nil, fmt.Errorf("scanning library: %w", err)
		}
		lib.Type = domain.LibraryType(libType)
		if lastSync.Valid {
			lib.LastSyncAt = lastSync.Time
		}
		libs = append(libs, lib)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating libraries: %w", err)
	}

	return libs, nil
}

// GetDocuments returns document records, optionally scoped to a library.
func (s *Store) GetDocuments(ctx context.Context, libraryID string) ([]domain.Document, error) {
	sqlQuery := `
		SELECT id, title, authors, publication_date, document_type, library_id, source_key, extra
		FROM documents
	`
	var args []any
	if libraryID != "" {
		sqlQuery += " WHERE library_id = ?"
		args = append(args, libraryID)
	}
	sqlQuery += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var doc domain.Document
		var authorsJSON, extraJSON string
		if err := rows.Scan(&doc.ID, &doc.Title, &authorsJSON, &doc.PublicationDate,
			&doc.DocumentType, &doc.LibraryID, &doc.SourceKey, &extraJSON); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(authorsJSON), &doc.Authors); err != nil {
			return nil, fmt.Errorf("unmarshaling authors: %w", err)
		}
		if err := json.Unmarshal([]byte(extraJSON), &doc.Extra); err != nil {
			return nil, fmt.Errorf("unmarshaling extra: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// Statistics returns collection counts.
func (s *Store) Statistics(ctx context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM libraries),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks)
	`)
	if err := row.Scan(&stats.Libraries, &stats.Documents, &stats.Chunks); err != nil {
		return domain.Statistics{}, fmt.Errorf("counting collections: %w", err)
	}
	return stats, nil
}

// documentExists returns ErrNotFound when no document row has the given ID.
func (s *Store) documentExists(ctx context.Context, id string) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE id = ?", id).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking document: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity returns the cosine similarity of two vectors clamped to
// [0,1]. Anti-correlated vectors clamp to zero rather than going negative.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
