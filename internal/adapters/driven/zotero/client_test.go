package zotero

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/zcite-cli/internal/artifact"
	"github.com/custodia-labs/zcite-cli/internal/chunker"
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

func serveKeyInfo(mux *http.ServeMux, userID int64, username string) {
	mux.HandleFunc("/keys/current", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"userID":   userID,
			"username": username,
		})
	})
}

func TestTestConnection(t *testing.T) {
	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	client := newTestClient(t, mux)

	assert.True(t, client.TestConnection(context.Background()))
}

func TestTestConnection_BadKey(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/keys/current", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	client := newTestClient(t, mux)

	assert.False(t, client.TestConnection(context.Background()))
}

func TestGetLibraries(t *testing.T) {
	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	mux.HandleFunc("/users/7/groups", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Zotero-API-Key"))
		assert.Equal(t, "3", r.Header.Get("Zotero-API-Version"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 5140532, "data": map[string]any{"name": "Climate Group", "description": "Shared papers"}},
		})
	})
	client := newTestClient(t, mux)

	libs, err := client.GetLibraries(context.Background())
	require.NoError(t, err)
	require.Len(t, libs, 2)

	assert.Equal(t, "user_7", libs[0].ID)
	assert.Equal(t, domain.LibraryTypePersonal, libs[0].Type)
	assert.Equal(t, "jane's Library", libs[0].Name)

	assert.Equal(t, "group_5140532", libs[1].ID)
	assert.Equal(t, "Climate Group", libs[1].Name)
	assert.Equal(t, domain.LibraryTypeShared, libs[1].Type)
	assert.Equal(t, "5140532", libs[1].SourceID)
}

func TestGetDocuments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/5140532/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-attachment", r.URL.Query().Get("itemType"))
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"key":     "ABCD1234",
				"version": 10,
				"data": map[string]any{
					"key":      "ABCD1234",
					"itemType": "journalArticle",
					"title":    "Sea Level Rise",
					"date":     "2024-03",
					"creators": []map[string]any{
						{"creatorType": "author", "firstName": "Jane", "lastName": "Doe"},
						{"creatorType": "author", "name": "IPCC Working Group"},
					},
				},
			},
			{
				"key":  "NOTE0001",
				"data": map[string]any{"key": "NOTE0001", "itemType": "note"},
			},
		})
	})
	serveChildren(mux, "/groups/5140532/items/ABCD1234/children", []map[string]any{
		{
			"key": "PDF1",
			"data": map[string]any{
				"key": "PDF1", "itemType": "attachment",
				"contentType": "application/pdf", "filename": "paper.pdf",
			},
		},
	})
	client := newTestClient(t, mux)

	docs, err := client.GetDocuments(context.Background(), domain.LibraryTypeShared, "group_5140532")
	require.NoError(t, err)
	require.Len(t, docs, 1, "notes are skipped")

	doc := docs[0]
	assert.Equal(t, "doc_ABCD1234", doc.ID)
	assert.Equal(t, "ABCD1234", doc.SourceKey)
	assert.Equal(t, "Sea Level Rise", doc.Title)
	assert.Equal(t, []string{"Jane Doe", "IPCC Working Group"}, doc.Authors)
	assert.Equal(t, "2024-03", doc.PublicationDate)
	assert.Equal(t, "journalArticle", doc.DocumentType)
	assert.Equal(t, "group_5140532", doc.LibraryID)
	assert.False(t, doc.HasCachedOCR)
}

func TestGetDocumentsRequiresPDFAttachment(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups/5140532/items", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"key":  "TEXTONLY",
				"data": map[string]any{"key": "TEXTONLY", "itemType": "journalArticle", "title": "No PDF"},
			},
			{
				"key":  "WITHPDF",
				"data": map[string]any{"key": "WITHPDF", "itemType": "book", "title": "Has PDF"},
			},
		})
	})
	// Only a cached extraction artifact, no PDF: not ingestable.
	serveChildren(mux, "/groups/5140532/items/TEXTONLY/children", []map[string]any{
		{
			"key": "ART1",
			"data": map[string]any{
				"key": "ART1", "itemType": "attachment",
				"contentType": "text/plain", "filename": "z-cite-ocr.txt",
			},
		},
	})
	serveChildren(mux, "/groups/5140532/items/WITHPDF/children", []map[string]any{
		{
			"key": "PDF1",
			"data": map[string]any{
				"key": "PDF1", "itemType": "attachment",
				"contentType": "application/pdf", "filename": "book.pdf",
			},
		},
		{
			"key": "ART2",
			"data": map[string]any{
				"key": "ART2", "itemType": "attachment",
				"contentType": "text/plain", "filename": "z-cite-ocr.txt",
			},
		},
	})
	client := newTestClient(t, mux)

	docs, err := client.GetDocuments(context.Background(), domain.LibraryTypeShared, "group_5140532")
	require.NoError(t, err)
	require.Len(t, docs, 1, "items without a PDF are excluded")
	assert.Equal(t, "WITHPDF", docs[0].SourceKey)
	assert.True(t, docs[0].HasCachedOCR)
}

func serveChildren(mux *http.ServeMux, path string, children []map[string]any) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(children)
	})
}

func TestFindOCRArtifact(t *testing.T) {
	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	serveChildren(mux, "/users/7/items/ITEM1/children", []map[string]any{
		{
			"key": "PDF1",
			"data": map[string]any{
				"key": "PDF1", "itemType": "attachment",
				"contentType": "application/pdf", "filename": "paper.pdf",
			},
		},
		{
			"key": "ART1",
			"data": map[string]any{
				"key": "ART1", "itemType": "attachment",
				"contentType": artifact.ContentType, "filename": artifact.Filename,
			},
		},
	})
	client := newTestClient(t, mux)

	att, err := client.FindOCRArtifact(context.Background(), "ITEM1")
	require.NoError(t, err)
	assert.Equal(t, "ART1", att.Key)
	assert.Equal(t, artifact.Filename, att.Filename)
}

func TestFindOCRArtifact_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	serveChildren(mux, "/users/7/items/ITEM1/children", []map[string]any{})
	client := newTestClient(t, mux)

	_, err := client.FindOCRArtifact(context.Background(), "ITEM1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDownloadAndParseOCRArtifact(t *testing.T) {
	text := "Extracted page text.\fSecond page."
	hash := chunker.Hash(text)
	content := artifact.Encode(text, hash, "ITEM1", time.Now().UTC())

	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	mux.HandleFunc("/users/7/items/ART1/file", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	})
	client := newTestClient(t, mux)

	gotText, gotHash, err := client.DownloadAndParseOCRArtifact(context.Background(),
		&driven.Attachment{Key: "ART1", Filename: artifact.Filename, ContentType: artifact.ContentType})
	require.NoError(t, err)
	assert.Equal(t, text, gotText)
	assert.Equal(t, hash, gotHash)
}

func TestGetPDFAttachment_NoAttachment(t *testing.T) {
	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	serveChildren(mux, "/users/7/items/ITEM1/children", []map[string]any{
		{
			"key": "TXT1",
			"data": map[string]any{
				"key": "TXT1", "itemType": "attachment",
				"contentType": "text/plain", "filename": "readme.txt",
			},
		},
	})
	client := newTestClient(t, mux)

	_, err := client.GetPDFAttachment(context.Background(), "ITEM1")
	assert.ErrorIs(t, err, domain.ErrNoAttachment)
}

func TestDownloadPDF(t *testing.T) {
	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	mux.HandleFunc("/users/7/items/PDF1/file", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 fake"))
	})
	client := newTestClient(t, mux)

	dest := filepath.Join(t.TempDir(), "paper.pdf")
	err := client.DownloadPDF(context.Background(),
		&driven.Attachment{Key: "PDF1", Filename: "paper.pdf", ContentType: "application/pdf"}, dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))
}

func TestStoreOCRArtifact(t *testing.T) {
	var (
		itemCreated bool
		uploaded    string
		registered  bool
	)

	mux := http.NewServeMux()
	serveKeyInfo(mux, 7, "jane")
	serveChildren(mux, "/users/7/items/ITEM1/children", []map[string]any{})

	var serverURL string
	mux.HandleFunc("/users/7/items", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var payload []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload, 1)
		assert.Equal(t, "attachment", payload[0]["itemType"])
		assert.Equal(t, "ITEM1", payload[0]["parentItem"])
		assert.Equal(t, artifact.Filename, payload[0]["filename"])

		itemCreated = true
		json.NewEncoder(w).Encode(map[string]any{
			"successful": map[string]any{"0": map[string]any{"key": "ART1"}},
		})
	})
	mux.HandleFunc("/users/7/items/ART1/file", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "*", r.Header.Get("If-None-Match"))

		if r.PostForm.Get("upload") != "" {
			registered = true
			w.WriteHeader(http.StatusNoContent)
			return
		}

		assert.Equal(t, artifact.Filename, r.PostForm.Get("filename"))
		assert.NotEmpty(t, r.PostForm.Get("md5"))
		json.NewEncoder(w).Encode(map[string]any{
			"url":         serverURL + "/storage",
			"contentType": artifact.ContentType,
			"prefix":      "",
			"suffix":      "",
			"uploadKey":   "uk1",
		})
	})
	mux.HandleFunc("/storage", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		uploaded = string(body)
		w.WriteHeader(http.StatusCreated)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	serverURL = server.URL
	client := NewClient("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	err := client.StoreOCRArtifact(context.Background(), "ITEM1", "Extracted text body.")
	require.NoError(t, err)

	assert.True(t, itemCreated)
	assert.True(t, registered)

	gotText, gotHash := artifact.Parse(uploaded)
	assert.Equal(t, "Extracted text body.", gotText)
	assert.Equal(t, chunker.Hash("Extracted text body."), gotHash)
}
