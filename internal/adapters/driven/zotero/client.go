package zotero

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // the upload API requires an MD5 content digest
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/zcite-cli/internal/artifact"
	"github.com/custodia-labs/zcite-cli/internal/chunker"
	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/logger"
)

const (
	// DefaultBaseURL is the Zotero Web API endpoint.
	DefaultBaseURL = "https://api.zotero.org"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// apiVersion is the Zotero-API-Version header value.
	apiVersion = "3"

	// pageSize is the item page size for listing requests.
	pageSize = 100
)

// Client implements driven.ReferenceLibrary against the Zotero Web API.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	rateLimiter *RateLimiter

	mu       sync.Mutex
	userID   string
	username string
	// prefixes maps item keys seen during listing to their library's
	// API path prefix, so per-item calls know which library to hit.
	prefixes map[string]string
}

var _ driven.ReferenceLibrary = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

// NewClient creates a new Zotero API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		http:        &http.Client{Timeout: DefaultTimeout},
		rateLimiter: NewRateLimiter(),
		prefixes:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ==================== API wire types ====================

type keyInfo struct {
	UserID   int64  `json:"userID"`
	Username string `json:"username"`
}

type group struct {
	ID   int64     `json:"id"`
	Data groupData `json:"data"`
}

type groupData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type item struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    itemData `json:"data"`
}

type itemData struct {
	Key         string    `json:"key"`
	ItemType    string    `json:"itemType"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	ContentType string    `json:"contentType"`
	Filename    string    `json:"filename"`
	ParentItem  string    `json:"parentItem"`
	Creators    []creator `json:"creators"`
}

type creator struct {
	CreatorType string `json:"creatorType"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Name        string `json:"name"`
}

func (c creator) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	return name
}

// ==================== ReferenceLibrary ====================

// TestConnection verifies the API is reachable and the key is valid.
func (c *Client) TestConnection(ctx context.Context) bool {
	if err := c.ensureIdentity(ctx); err != nil {
		logger.Debug("Zotero connection test failed: %v", err)
		return false
	}
	return true
}

// GetLibraries lists the personal library and all group libraries
// accessible to the API key.
func (c *Client) GetLibraries(ctx context.Context) ([]driven.RemoteLibrary, error) {
	if err := c.ensureIdentity(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	userID := c.userID
	username := c.username
	c.mu.Unlock()

	name := "My Library"
	if username != "" {
		name = username + "'s Library"
	}
	libs := []driven.RemoteLibrary{{
		ID:       "user_" + userID,
		Name:     name,
		Type:     domain.LibraryTypePersonal,
		SourceID: userID,
	}}

	var groups []group
	if err := c.getJSON(ctx, "/users/"+userID+"/groups", &groups); err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}

	for _, g := range groups {
		sourceID := strconv.FormatInt(g.ID, 10)
		libs = append(libs, driven.RemoteLibrary{
			ID:          "group_" + sourceID,
			Name:        g.Data.Name,
			Type:        domain.LibraryTypeShared,
			SourceID:    sourceID,
			Description: g.Data.Description,
		})
	}

	return libs, nil
}

// GetDocuments lists the library's items that carry a PDF attachment,
// recording each item's API prefix for later per-item calls. Items
// without a PDF are skipped; a z-cite-ocr child marks the document as
// having a cached extraction.
func (c *Client) GetDocuments(
	ctx context.Context, libType domain.LibraryType, libraryID string,
) ([]driven.RemoteDocument, error) {
	prefix, err := c.libraryPrefix(ctx, libType, libraryID)
	if err != nil {
		return nil, err
	}

	var docs []driven.RemoteDocument
	for start := 0; ; start += pageSize {
		path := fmt.Sprintf("%s/items?itemType=-attachment&format=json&limit=%d&start=%d",
			prefix, pageSize, start)

		var items []item
		if err := c.getJSON(ctx, path, &items); err != nil {
			return nil, fmt.Errorf("listing items: %w", err)
		}

		for _, it := range items {
			if it.Data.ItemType == "note" {
				continue
			}
			c.rememberPrefix(it.Key, prefix)

			hasPDF, hasOCR, err := c.scanAttachments(ctx, it.Key)
			if err != nil {
				return nil, err
			}
			if !hasPDF {
				continue
			}

			authors := make([]string, 0, len(it.Data.Creators))
			for _, cr := range it.Data.Creators {
				if name := cr.displayName(); name != "" {
					authors = append(authors, name)
				}
			}

			docs = append(docs, driven.RemoteDocument{
				ID:              "doc_" + it.Key,
				SourceKey:       it.Key,
				Title:           it.Data.Title,
				Authors:         authors,
				PublicationDate: it.Data.Date,
				DocumentType:    it.Data.ItemType,
				LibraryID:       libraryID,
				HasCachedOCR:    hasOCR,
			})
		}

		if len(items) < pageSize {
			break
		}
	}

	return docs, nil
}

// scanAttachments inspects an item's children for a PDF and a cached
// extraction artifact.
func (c *Client) scanAttachments(ctx context.Context, sourceKey string) (hasPDF, hasOCR bool, err error) {
	children, err := c.children(ctx, sourceKey)
	if err != nil {
		return false, false, err
	}

	for _, child := range children {
		if child.Data.ItemType != "attachment" {
			continue
		}
		switch {
		case child.Data.ContentType == "application/pdf":
			hasPDF = true
		case strings.HasPrefix(child.Data.Filename, artifact.FilenamePrefix):
			hasOCR = true
		}
	}
	return hasPDF, hasOCR, nil
}

// FindOCRArtifact locates the cached extraction artifact for an item.
func (c *Client) FindOCRArtifact(ctx context.Context, sourceKey string) (*driven.Attachment, error) {
	children, err := c.children(ctx, sourceKey)
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		if child.Data.ItemType != "attachment" {
			continue
		}
		if strings.HasPrefix(child.Data.Filename, artifact.FilenamePrefix) {
			return &driven.Attachment{
				Key:         child.Key,
				Filename:    child.Data.Filename,
				ContentType: child.Data.ContentType,
			}, nil
		}
	}

	return nil, fmt.Errorf("no cached extraction for %s: %w", sourceKey, domain.ErrNotFound)
}

// DownloadAndParseOCRArtifact fetches and decodes a cached artifact.
func (c *Client) DownloadAndParseOCRArtifact(
	ctx context.Context, att *driven.Attachment,
) (string, string, error) {
	prefix, err := c.prefixFor(ctx, att.Key)
	if err != nil {
		return "", "", err
	}

	resp, err := c.do(ctx, http.MethodGet, prefix+"/items/"+att.Key+"/file", nil, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "downloading artifact"); err != nil {
		return "", "", err
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("reading artifact: %w", err)
	}

	text, versionHash := artifact.Parse(string(content))
	return text, versionHash, nil
}

// StoreOCRArtifact uploads extracted text as a cached artifact, replacing
// any prior artifact for the item.
func (c *Client) StoreOCRArtifact(ctx context.Context, sourceKey, text string) error {
	prefix, err := c.prefixFor(ctx, sourceKey)
	if err != nil {
		return err
	}

	// Replace rather than accumulate: one artifact per item.
	if existing, err := c.FindOCRArtifact(ctx, sourceKey); err == nil {
		if err := c.deleteItem(ctx, prefix, existing.Key); err != nil {
			return fmt.Errorf("removing stale artifact: %w", err)
		}
	}

	attKey, err := c.createArtifactItem(ctx, prefix, sourceKey)
	if err != nil {
		return err
	}
	c.rememberPrefix(attKey, prefix)

	content := artifact.Encode(text, chunker.Hash(text), sourceKey, time.Now().UTC())
	return c.uploadFile(ctx, prefix, attKey, []byte(content))
}

// GetPDFAttachment locates the item's PDF attachment.
func (c *Client) GetPDFAttachment(ctx context.Context, sourceKey string) (*driven.Attachment, error) {
	children, err := c.children(ctx, sourceKey)
	if err != nil {
		return nil, err
	}

	for _, child := range children {
		if child.Data.ItemType == "attachment" && child.Data.ContentType == "application/pdf" {
			return &driven.Attachment{
				Key:         child.Key,
				Filename:    child.Data.Filename,
				ContentType: child.Data.ContentType,
			}, nil
		}
	}

	return nil, fmt.Errorf("no PDF attached to %s: %w", sourceKey, domain.ErrNoAttachment)
}

// DownloadPDF writes the attachment's content to destPath.
func (c *Client) DownloadPDF(ctx context.Context, att *driven.Attachment, destPath string) error {
	prefix, err := c.prefixFor(ctx, att.Key)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodGet, prefix+"/items/"+att.Key+"/file", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "downloading PDF"); err != nil {
		return err
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	return nil
}

// ==================== Internals ====================

// ensureIdentity resolves the user ID for the API key, once.
func (c *Client) ensureIdentity(ctx context.Context) error {
	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()
	if userID != "" {
		return nil
	}

	var info keyInfo
	if err := c.getJSON(ctx, "/keys/current", &info); err != nil {
		return fmt.Errorf("verifying API key: %w", err)
	}
	if info.UserID == 0 {
		return fmt.Errorf("API key has no user: %w", domain.ErrConnection)
	}

	c.mu.Lock()
	c.userID = strconv.FormatInt(info.UserID, 10)
	c.username = info.Username
	c.mu.Unlock()
	return nil
}

// libraryPrefix maps a library ID like "user_123" or "group_456" to its
// API path prefix.
func (c *Client) libraryPrefix(ctx context.Context, libType domain.LibraryType, libraryID string) (string, error) {
	if sourceID, ok := strings.CutPrefix(libraryID, "group_"); ok {
		return "/groups/" + sourceID, nil
	}
	if sourceID, ok := strings.CutPrefix(libraryID, "user_"); ok {
		return "/users/" + sourceID, nil
	}
	if libType == domain.LibraryTypePersonal {
		if err := c.ensureIdentity(ctx); err != nil {
			return "", err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return "/users/" + c.userID, nil
	}
	return "", fmt.Errorf("unrecognised library id %q: %w", libraryID, domain.ErrInvalidInput)
}

// prefixFor returns the API prefix recorded for an item key during
// listing, falling back to the personal library.
func (c *Client) prefixFor(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	prefix, ok := c.prefixes[key]
	c.mu.Unlock()
	if ok {
		return prefix, nil
	}

	if err := c.ensureIdentity(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return "/users/" + c.userID, nil
}

func (c *Client) rememberPrefix(key, prefix string) {
	c.mu.Lock()
	c.prefixes[key] = prefix
	c.mu.Unlock()
}

// children lists an item's child items.
func (c *Client) children(ctx context.Context, sourceKey string) ([]item, error) {
	prefix, err := c.prefixFor(ctx, sourceKey)
	if err != nil {
		return nil, err
	}

	var children []item
	if err := c.getJSON(ctx, prefix+"/items/"+sourceKey+"/children", &children); err != nil {
		return nil, fmt.Errorf("listing children of %s: %w", sourceKey, err)
	}

	for _, child := range children {
		c.rememberPrefix(child.Key, prefix)
	}
	return children, nil
}

// createArtifactItem creates the attachment item that will hold the
// extraction artifact and returns its key.
func (c *Client) createArtifactItem(ctx context.Context, prefix, parentKey string) (string, error) {
	payload := []map[string]any{{
		"itemType":    "attachment",
		"linkMode":    "imported_file",
		"title":       artifact.Filename,
		"parentItem":  parentKey,
		"filename":    artifact.Filename,
		"contentType": artifact.ContentType,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshalling attachment item: %w", err)
	}

	header := http.Header{"Content-Type": []string{"application/json"}}
	resp, err := c.do(ctx, http.MethodPost, prefix+"/items", body, header)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "creating artifact item"); err != nil {
		return "", err
	}

	var result struct {
		Successful map[string]struct {
			Key string `json:"key"`
		} `json:"successful"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding item creation response: %w", err)
	}

	created, ok := result.Successful["0"]
	if !ok || created.Key == "" {
		return "", fmt.Errorf("artifact item not created: %w", domain.ErrStoreIO)
	}
	return created.Key, nil
}

// uploadFile runs the three-step file upload flow: request authorisation,
// post content to the storage endpoint, then register the upload.
func (c *Client) uploadFile(ctx context.Context, prefix, attKey string, content []byte) error {
	digest := md5.Sum(content) //nolint:gosec // content digest required by the API

	form := url.Values{}
	form.Set("md5", hex.EncodeToString(digest[:]))
	form.Set("filename", artifact.Filename)
	form.Set("filesize", strconv.Itoa(len(content)))
	form.Set("mtime", strconv.FormatInt(time.Now().UnixMilli(), 10))

	header := http.Header{
		"Content-Type":  []string{"application/x-www-form-urlencoded"},
		"If-None-Match": []string{"*"},
	}
	resp, err := c.do(ctx, http.MethodPost, prefix+"/items/"+attKey+"/file", []byte(form.Encode()), header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "authorising upload"); err != nil {
		return err
	}

	var auth struct {
		Exists      int    `json:"exists"`
		URL         string `json:"url"`
		ContentType string `json:"contentType"`
		Prefix      string `json:"prefix"`
		Suffix      string `json:"suffix"`
		UploadKey   string `json:"uploadKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("decoding upload authorisation: %w", err)
	}
	if auth.Exists == 1 {
		// Identical content is already stored.
		return nil
	}

	// Step two goes to the storage endpoint, outside the API's auth and
	// rate limiting.
	var buf bytes.Buffer
	buf.WriteString(auth.Prefix)
	buf.Write(content)
	buf.WriteString(auth.Suffix)

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.URL, &buf)
	if err != nil {
		return fmt.Errorf("building storage request: %w", err)
	}
	uploadReq.Header.Set("Content-Type", auth.ContentType)

	uploadResp, err := c.http.Do(uploadReq)
	if err != nil {
		return fmt.Errorf("uploading content: %w", domain.ErrConnection)
	}
	defer uploadResp.Body.Close()
	if uploadResp.StatusCode < 200 || uploadResp.StatusCode >= 300 {
		return fmt.Errorf("storage endpoint returned %d: %w", uploadResp.StatusCode, domain.ErrStoreIO)
	}

	// Step three registers the upload with the API.
	registerForm := url.Values{}
	registerForm.Set("upload", auth.UploadKey)
	registerResp, err := c.do(ctx, http.MethodPost, prefix+"/items/"+attKey+"/file",
		[]byte(registerForm.Encode()), header)
	if err != nil {
		return err
	}
	defer registerResp.Body.Close()

	return checkStatus(registerResp, "registering upload")
}

// deleteItem removes an item, fetching its current version first for the
// required If-Unmodified-Since-Version header.
func (c *Client) deleteItem(ctx context.Context, prefix, key string) error {
	var it item
	if err := c.getJSON(ctx, prefix+"/items/"+key, &it); err != nil {
		return err
	}

	header := http.Header{
		"If-Unmodified-Since-Version": []string{strconv.Itoa(it.Version)},
	}
	resp, err := c.do(ctx, http.MethodDelete, prefix+"/items/"+key, nil, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp, "deleting item")
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "GET "+path); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do performs a rate-limited request with retries on transient failures.
func (c *Client) do(
	ctx context.Context, method, path string, body []byte, header http.Header,
) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			delay := RetryDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}

		req.Header.Set("Zotero-API-Version", apiVersion)
		if c.apiKey != "" {
			req.Header.Set("Zotero-API-Key", c.apiKey)
		}
		for name, values := range header {
			for _, value := range values {
				req.Header.Set(name, value)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", method, path, domain.ErrConnection)
			continue
		}

		c.rateLimiter.UpdateFromResponse(resp)

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("%s %s: API returned %d", method, path, resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", MaxRetries, lastErr)
}

// checkStatus maps non-success statuses to domain errors.
func checkStatus(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", operation, domain.ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: API key rejected (%d): %w", operation, resp.StatusCode, domain.ErrConnection)
	default:
		return fmt.Errorf("%s: unexpected status %d", operation, resp.StatusCode)
	}
}
