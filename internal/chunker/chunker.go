// Package chunker splits extracted document text into indexable passages.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

// DefaultChunkSize is the default passage size in characters.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of overlapping characters
// between adjacent passages.
const DefaultChunkOverlap = 50

// DefaultSection is the section label for text with no detected headings.
const DefaultSection = "Full Document"

// Chunker splits text into fixed-size passages with overlap, tracking page
// numbers (form-feed separated) and section labels (markdown headings).
//
// Within a section, concatenating consecutive passages with the overlap
// removed reconstructs the section text, and no passage exceeds the
// configured size.
type Chunker struct {
	size           int
	overlap        int
	detectSections bool
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the passage size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between passages in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSectionDetection toggles heading-based section labelling.
func WithSectionDetection(enabled bool) Option {
	return func(c *Chunker) {
		c.detectSections = enabled
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:           DefaultChunkSize,
		overlap:        DefaultChunkOverlap,
		detectSections: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave the window moving forward.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}

	return c
}

// Hash returns the content version marker for extracted text.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewChunkID generates a globally unique chunk identifier.
func NewChunkID() string {
	return fmt.Sprintf("chunk_%s", uuid.New().String())
}

// Split chunks extracted text into passages for the given document.
// Empty or whitespace-only text produces no chunks. The version hash is
// stamped on every chunk so stale embeddings can be detected after
// re-extraction.
//
// Chunk IDs are deterministic per document position, so re-splitting the
// same document upserts existing rows instead of duplicating them. Text
// split without a document ID gets random IDs instead, since positional
// IDs would collide across unrelated calls.
func (c *Chunker) Split(documentID, text, versionHash string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []domain.Chunk
	for pageIdx, page := range strings.Split(text, "\f") {
		pageNumber := pageIdx + 1
		if strings.TrimSpace(page) == "" {
			continue
		}

		for _, seg := range c.sections(page) {
			for _, passage := range c.window(seg.text) {
				id := NewChunkID()
				if documentID != "" {
					id = fmt.Sprintf("chunk_%s_%04d", documentID, len(chunks))
				}
				chunks = append(chunks, domain.Chunk{
					ID:          id,
					DocumentID:  documentID,
					Text:        passage,
					PageNumber:  pageNumber,
					Section:     seg.label,
					VersionHash: versionHash,
				})
			}
		}
	}

	return chunks
}

// section is a run of page text under one heading.
type section struct {
	label string
	text  string
}

// sections splits page text at markdown headings. Text before the first
// heading carries the default label.
func (c *Chunker) sections(page string) []section {
	if !c.detectSections {
		return []section{{label: DefaultSection, text: page}}
	}

	var (
		out     []section
		current = section{label: DefaultSection}
	)
	for _, line := range strings.SplitAfter(page, "\n") {
		if label, ok := headingLabel(line); ok {
			if strings.TrimSpace(current.text) != "" {
				out = append(out, current)
			}
			current = section{label: label, text: line}
			continue
		}
		current.text += line
	}
	if strings.TrimSpace(current.text) != "" {
		out = append(out, current)
	}

	return out
}

// headingLabel returns the label for a markdown heading line.
func headingLabel(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	label := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	if label == "" {
		return "", false
	}
	return label, true
}

// window slides a fixed-size window with overlap over the text.
// Boundaries are rune-aligned so multi-byte characters never split.
func (c *Chunker) window(text string) []string {
	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	step := c.size - c.overlap
	estimated := total/step + 1
	passages := make([]string, 0, estimated)

	for start := 0; start < total; start += step {
		end := start + c.size
		if end > total {
			end = total
		}
		passages = append(passages, string(runes[start:end]))
		if end == total {
			break
		}
	}

	return passages
}
