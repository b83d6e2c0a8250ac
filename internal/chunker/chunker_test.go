package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortText(t *testing.T) {
	c := New()
	chunks := c.Split("doc_1", "Climate change is causing significant environmental impacts.", "v1")

	require.Len(t, chunks, 1)
	assert.Equal(t, "doc_1", chunks[0].DocumentID)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, DefaultSection, chunks[0].Section)
	assert.Equal(t, "v1", chunks[0].VersionHash)
	assert.Contains(t, chunks[0].Text, "Climate change")
	assert.True(t, strings.HasPrefix(chunks[0].ID, "chunk_"))
}

func TestSplitEmptyText(t *testing.T) {
	c := New()
	assert.Nil(t, c.Split("doc_1", "", "v"))
	assert.Nil(t, c.Split("doc_1", "   \n\t  ", "v"))
}

func TestSplitRespectsMaxSize(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(20))
	text := strings.Repeat("abcdefghij", 100) // 1000 chars, one section

	chunks := c.Split("doc_1", text, "v")
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 100)
	}
}

func TestSplitReconstructsWithOverlapRemoved(t *testing.T) {
	const (
		size    = 50
		overlap = 10
	)
	c := New(WithChunkSize(size), WithOverlap(overlap), WithSectionDetection(false))
	text := strings.Repeat("0123456789", 23) // 230 chars

	chunks := c.Split("doc_1", text, "v")
	require.Greater(t, len(chunks), 1)

	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, chunk := range chunks[1:] {
		runes := []rune(chunk.Text)
		rebuilt.WriteString(string(runes[overlap:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplitPageNumbers(t *testing.T) {
	c := New()
	text := "page one text\fpage two text\f\fpage four text"

	chunks := c.Split("doc_1", text, "v")
	require.Len(t, chunks, 3)
	assert.Equal(t, 1, chunks[0].PageNumber)
	assert.Equal(t, 2, chunks[1].PageNumber)
	assert.Equal(t, 4, chunks[2].PageNumber, "empty pages keep their number")
}

func TestSplitSectionLabels(t *testing.T) {
	c := New()
	text := "intro text\n# Methods\nmethod details\n## Results\nresult details\n"

	chunks := c.Split("doc_1", text, "v")
	require.Len(t, chunks, 3)
	assert.Equal(t, DefaultSection, chunks[0].Section)
	assert.Equal(t, "Methods", chunks[1].Section)
	assert.Equal(t, "Results", chunks[2].Section)
	assert.Contains(t, chunks[1].Text, "method details")
}

func TestSplitSectionDetectionDisabled(t *testing.T) {
	c := New(WithSectionDetection(false))
	text := "intro\n# Heading\nbody\n"

	chunks := c.Split("doc_1", text, "v")
	require.Len(t, chunks, 1)
	assert.Equal(t, DefaultSection, chunks[0].Section)
}

func TestSplitMultiByteRunes(t *testing.T) {
	c := New(WithChunkSize(10), WithOverlap(2), WithSectionDetection(false))
	text := strings.Repeat("ümläut", 10)

	chunks := c.Split("doc_1", text, "v")
	for _, chunk := range chunks {
		assert.True(t, strings.ContainsRune("ümläut", []rune(chunk.Text)[0]),
			"chunk boundaries must be rune-aligned")
	}
}

func TestNewClampsOverlap(t *testing.T) {
	c := New(WithChunkSize(100), WithOverlap(100))
	assert.Equal(t, 25, c.overlap, "overlap >= size falls back to size/4")
}

func TestHashDeterministic(t *testing.T) {
	assert.Equal(t, Hash("text"), Hash("text"))
	assert.NotEqual(t, Hash("text"), Hash("other"))
	assert.Len(t, Hash("text"), 64)
}

func TestNewChunkIDUnique(t *testing.T) {
	assert.NotEqual(t, NewChunkID(), NewChunkID())
}

func TestSplitDeterministicIDs(t *testing.T) {
	c := New()
	text := "First page.\fSecond page."

	first := c.Split("doc_1", text, "v")
	second := c.Split("doc_1", text, "v")

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestSplitWithoutDocumentIDGetsRandomIDs(t *testing.T) {
	c := New()
	text := "First page.\fSecond page."

	first := c.Split("", text, "v")
	second := c.Split("", text, "v")

	require.Equal(t, len(first), len(second))
	seen := make(map[string]bool)
	for i := range first {
		assert.True(t, strings.HasPrefix(first[i].ID, "chunk_"))
		assert.NotEqual(t, first[i].ID, second[i].ID, "positional IDs would collide across calls")
		seen[first[i].ID] = true
	}
	assert.Len(t, seen, len(first), "IDs are unique within one split")
}
