package artifact

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	text := "Climate change is causing significant environmental impacts.\n\nSecond paragraph."
	encoded := Encode(text, "abc123", "KEY1", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	got, version := Parse(encoded)
	assert.Equal(t, text, got)
	assert.Equal(t, "abc123", version)
}

func TestRoundTripTextContainingSeparator(t *testing.T) {
	// The body itself contains an 80-dash line; only the first
	// separator (the header's) may be honoured.
	text := "before\n" + strings.Repeat("-", 80) + "\nafter"
	encoded := Encode(text, "v1", "KEY2", time.Unix(0, 0).UTC())

	got, version := Parse(encoded)
	assert.Equal(t, text, got)
	assert.Equal(t, "v1", version)
}

func TestParseMissingSeparator(t *testing.T) {
	content := "just some raw text\nwith no header at all"

	got, version := Parse(content)
	assert.Equal(t, content, got, "whole content treated as text")
	assert.Empty(t, version)
}

func TestParseVersionOnlyInFirstTenLines(t *testing.T) {
	var b strings.Builder
	for range 12 {
		b.WriteString("filler line\n")
	}
	b.WriteString("Version: late\n")
	content := b.String()

	_, version := Parse(content)
	assert.Empty(t, version, "Version line past the header window is body text")
}

func TestEncodeHeaderLayout(t *testing.T) {
	encoded := Encode("body", "hash9", "DOCKEY", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))

	lines := strings.Split(encoded, "\n")
	require.GreaterOrEqual(t, len(lines), 7)
	assert.Equal(t, "Z-Cite OCR Text", lines[0])
	assert.Equal(t, "Version: hash9", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Processed: "))
	assert.Equal(t, "Document: DOCKEY", lines[3])
	assert.Equal(t, strings.Repeat("-", 80), lines[4])
	assert.Equal(t, "", lines[5])
	assert.Equal(t, "body", lines[6])
}

func TestParseEmptyText(t *testing.T) {
	encoded := Encode("", "h", "K", time.Unix(0, 0).UTC())

	got, version := Parse(encoded)
	assert.Empty(t, got)
	assert.Equal(t, "h", version)
}
