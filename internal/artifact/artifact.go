// Package artifact encodes and decodes the cached-OCR text format stored
// back in the reference manager. The format is a byte-exact contract:
// a short header of human-readable "Key: value" lines including a Version
// line, an 80-character dash separator line, a blank line, then the raw
// extracted text verbatim.
package artifact

import (
	"fmt"
	"strings"
	"time"
)

// FilenamePrefix identifies cached-OCR attachments in the source system.
const FilenamePrefix = "z-cite-ocr"

// Filename is the attachment file name used when storing artifacts.
const Filename = FilenamePrefix + ".txt"

// ContentType is the MIME type of stored artifacts.
const ContentType = "text/plain"

// separator is the 80-dash line between the header and the text body.
var separator = strings.Repeat("-", 80)

// headerScanLimit bounds how many leading lines are scanned for the
// Version header during parsing.
const headerScanLimit = 10

// Encode renders extracted text into the artifact format.
// The text is stored verbatim after the separator and a blank line.
func Encode(text, versionHash, documentKey string, processedAt time.Time) string {
	var b strings.Builder
	b.WriteString("Z-Cite OCR Text\n")
	fmt.Fprintf(&b, "Version: %s\n", versionHash)
	fmt.Fprintf(&b, "Processed: %s\n", processedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Document: %s\n", documentKey)
	b.WriteString(separator)
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}

// Parse decodes artifact content into the extracted text and its version
// hash. Parsing is lenient: a missing separator means the whole content is
// treated as text, and a missing Version line yields an empty hash.
//
// Only the first separator is honoured, so text that itself contains an
// 80-dash line round-trips unchanged.
func Parse(content string) (text, versionHash string) {
	lines := strings.Split(content, "\n")
	limit := headerScanLimit
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if strings.HasPrefix(line, "Version:") {
			versionHash = strings.TrimSpace(strings.TrimPrefix(line, "Version:"))
			break
		}
	}

	_, body, found := strings.Cut(content, separator)
	if !found {
		return content, versionHash
	}

	// The encoder writes "<separator>\n\n<text>"; strip that framing but
	// keep the text itself byte-exact.
	body = strings.TrimPrefix(body, "\n\n")
	return body, versionHash
}
