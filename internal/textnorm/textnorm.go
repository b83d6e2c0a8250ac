// Package textnorm cleans extracted document text before chunking.
package textnorm

import (
	"strings"
	"unicode"
)

// maxBlankRun is the largest run of consecutive blank lines kept.
const maxBlankRun = 1

// Clean normalises extracted text: line endings become \n, control
// characters are dropped, trailing whitespace is trimmed per line, and
// runs of blank lines collapse. Cleaning is idempotent, so text that was
// cleaned before being cached can be cleaned again safely.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimRightFunc(stripControl(line), unicode.IsSpace)
		if line == "" {
			blanks++
			if blanks > maxBlankRun {
				continue
			}
		} else {
			blanks = 0
		}
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

// stripControl removes control characters other than tab.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}
