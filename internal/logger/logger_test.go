package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func reset() {
	SetVerbose(false)
	SetOutput(os.Stderr)
}

func TestDebugSuppressedWhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("hidden %d", 1)
	Info("hidden too")
	Section("hidden section")

	assert.Empty(t, buf.String())
}

func TestVerboseOutput(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Search Execution")
	Debug("query=%q", "climate")
	Info("results: %d", 3)

	out := buf.String()
	assert.Contains(t, out, "=== Search Execution ===")
	assert.Contains(t, out, `[DEBUG] query="climate"`)
	assert.Contains(t, out, "[INFO] results: 3")
}

func TestWarnAlwaysPrinted(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Warn("store degraded: %v", "disk full")

	assert.Contains(t, buf.String(), "[WARN] store degraded: disk full")
}

func TestIsVerbose(t *testing.T) {
	defer reset()

	SetVerbose(true)
	assert.True(t, IsVerbose())
	SetVerbose(false)
	assert.False(t, IsVerbose())
}
