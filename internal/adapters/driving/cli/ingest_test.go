package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
)

func resetIngestFlags() {
	ingestLimit = 0
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [library-id]", ingestCmd.Use)
}

func TestIngestCmd_DefaultsToMarkedLibrary(t *testing.T) {
	services, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	services.ingest.report = driving.IngestReport{Total: 2, Processed: 2}

	out, err := execute("ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingesting My Library (user_1)")
	assert.Contains(t, out, "Done: 2/2 documents indexed")

	require.Len(t, services.ingest.added, 1)
	assert.Equal(t, "user_1", services.ingest.added[0].ID)
}

func TestIngestCmd_ExplicitLibrary(t *testing.T) {
	services, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	services.ingest.report = driving.IngestReport{Total: 1, Processed: 1}

	out, err := execute("ingest", "group_1")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingesting Lab (group_1)")
}

func TestIngestCmd_UnknownLibrary(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	_, err := execute("ingest", "group_999")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "group_999")
}

func TestIngestCmd_ReportsFailures(t *testing.T) {
	services, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	services.ingest.report = driving.IngestReport{
		Total:     3,
		Processed: 2,
		Errors:    []string{"Broken Paper: no text extracted"},
	}

	out, err := execute("ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Done: 2/3 documents indexed")
	assert.Contains(t, out, "1 documents failed:")
	assert.Contains(t, out, "Broken Paper")
}

func TestIngestCmd_PrintsProgress(t *testing.T) {
	services, cleanup := setupTestServices()
	defer cleanup()
	defer resetIngestFlags()

	services.ingest.report = driving.IngestReport{Total: 2, Processed: 2}

	out, err := execute("ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "[1/2]")
	assert.Contains(t, out, "[2/2]")
}
