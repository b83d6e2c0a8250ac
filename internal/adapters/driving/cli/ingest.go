package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driven"
	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
)

var ingestLimit int

var ingestCmd = &cobra.Command{
	Use:   "ingest [library-id]",
	Short: "Import a library into the search index",
	Long: `Downloads and indexes every document in a source library.

With no argument the configured default library is used. Library IDs
are listed by 'zcite library remote', e.g. user_12345 or group_67890.

Extracted text is cached in the source system where possible, so
re-running an ingest only processes new or changed documents cheaply.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestLimit, "limit", "n", 0, "process at most N documents (0 = all)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil || libraryService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()

	remote, err := libraryService.ListRemote(ctx)
	if err != nil {
		return fmt.Errorf("listing source libraries: %w", err)
	}

	var target *driven.RemoteLibrary
	if len(args) == 1 {
		for i := range remote {
			if remote[i].ID == args[0] {
				target = &remote[i]
				break
			}
		}
		if target == nil {
			return fmt.Errorf("library %s: %w", args[0], domain.ErrNotFound)
		}
	} else {
		for i := range remote {
			if remote[i].IsDefault {
				target = &remote[i]
				break
			}
		}
		if target == nil {
			return errors.New("no default library; pass a library ID")
		}
	}

	if err := ingestService.AddLibrary(ctx, *target); err != nil {
		return fmt.Errorf("registering library: %w", err)
	}

	cmd.Printf("Ingesting %s (%s)\n", target.Name, target.ID)

	opts := driving.IngestOptions{
		Limit: ingestLimit,
		Progress: func(index, total int, title, stage string) {
			if title == "" {
				title = "(untitled)"
			}
			cmd.Printf("  [%d/%d] %-8s %s\n", index+1, total, stage, title)
		},
	}

	report, err := ingestService.IngestLibrary(ctx, target.Type, target.ID, opts)
	if err != nil {
		if errors.Is(err, domain.ErrIngestInProgress) {
			return fmt.Errorf("an ingest for %s is already running", target.ID)
		}
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Println()
	cmd.Printf("Done: %d/%d documents indexed\n", report.Processed, report.Total)
	if len(report.Errors) > 0 {
		cmd.Printf("%d documents failed:\n", len(report.Errors))
		for _, msg := range report.Errors {
			cmd.Printf("  - %s\n", strings.TrimSpace(msg))
		}
	}

	return nil
}
