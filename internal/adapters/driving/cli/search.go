package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

var (
	searchLimit     int
	searchThreshold float64
	searchLibraries []string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed library",
	Long: `Performs a semantic search across ingested documents.
The query is embedded and compared against stored chunk embeddings;
results above the similarity threshold are returned best first.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = configured default)")
	searchCmd.Flags().Float64VarP(&searchThreshold, "threshold", "t", -1, "minimum similarity in [0,1] (-1 = configured default)")
	searchCmd.Flags().StringSliceVarP(&searchLibraries, "library", "l", nil, "restrict to library IDs (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil || settingsService == nil {
		return errors.New("search service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	opts := domain.SearchOptions{
		Limit:      settings.Search.Limit,
		Threshold:  settings.Search.Threshold,
		LibraryIDs: settings.Search.LibraryIDs,
	}
	if searchLimit > 0 {
		opts.Limit = searchLimit
	}
	if searchThreshold >= 0 {
		opts.Threshold = searchThreshold
	}
	if len(searchLibraries) > 0 {
		opts.LibraryIDs = searchLibraries
	}

	results, err := searchService.Search(cmd.Context(), args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	formatted := searchService.FormatResults(results)

	if searchJSON {
		data, err := json.MarshalIndent(formatted, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	return outputSearchTable(cmd, formatted, args[0])
}

func outputSearchTable(cmd *cobra.Command, results []domain.FormattedResult, query string) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results for %q:\n\n", query)
	for i, r := range results {
		cmd.Printf("  [%d] %s (%d%%)\n", i+1, r.Title, r.Similarity)
		cmd.Printf("      %s", r.Authors)
		if r.Metadata.PublicationDate != "" {
			cmd.Printf(", %s", r.Metadata.PublicationDate)
		}
		cmd.Println()
		if r.Metadata.PageNumber > 0 {
			cmd.Printf("      Page %d", r.Metadata.PageNumber)
			if r.Metadata.Section != "" {
				cmd.Printf(", %s", r.Metadata.Section)
			}
			cmd.Println()
		}

		snippet := searchService.Highlight(r.Text, query)
		for _, line := range strings.Split(snippet, "\n") {
			cmd.Printf("      %s\n", line)
		}
		cmd.Println()
	}

	return nil
}
