// Package cli implements the command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/zcite-cli/internal/core/ports/driving"
	"github.com/custodia-labs/zcite-cli/internal/logger"
)

// version is injected at build time via SetVersion.
var version = "dev"

// Services injected by the composition root.
var (
	searchService   driving.SearchService
	ingestService   driving.IngestService
	libraryService  driving.LibraryService
	settingsService driving.SettingsService
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "zcite",
	Short: "Semantic search over your reference library",
	Long: `zcite indexes the documents in your reference manager and answers
natural-language queries against them.

Import a library with 'zcite ingest', then query it with 'zcite search'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services bundles the driving-side services the commands depend on.
type Services struct {
	Search   driving.SearchService
	Ingest   driving.IngestService
	Library  driving.LibraryService
	Settings driving.SettingsService
}

// SetServices wires the services into the command tree. Must be called
// before Execute.
func SetServices(s Services) {
	searchService = s.Search
	ingestService = s.Ingest
	libraryService = s.Library
	settingsService = s.Settings
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}
