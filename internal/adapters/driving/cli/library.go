package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage imported libraries",
	RunE:  runLibraryList,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported libraries",
	RunE:  runLibraryList,
}

var libraryRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List libraries available in the source system",
	RunE:  runLibraryRemote,
}

var libraryPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the source system",
	RunE:  runLibraryPing,
}

func init() {
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryRemoteCmd)
	libraryCmd.AddCommand(libraryPingCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryList(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	libs, err := libraryService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing libraries: %w", err)
	}
	if len(libs) == 0 {
		cmd.Println("No libraries imported yet. Run 'zcite ingest' to import one.")
		return nil
	}

	cmd.Println("Imported libraries:")
	for _, lib := range libs {
		cmd.Printf("  %-20s %s (%s)", lib.ID, lib.Name, lib.Type)
		if !lib.LastSyncAt.IsZero() {
			cmd.Printf("  last sync %s", lib.LastSyncAt.Format("2006-01-02 15:04"))
		}
		cmd.Println()
	}
	return nil
}

func runLibraryRemote(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	libs, err := libraryService.ListRemote(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing remote libraries: %w", err)
	}

	cmd.Println("Available libraries:")
	for _, lib := range libs {
		marker := " "
		if lib.IsDefault {
			marker = "*"
		}
		cmd.Printf("  %s %-20s %s (%s)\n", marker, lib.ID, lib.Name, lib.Type)
	}
	return nil
}

func runLibraryPing(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	if !libraryService.TestConnection(cmd.Context()) {
		return errors.New("source system unreachable; check zotero.api_key")
	}
	cmd.Println("Connection OK")
	return nil
}
