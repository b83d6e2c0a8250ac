package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/zcite-cli/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, search, embedding, and source options.

Use 'settings set' for individual values or 'settings embedding' and
'settings zotero' for guided provider setup.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single configuration value.

Keys:
  chunk.size           words per chunk
  chunk.overlap        words shared between adjacent chunks
  ocr.store            write extractions back to the source (true/false)
  ocr.use_cached       reuse stored extractions (true/false)
  ocr.always_refresh   force re-extraction on every ingest (true/false)
  ocr.api_key          extraction service API key
  search.threshold     minimum similarity in [0,1]
  search.limit         default result count
  search.libraries     comma-separated library IDs ('' clears)
  zotero.default_group numeric group ID used by default
  ingest.workers       parallel documents during ingest
  strict_errors        fail instead of degrading on store errors`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	RunE:  runSettingsEmbedding,
}

var settingsZoteroCmd = &cobra.Command{
	Use:   "zotero",
	Short: "Configure Zotero API access",
	RunE:  runSettingsZotero,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsZoteroCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d words\n", settings.Chunk.Size)
	cmd.Printf("  Overlap: %d words\n", settings.Chunk.Overlap)
	cmd.Println()

	cmd.Println("[Search]")
	cmd.Printf("  Threshold: %.2f\n", settings.Search.Threshold)
	cmd.Printf("  Limit: %d\n", settings.Search.Limit)
	if len(settings.Search.LibraryIDs) > 0 {
		cmd.Printf("  Libraries: %s\n", strings.Join(settings.Search.LibraryIDs, ", "))
	} else {
		cmd.Printf("  Libraries: (all)\n")
	}
	cmd.Println()

	cmd.Println("[Extraction]")
	cmd.Printf("  Store artifacts: %t\n", settings.OCR.Store)
	cmd.Printf("  Use cached: %t\n", settings.OCR.UseCached)
	cmd.Printf("  Always refresh: %t\n", settings.OCR.AlwaysRefresh)
	if settings.OCR.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.OCR.APIKey))
	}
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Model != "" {
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	}
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Println()

	cmd.Println("[Zotero]")
	if settings.Source.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Source.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	if settings.Source.DefaultGroup != "" {
		cmd.Printf("  Default group: %s\n", settings.Source.DefaultGroup)
	}
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Workers: %d\n", settings.Ingest.Workers)

	return nil
}

//nolint:gocyclo // one case per settable key
func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	key, value := args[0], args[1]
	switch key {
	case "chunk.size":
		settings.Chunk.Size, err = parsePositiveInt(value)
	case "chunk.overlap":
		settings.Chunk.Overlap, err = parseNonNegativeInt(value)
	case "ocr.store":
		settings.OCR.Store, err = strconv.ParseBool(value)
	case "ocr.use_cached":
		settings.OCR.UseCached, err = strconv.ParseBool(value)
	case "ocr.always_refresh":
		settings.OCR.AlwaysRefresh, err = strconv.ParseBool(value)
	case "ocr.api_key":
		settings.OCR.APIKey = value
	case "search.threshold":
		settings.Search.Threshold, err = parseThreshold(value)
	case "search.limit":
		settings.Search.Limit, err = parsePositiveInt(value)
	case "search.libraries":
		settings.Search.LibraryIDs = splitList(value)
	case "zotero.default_group":
		settings.Source.DefaultGroup = value
	case "ingest.workers":
		settings.Ingest.Workers, err = parsePositiveInt(value)
	case "strict_errors":
		settings.StrictErrors, err = strconv.ParseBool(value)
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Select Embedding Provider")
	providers := []domain.EmbeddingProvider{
		domain.ProviderLocal, domain.ProviderOllama, domain.ProviderOpenAI,
	}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	provider := providers[idx-1]

	var model, baseURL, apiKey string
	if provider != domain.ProviderLocal {
		cmd.Print("Enter model name: ")
		model = readLine(reader)
	}
	if provider == domain.ProviderOllama {
		cmd.Print("Enter base URL [http://localhost:11434]: ")
		baseURL = readLine(reader)
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
	}
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = model
	settings.Embedding.BaseURL = baseURL
	settings.Embedding.APIKey = apiKey

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s\n", provider.Description())
	return nil
}

func runSettingsZotero(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	cmd.Println("Zotero API access")
	cmd.Println("Create a key at https://www.zotero.org/settings/keys with")
	cmd.Println("library read access (and file write access for cached extractions).")
	cmd.Println()
	cmd.Print("Enter API key: ")
	apiKey := readPassword()
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key is required")
	}

	cmd.Print("Default group ID (empty for personal library): ")
	group := readLine(reader)

	settings.Source.APIKey = apiKey
	settings.Source.DefaultGroup = group

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	if libraryService != nil {
		cmd.Print("Checking connection... ")
		if libraryService.TestConnection(cmd.Context()) {
			cmd.Println("OK")
		} else {
			cmd.Println("FAILED (key saved; check it and retry)")
		}
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func parsePositiveInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return n, nil
}

func parseNonNegativeInt(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

func parseThreshold(value string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > 1 {
		return 0, fmt.Errorf("must be in [0,1]")
	}
	return f, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
