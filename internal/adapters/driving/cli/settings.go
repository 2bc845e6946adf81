package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var pinMode string
var pinClear bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure provider credentials, routing preferences,
embeddings and index storage.

Use subcommands to change one setting or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure credentials, routing and embeddings step by step.`,
	RunE:  runSettingsWizard,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider> [key]",
	Short: "Store an API key for a cloud provider",
	Long: `Store an API key for openai or anthropic and reload that provider's models.
The key is prompted for without echo when not given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsSetKey,
}

var settingsTestKeyCmd = &cobra.Command{
	Use:   "test-key <provider> [key]",
	Short: "Check an API key against the provider",
	Long:  `Check an API key without storing it. The stored key is tested when none is given.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSettingsTestKey,
}

var settingsBaseURLCmd = &cobra.Command{
	Use:   "base-url <provider> [url]",
	Short: "Override a provider endpoint",
	Long:  `Override the endpoint used for a provider. Omit the URL to restore the default.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSettingsBaseURL,
}

var settingsPreferLocalCmd = &cobra.Command{
	Use:       "prefer-local <true|false|default>",
	Short:     "Prefer local or cloud models",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"true", "false", "default"},
	RunE:      runSettingsPreferLocal,
}

var settingsPinCmd = &cobra.Command{
	Use:   "pin [model-id]",
	Short: "Pin a preferred model",
	Long: `Pin a model id used during selection.

Modes:
  tiebreak  - choose the pinned model only when it passes every filter (default)
  override  - choose the pinned model whenever it is ready and suits the task

Use --clear to remove the pin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSettingsPin,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding <provider> [model]",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider for semantic search.

Providers:
  ollama  - local embeddings (default model nomic-embed-text)
  openai  - cloud embeddings, uses the openai API key
  hashed  - offline fallback, not semantic`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSettingsEmbedding,
}

var settingsBackendCmd = &cobra.Command{
	Use:       "backend <memory|sqlite>",
	Short:     "Select where indexes are stored",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(domain.IndexBackendMemory), string(domain.IndexBackendSQLite)},
	RunE:      runSettingsBackend,
}

func init() {
	settingsPinCmd.Flags().StringVar(&pinMode, "mode", string(domain.PinModeTiebreak), "pin mode (tiebreak, override)")
	settingsPinCmd.Flags().BoolVar(&pinClear, "clear", false, "remove the pinned model")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsTestKeyCmd)
	settingsCmd.AddCommand(settingsBaseURLCmd)
	settingsCmd.AddCommand(settingsPreferLocalCmd)
	settingsCmd.AddCommand(settingsPinCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsBackendCmd)
	rootCmd.AddCommand(settingsCmd)
}

func requireSettings() error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	return nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.title.Render("Current Settings"))
	cmd.Println("================")
	cmd.Println()

	cmd.Println(st.title.Render("[Providers]"))
	for _, p := range domain.AllModelProviders() {
		ps := settings.Provider(p)
		cmd.Printf("  %s\n", p.Description())
		if ps.BaseURL != "" {
			cmd.Printf("    Base URL: %s\n", ps.BaseURL)
		}
		if p.RequiresAPIKey() {
			if ps.APIKey != "" {
				cmd.Printf("    API Key: %s\n", maskAPIKey(ps.APIKey))
			} else {
				cmd.Printf("    API Key: (not set)\n")
			}
		}
	}
	cmd.Println()

	cmd.Println(st.title.Render("[Routing]"))
	switch {
	case settings.Routing.PreferLocal == nil:
		cmd.Println("  Prefer local: default (yes)")
	case *settings.Routing.PreferLocal:
		cmd.Println("  Prefer local: yes")
	default:
		cmd.Println("  Prefer local: no")
	}
	if settings.Routing.PinnedModel != "" {
		cmd.Printf("  Pinned model: %s (%s)\n", settings.Routing.PinnedModel, settings.Routing.PinMode)
	} else {
		cmd.Println("  Pinned model: (none)")
	}
	cmd.Printf("  Context threshold: %d tokens\n", settings.Routing.ContextThreshold)
	cmd.Println()

	cmd.Println(st.title.Render("[Timeouts]"))
	cmd.Printf("  Chat: %s\n", settings.Dispatch.ChatTimeout)
	cmd.Printf("  Completion: %s\n", settings.Dispatch.CompletionTimeout)
	cmd.Printf("  Inline: %s\n", settings.Dispatch.InlineTimeout)
	cmd.Println()

	cmd.Println(st.title.Render("[Embedding]"))
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println(st.title.Render("[Index]"))
	cmd.Printf("  Backend: %s\n", settings.Index.Backend)
	cmd.Printf("  Chunk: %d lines, %d overlap\n", settings.Index.ChunkLines, settings.Index.ChunkOverlap)
	cmd.Printf("  Ignored: %s\n", strings.Join(settings.Index.Ignore, ", "))
	cmd.Println()

	cmd.Printf("Transaction log capacity: %d\n\n", settings.TransactionCapacity)

	if err := settingsService.Validate(); err != nil {
		cmd.Println(st.warning.Render(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'codeassist settings wizard' to fix configuration issues.")
	} else {
		cmd.Println(st.success.Render("Configuration is valid."))
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	cmd.Println("codeassist Settings Wizard")
	cmd.Println("==========================")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)

	cmd.Println("Step 1: Cloud API Keys")
	cmd.Println("----------------------")
	for _, p := range domain.AllModelProviders() {
		if !p.RequiresAPIKey() {
			continue
		}
		cmd.Printf("Enter %s API key (leave empty to skip): ", p.Description())
		key := readPassword(in, reader)
		cmd.Println()
		if key == "" {
			continue
		}
		if err := storeAPIKey(cmd, p, key); err != nil {
			return err
		}
		cmd.Printf("Saved %s key.\n", p)
	}
	cmd.Println()

	cmd.Println("Step 2: Routing")
	cmd.Println("---------------")
	cmd.Println("  1. Prefer local models")
	cmd.Println("  2. Prefer cloud models")
	cmd.Print("\nEnter choice [1]: ")
	prefer := parseChoice(readLine(reader), 2, 1) == 1
	if err := settingsService.SetPreferLocal(&prefer); err != nil {
		return fmt.Errorf("failed to set routing preference: %w", err)
	}
	cmd.Println()

	cmd.Println("Step 3: Embedding Provider")
	cmd.Println("--------------------------")
	providers := []domain.AIProvider{domain.AIProviderOllama, domain.AIProviderOpenAI, domain.AIProviderHashed}
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := providers[parseChoice(readLine(reader), len(providers), 1)-1]
	cmd.Print("Enter model name (leave empty for default): ")
	model := readLine(reader)
	if err := settingsService.SetEmbeddingProvider(selected, model); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s\n\n", selected.Description())

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	provider, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	var key string
	if len(args) == 2 {
		key = strings.TrimSpace(args[1])
	} else {
		in := cmd.InOrStdin()
		cmd.Printf("Enter %s API key: ", provider)
		key = readPassword(in, bufio.NewReader(in))
		cmd.Println()
	}
	if key == "" {
		return errors.New("API key is required")
	}

	if err := storeAPIKey(cmd, provider, key); err != nil {
		return err
	}
	cmd.Printf("Saved %s API key %s\n", provider, maskAPIKey(key))
	return nil
}

// storeAPIKey saves the key through the dispatcher so running adapters pick
// it up, or through settings alone when no dispatcher is loaded.
func storeAPIKey(cmd *cobra.Command, provider domain.AIProvider, key string) error {
	if dispatcher != nil {
		if err := dispatcher.UpdateAPIKey(cmd.Context(), provider, key); err != nil {
			return fmt.Errorf("failed to update %s key: %w", provider, err)
		}
		return nil
	}
	if err := settingsService.SetAPIKey(provider, key); err != nil {
		return fmt.Errorf("failed to save %s key: %w", provider, err)
	}
	return nil
}

func runSettingsTestKey(cmd *cobra.Command, args []string) error {
	if err := requireDispatcher(); err != nil {
		return err
	}

	provider, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	if !provider.RequiresAPIKey() {
		return fmt.Errorf("%w: %s does not use an API key", domain.ErrInvalidInput, provider)
	}

	var key string
	if len(args) == 2 {
		key = strings.TrimSpace(args[1])
	} else if settingsService != nil {
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		key = settings.Provider(provider).APIKey
	}
	if key == "" {
		return fmt.Errorf("no %s API key to test", provider)
	}

	cmd.Printf("Testing %s key %s... ", provider, maskAPIKey(key))
	if !dispatcher.TestAPIKey(cmd.Context(), provider, key) {
		cmd.Println("FAILED")
		return fmt.Errorf("%s rejected the API key", provider)
	}
	cmd.Println("OK")
	return nil
}

func runSettingsBaseURL(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	provider, err := parseProvider(args[0])
	if err != nil {
		return err
	}

	var url string
	if len(args) == 2 {
		url = strings.TrimSpace(args[1])
	}
	if err := settingsService.SetProviderBaseURL(provider, url); err != nil {
		return fmt.Errorf("failed to set base URL: %w", err)
	}

	if url == "" {
		cmd.Printf("%s base URL reset to default\n", provider)
	} else {
		cmd.Printf("%s base URL set to %s\n", provider, url)
	}
	return nil
}

func runSettingsPreferLocal(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	var prefer *bool
	if args[0] != "default" {
		v, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("%w: expected true, false or default, got %q", domain.ErrInvalidInput, args[0])
		}
		prefer = &v
	}

	if err := settingsService.SetPreferLocal(prefer); err != nil {
		return fmt.Errorf("failed to set prefer-local: %w", err)
	}
	cmd.Printf("Prefer local set to %s\n", args[0])
	return nil
}

func runSettingsPin(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	if pinClear {
		if err := settingsService.SetPinnedModel("", ""); err != nil {
			return fmt.Errorf("failed to clear pinned model: %w", err)
		}
		cmd.Println("Pinned model cleared")
		return nil
	}
	if len(args) == 0 {
		return errors.New("model id is required (or use --clear)")
	}

	mode := domain.PinMode(pinMode)
	if err := settingsService.SetPinnedModel(args[0], mode); err != nil {
		return fmt.Errorf("failed to pin model: %w", err)
	}
	cmd.Printf("Pinned %s (%s)\n", args[0], mode)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	provider := domain.AIProvider(strings.ToLower(args[0]))
	var model string
	if len(args) == 2 {
		model = args[1]
	}

	if err := settingsService.SetEmbeddingProvider(provider, model); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s\n", provider.Description())
	cmd.Println("Restart running servers to use the new provider.")
	return nil
}

func runSettingsBackend(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	backend := domain.IndexBackend(strings.ToLower(args[0]))
	if err := settingsService.SetIndexBackend(backend); err != nil {
		return fmt.Errorf("failed to set index backend: %w", err)
	}
	cmd.Printf("Index backend set to %s\n", backend)
	return nil
}

func parseProvider(s string) (domain.AIProvider, error) {
	p := domain.AIProvider(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, s)
	}
	return p, nil
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

// readPassword reads without echo when in is a terminal, and a plain line otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
