package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var modelAdd = struct {
	id            string
	name          string
	provider      string
	model         string
	kind          string
	specialties   []string
	languages     []string
	latency       string
	locality      string
	maxTokens     int
	contextWindow int
	endpoint      string
}{}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage registered models",
	Long: `List, add and remove the models codeassist routes requests to.

Models are read from the catalog file at startup. Changes made here are
written to the catalog so they survive restarts.`,
	RunE: runModelsList,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models and their availability",
	RunE:  runModelsList,
}

var modelsCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the model used most recently",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := requireDispatcher(); err != nil {
			return err
		}
		id, ok := dispatcher.CurrentModel()
		if !ok {
			cmd.Println("No model selected yet")
			return nil
		}
		cmd.Println(id)
		return nil
	},
}

var modelsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a model to the catalog",
	Long: `Add a model to the catalog and register it.

Example:
  codeassist models add --id deepseek --provider ollama \
    --model deepseek-coder:6.7b --kind completion --specialty inline-completion`,
	Args: cobra.NoArgs,
	RunE: runModelsAdd,
}

var modelsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a model from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsRemove,
}

var modelsInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default catalog file",
	Long:        `Write the built-in model catalog so it can be edited. Fails if the file already exists.`,
	Args:        cobra.NoArgs,
	Annotations: noServices(),
	RunE:        runModelsInit,
}

func init() {
	f := modelsAddCmd.Flags()
	f.StringVar(&modelAdd.id, "id", "", "unique model id (required)")
	f.StringVar(&modelAdd.name, "name", "", "display name")
	f.StringVar(&modelAdd.provider, "provider", "", "provider: ollama, openai, anthropic (required)")
	f.StringVar(&modelAdd.model, "model", "", "model name sent to the provider (defaults to --id)")
	f.StringVar(&modelAdd.kind, "kind", string(domain.ModelKindChat), "kind: chat or completion")
	f.StringSliceVar(&modelAdd.specialties, "specialty", nil, "specialty tag (repeatable)")
	f.StringSliceVar(&modelAdd.languages, "language", nil, "language the model is tuned for (repeatable)")
	f.StringVar(&modelAdd.latency, "latency", string(domain.LatencyMedium), "latency: low, medium, high")
	f.StringVar(&modelAdd.locality, "locality", "", "locality: local or cloud (derived from provider)")
	f.IntVar(&modelAdd.maxTokens, "max-tokens", 0, "largest generation budget")
	f.IntVar(&modelAdd.contextWindow, "context-window", 0, "context window in tokens")
	f.StringVar(&modelAdd.endpoint, "endpoint", "", "backend base URL")
	_ = modelsAddCmd.MarkFlagRequired("id")
	_ = modelsAddCmd.MarkFlagRequired("provider")

	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsCurrentCmd)
	modelsCmd.AddCommand(modelsAddCmd)
	modelsCmd.AddCommand(modelsRemoveCmd)
	modelsCmd.AddCommand(modelsInitCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	if err := requireDispatcher(); err != nil {
		return err
	}

	models := dispatcher.ListModels()
	if len(models) == 0 {
		cmd.Println("No models registered.")
		if catalogEditor != nil {
			cmd.Printf("Add models to %s or run 'codeassist models add'.\n", catalogEditor.Path())
		}
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.title.Render(fmt.Sprintf("Models (%d):", len(models))))
	cmd.Println()
	for _, m := range models {
		marker := " "
		if m.Current {
			marker = "*"
		}
		d := m.Descriptor
		cmd.Printf("%s %-24s %s %-10s %-6s %s\n", marker, d.ID, st.state(m.State), d.Kind, d.Locality, d.Provider)
		if d.DisplayName != "" && d.DisplayName != d.ID {
			cmd.Printf("    %s\n", d.DisplayName)
		}
		if len(d.Specialties) > 0 {
			cmd.Println(st.muted.Render("    Specialties: " + strings.Join(d.Specialties, ", ")))
		}
		if len(d.Languages) > 0 {
			cmd.Println(st.muted.Render("    Languages: " + strings.Join(d.Languages, ", ")))
		}
	}
	return nil
}

func runModelsAdd(cmd *cobra.Command, _ []string) error {
	if catalogEditor == nil {
		return errors.New("model catalog not configured")
	}

	desc := descriptorFromFlags()
	if err := desc.Validate(); err != nil {
		return err
	}
	if desc.Kind == domain.ModelKindEmbedding {
		return fmt.Errorf("%w: embedding models are configured with 'codeassist settings embedding'",
			domain.ErrInvalidInput)
	}

	if err := catalogEditor.Add(desc); err != nil {
		return fmt.Errorf("failed to add model: %w", err)
	}
	if dispatcher != nil {
		if err := dispatcher.AddModel(cmd.Context(), desc); err != nil {
			return fmt.Errorf("failed to register model: %w", err)
		}
	}

	cmd.Printf("Added model %s\n", desc)
	return nil
}

func descriptorFromFlags() domain.ModelDescriptor {
	provider := domain.AIProvider(strings.ToLower(modelAdd.provider))
	kind := domain.ModelKind(strings.ToLower(modelAdd.kind))

	model := modelAdd.model
	if model == "" {
		model = modelAdd.id
	}

	locality := domain.Locality(strings.ToLower(modelAdd.locality))
	if locality == "" {
		locality = domain.LocalityCloud
		if provider.IsLocal() {
			locality = domain.LocalityLocal
		}
	}

	specialties := modelAdd.specialties
	if len(specialties) == 0 {
		specialties = []string{domain.SpecialtyGeneralCoding}
		if kind == domain.ModelKindChat {
			specialties = []string{domain.SpecialtyChat, domain.SpecialtyGeneralCoding}
		}
	}

	return domain.ModelDescriptor{
		ID:            modelAdd.id,
		DisplayName:   modelAdd.name,
		Provider:      provider,
		Model:         model,
		Kind:          kind,
		MaxTokens:     modelAdd.maxTokens,
		ContextWindow: modelAdd.contextWindow,
		Specialties:   specialties,
		Languages:     modelAdd.languages,
		Latency:       domain.Latency(strings.ToLower(modelAdd.latency)),
		Locality:      locality,
		Endpoint:      modelAdd.endpoint,
	}
}

func runModelsRemove(cmd *cobra.Command, args []string) error {
	if catalogEditor == nil {
		return errors.New("model catalog not configured")
	}

	id := args[0]
	if err := catalogEditor.Remove(id); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	if dispatcher != nil {
		if err := dispatcher.RemoveModel(id); err != nil && !errors.Is(err, domain.ErrUnknownModel) {
			return fmt.Errorf("failed to unregister model: %w", err)
		}
	}

	cmd.Printf("Removed model %s\n", id)
	return nil
}

func runModelsInit(cmd *cobra.Command, _ []string) error {
	if catalogEditor == nil {
		return errors.New("model catalog not configured")
	}

	if err := catalogEditor.WriteDefault(); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("catalog already exists at %s", catalogEditor.Path())
		}
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	cmd.Printf("Wrote default catalog to %s\n", catalogEditor.Path())
	return nil
}
