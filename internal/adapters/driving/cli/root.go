// Package cli implements the codeassist command line.
// Commands run against core services installed with SetServices or built
// lazily by the loader installed with SetLoader.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driving"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// annotationNoServices marks commands that run without core services.
const annotationNoServices = "codeassist/no-services"

// CatalogEditor persists changes to the model catalog.
type CatalogEditor interface {
	Path() string
	WriteDefault() error
	Add(desc domain.ModelDescriptor) error
	Remove(id string) error
}

// ProjectWatcher reports file changes under a project root.
type ProjectWatcher interface {
	Watch(ctx context.Context) (<-chan filesystem.Change, error)
	Close() error
}

// Services holds what commands run against. Any field may be nil; commands
// that need a missing service fail with "<name> not configured".
type Services struct {
	Dispatcher driving.Dispatcher
	Symbols    driving.SymbolIndex
	Embeddings driving.EmbeddingIndex
	Indexer    driving.Indexer
	Settings   driving.SettingsService
	Catalog    CatalogEditor
	Watcher    func(root string) ProjectWatcher
}

// Loader builds services on first use. The returned closer runs after the command.
type Loader func(ctx context.Context) (Services, io.Closer, error)

var (
	dispatcher      driving.Dispatcher
	symbolIndex     driving.SymbolIndex
	embeddingIndex  driving.EmbeddingIndex
	indexer         driving.Indexer
	settingsService driving.SettingsService
	catalogEditor   CatalogEditor
	newWatcher      func(root string) ProjectWatcher

	loader       Loader
	loadedCloser io.Closer
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "codeassist",
	Short: "AI coding assistant backend",
	Long: `codeassist routes editor requests to local and cloud AI models and
keeps a symbol and embedding index of your project.

Models are listed in ~/.codeassist/models.yaml and settings live in
~/.codeassist/config.toml.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log routing and indexing details to stderr")
}

// SetServices installs the services commands run against.
func SetServices(s Services) {
	dispatcher = s.Dispatcher
	symbolIndex = s.Symbols
	embeddingIndex = s.Embeddings
	indexer = s.Indexer
	settingsService = s.Settings
	catalogEditor = s.Catalog
	newWatcher = s.Watcher
}

// SetLoader installs a loader that builds services before the first
// command that needs them.
func SetLoader(l Loader) {
	loader = l
}

// SetCatalog installs the catalog editor without loading other services.
func SetCatalog(c CatalogEditor) {
	catalogEditor = c
}

// Execute runs the root command and releases loaded services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := teardown(); err == nil {
		err = closeErr
	}
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if loader == nil || loadedCloser != nil || !needsServices(cmd) {
		return nil
	}

	svc, closer, err := loader(cmd.Context())
	if err != nil {
		return fmt.Errorf("starting codeassist: %w", err)
	}
	SetServices(svc)
	loadedCloser = closer
	return nil
}

func teardown() error {
	if loadedCloser == nil {
		return nil
	}
	err := loadedCloser.Close()
	loadedCloser = nil
	return err
}

func requireDispatcher() error {
	if dispatcher == nil {
		return errors.New("dispatcher not configured")
	}
	return nil
}

func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoServices] == "true" {
			return false
		}
		if c.Name() == "help" || c.Name() == "completion" || c.Name() == cobra.ShellCompRequestCmd {
			return false
		}
	}
	return true
}

func noServices() map[string]string {
	return map[string]string{annotationNoServices: "true"}
}
