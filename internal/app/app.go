// Package app wires codeassist's adapters and services together.
// One App is built per process and closed on exit.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/ai"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/chunker"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/config/file"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/language"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codeassist/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
	"github.com/custodia-labs/codeassist/internal/core/services"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// Options configures New.
type Options struct {
	// ConfigDir holds config.toml, models.yaml, prompts and the index database.
	// Defaults to ~/.codeassist.
	ConfigDir string
}

// App owns every long-lived component of a codeassist process.
type App struct {
	ConfigDir  string
	Config     *file.ConfigStore
	Settings   *services.SettingsService
	Prompts    *file.PromptStore
	Catalog    *file.CatalogStore
	Registry   *services.Registry
	Dispatcher *services.Dispatcher
	Symbols    *services.SymbolIndexService
	Embeddings *services.EmbeddingStoreService
	Indexer    *services.IndexerService

	embedder *ai.EmbeddingResult
	store    *sqlite.Store
	cancel   context.CancelFunc
}

// New loads settings and the model catalog, registers every catalog model
// and starts the background indexer. Models that fail to initialise are
// registered as unavailable; only configuration errors fail New.
func New(ctx context.Context, opts Options) (*App, error) {
	dir := opts.ConfigDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return nil, err
		}
	}

	cfg, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsSvc := services.NewSettingsService(cfg)
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if settings.Verbose {
		logger.SetVerbose(true)
	}

	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	catalog, err := file.NewCatalogStore(filepath.Join(dir, file.CatalogFile))
	if err != nil {
		return nil, fmt.Errorf("opening model catalog: %w", err)
	}
	descs, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	a := &App{
		ConfigDir: dir,
		Config:    cfg,
		Settings:  settingsSvc,
		Prompts:   prompts,
		Catalog:   catalog,
	}

	logger.Section("Models")
	factory := ai.NewFactory(settingsSvc)
	adapters := make([]driven.ModelAdapter, 0, len(descs))
	for _, desc := range descs {
		adapter, err := factory.Create(desc)
		if err != nil {
			logger.Warn("skipping model %s: %v", desc.ID, err)
			continue
		}
		adapters = append(adapters, adapter)
	}

	a.Registry = services.NewRegistry()
	if err := a.Registry.RegisterAll(ctx, adapters); err != nil {
		logger.Warn("registering models: %v", err)
	}

	a.Dispatcher = services.NewDispatcher(
		a.Registry, services.NewTransactionLog(settings.TransactionCapacity), factory, settingsSvc)
	a.Dispatcher.SetPromptStore(prompts)
	a.Dispatcher.SetCatalog(catalog)

	if err := a.openIndexes(ctx, dir, settings); err != nil {
		a.Close() //nolint:errcheck
		return nil, err
	}

	return a, nil
}

func (a *App) openIndexes(ctx context.Context, dir string, settings *domain.AppSettings) error {
	logger.Section("Index")

	var (
		files driven.FileIndexStore
		repo  driven.EmbeddingRepository
	)
	switch settings.Index.Backend {
	case domain.IndexBackendSQLite:
		store, err := sqlite.NewStore(filepath.Join(dir, "data"))
		if err != nil {
			return fmt.Errorf("opening index database: %w", err)
		}
		a.store = store
		files, repo = store.FileIndexStore(), store.EmbeddingRepository()
		logger.Info("index backend: sqlite (%s)", store.Path())
	default:
		files, repo = memory.NewFileIndexStore(), memory.NewEmbeddingStore()
		logger.Info("index backend: memory")
	}

	a.embedder = ai.SelectEmbeddingService(ctx, &settings.Embedding)
	if a.embedder.FellBack {
		logger.Info("embeddings: hashed fallback")
	}

	a.Symbols = services.NewSymbolIndexService(files, language.NewDetector())
	a.Embeddings = services.NewEmbeddingStoreService(repo, a.embedder.Service)
	a.Indexer = services.NewIndexer(
		a.Symbols,
		a.Embeddings,
		chunker.New(
			chunker.WithChunkLines(settings.Index.ChunkLines),
			chunker.WithOverlap(settings.Index.ChunkOverlap),
		),
		services.WithIgnoredDirs(settings.Index.Ignore),
	)

	indexCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.Indexer.Start(indexCtx)
	return nil
}

// Watcher returns a project watcher that honours the indexer's ignore list
// and only reports files in supported languages.
func (a *App) Watcher(root string) *filesystem.Watcher {
	return filesystem.New(root,
		filesystem.WithSkipDir(a.Indexer.SkipsDir),
		filesystem.WithFilter(func(path string) bool {
			return services.SupportsLanguage(services.LanguageForPath(path))
		}),
	)
}

// Close stops the indexer and releases every adapter and store.
func (a *App) Close() error {
	var errs []error

	if a.Indexer != nil {
		a.Indexer.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing models: %w", err))
		}
	}
	if a.embedder != nil {
		a.embedder.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing index database: %w", err))
		}
	}
	return errors.Join(errs...)
}
