// Command codeassist is the AI coding assistant backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/config/file"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/cli"
	"github.com/custodia-labs/codeassist/internal/app"
)

// homeEnv overrides the configuration directory.
const homeEnv = "CODEASSIST_HOME"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir := os.Getenv(homeEnv)
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			fmt.Fprintf(os.Stderr, "codeassist: %v\n", err) //nolint:errcheck
			return 1
		}
	}

	catalog, err := file.NewCatalogStore(filepath.Join(dir, file.CatalogFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "codeassist: %v\n", err) //nolint:errcheck
		return 1
	}
	cli.SetCatalog(catalog)
	cli.SetLoader(func(ctx context.Context) (cli.Services, io.Closer, error) {
		return load(ctx, dir)
	})

	if err := cli.Execute(ctx); err != nil {
		return 1
	}
	return 0
}

func load(ctx context.Context, dir string) (cli.Services, io.Closer, error) {
	a, err := app.New(ctx, app.Options{ConfigDir: dir})
	if err != nil {
		return cli.Services{}, nil, err
	}

	return cli.Services{
		Dispatcher: a.Dispatcher,
		Symbols:    a.Symbols,
		Embeddings: a.Embeddings,
		Indexer:    a.Indexer,
		Settings:   a.Settings,
		Catalog:    a.Catalog,
		Watcher: func(root string) cli.ProjectWatcher {
			return a.Watcher(root)
		},
	}, a, nil
}
