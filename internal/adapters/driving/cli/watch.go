package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/logger"
)

var watchSkipInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Keep the index up to date as files change",
	Long: `Index a project and re-index files as they are created, changed or deleted.
Runs until interrupted. Defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchSkipInitial, "no-initial", false, "skip indexing the project before watching")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger.SetTimestamps(true)

	root := "."
	if len(args) == 1 {
		root = filesystem.ResolvePath(args[0])
	}

	err := watchProject(cmd.Context(), cmd, root, !watchSkipInitial)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchProject optionally indexes root, then feeds file changes to the
// indexer until ctx is done.
func watchProject(ctx context.Context, cmd *cobra.Command, root string, initial bool) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}
	if newWatcher == nil {
		return errors.New("file watcher not configured")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", abs)
	}

	if initial {
		report, err := indexer.IndexDirectory(ctx, abs)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", abs, err)
		}
		cmd.Printf("Indexed %s: %d files, %d changed, %d failed\n", abs, report.Files, report.Changed, report.Failed)
	}

	w := newWatcher(abs)
	defer w.Close() //nolint:errcheck

	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", abs, err)
	}

	cmd.Printf("Watching %s for changes\n", abs)
	n := filesystem.Feed(changes, indexer)
	cmd.Printf("Stopped watching after %d changes\n", n)
	return ctx.Err()
}
