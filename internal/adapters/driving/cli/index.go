package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/connectors/filesystem"
	"github.com/custodia-labs/codeassist/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a file or project directory",
	Long: `Extract symbols and embeddings for a file or every source file under a directory.
Defaults to the current directory. Unchanged files are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find symbols by name or signature",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var semanticCmd = &cobra.Command{
	Use:   "semantic <query>",
	Short: "Find code matching a description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSemantic,
}

var similarCmd = &cobra.Command{
	Use:   "similar <file> <start-line> <end-line>",
	Short: "Find code similar to an indexed span",
	Long: `Find code similar to the indexed span that exactly covers the given lines.
An unknown span yields no results.`,
	Args: cobra.ExactArgs(3),
	RunE: runSimilar,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, semanticCmd, similarCmd} {
		c.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
		c.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if indexer == nil {
		return errors.New("indexer not configured")
	}

	target := "."
	if len(args) == 1 {
		target = filesystem.ResolvePath(args[0])
	}
	path, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}

	if !info.IsDir() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		changed, err := indexer.IndexNow(cmd.Context(), path, string(content))
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		if changed {
			cmd.Printf("Indexed %s\n", path)
		} else {
			cmd.Printf("%s is up to date\n", path)
		}
		return nil
	}

	cmd.Printf("Indexing %s...\n", path)
	report, err := indexer.IndexDirectory(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", path, err)
	}

	cmd.Printf("Files: %d, changed: %d, failed: %d\n", report.Files, report.Changed, report.Failed)
	for _, e := range report.Errors {
		cmd.PrintErrln("  " + e)
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	if symbolIndex == nil {
		return errors.New("symbol index not configured")
	}
	if searchLimit <= 0 {
		return fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	query := strings.Join(args, " ")
	symbols, err := symbolIndex.Search(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(symbols) > searchLimit {
		symbols = symbols[:searchLimit]
	}

	if searchJSON {
		if symbols == nil {
			symbols = []domain.Symbol{}
		}
		return printJSON(cmd, symbols)
	}

	if len(symbols) == 0 {
		cmd.Printf("No symbols match %q\n", query)
		return nil
	}
	for _, s := range symbols {
		cmd.Printf("%s:%d  %-10s %s\n", s.FilePath, s.StartLine, s.Kind, s.Name)
		if s.Signature != "" && s.Signature != s.Name {
			cmd.Printf("    %s\n", s.Signature)
		}
	}
	return nil
}

func runSemantic(cmd *cobra.Command, args []string) error {
	if embeddingIndex == nil {
		return errors.New("embedding index not configured")
	}
	if searchLimit <= 0 {
		return fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	results, err := embeddingIndex.SemanticSearch(cmd.Context(), strings.Join(args, " "), searchLimit)
	if err != nil {
		return fmt.Errorf("semantic search failed: %w", err)
	}
	return printMatches(cmd, results)
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if embeddingIndex == nil {
		return errors.New("embedding index not configured")
	}
	if searchLimit <= 0 {
		return fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	path, err := filepath.Abs(filesystem.ResolvePath(args[0]))
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}
	start, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: start line %q", domain.ErrInvalidInput, args[1])
	}
	end, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("%w: end line %q", domain.ErrInvalidInput, args[2])
	}

	results, err := embeddingIndex.FindSimilarCode(cmd.Context(), path, start, end, searchLimit)
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}
	return printMatches(cmd, results)
}

func printMatches(cmd *cobra.Command, results []domain.SimilarityResult) error {
	if searchJSON {
		if results == nil {
			results = []domain.SimilarityResult{}
		}
		return printJSON(cmd, results)
	}

	if len(results) == 0 {
		cmd.Println("No similar code found")
		return nil
	}
	for i, r := range results {
		cmd.Printf("%d. %s:%d-%d (%.3f)\n", i+1, r.Record.FilePath, r.Record.StartLine, r.Record.EndLine, r.Similarity)
		cmd.Printf("   %s\n", snippet(r.Record.Content))
	}
	return nil
}

// snippet returns the first non-blank line of content.
func snippet(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
