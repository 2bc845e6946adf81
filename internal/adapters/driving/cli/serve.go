package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/codeassist/internal/adapters/driving/mcp"
	"github.com/custodia-labs/codeassist/internal/logger"
)

// defaultAddr binds to loopback; the API carries no authentication.
const defaultAddr = "127.0.0.1:7878"

var (
	serveAddr  string
	serveWatch string
	serveNoMCP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for editor plugins",
	Long: `Start the JSON HTTP API that editor plugins call for chat, completions,
model management and index queries.

The MCP server is mounted on the same listener at /mcp unless --no-mcp
is given. With --watch, the given project is indexed and kept up to date
while serving.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "project directory to index and watch")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.SetTimestamps(true)

	ports := httpapi.Ports{
		Dispatcher: dispatcher,
		Symbols:    symbolIndex,
		Embeddings: embeddingIndex,
		Indexer:    indexer,
	}
	if !serveNoMCP && dispatcher != nil {
		mcpServer, err := mcp.NewServer(&mcp.Ports{
			Dispatcher: dispatcher,
			Symbols:    symbolIndex,
			Embeddings: embeddingIndex,
		})
		if err != nil {
			return err
		}
		ports.MCP = mcpServer.Handler()
	}

	server, err := httpapi.NewServer(ports)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	watchErr := make(chan error, 1)
	if serveWatch != "" {
		go func() {
			watchErr <- watchProject(ctx, cmd, serveWatch, true)
		}()
	} else {
		close(watchErr)
	}

	cmd.Printf("codeassist API listening on http://%s\n", serveAddr)
	err = server.Run(ctx, serveAddr)
	cancel()

	if werr := <-watchErr; werr != nil && !errors.Is(werr, context.Canceled) {
		logger.Warn("watcher stopped: %v", werr)
		if err == nil {
			err = werr
		}
	}
	return err
}
