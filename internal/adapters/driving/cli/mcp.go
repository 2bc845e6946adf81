package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeassist/internal/adapters/driving/mcp"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/logger"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run codeassist as an MCP server",
	Long: `Expose chat, completion, model management and index search as MCP tools.

Without --port the server talks JSON-RPC on stdin/stdout, which is what
editor and assistant integrations launch:

  {
    "mcpServers": {
      "codeassist": {"command": "codeassist", "args": ["mcp", "serve"]}
    }
  }

With --port it serves streamable HTTP on 127.0.0.1. The same endpoint is
also available at /mcp on "codeassist serve".`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve streamable HTTP on this port instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	if mcpPort < 0 || mcpPort > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidInput, mcpPort)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Dispatcher: dispatcher,
		Symbols:    symbolIndex,
		Embeddings: embeddingIndex,
	})
	if err != nil {
		return err
	}

	if mcpPort == 0 {
		return server.Run(cmd.Context())
	}

	logger.SetTimestamps(true)
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(mcpPort))
	cmd.Printf("MCP endpoint at http://%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
