package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for codeassist resources.
	uriScheme = "codeassist://"

	mimeJSON = "application/json"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "models",
		Name:        "models",
		Description: "Registered models with their state",
		MIMEType:    mimeJSON,
	}, s.handleModelsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "transactions",
		Name:        "transactions",
		Description: "Recent AI interactions, oldest first",
		MIMEType:    mimeJSON,
	}, s.handleTransactionsResource)

	if s.ports.Symbols != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "files/{+path}",
			Name:        "file-symbols",
			Description: "Symbols indexed for one file",
			MIMEType:    mimeJSON,
		}, s.handleFileResource)
	}
}

func (s *Server) handleModelsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	models := s.ports.Dispatcher.ListModels()
	if models == nil {
		models = []domain.ModelStatus{}
	}
	return jsonResource(req.Params.URI, models)
}

func (s *Server) handleTransactionsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	txs := s.ports.Dispatcher.Transactions()
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return jsonResource(req.Params.URI, txs)
}

func (s *Server) handleFileResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	path := extractFilePath(req.Params.URI)
	if path == "" || s.ports.Symbols == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entry, err := s.ports.Symbols.Entry(ctx, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading index entry: %w", err)
	}
	return jsonResource(req.Params.URI, entry)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}

// extractFilePath extracts the path from a URI like codeassist://files/{path}.
func extractFilePath(uri string) string {
	const prefix = uriScheme + "files/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
