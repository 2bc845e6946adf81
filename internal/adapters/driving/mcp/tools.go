package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/codeassist/internal/core/domain"
)

// defaultLimit caps search results when the caller gives no limit.
const defaultLimit = 10

// ChatInput is the input schema for the chat tool.
type ChatInput struct {
	Message   string               `json:"message" jsonschema:"the question or instruction for the assistant"`
	Language  string               `json:"language,omitempty" jsonschema:"language of the code under discussion"`
	FilePath  string               `json:"file_path,omitempty" jsonschema:"path of the file being edited"`
	Selection string               `json:"selection,omitempty" jsonschema:"code the user has selected"`
	History   []domain.ChatMessage `json:"history,omitempty" jsonschema:"earlier turns of the conversation"`
}

// ChatOutput is the output schema for the chat tool.
type ChatOutput struct {
	Response string `json:"response"`
	Model    string `json:"model,omitempty"`
}

// CompleteInput is the input schema for the complete tool.
type CompleteInput struct {
	Prompt   string `json:"prompt" jsonschema:"code to continue"`
	Language string `json:"language,omitempty" jsonschema:"language of the code"`
	FilePath string `json:"file_path,omitempty" jsonschema:"path of the file being edited"`
}

// CompleteOutput is the output schema for the complete tool.
type CompleteOutput struct {
	Completion string `json:"completion"`
	Model      string `json:"model,omitempty"`
}

// SearchSymbolsInput is the input schema for the search_symbols tool.
type SearchSymbolsInput struct {
	Query string `json:"query" jsonschema:"substring of a symbol name or signature"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of symbols to return (default 10)"`
}

// SearchSymbolsOutput is the output schema for the search_symbols tool.
type SearchSymbolsOutput struct {
	Symbols []domain.Symbol `json:"symbols"`
	Count   int             `json:"count"`
}

// SemanticSearchInput is the input schema for the semantic_search tool.
type SemanticSearchInput struct {
	Query string `json:"query" jsonschema:"natural language description of the code to find"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// FindSimilarInput is the input schema for the find_similar_code tool.
type FindSimilarInput struct {
	FilePath  string `json:"file_path" jsonschema:"file containing the reference span"`
	StartLine int    `json:"start_line" jsonschema:"first line of the reference span"`
	EndLine   int    `json:"end_line" jsonschema:"last line of the reference span"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// CodeMatchOutput is one result of a similarity query.
type CodeMatchOutput struct {
	FilePath   string  `json:"file_path"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Language   string  `json:"language,omitempty"`
	SymbolKind string  `json:"symbol_kind,omitempty"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// CodeMatchesOutput is the output schema for the similarity tools.
type CodeMatchesOutput struct {
	Results []CodeMatchOutput `json:"results"`
	Count   int               `json:"count"`
}

// ListModelsInput is the input schema for the list_models tool.
type ListModelsInput struct{}

// ListModelsOutput is the output schema for the list_models tool.
type ListModelsOutput struct {
	Models  []domain.ModelStatus `json:"models"`
	Current string               `json:"current,omitempty"`
}

// SwitchModelInput is the input schema for the switch_model tool.
type SwitchModelInput struct {
	ModelID string `json:"model_id" jsonschema:"id of a ready model"`
}

// SwitchModelOutput is the output schema for the switch_model tool.
type SwitchModelOutput struct {
	Current string `json:"current"`
}

// registerTools registers all tool handlers with the MCP server.
// Index tools are only offered when the matching index is configured.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "chat",
		Description: "Ask the coding assistant a question about code",
	}, s.handleChat)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "complete",
		Description: "Continue a block of code",
	}, s.handleComplete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_models",
		Description: "List registered models and their availability",
	}, s.handleListModels)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "switch_model",
		Description: "Make a ready model the current model",
	}, s.handleSwitchModel)

	if s.ports.Symbols != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "search_symbols",
			Description: "Find functions, types and methods in the indexed project by name",
		}, s.handleSearchSymbols)
	}

	if s.ports.Embeddings != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "semantic_search",
			Description: "Find code in the indexed project that matches a description",
		}, s.handleSemanticSearch)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "find_similar_code",
			Description: "Find code similar to an indexed span",
		}, s.handleFindSimilar)
	}
}

func (s *Server) currentModel() string {
	id, _ := s.ports.Dispatcher.CurrentModel()
	return id
}

func (s *Server) handleChat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	if input.Message == "" {
		return nil, ChatOutput{}, errors.New("message is required")
	}

	rc := domain.RequestContext{
		Language:  input.Language,
		FilePath:  input.FilePath,
		Selection: input.Selection,
		History:   input.History,
	}
	reply := s.ports.Dispatcher.Chat(ctx, input.Message, rc)

	return nil, ChatOutput{Response: reply.Text, Model: reply.Model}, nil
}

func (s *Server) handleComplete(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CompleteInput,
) (*mcp.CallToolResult, CompleteOutput, error) {
	if input.Prompt == "" {
		return nil, CompleteOutput{}, errors.New("prompt is required")
	}

	rc := domain.RequestContext{Language: input.Language, FilePath: input.FilePath}
	reply := s.ports.Dispatcher.Complete(ctx, input.Prompt, rc)

	return nil, CompleteOutput{Completion: reply.Text, Model: reply.Model}, nil
}

func (s *Server) handleListModels(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListModelsInput,
) (*mcp.CallToolResult, ListModelsOutput, error) {
	models := s.ports.Dispatcher.ListModels()
	if models == nil {
		models = []domain.ModelStatus{}
	}
	return nil, ListModelsOutput{Models: models, Current: s.currentModel()}, nil
}

func (s *Server) handleSwitchModel(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SwitchModelInput,
) (*mcp.CallToolResult, SwitchModelOutput, error) {
	if err := s.ports.Dispatcher.SwitchModel(input.ModelID); err != nil {
		return nil, SwitchModelOutput{}, err
	}
	return nil, SwitchModelOutput{Current: input.ModelID}, nil
}

func (s *Server) handleSearchSymbols(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchSymbolsInput,
) (*mcp.CallToolResult, SearchSymbolsOutput, error) {
	if s.ports.Symbols == nil {
		return nil, SearchSymbolsOutput{}, errIndexUnavailable
	}

	symbols, err := s.ports.Symbols.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchSymbolsOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if len(symbols) > limit {
		symbols = symbols[:limit]
	}
	if symbols == nil {
		symbols = []domain.Symbol{}
	}

	return nil, SearchSymbolsOutput{Symbols: symbols, Count: len(symbols)}, nil
}

func (s *Server) handleSemanticSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SemanticSearchInput,
) (*mcp.CallToolResult, CodeMatchesOutput, error) {
	if s.ports.Embeddings == nil {
		return nil, CodeMatchesOutput{}, errIndexUnavailable
	}

	results, err := s.ports.Embeddings.SemanticSearch(ctx, input.Query, withDefaultLimit(input.Limit))
	if err != nil {
		return nil, CodeMatchesOutput{}, err
	}
	return nil, toMatches(results), nil
}

func (s *Server) handleFindSimilar(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FindSimilarInput,
) (*mcp.CallToolResult, CodeMatchesOutput, error) {
	if s.ports.Embeddings == nil {
		return nil, CodeMatchesOutput{}, errIndexUnavailable
	}

	results, err := s.ports.Embeddings.FindSimilarCode(
		ctx, input.FilePath, input.StartLine, input.EndLine, withDefaultLimit(input.Limit))
	if err != nil {
		return nil, CodeMatchesOutput{}, err
	}
	return nil, toMatches(results), nil
}

func withDefaultLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func toMatches(results []domain.SimilarityResult) CodeMatchesOutput {
	out := CodeMatchesOutput{
		Results: make([]CodeMatchOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		out.Results[i] = CodeMatchOutput{
			FilePath:   r.Record.FilePath,
			StartLine:  r.Record.StartLine,
			EndLine:    r.Record.EndLine,
			Language:   r.Record.Language,
			SymbolKind: string(r.Record.SymbolKind),
			Similarity: r.Similarity,
			Content:    r.Record.Content,
		}
	}
	return out
}
