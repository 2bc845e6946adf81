// Package openai provides a model adapter for OpenAI-compatible chat APIs.
package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/llm"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure Adapter implements the interfaces.
var (
	_ driven.ModelAdapter = (*Adapter)(nil)
	_ driven.Prober       = (*Adapter)(nil)
)

// DefaultBaseURL is the public OpenAI API.
// Descriptors can point Endpoint at Azure OpenAI or any compatible server.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds configuration for an OpenAI adapter.
type Config struct {
	// Descriptor describes the model. Credential is the API key.
	Descriptor domain.ModelDescriptor

	// HTTPClient is optional.
	HTTPClient *http.Client

	// RequestsPerSecond throttles calls. Zero means unlimited.
	RequestsPerSecond float64
}

// Adapter talks to one model over /chat/completions.
type Adapter struct {
	*llm.Base
	client *llm.Client
	model  string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature,omitempty"`
	Stop        []string             `json:"stop,omitempty"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// New creates an uninitialised OpenAI adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.Descriptor.Endpoint
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Descriptor.Model
	if model == "" {
		model = cfg.Descriptor.ID
	}
	headers := map[string]string{}
	if cfg.Descriptor.Credential != "" {
		headers["Authorization"] = "Bearer " + cfg.Descriptor.Credential
	}
	return &Adapter{
		Base:   llm.NewBase(cfg.Descriptor, cfg.RequestsPerSecond),
		client: llm.NewClient(baseURL, cfg.HTTPClient, headers),
		model:  model,
	}
}

// Initialize only checks that a credential is configured.
// Use Probe to verify it against the API.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.Initialise(ctx, a.RequireCredential)
}

// Probe lists models, which fails fast on a bad key.
func (a *Adapter) Probe(ctx context.Context) error {
	if err := a.RequireCredential(ctx); err != nil {
		return err
	}
	return llm.Classify(a.Descriptor().ID, "probe", a.client.GetJSON(ctx, "/models", nil))
}

// Chat answers the latest user turn.
func (a *Adapter) Chat(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "chat", func(ctx context.Context) (string, error) {
		return a.chatCompletion(ctx, llm.Messages(req, true), req)
	})
}

// Complete continues the payload as code.
func (a *Adapter) Complete(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "complete", func(ctx context.Context) (string, error) {
		return a.completion(ctx, req)
	})
}

// InlineComplete fills in the code at the cursor.
func (a *Adapter) InlineComplete(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "inline-completion", func(ctx context.Context) (string, error) {
		return a.completion(ctx, req)
	})
}

func (a *Adapter) completion(ctx context.Context, req domain.DispatchRequest) (string, error) {
	var msgs []domain.ChatMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: req.SystemPrompt})
	}
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: llm.CompletionPrompt(req)})

	text, err := a.chatCompletion(ctx, msgs, req)
	if err != nil {
		return "", err
	}
	return llm.StripFences(text), nil
}

func (a *Adapter) chatCompletion(ctx context.Context, msgs []domain.ChatMessage, req domain.DispatchRequest) (string, error) {
	body := chatCompletionRequest{
		Model:       a.model,
		Messages:    msgs,
		MaxTokens:   llm.MaxTokens(req, a.Descriptor()),
		Temperature: req.Limits.Temperature,
		Stop:        req.Stop,
	}

	var resp chatCompletionResponse
	if err := a.client.PostJSON(ctx, "/chat/completions", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", llm.Rejected(resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", llm.Rejected("no completion choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Cleanup disposes the adapter. It is idempotent.
func (a *Adapter) Cleanup() error {
	a.Dispose()
	return nil
}
