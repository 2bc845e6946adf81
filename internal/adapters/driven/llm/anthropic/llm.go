// Package anthropic provides a model adapter for the Anthropic messages API.
package anthropic

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

const (
	// DefaultBaseURL is the public Anthropic API.
	DefaultBaseURL = "https://api.anthropic.com"

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for an Anthropic adapter.
type Config struct {
	// Descriptor describes the model. Credential is the API key.
	Descriptor domain.ModelDescriptor

	// HTTPClient is optional.
	HTTPClient *http.Client

	// RequestsPerSecond throttles calls. Zero means unlimited.
	RequestsPerSecond float64
}

// Adapter talks to one Claude model.
type Adapter struct {
	*llm.Base
	client *llm.Client
	model  string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	System      string               `json:"system,omitempty"`
	Temperature float64              `json:"temperature,omitempty"`
	StopSeqs    []string             `json:"stop_sequences,omitempty"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates an uninitialised Anthropic adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.Descriptor.Endpoint
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Descriptor.Model
	if model == "" {
		model = cfg.Descriptor.ID
	}
	headers := map[string]string{"anthropic-version": anthropicVersion}
	if cfg.Descriptor.Credential != "" {
		headers["x-api-key"] = cfg.Descriptor.Credential
	}
	return &Adapter{
		Base:   llm.NewBase(cfg.Descriptor, cfg.RequestsPerSecond),
		client: llm.NewClient(baseURL, cfg.HTTPClient, headers),
		model:  model,
	}
}

// Initialize only checks that a credential is configured.
func (a *Adapter) Initialize(ctx context.Context) error {
	return a.Initialise(ctx, a.RequireCredential)
}

// Probe lists models to verify the key.
func (a *Adapter) Probe(ctx context.Context) error {
	if err := a.RequireCredential(ctx); err != nil {
		return err
	}
	return llm.Classify(a.Descriptor().ID, "probe", a.client.GetJSON(ctx, "/v1/models", nil))
}

// Chat answers the latest user turn.
func (a *Adapter) Chat(ctx context.Context, req domain.DispatchRequest) (string, error) {
	return a.Call(ctx, "chat", func(ctx context.Context) (string, error) {
		return a.send(ctx, systemPrompt(req), llm.Messages(req, false), req)
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
	msgs := []domain.ChatMessage{{Role: domain.RoleUser, Content: llm.CompletionPrompt(req)}}
	text, err := a.send(ctx, req.SystemPrompt, msgs, req)
	if err != nil {
		return "", err
	}
	return llm.StripFences(text), nil
}

// systemPrompt merges the request prompt with system turns from history,
// which the messages API only accepts as a top-level field.
func systemPrompt(req domain.DispatchRequest) string {
	parts := make([]string, 0, 2)
	if req.SystemPrompt != "" {
		parts = append(parts, req.SystemPrompt)
	}
	for _, m := range req.Context.History {
		if m.Role == domain.RoleSystem && m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (a *Adapter) send(ctx context.Context, system string, msgs []domain.ChatMessage, req domain.DispatchRequest) (string, error) {
	body := messagesRequest{
		Model:       a.model,
		Messages:    msgs,
		MaxTokens:   llm.MaxTokens(req, a.Descriptor()),
		System:      system,
		Temperature: req.Limits.Temperature,
		StopSeqs:    req.Stop,
	}

	var resp messagesResponse
	if err := a.client.PostJSON(ctx, "/v1/messages", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", llm.Rejected(resp.Error.Message)
	}

	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", llm.Rejected("no response content returned")
	}
	return strings.TrimSpace(b.String()), nil
}

// Cleanup disposes the adapter. It is idempotent.
func (a *Adapter) Cleanup() error {
	a.Dispose()
	return nil
}
